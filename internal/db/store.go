package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"dispatchtrack/internal/dispatch"
	"dispatchtrack/internal/models"
)

// queryer - общее подмножество *sql.DB и *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store - реализация dispatch.Store поверх PostgreSQL.
type Store struct {
	db     *sql.DB
	logger logrus.FieldLogger
}

var _ dispatch.Store = (*Store)(nil)

func NewStore(conn *sql.DB, logger logrus.FieldLogger) *Store {
	return &Store{db: conn, logger: logger}
}

// WithinTx выполняет fn в транзакции READ COMMITTED. Конкурентные переходы
// отсекаются условием на status/updated_at в UpdateTask.
func (s *Store) WithinTx(ctx context.Context, fn func(tx dispatch.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("WithinTx: ошибка начала транзакции: %w", translateError(err))
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Warnf("WithinTx: ошибка отката транзакции: %v", rbErr)
			}
		}
	}()

	if err = fn(&pgTx{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return translateError(err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, taskID string) (*models.DispatchTask, error) {
	return getTask(ctx, s.db, taskID)
}

func (s *Store) ListTasks(ctx context.Context, f dispatch.TaskFilter) ([]models.DispatchTask, int, error) {
	return listTasks(ctx, s.db, f)
}

func (s *Store) ListHistory(ctx context.Context, taskID string) ([]models.StatusHistoryEntry, error) {
	return listHistory(ctx, s.db, taskID)
}

func (s *Store) GetVehicle(ctx context.Context, taskID string) (*models.Vehicle, error) {
	return getVehicle(ctx, s.db, taskID)
}

func (s *Store) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return getUser(ctx, s.db, userID)
}

// pgTx - dispatch.Tx поверх *sql.Tx.
type pgTx struct {
	q queryer
}

func (t *pgTx) GetTask(ctx context.Context, taskID string) (*models.DispatchTask, error) {
	return getTask(ctx, t.q, taskID)
}

func (t *pgTx) CountTasksWithPrefix(ctx context.Context, prefix string) (int, error) {
	return countTasksWithPrefix(ctx, t.q, prefix)
}

func (t *pgTx) InsertTask(ctx context.Context, task *models.DispatchTask) error {
	return insertTask(ctx, t.q, task)
}

func (t *pgTx) UpdateTask(ctx context.Context, task *models.DispatchTask, prev dispatch.Snapshot) error {
	return updateTaskCAS(ctx, t.q, task, prev)
}

func (t *pgTx) AppendHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	return appendHistory(ctx, t.q, entry)
}

func (t *pgTx) VehicleExists(ctx context.Context, taskID string) (bool, error) {
	return vehicleExists(ctx, t.q, taskID)
}

func (t *pgTx) InsertVehicle(ctx context.Context, v *models.Vehicle) error {
	return insertVehicle(ctx, t.q, v)
}
