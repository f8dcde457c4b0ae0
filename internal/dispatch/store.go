package dispatch

import (
	"context"
	"time"

	"dispatchtrack/internal/constants"
	"dispatchtrack/internal/models"
)

// Store - хранилище задач. Реализации: internal/db (Postgres) и internal/memstore.
//
// Ошибки возвращаются как *apperr.Error: отсутствие строки - NotFound,
// нарушение уникальности и устаревший снимок - Conflict.
type Store interface {
	// WithinTx выполняет fn в одной транзакции. Ошибка fn откатывает все изменения.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetTask(ctx context.Context, taskID string) (*models.DispatchTask, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]models.DispatchTask, int, error)
	ListHistory(ctx context.Context, taskID string) ([]models.StatusHistoryEntry, error)
	GetVehicle(ctx context.Context, taskID string) (*models.Vehicle, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
}

// Tx - операции внутри транзакции.
type Tx interface {
	GetTask(ctx context.Context, taskID string) (*models.DispatchTask, error)
	// CountTasksWithPrefix считает задачи, чей task_id начинается с prefix.
	CountTasksWithPrefix(ctx context.Context, prefix string) (int, error)
	InsertTask(ctx context.Context, task *models.DispatchTask) error
	// UpdateTask записывает изменяемые поля задачи, только если строка всё ещё
	// совпадает с prev. Иначе возвращает Conflict.
	UpdateTask(ctx context.Context, task *models.DispatchTask, prev Snapshot) error
	AppendHistory(ctx context.Context, entry *models.StatusHistoryEntry) error
	VehicleExists(ctx context.Context, taskID string) (bool, error)
	InsertVehicle(ctx context.Context, v *models.Vehicle) error
}

// Snapshot - состояние строки, от которого был рассчитан переход.
type Snapshot struct {
	Status    constants.Status
	UpdatedAt time.Time
}

func SnapshotOf(t *models.DispatchTask) Snapshot {
	return Snapshot{Status: t.Status, UpdatedAt: t.UpdatedAt}
}

// TaskFilter - фильтр и пагинация списка задач. Пустые поля не фильтруют.
type TaskFilter struct {
	Status      constants.Status
	Track       constants.Track
	HandlerRole constants.Role
	Limit       int
	Offset      int
}
