// Package memstore - хранилище задач в памяти процесса (STORE=memory и тесты).
//
// Транзакции оптимистичные: чтения идут из зафиксированного состояния,
// записи копятся в транзакции и применяются при коммите под мьютексом
// после повторной проверки ожидаемых снимков и уникальности.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"dispatchtrack/internal/apperr"
	"dispatchtrack/internal/dispatch"
	"dispatchtrack/internal/models"
)

// Store хранит задачи, журнал, машины и пользователей.
type Store struct {
	mu       sync.RWMutex
	tasks    map[string]*models.DispatchTask
	history  map[string][]models.StatusHistoryEntry // по task_id, в порядке добавления
	vehicles map[string]*models.Vehicle             // по task_id
	users    map[int64]*models.User
	histSeq  int64

	hookMu sync.RWMutex
	onRead func(taskID string)
}

var _ dispatch.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		tasks:    make(map[string]*models.DispatchTask),
		history:  make(map[string][]models.StatusHistoryEntry),
		vehicles: make(map[string]*models.Vehicle),
		users:    make(map[int64]*models.User),
	}
}

// OnTxRead регистрирует функцию, вызываемую после каждого чтения задачи в транзакции.
func (s *Store) OnTxRead(fn func(taskID string)) {
	s.hookMu.Lock()
	s.onRead = fn
	s.hookMu.Unlock()
}

func (s *Store) readHook(taskID string) {
	s.hookMu.RLock()
	fn := s.onRead
	s.hookMu.RUnlock()
	if fn != nil {
		fn(taskID)
	}
}

// PutUser добавляет или заменяет пользователя.
func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

// PutTask кладёт задачу напрямую, минуя машину состояний (импорт старых данных, тесты).
func (s *Store) PutTask(t models.DispatchTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.TaskID] = t.Clone()
}

func (s *Store) GetTask(_ context.Context, taskID string) (*models.DispatchTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, dispatch.ErrTaskNotFound()
	}
	return t.Clone(), nil
}

func (s *Store) ListTasks(_ context.Context, f dispatch.TaskFilter) ([]models.DispatchTask, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.DispatchTask
	for _, t := range s.tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Track != "" && t.Track != f.Track {
			continue
		}
		if f.HandlerRole != "" && t.CurrentHandlerRole != f.HandlerRole {
			continue
		}
		matched = append(matched, *t)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].TaskID > matched[j].TaskID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if f.Offset >= total {
		return []models.DispatchTask{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

// ListHistory возвращает журнал, новые записи первыми.
func (s *Store) ListHistory(_ context.Context, taskID string) ([]models.StatusHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.history[taskID]
	out := make([]models.StatusHistoryEntry, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, rows[i])
	}
	return out, nil
}

func (s *Store) GetVehicle(_ context.Context, taskID string) (*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[taskID]
	if !ok {
		return nil, apperr.NotFound(dispatch.MsgVehicleNotFound).WithField("task_id")
	}
	c := *v
	return &c, nil
}

func (s *Store) GetUser(_ context.Context, userID int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, apperr.NotFound(dispatch.MsgUserNotFound).WithField("user_id")
	}
	c := *u
	return &c, nil
}

// WithinTx выполняет fn и фиксирует накопленные записи, если fn вернула nil.
func (s *Store) WithinTx(ctx context.Context, fn func(tx dispatch.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s)
	if err := fn(t); err != nil {
		return err
	}
	return s.commit(t)
}

// commit повторяет проверки под эксклюзивной блокировкой и применяет записи.
func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, want := range t.expect {
		cur, ok := s.tasks[id]
		if !ok {
			return dispatch.ErrTaskNotFound()
		}
		if cur.Status != want.Status || !cur.UpdatedAt.Equal(want.UpdatedAt) {
			return dispatch.ErrStaleTask()
		}
	}
	for id := range t.inserted {
		if _, ok := s.tasks[id]; ok {
			return dispatch.ErrTaskIDTaken()
		}
	}
	for _, v := range t.vehicles {
		if field := s.vehicleCollision(v); field != "" {
			return dispatch.ErrVehicleConflict(field)
		}
	}

	for id, task := range t.tasks {
		s.tasks[id] = task.Clone()
	}
	for _, v := range t.vehicles {
		c := *v
		s.vehicles[v.TaskID] = &c
	}
	for _, e := range t.history {
		s.histSeq++
		e.ID = s.histSeq
		s.history[e.TaskID] = append(s.history[e.TaskID], *e)
	}
	return nil
}

// vehicleCollision возвращает поле, по которому v конфликтует с зафиксированными машинами.
func (s *Store) vehicleCollision(v *models.Vehicle) string {
	if _, ok := s.vehicles[v.TaskID]; ok {
		return "task_id"
	}
	for _, cur := range s.vehicles {
		if cur.ManifestNumber == v.ManifestNumber {
			return "manifest_number"
		}
		if cur.DispatchNumber == v.DispatchNumber {
			return "dispatch_number"
		}
	}
	return ""
}

func (s *Store) countPrefix(prefix string) int {
	n := 0
	for id := range s.tasks {
		if strings.HasPrefix(id, prefix) {
			n++
		}
	}
	return n
}
