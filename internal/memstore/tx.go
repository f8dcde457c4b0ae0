package memstore

import (
	"context"
	"strings"

	"dispatchtrack/internal/dispatch"
	"dispatchtrack/internal/models"
)

// tx - буфер записей одной транзакции.
type tx struct {
	s        *Store
	tasks    map[string]*models.DispatchTask // изменённые или вставленные в этой транзакции
	inserted map[string]bool
	expect   map[string]dispatch.Snapshot // ожидаемое зафиксированное состояние
	history  []*models.StatusHistoryEntry
	vehicles []*models.Vehicle
}

func newTx(s *Store) *tx {
	return &tx{
		s:        s,
		tasks:    make(map[string]*models.DispatchTask),
		inserted: make(map[string]bool),
		expect:   make(map[string]dispatch.Snapshot),
	}
}

func (t *tx) current(taskID string) (*models.DispatchTask, bool) {
	if task, ok := t.tasks[taskID]; ok {
		return task, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	task, ok := t.s.tasks[taskID]
	if !ok {
		return nil, false
	}
	return task.Clone(), true
}

func (t *tx) GetTask(_ context.Context, taskID string) (*models.DispatchTask, error) {
	task, ok := t.current(taskID)
	if !ok {
		return nil, dispatch.ErrTaskNotFound()
	}
	t.s.readHook(taskID)
	return task.Clone(), nil
}

func (t *tx) CountTasksWithPrefix(_ context.Context, prefix string) (int, error) {
	t.s.mu.RLock()
	n := t.s.countPrefix(prefix)
	t.s.mu.RUnlock()
	for id := range t.inserted {
		if strings.HasPrefix(id, prefix) {
			n++
		}
	}
	return n, nil
}

func (t *tx) InsertTask(_ context.Context, task *models.DispatchTask) error {
	if _, ok := t.current(task.TaskID); ok {
		return dispatch.ErrTaskIDTaken()
	}
	t.tasks[task.TaskID] = task.Clone()
	t.inserted[task.TaskID] = true
	return nil
}

func (t *tx) UpdateTask(_ context.Context, task *models.DispatchTask, prev dispatch.Snapshot) error {
	cur, ok := t.current(task.TaskID)
	if !ok {
		return dispatch.ErrTaskNotFound()
	}
	if cur.Status != prev.Status || !cur.UpdatedAt.Equal(prev.UpdatedAt) {
		return dispatch.ErrStaleTask()
	}
	if _, seen := t.expect[task.TaskID]; !seen && !t.inserted[task.TaskID] {
		t.expect[task.TaskID] = prev
	}
	t.tasks[task.TaskID] = task.Clone()
	return nil
}

func (t *tx) AppendHistory(_ context.Context, entry *models.StatusHistoryEntry) error {
	t.history = append(t.history, entry)
	return nil
}

func (t *tx) VehicleExists(_ context.Context, taskID string) (bool, error) {
	for _, v := range t.vehicles {
		if v.TaskID == taskID {
			return true, nil
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	_, ok := t.s.vehicles[taskID]
	return ok, nil
}

func (t *tx) InsertVehicle(_ context.Context, v *models.Vehicle) error {
	for _, p := range t.vehicles {
		switch {
		case p.TaskID == v.TaskID:
			return dispatch.ErrVehicleConflict("task_id")
		case p.ManifestNumber == v.ManifestNumber:
			return dispatch.ErrVehicleConflict("manifest_number")
		case p.DispatchNumber == v.DispatchNumber:
			return dispatch.ErrVehicleConflict("dispatch_number")
		}
	}
	t.s.mu.RLock()
	field := t.s.vehicleCollision(v)
	t.s.mu.RUnlock()
	if field != "" {
		return dispatch.ErrVehicleConflict(field)
	}
	c := *v
	t.vehicles = append(t.vehicles, &c)
	return nil
}
