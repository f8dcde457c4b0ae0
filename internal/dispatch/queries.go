package dispatch

import (
	"context"

	"dispatchtrack/internal/apperr"
	"dispatchtrack/internal/constants"
	"dispatchtrack/internal/models"
)

// Page - параметры пагинации.
type Page struct {
	Page  int
	Limit int
}

// TaskList - страница списка задач.
type TaskList struct {
	Tasks []models.DispatchTask `json:"tasks"`
	Total int                   `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// ListQuery - фильтры списка задач.
type ListQuery struct {
	Status      constants.Status
	Track       constants.Track
	HandlerRole constants.Role
}

func (s *Service) GetTask(ctx context.Context, taskID string) (*models.DispatchTask, error) {
	return s.store.GetTask(ctx, taskID)
}

// GetHistory возвращает журнал задачи, новые записи первыми.
func (s *Service) GetHistory(ctx context.Context, taskID string) ([]models.StatusHistoryEntry, error) {
	if _, err := s.store.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return s.store.ListHistory(ctx, taskID)
}

func (s *Service) GetVehicle(ctx context.Context, taskID string) (*models.Vehicle, error) {
	return s.store.GetVehicle(ctx, taskID)
}

// ListTasks - список задач, новые первыми. maxLimit ограничивает размер страницы.
func (s *Service) ListTasks(ctx context.Context, q ListQuery, p Page, maxLimit int) (*TaskList, error) {
	if p.Page < 1 {
		return nil, apperr.Validation("page", "页码必须大于0")
	}
	if p.Limit < 1 || p.Limit > maxLimit {
		return nil, apperr.Validation("limit", "每页数量超出范围")
	}
	tasks, total, err := s.store.ListTasks(ctx, TaskFilter{
		Status:      q.Status,
		Track:       q.Track,
		HandlerRole: q.HandlerRole,
		Limit:       p.Limit,
		Offset:      (p.Page - 1) * p.Limit,
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.DispatchTask{}
	}
	return &TaskList{Tasks: tasks, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

// ResolveActor загружает пользователя и проверяет, что он не заблокирован.
func (s *Service) ResolveActor(ctx context.Context, userID int64) (Actor, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Actor{}, err
	}
	if u.IsBlocked {
		return Actor{}, apperr.PermissionDenied("用户已被禁用")
	}
	return ActorFromUser(u), nil
}
