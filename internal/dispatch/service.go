// Package dispatch - машина состояний задач на подачу транспорта (маршруты A и B).
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"dispatchtrack/internal/config"
	"dispatchtrack/internal/constants"
	"dispatchtrack/internal/models"
)

// Actor - уже аутентифицированный пользователь, выполняющий операцию.
type Actor struct {
	ID   int64
	Role constants.Role
	Name string
}

// DisplayName - имя для журнала статусов.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return fmt.Sprintf("user#%d", a.ID)
}

// ActorFromUser строит Actor из записи пользователя.
func ActorFromUser(u *models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role, Name: u.Name}
}

// Event - зафиксированное изменение задачи.
type Event struct {
	Task  *models.DispatchTask
	Entry *models.StatusHistoryEntry
	Actor Actor
}

// Notifier получает события после коммита. Ошибки только логируются.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Event) error { return nil }

// Service выполняет операции над задачами поверх Store.
type Service struct {
	store    Store
	notifier Notifier
	logger   logrus.FieldLogger
	now      func() time.Time
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		notifier: noopNotifier{},
		logger:   config.GetLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp - точность микросекунд, как у timestamptz в Postgres,
// чтобы сравнение updated_at в UpdateTask совпадало с прочитанным значением.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// publish отправляет событие после успешного коммита.
func (s *Service) publish(ctx context.Context, task *models.DispatchTask, entry *models.StatusHistoryEntry, actor Actor) {
	s.logger.WithFields(logrus.Fields{
		"task_id":  task.TaskID,
		"change":   entry.StatusChange,
		"operator": entry.Operator,
	}).Info("publish: статус задачи изменён")

	if err := s.notifier.Notify(ctx, Event{Task: task, Entry: entry, Actor: actor}); err != nil {
		config.LogError(s.logger, "dispatch", "publish", "notify", task.TaskID, err)
	}
}
