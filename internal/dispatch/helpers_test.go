package dispatch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"dispatchtrack/internal/constants"
	"dispatchtrack/internal/dispatch"
	"dispatchtrack/internal/memstore"
	"dispatchtrack/internal/models"
)

var (
	workshop = dispatch.Actor{ID: 1, Role: constants.ROLE_WORKSHOP_DISPATCHER, Name: "车间张工"}
	regional = dispatch.Actor{ID: 2, Role: constants.ROLE_REGIONAL_DISPATCHER, Name: "区域李调"}
	admin    = dispatch.Actor{ID: 3, Role: constants.ROLE_SUPER_ADMIN, Name: "管理员"}
	supplier = dispatch.Actor{ID: 4, Role: constants.ROLE_SUPPLIER, Name: "顺达物流"}
	other    = dispatch.Actor{ID: 5, Role: constants.ROLE_SUPPLIER, Name: "远通运输"}
	account  = dispatch.Actor{ID: 6, Role: constants.ROLE_ACCOUNTANT, Name: "对账王"}

	allActors = []dispatch.Actor{workshop, regional, admin, supplier, account}
)

var baseTime = time.Date(2024, 10, 15, 9, 0, 0, 0, time.Local)

// stepClock - часы, сдвигающиеся на секунду при каждом вызове.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []dispatch.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev dispatch.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type fixture struct {
	store    *memstore.Store
	svc      *dispatch.Service
	notifier *recordingNotifier
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	for _, a := range append(allActors, other) {
		store.PutUser(models.User{ID: a.ID, Name: a.Name, Role: a.Role})
	}
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	n := &recordingNotifier{}
	clock := &stepClock{t: baseTime}
	svc := dispatch.NewService(store,
		dispatch.WithNotifier(n),
		dispatch.WithLogger(logger),
		dispatch.WithClock(clock.Now),
	)
	return &fixture{store: store, svc: svc, notifier: n, ctx: context.Background()}
}

func validInput() dispatch.TaskInput {
	return dispatch.TaskInput{
		RequirementType: constants.REQUIREMENT_REGULAR,
		TransportType:   constants.TRANSPORT_ONE_WAY,
		StartLocation:   "北京南站",
		EndLocation:     "天津西站",
		CarrierCompany:  "顺达物流",
		Weight:          "12",
		Volume:          35.5,
		RequiredTime:    "2024-10-16T08:30",
	}
}

// seedTask кладёт задачу в нужном состоянии напрямую в хранилище.
func (f *fixture) seedTask(t *testing.T, id string, track constants.Track, status constants.Status) *models.DispatchTask {
	t.Helper()
	task := models.DispatchTask{
		TaskID:             id,
		Track:              track,
		RequirementType:    constants.REQUIREMENT_REGULAR,
		TransportType:      constants.TRANSPORT_ONE_WAY,
		StartLocation:      "北京南站",
		EndLocation:        "天津西站",
		CarrierCompany:     "顺达物流",
		Weight:             "20",
		Volume:             40,
		RequiredTime:       baseTime.Add(24 * time.Hour),
		InitiatorUserID:    workshop.ID,
		InitiatorRole:      workshop.Role,
		Status:             status,
		CurrentHandlerRole: dispatch.NextHandler(track, status),
		AuditRequired:      track == constants.TRACK_A,
		CreatedAt:          baseTime,
		UpdatedAt:          baseTime,
	}
	f.store.PutTask(task)
	got, err := f.store.GetTask(f.ctx, id)
	require.NoError(t, err)
	return got
}

func (f *fixture) mustGet(t *testing.T, id string) *models.DispatchTask {
	t.Helper()
	task, err := f.svc.GetTask(f.ctx, id)
	require.NoError(t, err)
	return task
}
