package api_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dispatchtrack/internal/api"
	"dispatchtrack/internal/config"
	"dispatchtrack/internal/constants"
	"dispatchtrack/internal/dispatch"
	"dispatchtrack/internal/memstore"
	"dispatchtrack/internal/models"
	"dispatchtrack/internal/report"
)

const secret = "test-secret"

var (
	workshop = dispatch.Actor{ID: 1, Role: constants.ROLE_WORKSHOP_DISPATCHER, Name: "车间张工"}
	regional = dispatch.Actor{ID: 2, Role: constants.ROLE_REGIONAL_DISPATCHER, Name: "区域李调"}
	supplier = dispatch.Actor{ID: 4, Role: constants.ROLE_SUPPLIER, Name: "顺达物流"}
	blocked  = dispatch.Actor{ID: 7, Role: constants.ROLE_SUPPLIER, Name: "停用供应商"}
)

type env struct {
	e     *httpexpect.Expect
	store *memstore.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memstore.New()
	for _, a := range []dispatch.Actor{workshop, regional, supplier} {
		store.PutUser(models.User{ID: a.ID, Name: a.Name, Role: a.Role})
	}
	store.PutUser(models.User{ID: blocked.ID, Name: blocked.Name, Role: blocked.Role, IsBlocked: true})

	logger, _ := test.NewNullLogger()
	svc := dispatch.NewService(store, dispatch.WithLogger(logger))
	cfg := &config.Config{
		AuthSecret:      secret,
		AuthMaxAge:      24 * time.Hour,
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}

	r := chi.NewRouter()
	api.SetupRoutes(r, api.ApiDependencies{Config: cfg, Service: svc, Logger: logger})
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &env{e: httpexpect.Default(t, server.URL), store: store}
}

func token(t *testing.T, a dispatch.Actor) string {
	t.Helper()
	tok, err := api.SignAuthToken(a, secret, time.Now())
	require.NoError(t, err)
	return tok
}

func (v *env) as(t *testing.T, a dispatch.Actor, method, path string, args ...any) *httpexpect.Request {
	return v.e.Request(method, path, args...).WithHeader(api.AuthHeader, token(t, a))
}

func taskBody(track string) map[string]any {
	return map[string]any{
		"dispatch_track":   track,
		"requirement_type": "正班",
		"transport_type":   "单程",
		"start_location":   "北京南站",
		"end_location":     "天津西站",
		"carrier_company":  "顺达物流",
		"weight":           "12",
		"volume":           35.5,
		"required_time":    "2024-10-16T08:30",
	}
}

func (v *env) createTask(t *testing.T, a dispatch.Actor, track string) string {
	t.Helper()
	return v.as(t, a, http.MethodPost, "/api/tasks").
		WithJSON(taskBody(track)).
		Expect().
		Status(http.StatusCreated).
		JSON().Object().Value("data").Object().Value("task_id").String().Raw()
}

func TestHealth(t *testing.T) {
	v := newEnv(t)
	v.e.GET("/api/health").Expect().Status(http.StatusOK).
		JSON().Object().HasValue("status", "success")
}

func TestAuthMiddleware(t *testing.T) {
	v := newEnv(t)

	v.e.GET("/api/tasks").Expect().Status(http.StatusUnauthorized).
		JSON().Object().HasValue("status", "error")

	tampered, err := url.ParseQuery(token(t, regional))
	require.NoError(t, err)
	tampered.Set("user", `{"id":3,"name":"x","role":"超级管理员"}`)
	v.e.GET("/api/tasks").WithHeader(api.AuthHeader, tampered.Encode()).
		Expect().Status(http.StatusUnauthorized)

	expired, err := api.SignAuthToken(regional, secret, time.Now().Add(-25*time.Hour))
	require.NoError(t, err)
	v.e.GET("/api/tasks").WithHeader(api.AuthHeader, expired).
		Expect().Status(http.StatusUnauthorized)

	unknown := dispatch.Actor{ID: 99, Role: constants.ROLE_SUPER_ADMIN}
	v.as(t, unknown, http.MethodGet, "/api/tasks").Expect().Status(http.StatusUnauthorized)

	v.as(t, blocked, http.MethodGet, "/api/tasks").Expect().Status(http.StatusForbidden).
		JSON().Object().HasValue("kind", "PermissionDenied")
}

func TestTrackAFlowOverHTTP(t *testing.T) {
	v := newEnv(t)
	id := v.createTask(t, workshop, "B") // маршрут игнорируется для цехового диспетчера

	v.as(t, regional, http.MethodGet, "/api/tasks/{id}", id).Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object().
		HasValue("status", "待调度员审核").
		HasValue("dispatch_track", "轨道A").
		HasValue("current_handler_role", "区域调度员")

	v.as(t, regional, http.MethodPost, "/api/tasks/{id}/audit", id).
		WithJSON(map[string]string{"result": "approve", "note": "同意"}).
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object().
		HasValue("status", "待供应商响应").
		HasValue("audit_status", "已通过")

	v.as(t, supplier, http.MethodPost, "/api/tasks/{id}/confirm", id).
		WithJSON(map[string]any{
			"vehicle": map[string]any{
				"manifest_number": "MF-00001",
				"dispatch_number": "DP-00001",
				"license_plate":   "京A12345",
			},
		}).
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object().HasValue("status", "供应商已响应")

	v.as(t, workshop, http.MethodGet, "/api/tasks/{id}/vehicle", id).Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object().HasValue("license_plate", "京A12345")

	for _, step := range []struct {
		actor  dispatch.Actor
		status string
	}{
		{workshop, "WORKSHOP_VERIFIED"},
		{supplier, "供应商已确认"},
		{workshop, "COMPLETED"},
	} {
		v.as(t, step.actor, http.MethodPost, "/api/tasks/{id}/status", id).
			WithJSON(map[string]string{"status": step.status}).
			Expect().Status(http.StatusOK)
	}

	task := v.as(t, workshop, http.MethodGet, "/api/tasks/{id}", id).Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object()
	task.HasValue("status", "任务结束")
	task.NotContainsKey("current_handler_role")

	history := v.as(t, workshop, http.MethodGet, "/api/tasks/{id}/history", id).Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Array()
	history.Length().IsEqual(6)
	history.Value(0).Object().HasValue("status_change", "供应商已确认→任务结束")
}

func TestErrorMapping(t *testing.T) {
	v := newEnv(t)
	id := v.createTask(t, regional, "A")

	v.as(t, supplier, http.MethodPost, "/api/tasks/{id}/audit", id).
		WithJSON(map[string]string{"result": "approve"}).
		Expect().Status(http.StatusForbidden).
		JSON().Object().HasValue("kind", "PermissionDenied")

	v.as(t, regional, http.MethodPost, "/api/tasks/{id}/status", id).
		WithJSON(map[string]string{"status": "COMPLETED"}).
		Expect().Status(http.StatusConflict).
		JSON().Object().HasValue("kind", "InvalidTransition")

	v.as(t, regional, http.MethodPost, "/api/tasks/{id}/status", id).
		WithJSON(map[string]string{"status": "UNKNOWN"}).
		Expect().Status(http.StatusBadRequest).
		JSON().Object().HasValue("field", "status")

	v.as(t, regional, http.MethodGet, "/api/tasks/{id}", "T19990101001").
		Expect().Status(http.StatusNotFound).
		JSON().Object().HasValue("kind", "NotFound")

	body := taskBody("A")
	body["weight"] = "99"
	v.as(t, regional, http.MethodPost, "/api/tasks").WithJSON(body).
		Expect().Status(http.StatusBadRequest).
		JSON().Object().
		HasValue("kind", "ValidationError").
		HasValue("field", "weight")

	v.as(t, regional, http.MethodPost, "/api/tasks").WithText("{broken").
		Expect().Status(http.StatusBadRequest).
		JSON().Object().HasValue("field", "body")
}

func TestDuplicateVehicleConflict(t *testing.T) {
	v := newEnv(t)
	first := v.createTask(t, regional, "B")
	second := v.createTask(t, regional, "B")

	vehicle := map[string]any{
		"manifest_number": "MF-00001",
		"dispatch_number": "DP-00001",
		"license_plate":   "京A12345",
	}
	v.as(t, supplier, http.MethodPost, "/api/tasks/{id}/confirm", first).
		WithJSON(map[string]any{"vehicle": vehicle}).
		Expect().Status(http.StatusOK)

	v.as(t, supplier, http.MethodPost, "/api/tasks/{id}/confirm", first).
		WithJSON(map[string]any{"vehicle": vehicle}).
		Expect().Status(http.StatusConflict).
		JSON().Object().HasValue("kind", "Conflict")

	vehicle["dispatch_number"] = "DP-00002"
	v.as(t, supplier, http.MethodPost, "/api/tasks/{id}/confirm", second).
		WithJSON(map[string]any{"vehicle": vehicle}).
		Expect().Status(http.StatusConflict).
		JSON().Object().HasValue("field", "manifest_number")

	v.as(t, regional, http.MethodGet, "/api/tasks/{id}", second).Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object().HasValue("status", "待供应商响应")
}

func TestListTasks(t *testing.T) {
	v := newEnv(t)
	for i := 0; i < 3; i++ {
		v.createTask(t, regional, "B")
	}
	v.createTask(t, regional, "A")

	data := v.as(t, supplier, http.MethodGet, "/api/tasks").
		WithQuery("track", "B").WithQuery("limit", 2).
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object()
	data.HasValue("total", 3)
	data.HasValue("limit", 2)
	data.Value("tasks").Array().Length().IsEqual(2)

	v.as(t, supplier, http.MethodGet, "/api/tasks").
		WithQuery("handler_role", "REGIONAL_DISPATCHER").
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object().HasValue("total", 1)

	v.as(t, supplier, http.MethodGet, "/api/tasks").WithQuery("limit", 101).
		Expect().Status(http.StatusBadRequest).
		JSON().Object().HasValue("field", "limit")

	v.as(t, supplier, http.MethodGet, "/api/tasks").WithQuery("page", "x").
		Expect().Status(http.StatusBadRequest)
}

func TestExportRequiresDispatcher(t *testing.T) {
	v := newEnv(t)
	v.createTask(t, regional, "A")
	v.createTask(t, regional, "B")

	v.as(t, workshop, http.MethodGet, "/api/tasks/export.xlsx").
		Expect().Status(http.StatusForbidden)

	raw := v.as(t, regional, http.MethodGet, "/api/tasks/export.xlsx").
		Expect().Status(http.StatusOK).
		ContentType("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet").
		Body().Raw()

	f, err := excelize.OpenReader(bytes.NewReader([]byte(raw)))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestImportTasks(t *testing.T) {
	v := newEnv(t)

	f := excelize.NewFile()
	rows := [][]any{
		{"需求类型", "运输类型", "起点", "终点", "承运公司", "吨位", "体积", "需求时间"},
		{"正班", "单程", "北京南站", "天津西站", "顺达物流", "12", "35.5", "2024-10-16 08:30"},
		{"正班", "单程", "", "天津西站", "顺达物流", "12", "35.5", "2024-10-16 08:30"},
	}
	for i, row := range rows {
		require.NoError(t, f.SetSheetRow("Sheet1", "A"+strconv.Itoa(i+1), &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	f.Close()

	v.as(t, supplier, http.MethodPost, "/api/tasks/import").
		WithMultipart().WithFile("file", "tasks.xlsx", bytes.NewReader(buf.Bytes())).
		Expect().Status(http.StatusForbidden)

	results := v.as(t, regional, http.MethodPost, "/api/tasks/import").
		WithMultipart().WithFile("file", "tasks.xlsx", bytes.NewReader(buf.Bytes())).
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Array()
	results.Length().IsEqual(2)
	results.Value(0).Object().ContainsKey("task_id")
	results.Value(1).Object().HasValue("field", "start_location")

	v.as(t, regional, http.MethodPost, "/api/tasks/import").
		Expect().Status(http.StatusBadRequest).
		JSON().Object().HasValue("field", "file")
}

func TestTaskLabel(t *testing.T) {
	v := newEnv(t)
	id := v.createTask(t, regional, "A")

	body := v.as(t, supplier, http.MethodGet, "/api/tasks/{id}/label.png", id).
		Expect().Status(http.StatusOK).
		ContentType("image/png").
		Body().Raw()
	assert.True(t, bytes.HasPrefix([]byte(body), []byte("\x89PNG")))
}
