package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"dispatchtrack/internal/apperr"
	"dispatchtrack/internal/config"
	"dispatchtrack/internal/constants"
	"dispatchtrack/internal/dispatch"
)

// jsonResponse - стандартный ответ API
type jsonResponse struct {
	Status  string `json:"status"` // "success" или "error"
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Field   string `json:"field,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// CreateTaskRequest - тело POST /api/tasks.
type CreateTaskRequest struct {
	dispatch.TaskInput
	Track string `json:"dispatch_track"`
}

// NoteRequest - тело POST /submit.
type NoteRequest struct {
	Note string `json:"note"`
}

// AuditRequest - тело POST /audit. Result: approve | reject.
type AuditRequest struct {
	Result string `json:"result"`
	Note   string `json:"note"`
}

// StatusRequest - тело POST /status. Status - каноническое имя или метка.
type StatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// ConfirmRequest - тело POST /confirm. Vehicle необязателен.
type ConfirmRequest struct {
	Vehicle *dispatch.VehicleInput `json:"vehicle"`
	Note    string                 `json:"note"`
}

// --- Вспомогательные функции для JSON-ответов ---
// writeJSON кодирует ответ до записи заголовка: ошибка кодирования даёт 500, а не пустой 200.
func writeJSON(w http.ResponseWriter, statusCode int, resp jsonResponse) {
	body, err := json.Marshal(resp)
	if err != nil {
		config.GetLogger().Errorf("writeJSON: ошибка кодирования ответа: %v", err)
		statusCode = http.StatusInternalServerError
		body, _ = json.Marshal(jsonResponse{Status: "error", Message: apperr.PublicMessage(err), Kind: string(apperr.KindInternal)})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	w.Write(append(body, '\n'))
}

func writeJSONError(w http.ResponseWriter, statusCode int, message, kind, field string) {
	writeJSON(w, statusCode, jsonResponse{Status: "error", Message: message, Kind: kind, Field: field})
}

func writeJSONSuccess(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, jsonResponse{Status: "success", Message: message, Data: data})
}

func writeJSONCreated(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusCreated, jsonResponse{Status: "success", Message: message, Data: data})
}

// writeAppError переводит ошибку операции в HTTP-ответ по её категории.
func writeAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	writeJSONError(w, kind.HTTPStatus(), apperr.PublicMessage(err), string(kind), apperr.FieldOf(err))
}

// taskHandlers - обработчики /api/tasks.
type taskHandlers struct {
	svc    *dispatch.Service
	cfg    *config.Config
	logger logrus.FieldLogger
}

// fail логирует внутренние ошибки и пишет ответ.
func (h *taskHandlers) fail(w http.ResponseWriter, r *http.Request, funcName string, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		config.LogError(h.logger, "api", funcName, middleware.GetReqID(r.Context()), chi.URLParam(r, "id"), err)
	}
	writeAppError(w, err)
}

// actor - актор текущего запроса. Маршруты под AuthMiddleware всегда его имеют.
func (h *taskHandlers) actor(w http.ResponseWriter, r *http.Request) (dispatch.Actor, bool) {
	a, ok := ActorFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "缺少用户信息", "", "")
	}
	return a, ok
}

// decodeBody читает JSON тела запроса. Пустое тело допустимо.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperr.Validation("body", "请求体格式错误")
}

// CreateTask - POST /api/tasks
func (h *taskHandlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req CreateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	task, err := h.svc.CreateTask(r.Context(), actor, req.Track, req.TaskInput)
	if err != nil {
		h.fail(w, r, "CreateTask", err)
		return
	}
	h.logger.WithFields(logrus.Fields{"task_id": task.TaskID, "user_id": actor.ID}).Info("CreateTask: задача создана")
	writeJSONCreated(w, "任务已创建", task)
}

// ListTasks - GET /api/tasks?status=&track=&handler_role=&page=&limit=
func (h *taskHandlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	q, p, err := h.listParams(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	list, err := h.svc.ListTasks(r.Context(), q, p, h.cfg.MaxPageSize)
	if err != nil {
		h.fail(w, r, "ListTasks", err)
		return
	}
	writeJSONSuccess(w, "ok", list)
}

func (h *taskHandlers) listParams(r *http.Request) (dispatch.ListQuery, dispatch.Page, error) {
	var (
		q   dispatch.ListQuery
		err error
	)
	values := r.URL.Query()
	if raw := values.Get("status"); raw != "" {
		if q.Status, err = constants.ParseStatus(raw); err != nil {
			return q, dispatch.Page{}, apperr.Validation("status", "未知的任务状态")
		}
	}
	if raw := values.Get("track"); raw != "" {
		if q.Track, err = constants.ParseTrack(raw); err != nil {
			return q, dispatch.Page{}, apperr.Validation("track", "派车轨道必须是A或B")
		}
	}
	if raw := values.Get("handler_role"); raw != "" {
		if q.HandlerRole, err = constants.ParseRole(raw); err != nil {
			return q, dispatch.Page{}, apperr.Validation("handler_role", "未知的角色")
		}
	}

	p := dispatch.Page{Page: 1, Limit: h.cfg.DefaultPageSize}
	if raw := values.Get("page"); raw != "" {
		if p.Page, err = strconv.Atoi(raw); err != nil {
			return q, p, apperr.Validation("page", "页码必须是整数")
		}
	}
	if raw := values.Get("limit"); raw != "" {
		if p.Limit, err = strconv.Atoi(raw); err != nil {
			return q, p, apperr.Validation("limit", "每页数量必须是整数")
		}
	}
	return q, p, nil
}

// GetTask - GET /api/tasks/{id}
func (h *taskHandlers) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.svc.GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "GetTask", err)
		return
	}
	writeJSONSuccess(w, "ok", task)
}

// SubmitTask - POST /api/tasks/{id}/submit
func (h *taskHandlers) SubmitTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req NoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	task, err := h.svc.SubmitForAudit(r.Context(), chi.URLParam(r, "id"), actor, req.Note)
	if err != nil {
		h.fail(w, r, "SubmitTask", err)
		return
	}
	writeJSONSuccess(w, "已提交审核", task)
}

// AuditTask - POST /api/tasks/{id}/audit
func (h *taskHandlers) AuditTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req AuditRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	result, err := constants.ParseAuditResult(req.Result)
	if err != nil {
		writeAppError(w, apperr.Validation("result", "审核结果必须是approve或reject"))
		return
	}
	task, err := h.svc.Audit(r.Context(), chi.URLParam(r, "id"), actor, result, req.Note)
	if err != nil {
		h.fail(w, r, "AuditTask", err)
		return
	}
	writeJSONSuccess(w, "审核完成", task)
}

// TransitionTask - POST /api/tasks/{id}/status
func (h *taskHandlers) TransitionTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	target, err := constants.ParseStatus(req.Status)
	if err != nil {
		writeAppError(w, apperr.Validation("status", "未知的任务状态"))
		return
	}
	task, err := h.svc.Transition(r.Context(), chi.URLParam(r, "id"), actor, target, req.Note)
	if err != nil {
		h.fail(w, r, "TransitionTask", err)
		return
	}
	writeJSONSuccess(w, "状态已更新", task)
}

// ConfirmTask - POST /api/tasks/{id}/confirm
func (h *taskHandlers) ConfirmTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req ConfirmRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	task, err := h.svc.ConfirmSupplierResponse(r.Context(), chi.URLParam(r, "id"), actor, req.Vehicle, req.Note)
	if err != nil {
		h.fail(w, r, "ConfirmTask", err)
		return
	}
	writeJSONSuccess(w, "供应商已响应", task)
}

// GetHistory - GET /api/tasks/{id}/history
func (h *taskHandlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.GetHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "GetHistory", err)
		return
	}
	writeJSONSuccess(w, "ok", entries)
}

// GetVehicle - GET /api/tasks/{id}/vehicle
func (h *taskHandlers) GetVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetVehicle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "GetVehicle", err)
		return
	}
	writeJSONSuccess(w, "ok", v)
}

// Health - GET /api/health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSONSuccess(w, "ok", nil)
}
