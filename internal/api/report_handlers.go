package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"dispatchtrack/internal/apperr"
	"dispatchtrack/internal/dispatch"
	"dispatchtrack/internal/models"
	"dispatchtrack/internal/report"
)

// maxImportSize - ограничение размера загружаемой книги.
const maxImportSize = 10 << 20

// ExportTasks - GET /api/tasks/export.xlsx, фильтры как у списка.
func (h *taskHandlers) ExportTasks(w http.ResponseWriter, r *http.Request) {
	q, _, err := h.listParams(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	var tasks []models.DispatchTask
	for page := 1; ; page++ {
		list, err := h.svc.ListTasks(r.Context(), q, dispatch.Page{Page: page, Limit: h.cfg.MaxPageSize}, h.cfg.MaxPageSize)
		if err != nil {
			h.fail(w, r, "ExportTasks", err)
			return
		}
		tasks = append(tasks, list.Tasks...)
		if len(list.Tasks) == 0 || len(tasks) >= list.Total {
			break
		}
	}

	var buf bytes.Buffer
	if err := report.WriteTasksXLSX(&buf, tasks); err != nil {
		h.fail(w, r, "ExportTasks", err)
		return
	}

	filename := fmt.Sprintf("dispatch_tasks_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ImportTasks - POST /api/tasks/import, multipart с полем file.
func (h *taskHandlers) ImportTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		writeAppError(w, apperr.Validation("file", "上传文件无效或过大"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeAppError(w, apperr.Validation("file", "缺少上传文件"))
		return
	}
	defer file.Close()

	results, err := report.ImportTasks(r.Context(), h.svc, actor, file)
	if err != nil {
		h.fail(w, r, "ImportTasks", err)
		return
	}

	created := 0
	for _, res := range results {
		if res.TaskID != "" {
			created++
		}
	}
	h.logger.WithFields(logrus.Fields{
		"user_id":  actor.ID,
		"filename": header.Filename,
		"rows":     len(results),
		"created":  created,
	}).Info("ImportTasks: импорт завершён")
	writeJSONSuccess(w, fmt.Sprintf("成功导入%d条，共%d条", created, len(results)), results)
}

// TaskLabel - GET /api/tasks/{id}/label.png
func (h *taskHandlers) TaskLabel(w http.ResponseWriter, r *http.Request) {
	task, err := h.svc.GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "TaskLabel", err)
		return
	}
	png, err := report.TaskLabelPNG(task)
	if err != nil {
		h.fail(w, r, "TaskLabel", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
