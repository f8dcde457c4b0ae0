package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"dispatchtrack/internal/config"
	"dispatchtrack/internal/constants"
	"dispatchtrack/internal/dispatch"
)

// ApiDependencies содержит зависимости для обработчиков API.
type ApiDependencies struct {
	Config  *config.Config
	Service *dispatch.Service
	Logger  logrus.FieldLogger
}

// SetupRoutes настраивает все маршруты для API.
func SetupRoutes(r chi.Router, deps ApiDependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = config.GetLogger()
	}
	h := &taskHandlers{svc: deps.Service, cfg: deps.Config, logger: logger}

	r.Get("/api/health", Health)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(deps.Config.AuthSecret, deps.Config.AuthMaxAge, deps.Service, logger))

		r.Route("/api/tasks", func(r chi.Router) {
			r.Post("/", h.CreateTask)
			r.Get("/", h.ListTasks)

			// --- Выгрузки для диспетчеров ---
			r.Group(func(r chi.Router) {
				r.Use(RoleMiddleware(constants.ROLE_REGIONAL_DISPATCHER, constants.ROLE_SUPER_ADMIN))
				r.Get("/export.xlsx", h.ExportTasks)
				r.Post("/import", h.ImportTasks)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetTask)
				r.Post("/submit", h.SubmitTask)
				r.Post("/audit", h.AuditTask)
				r.Post("/status", h.TransitionTask)
				r.Post("/confirm", h.ConfirmTask)
				r.Get("/history", h.GetHistory)
				r.Get("/vehicle", h.GetVehicle)
				r.Get("/label.png", h.TaskLabel)
			})
		})
	})
}
