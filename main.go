package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"dispatchtrack/internal/api"
	"dispatchtrack/internal/config"
	"dispatchtrack/internal/constants"
	"dispatchtrack/internal/db"
	"dispatchtrack/internal/dispatch"
	"dispatchtrack/internal/memstore"
	"dispatchtrack/internal/models"
	"dispatchtrack/internal/notify"
)

// devAuthSecret - ключ подписи в режиме разработки, если AUTH_SECRET не задан.
const devAuthSecret = "dev-secret"

// demoUsers - по одному пользователю на роль для STORE=memory.
var demoUsers = []models.User{
	{ID: 1, Name: "车间地调", Role: constants.ROLE_WORKSHOP_DISPATCHER},
	{ID: 2, Name: "区域调度员", Role: constants.ROLE_REGIONAL_DISPATCHER},
	{ID: 3, Name: "超级管理员", Role: constants.ROLE_SUPER_ADMIN},
	{ID: 4, Name: "供应商", Role: constants.ROLE_SUPPLIER, CompanyName: models.NewNullString("顺达物流")},
	{ID: 5, Name: "对账人员", Role: constants.ROLE_ACCOUNTANT},
}

func main() {
	logger := config.GetLogger()

	// --- Блок инициализации ---
	if err := godotenv.Load(); err != nil {
		logger.Warn("Предупреждение: не удалось загрузить файл .env. Переменные окружения должны быть установлены иным способом.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Критическая ошибка: не удалось загрузить конфигурацию: %v", err)
	}
	config.SetupLogger(cfg)
	if cfg.AuthSecret == "" {
		logger.Warn("AUTH_SECRET не задан, используется ключ разработки")
		cfg.AuthSecret = devAuthSecret
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Критическая ошибка: не удалось инициализировать хранилище: %v", err)
	}
	defer closeStore()

	notifier := newNotifier(cfg, logger)
	svc := dispatch.NewService(store, dispatch.WithNotifier(notifier), dispatch.WithLogger(logger))

	// --- Настройка роутера и Middleware ---
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", api.AuthHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.SetupRoutes(router, api.ApiDependencies{Config: cfg, Service: svc, Logger: logger})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Запуск HTTP-сервера на порту %s (хранилище: %s)", cfg.Port, cfg.StoreType)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("КРИТИЧЕСКАЯ ОШИБКА: не удалось запустить HTTP-сервер: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Остановка сервера...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Ошибка остановки HTTP-сервера: %v", err)
	}
}

// openStore открывает хранилище по STORE и возвращает функцию закрытия.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (dispatch.Store, func(), error) {
	if cfg.StoreType == config.StoreTypeMemory {
		store := memstore.New()
		for _, u := range demoUsers {
			store.PutUser(u)
		}
		if cfg.IsDev() {
			logDemoTokens(cfg, logger)
		}
		return store, func() {}, nil
	}

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := db.InitDB(ctx, conn, logger); err != nil {
		conn.Close()
		return nil, nil, err
	}
	logger.WithFields(logrus.Fields{"host": cfg.DBHost, "db": cfg.DBName}).Info("Подключение к базе данных установлено")
	return db.NewStore(conn, logger), func() { conn.Close() }, nil
}

// logDemoTokens выводит токены X-Dispatch-Auth демо-пользователей.
func logDemoTokens(cfg *config.Config, logger *logrus.Logger) {
	for _, u := range demoUsers {
		token, err := api.SignAuthToken(dispatch.ActorFromUser(&u), cfg.AuthSecret, time.Now())
		if err != nil {
			continue
		}
		logger.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role.Code()}).Infof("демо-токен: %s", token)
	}
}

func newNotifier(cfg *config.Config, logger *logrus.Logger) dispatch.Notifier {
	if cfg.TelegramToken == "" {
		logger.Info("TELEGRAM_APITOKEN не задан, уведомления отключены")
		return nil
	}
	n, err := notify.NewTelegram(cfg.TelegramToken, cfg.NotifyChatID, cfg.IsDev(), logger)
	if err != nil {
		logger.Errorf("Не удалось инициализировать Telegram уведомления: %v", err)
		return nil
	}
	return n
}
