// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StoreTypePostgres = "postgres"
	StoreTypeMemory   = "memory"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	AppEnv   string `envconfig:"ENV" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	StoreType         string        `envconfig:"STORE" default:"postgres"`
	DatabaseURL       string        `envconfig:"DATABASE_URL"`
	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"50"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"20"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`

	// Ключ HMAC для токенов X-Dispatch-Auth
	AuthSecret string        `envconfig:"AUTH_SECRET"`
	AuthMaxAge time.Duration `envconfig:"AUTH_MAX_AGE" default:"24h"`

	TelegramToken string `envconfig:"TELEGRAM_APITOKEN"`
	NotifyChatID  int64  `envconfig:"NOTIFY_CHAT_ID"`

	DefaultPageSize int      `envconfig:"DEFAULT_PAGE_SIZE" default:"20"`
	MaxPageSize     int      `envconfig:"MAX_PAGE_SIZE" default:"100"`
	CORSOrigins     []string `envconfig:"CORS_ORIGINS" default:"https://*,http://*"`

	// Заполняются из DATABASE_URL
	DBHost string `ignored:"true"`
	DBPort string `ignored:"true"`
	DBUser string `ignored:"true"`
	DBName string `ignored:"true"`
}

// IsDev - режим разработки.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось прочитать переменные окружения: %w", err)
	}

	switch cfg.StoreType {
	case StoreTypePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL не установлен")
		}
	case StoreTypeMemory:
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища STORE=%q", cfg.StoreType)
	}

	if cfg.DatabaseURL != "" {
		parsedURL, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("ошибка парсинга DATABASE_URL: %w", err)
		}
		cfg.DBHost = parsedURL.Hostname()
		cfg.DBPort = parsedURL.Port()
		if cfg.DBPort == "" {
			cfg.DBPort = "5432"
		}
		cfg.DBUser = parsedURL.User.Username()
		cfg.DBName = strings.TrimPrefix(parsedURL.Path, "/")
	}

	if cfg.AuthSecret == "" && !cfg.IsDev() {
		return nil, fmt.Errorf("AUTH_SECRET не установлен")
	}

	if cfg.DefaultPageSize < 1 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}

	return &cfg, nil
}
