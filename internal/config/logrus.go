package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

var logg = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	l.SetOutput(os.Stdout)
	return l
}

// GetLogger возвращает общий логгер процесса.
func GetLogger() *logrus.Logger {
	return logg
}

// SetupLogger применяет уровень и формат из конфигурации.
func SetupLogger(cfg *Config) *logrus.Logger {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logg.Warnf("SetupLogger: некорректный LOG_LEVEL %q, используется info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logg.SetLevel(level)
	if cfg.IsDev() {
		logg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logg
}

// LogError пишет одну строку ошибки со служебными полями.
func LogError(logger logrus.FieldLogger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
