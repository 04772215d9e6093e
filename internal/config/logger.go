package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MustInitLogger builds a zap logger for the given environment and level.
// It panics if the logger cannot be constructed.
func MustInitLogger(env, level string) *zap.Logger {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger
}
