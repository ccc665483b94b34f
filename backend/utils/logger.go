package utils

import (
	"strings"

	"go.uber.org/zap"
)

// InitLogger builds a zap logger for the given mode ("production" gets the
// JSON encoder, everything else the console one).
func InitLogger(mode string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
