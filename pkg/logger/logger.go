package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string
	Environment string
	ServiceName string
}

// production reports whether logs go out as JSON for collectors.
func (c *LogConfig) production() bool {
	return c.Environment == "production"
}

// level parses Level, falling back to info for empty or unknown names.
func (c *LogConfig) level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(c.Level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Until InitLogger runs, GetLogger discards everything.
var log = zap.NewNop()

// New builds a storefront logger without installing it. Every entry carries
// the service and environment names.
func New(config *LogConfig) (*zap.Logger, error) {
	return zapConfig(config).Build(zap.Fields(
		zap.String("service", config.ServiceName),
		zap.String("environment", config.Environment),
	))
}

func zapConfig(config *LogConfig) zap.Config {
	if config.production() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(config.level())
		cfg.OutputPaths = []string{"stdout"}
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(config.level())
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

// InitLogger builds the logger from config and installs it as the package
// and zap global logger.
func InitLogger(config *LogConfig) error {
	built, err := New(config)
	if err != nil {
		return err
	}
	log = built
	zap.ReplaceGlobals(log)
	return nil
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	return log
}
