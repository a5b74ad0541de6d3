// Package logging builds the root zap logger from config.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level, encoder and sinks of the root logger.
type Config struct {
	Level  string   `toml:"level"`  // debug, info, warn, error
	Format string   `toml:"format"` // json or console
	Output []string `toml:"output"` // zap sink URLs, "stderr" by default
}

// DefaultConfig logs info and above as JSON to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: []string{"stderr"},
	}
}

// New builds a logger. json uses the production encoder, console the
// development one.
func New(cfg Config) (*zap.Logger, error) {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var zc zap.Config
	switch cfg.Format {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(zapLevel)
	if len(cfg.Output) > 0 {
		zc.OutputPaths = cfg.Output
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
