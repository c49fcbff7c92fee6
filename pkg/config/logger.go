package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap.Logger from an ApplicationConfiguration's
// LogLevel/LogEncoding/LogPath, overriding the level to Debug when
// debug is set (e.g. from a CLI flag, which always wins over the file).
func NewLogger(cfg ApplicationConfiguration, debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.LogLevel != "" {
		var err error
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("config: LogLevel: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	encoding := "console"
	if cfg.LogEncoding != "" {
		encoding = cfg.LogEncoding
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = encoding
	zc.DisableCaller = true
	zc.DisableStacktrace = level != zapcore.DebugLevel
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.LogPath != "" {
		zc.OutputPaths = []string{cfg.LogPath}
	}
	return zc.Build()
}
