// Package logger builds the zap loggers of the back office and carries the
// request-scoped logger through contexts, gin and GORM.
package logger

import (
	"strings"

	"github.com/shopdesk/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var levels = map[string]zapcore.Level{
	"debug":   zapcore.DebugLevel,
	"info":    zapcore.InfoLevel,
	"warn":    zapcore.WarnLevel,
	"warning": zapcore.WarnLevel,
	"error":   zapcore.ErrorLevel,
	"fatal":   zapcore.FatalLevel,
}

// ParseLevel converts a level name to a zap level. Unknown names mean info.
func ParseLevel(level string) zapcore.Level {
	if l, ok := levels[strings.ToLower(level)]; ok {
		return l
	}
	return zapcore.InfoLevel
}

// New builds the process logger from the log settings. Output is stdout,
// stderr or a file path opened for appending; an unwritable path is an error.
// Format "console" gives colored human-readable lines, anything else JSON.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	zc.Sampling = nil

	enc := &zc.EncoderConfig
	enc.TimeKey = "time"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder
	if strings.EqualFold(cfg.Format, "console") {
		zc.Encoding = "console"
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	output := strings.TrimSpace(cfg.Output)
	switch strings.ToLower(output) {
	case "", "stdout":
		output = "stdout"
	case "stderr":
		output = "stderr"
	}
	zc.OutputPaths = []string{output}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}
