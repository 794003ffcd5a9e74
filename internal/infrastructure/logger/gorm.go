package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger writes GORM's statement log to zap with the correlation fields
// of the query context. Errors log at error level, statements slower than the
// threshold at warn, and the rest at debug when GORM runs at Info.
type GormLogger struct {
	zl           *zap.Logger
	level        gormlogger.LogLevel
	slow         time.Duration
	skipNotFound bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the slow statement threshold; zero disables it
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slow = threshold }
}

// WithIgnoreRecordNotFoundError controls whether gorm.ErrRecordNotFound is logged
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.skipNotFound = ignore }
}

// NewGormLogger creates a GORM logger backed by zap
func NewGormLogger(zl *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{zl: zl.Named("gorm"), level: level, slow: 200 * time.Millisecond, skipNotFound: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode returns a copy of the logger at level
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, at zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	Enrich(ctx, l.zl).Sugar().Logf(at, msg, data...)
}

// Trace logs one finished statement
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	at, msg, ok := l.classify(elapsed, err)
	if !ok {
		return
	}

	sql, rows := fc()
	fields := append(CorrelationFields(ctx),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
	switch at {
	case zapcore.ErrorLevel:
		fields = append(fields, zap.Error(err))
	case zapcore.WarnLevel:
		fields = append(fields, zap.Duration("threshold", l.slow))
	}
	l.zl.Log(at, msg, fields...)
}

func (l *GormLogger) classify(elapsed time.Duration, err error) (zapcore.Level, string, bool) {
	switch {
	case l.level <= gormlogger.Silent:
		return 0, "", false
	case err != nil:
		if l.skipNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return 0, "", false
		}
		return zapcore.ErrorLevel, "SQL error", l.level >= gormlogger.Error
	case l.slow > 0 && elapsed > l.slow:
		return zapcore.WarnLevel, "Slow SQL", l.level >= gormlogger.Warn
	default:
		return zapcore.DebugLevel, "SQL", l.level >= gormlogger.Info
	}
}

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
	"debug":  gormlogger.Info,
}

// MapGormLogLevel maps a config level name to a GORM log level, Warn when unknown
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[level]; ok {
		return l
	}
	return gormlogger.Warn
}

var _ gormlogger.Interface = (*GormLogger)(nil)
