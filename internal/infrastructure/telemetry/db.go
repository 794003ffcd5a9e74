package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig controls GORM instrumentation.
type DBConfig struct {
	TraceEnabled       bool
	LogFullSQL         bool // include bound variables in span statements; development only
	DBSystem           string
	SlowQueryThreshold time.Duration
	PoolStatsInterval  time.Duration
}

// DefaultDBConfig returns instrumentation defaults: tracing off, 200ms slow threshold.
func DefaultDBConfig() DBConfig {
	return DBConfig{
		DBSystem:           "postgresql",
		SlowQueryThreshold: 200 * time.Millisecond,
		PoolStatsInterval:  15 * time.Second,
	}
}

type startTimeKey struct{ name string }

// gormHook is one before/after pair registered on every GORM processor.
// When ahead is set, after callbacks run before the callbacks named
// ahead+<processor>, e.g. "otel:after:create".
type gormHook struct {
	name   string
	ahead  string
	before func(db *gorm.DB)
	after  func(db *gorm.DB, operation string)
}

type registerFunc func(name, anchor string, fn func(*gorm.DB)) error

// register installs h around create, query, update, delete, row and raw.
func (h gormHook) register(db *gorm.DB) error {
	cb := db.Callback()
	processors := []struct {
		kind   string
		op     string
		before registerFunc
		after  registerFunc
	}{
		{"create", "INSERT",
			func(n, _ string, fn func(*gorm.DB)) error { return cb.Create().Before("gorm:create").Register(n, fn) },
			func(n, a string, fn func(*gorm.DB)) error { return cb.Create().After("gorm:create").Before(a).Register(n, fn) }},
		{"query", "SELECT",
			func(n, _ string, fn func(*gorm.DB)) error { return cb.Query().Before("gorm:query").Register(n, fn) },
			func(n, a string, fn func(*gorm.DB)) error { return cb.Query().After("gorm:query").Before(a).Register(n, fn) }},
		{"update", "UPDATE",
			func(n, _ string, fn func(*gorm.DB)) error { return cb.Update().Before("gorm:update").Register(n, fn) },
			func(n, a string, fn func(*gorm.DB)) error { return cb.Update().After("gorm:update").Before(a).Register(n, fn) }},
		{"delete", "DELETE",
			func(n, _ string, fn func(*gorm.DB)) error { return cb.Delete().Before("gorm:delete").Register(n, fn) },
			func(n, a string, fn func(*gorm.DB)) error { return cb.Delete().After("gorm:delete").Before(a).Register(n, fn) }},
		{"row", "",
			func(n, _ string, fn func(*gorm.DB)) error { return cb.Row().Before("gorm:row").Register(n, fn) },
			func(n, a string, fn func(*gorm.DB)) error { return cb.Row().After("gorm:row").Before(a).Register(n, fn) }},
		{"raw", "",
			func(n, _ string, fn func(*gorm.DB)) error { return cb.Raw().Before("gorm:raw").Register(n, fn) },
			func(n, a string, fn func(*gorm.DB)) error { return cb.Raw().After("gorm:raw").Before(a).Register(n, fn) }},
	}
	for _, p := range processors {
		if err := p.before(h.name+":before_"+p.kind, "", h.before); err != nil {
			return err
		}
		anchor := ""
		if h.ahead != "" {
			anchor = h.ahead + p.kind
		}
		if err := p.after(h.name+":after_"+p.kind, anchor, h.afterFor(p.op)); err != nil {
			return err
		}
	}
	return nil
}

// afterFor fixes the operation label; an empty op is detected from the SQL text.
func (h gormHook) afterFor(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		operation := op
		if operation == "" {
			operation = detectOperationType(db.Statement.SQL.String())
		}
		h.after(db, operation)
	}
}

func stampStart(key startTimeKey) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, key, time.Now())
	}
}

func elapsedSince(ctx context.Context, key startTimeKey) (time.Duration, bool) {
	if ctx == nil {
		return 0, false
	}
	start, ok := ctx.Value(key).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}

func detectOperationType(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}

var traceStartKey = startTimeKey{"otel_query_start"}

// RegisterDBTracing installs otelgorm plus a callback that annotates the
// statement span with the table, rows affected and a slow-query event.
func RegisterDBTracing(db *gorm.DB, cfg DBConfig, logger *zap.Logger) error {
	if !cfg.TraceEnabled {
		logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	hook := gormHook{
		name:   "otel_timing",
		ahead:  "otel:after:",
		before: stampStart(traceStartKey),
		after: func(db *gorm.DB, _ string) {
			annotateSpan(db, cfg.SlowQueryThreshold)
		},
	}
	if err := hook.register(db); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
	)
	return nil
}

func annotateSpan(db *gorm.DB, slowThreshold time.Duration) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		RecordError(span, db.Error)
	}
	if elapsed, ok := elapsedSince(ctx, traceStartKey); ok && elapsed > slowThreshold {
		span.SetAttributes(attribute.Bool("db.slow_query", true))
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", slowThreshold.Milliseconds()),
		))
	}
}

var metricsStartKey = startTimeKey{"db_metrics_start"}

// DBMetrics records query counts, latency, slow queries and pool usage.
type DBMetrics struct {
	poolConnections *Gauge
	poolMax         *Gauge
	queryTotal      *Counter
	queryDuration   *Histogram
	slowQueryTotal  *Counter

	config   DBConfig
	logger   *zap.Logger
	sqlDB    *sql.DB
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDBMetrics creates the database instruments on meter.
func NewDBMetrics(meter metric.Meter, cfg DBConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultDBConfig()
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = defaults.SlowQueryThreshold
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = defaults.PoolStatsInterval
	}

	m := &DBMetrics{config: cfg, logger: logger, stopCh: make(chan struct{})}
	var err error
	if m.poolConnections, err = NewGauge(meter, "db_pool_connections", "Connections in the pool by state", "{connection}"); err != nil {
		return nil, err
	}
	if m.poolMax, err = NewGauge(meter, "db_pool_connections_max", "Maximum open connections", "{connection}"); err != nil {
		return nil, err
	}
	if m.queryTotal, err = NewCounter(meter, "db_query_total", "Database queries by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total", "Queries slower than the configured threshold", "{query}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordQuery records one finished statement.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "OTHER"
	}
	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, duration, AttrDBOperation.String(operation))

	if duration > m.config.SlowQueryThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// Name implements gorm.Plugin.
func (m *DBMetrics) Name() string {
	return "db_metrics"
}

// Initialize implements gorm.Plugin.
func (m *DBMetrics) Initialize(db *gorm.DB) error {
	hook := gormHook{
		name:   "db_metrics",
		before: stampStart(metricsStartKey),
		after: func(db *gorm.DB, operation string) {
			ctx := db.Statement.Context
			duration, _ := elapsedSince(ctx, metricsStartKey)
			if ctx == nil {
				ctx = context.Background()
			}
			m.RecordQuery(ctx, operation, db.Statement.Table, duration)
		},
	}
	return hook.register(db)
}

// StartPoolStatsCollection samples sqlDB.Stats until ctx ends or Stop is called.
func (m *DBMetrics) StartPoolStatsCollection(ctx context.Context, sqlDB *sql.DB) {
	m.sqlDB = sqlDB
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.config.PoolStatsInterval)
		defer ticker.Stop()

		m.collectPoolStats(ctx)
		for {
			select {
			case <-ticker.C:
				m.collectPoolStats(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *DBMetrics) collectPoolStats(ctx context.Context) {
	stats := m.sqlDB.Stats()
	m.poolMax.Record(ctx, int64(stats.MaxOpenConnections))
	m.poolConnections.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolConnections.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolConnections.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// Stop ends pool stats collection. Safe to call more than once.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
	})
}

// RegisterDBMetrics installs query metrics on db and starts pool sampling.
// A nil meter means metrics are off and yields a nil *DBMetrics.
func RegisterDBMetrics(ctx context.Context, db *gorm.DB, meter metric.Meter, cfg DBConfig, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		logger.Debug("Database metrics disabled")
		return nil, nil
	}

	m, err := NewDBMetrics(meter, cfg, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := db.Use(m); err != nil {
		return nil, err
	}
	m.StartPoolStatsCollection(ctx, sqlDB)

	logger.Info("Database metrics registered",
		zap.Duration("slow_query_threshold", m.config.SlowQueryThreshold),
		zap.Duration("pool_stats_interval", m.config.PoolStatsInterval),
	)
	return m, nil
}
