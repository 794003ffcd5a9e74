package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func (p *Providers) startLogs(ctx context.Context, opts Options, res *resource.Resource) error {
	exportOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(opts.CollectorEndpoint)}
	if opts.Insecure {
		exportOpts = append(exportOpts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, exportOpts...)
	if err != nil {
		return fmt.Errorf("otlp log exporter: %w", err)
	}

	p.logs = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(p.logs)
	p.serviceName = opts.ServiceName

	p.logger.Info("Log export enabled", zap.String("collector_endpoint", opts.CollectorEndpoint))
	return nil
}

// LogsEnabled reports whether log records are exported.
func (p *Providers) LogsEnabled() bool {
	return p != nil && p.logs != nil
}

// BridgeLogger returns logger with its output also sent to the OTLP
// collector, at level and above. Without log export logger is returned as is.
func (p *Providers) BridgeLogger(logger *zap.Logger, level zapcore.Level) *zap.Logger {
	if !p.LogsEnabled() {
		return logger
	}
	return logger.WithOptions(zap.WrapCore(func(base zapcore.Core) zapcore.Core {
		return zapcore.NewTee(base, p.otelCore(level))
	}))
}

func (p *Providers) otelCore(level zapcore.Level) zapcore.Core {
	core := otelzap.NewCore(p.serviceName, otelzap.WithLoggerProvider(p.logs))
	// otelzap enables every level
	if level == zapcore.DebugLevel {
		return core
	}
	return &levelFilterCore{Core: core, minLevel: level}
}

// ForceFlush exports buffered log records now.
func (p *Providers) ForceFlush(ctx context.Context) error {
	if !p.LogsEnabled() {
		return nil
	}
	return p.logs.ForceFlush(ctx)
}

type levelFilterCore struct {
	zapcore.Core
	minLevel zapcore.Level
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.minLevel && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{Core: c.Core.With(fields), minLevel: c.minLevel}
}
