// Package telemetry wires OpenTelemetry tracing, metrics and log export for
// the back office.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopdesk/backoffice/internal/infrastructure/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const (
	shutdownTimeout       = 10 * time.Second
	defaultExportInterval = time.Minute
)

// Options selects what is exported to the OTLP collector
type Options struct {
	ServiceName       string
	CollectorEndpoint string
	Insecure          bool

	Tracing       bool
	SamplingRatio float64

	Metrics         bool
	MetricsInterval time.Duration

	Logs bool
}

// OptionsFrom derives the export options from the telemetry settings.
// Metrics and logs are only exported when telemetry as a whole is enabled.
func OptionsFrom(cfg config.TelemetryConfig) Options {
	return Options{
		ServiceName:       cfg.ServiceName,
		CollectorEndpoint: cfg.CollectorEndpoint,
		Insecure:          cfg.Insecure,
		Tracing:           cfg.Enabled,
		SamplingRatio:     cfg.SamplingRatio,
		Metrics:           cfg.Enabled && cfg.MetricsEnabled,
		MetricsInterval:   cfg.MetricsInterval,
		Logs:              cfg.Enabled && cfg.LogsEnabled,
	}
}

// Providers owns the SDK tracer, meter and logger providers installed as the
// process-wide globals. Any of them may be absent.
type Providers struct {
	tracer      *sdktrace.TracerProvider
	meter       *sdkmetric.MeterProvider
	logs        *sdklog.LoggerProvider
	serviceName string
	logger      *zap.Logger
}

// Setup starts the exporters opts asks for and installs them globally. With
// nothing enabled the global no-op providers stay in place.
func Setup(ctx context.Context, opts Options, logger *zap.Logger) (*Providers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Providers{logger: logger.Named("telemetry")}
	if !opts.Tracing && !opts.Metrics && !opts.Logs {
		p.logger.Info("Telemetry export disabled")
		return p, nil
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(opts.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	if opts.Tracing {
		if err := p.startTracing(ctx, opts, res); err != nil {
			return nil, err
		}
	}
	if opts.Metrics {
		if err := p.startMetrics(ctx, opts, res); err != nil {
			_ = p.Shutdown(ctx)
			return nil, err
		}
	}
	if opts.Logs {
		if err := p.startLogs(ctx, opts, res); err != nil {
			_ = p.Shutdown(ctx)
			return nil, err
		}
	}
	return p, nil
}

func (p *Providers) startTracing(ctx context.Context, opts Options, res *resource.Resource) error {
	exportOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.CollectorEndpoint)}
	if opts.Insecure {
		exportOpts = append(exportOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, exportOpts...)
	if err != nil {
		return fmt.Errorf("otlp trace exporter: %w", err)
	}

	p.tracer = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(opts.SamplingRatio)),
	)
	otel.SetTracerProvider(p.tracer)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	p.logger.Info("Tracing enabled",
		zap.String("collector_endpoint", opts.CollectorEndpoint),
		zap.Float64("sampling_ratio", opts.SamplingRatio))
	return nil
}

func (p *Providers) startMetrics(ctx context.Context, opts Options, res *resource.Resource) error {
	interval := opts.MetricsInterval
	if interval <= 0 {
		interval = defaultExportInterval
	}
	exportOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(opts.CollectorEndpoint)}
	if opts.Insecure {
		exportOpts = append(exportOpts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, exportOpts...)
	if err != nil {
		return fmt.Errorf("otlp metric exporter: %w", err)
	}

	p.meter = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(p.meter)

	p.logger.Info("Metrics enabled",
		zap.String("collector_endpoint", opts.CollectorEndpoint),
		zap.Duration("export_interval", interval))
	return nil
}

// samplerFor keeps the parent's decision and samples new traces by ratio
func samplerFor(ratio float64) sdktrace.Sampler {
	root := sdktrace.TraceIDRatioBased(ratio)
	switch {
	case ratio >= 1:
		root = sdktrace.AlwaysSample()
	case ratio <= 0:
		root = sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(root)
}

// Meter returns a named meter, or nil when metrics are not exported.
// Instrumented components treat a nil meter as "off".
func (p *Providers) Meter(name string) metric.Meter {
	if p == nil || p.meter == nil {
		return nil
	}
	return p.meter.Meter(name)
}

// Shutdown flushes and stops whatever Setup started
func (p *Providers) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if p.meter != nil {
		if err := p.meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	if p.tracer != nil {
		if err := p.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	// last, so the other providers' shutdown records still go out
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("logger provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
