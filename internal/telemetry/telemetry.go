package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/Anan1218/homehealth/internal/config"
)

// Provider owns the tracer provider for the process lifetime.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p != nil && p.tracerProvider != nil
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.tracerProvider.Shutdown(ctx)
}

// New installs the global tracer provider and propagators. Without an
// endpoint a noop provider is installed.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Provider, error) {
	propagator := propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	endpoint := strings.TrimSpace(cfg.TelemetryEndpoint)
	if endpoint == "" {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagator)
		return &Provider{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exp, err := otlptracehttp.New(ctx, exporterOptions(endpoint, cfg.TelemetryInsecure)...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithProcess(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg)))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagator)

	if logger != nil {
		logger.Info("telemetry enabled", zap.String("endpoint", endpoint))
	}
	return &Provider{tracerProvider: tp}, nil
}

// exporterOptions accepts either host:port or a full collector URL.
func exporterOptions(endpoint string, insecure bool) []otlptracehttp.Option {
	var opts []otlptracehttp.Option
	if strings.Contains(endpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

// sampleRatio keeps every trace in development and a tenth elsewhere.
func sampleRatio(cfg config.Config) float64 {
	if cfg.IsDevelopment() {
		return 1
	}
	return 0.1
}
