// Package monitoring provides logging, metrics and tracing adapters.
package monitoring

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/sixcities/internal/config"
	"github.com/turtacn/sixcities/pkg/logger"
)

// TracerName is the instrumentation scope for spans started by this service.
const TracerName = "github.com/turtacn/sixcities"

// NewTracer returns a tracer from the globally registered provider.
func NewTracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// InitTracer 安装全局 TracerProvider。
// InitTracer installs the global tracer provider and propagators, and returns
// the function that flushes and stops it. Spans get ids, and so correlate
// with log lines, even when no exporter is configured.
func InitTracer(cfg *config.TracingConfig, log logger.Logger) (func(context.Context) error, error) {
	ctx := context.Background()
	if !cfg.Enabled {
		log.Info(ctx, "Tracing is disabled")
		return func(context.Context) error { return nil }, nil
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("deployment.environment", cfg.Environment),
	)
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}
	if cfg.JaegerEndpoint != "" {
		exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
		if err != nil {
			return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info(ctx, "Tracing initialized",
		logger.String("service", cfg.ServiceName),
		logger.String("endpoint", cfg.JaegerEndpoint),
		logger.Float64("sample_ratio", cfg.SampleRatio),
	)
	return provider.Shutdown, nil
}
