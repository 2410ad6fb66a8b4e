package monitoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/sixcities/internal/config"
	"github.com/turtacn/sixcities/pkg/logger"
)

func restoreGlobalTracing(t *testing.T) {
	provider := otel.GetTracerProvider()
	propagator := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(provider)
		otel.SetTextMapPropagator(propagator)
	})
}

func TestInitTracer_SpansReachLogs(t *testing.T) {
	restoreGlobalTracing(t)

	shutdown, err := InitTracer(&config.TracingConfig{
		Enabled:     true,
		ServiceName: "sixcities",
		SampleRatio: 1,
	}, logger.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	ctx, span := NewTracer().Start(context.Background(), "GET /api/v1/cities")
	sc := span.SpanContext()
	require.True(t, sc.IsValid())
	assert.True(t, sc.IsSampled())
	span.End()

	core, logs := observer.New(zapcore.InfoLevel)
	NewZapLoggerFrom(zap.New(core)).Info(ctx, "Listed cities")
	require.Len(t, logs.All(), 1)
	assert.Equal(t, sc.TraceID().String(), logs.All()[0].ContextMap()["trace_id"])
}

func TestInitTracer_ZeroRatioStillCarriesIDs(t *testing.T) {
	restoreGlobalTracing(t)

	shutdown, err := InitTracer(&config.TracingConfig{Enabled: true, ServiceName: "sixcities"}, logger.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	_, span := NewTracer().Start(context.Background(), "GET /health")
	defer span.End()
	assert.True(t, span.SpanContext().IsValid())
	assert.False(t, span.SpanContext().IsSampled())
}

func TestInitTracer_Disabled(t *testing.T) {
	restoreGlobalTracing(t)
	before := otel.GetTracerProvider()

	shutdown, err := InitTracer(&config.TracingConfig{}, logger.NewNoopLogger())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Same(t, before, otel.GetTracerProvider())
}
