package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func TestNewExportsToStdoutWriter(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer
	p, err := New(context.Background(), Config{
		ServiceName: "learncast-test",
		Environment: "test",
		SampleRatio: 1,
		Writer:      &buf,
	}, nil)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "PredictionUseCase.compute")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "PredictionUseCase.compute")
	assert.Contains(t, out, "learncast-test")
}

func TestNewInstallsTraceContextPropagator(t *testing.T) {
	restoreGlobals(t)
	p, err := New(context.Background(), Config{Exporter: ExporterNone, SampleRatio: 1}, nil)
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	ctx, span := otel.Tracer("test").Start(context.Background(), "outbound")
	defer span.End()
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	assert.Contains(t, carrier.Get("traceparent"), span.SpanContext().TraceID().String())
}

func TestSamplerRatioIsClamped(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 1.0, clampRatio(3))
	assert.Equal(t, 0.25, clampRatio(0.25))
	assert.Equal(t, ExporterStdout, exporterName(" "))
	assert.Equal(t, ExporterOTLP, exporterName("OTLP"))
}

func TestShutdownNilProvider(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}
