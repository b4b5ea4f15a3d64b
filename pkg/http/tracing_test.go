package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"LearnCast/pkg/http/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestServerContinuesIncomingTrace(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	const traceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	s := NewServer([]Handler{pingHandler{}})
	req := httptest.NewRequest(http.MethodGet, "/ping/abc", nil)
	req.Header.Set("traceparent", traceparent)
	resp := httptest.NewRecorder()
	s.Echo().ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", resp.Header().Get(middleware.HeaderTraceID))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /ping/:id", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent().SpanID().String())
}
