// Package tracing installs the process-wide OpenTelemetry tracer provider and
// the W3C propagator used by the HTTP and Kafka edges.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	applogger "LearnCast/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// Exporters understood by New.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
	ExporterNone   = "none"
)

type Config struct {
	ServiceName  string
	Environment  string
	Version      string
	Exporter     string
	Endpoint     string // host:port of an OTLP/HTTP collector
	Insecure     bool
	Headers      map[string]string
	SampleRatio  float64
	BatchTimeout time.Duration
	// Writer receives stdout spans; nil means os.Stdout.
	Writer io.Writer
}

// Provider owns the SDK tracer provider installed as the otel global.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// New builds the provider and installs it, with the TraceContext and Baggage
// propagators, as the otel globals.
func New(ctx context.Context, cfg Config, l *applogger.Logger) (*Provider, error) {
	if l == nil {
		l = applogger.NewNop()
	}
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "learncast"
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(name),
		semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
		attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
	))
	if err != nil {
		l.Warn("otel resource init failed (continuing)", applogger.Error(err))
	}

	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clampRatio(cfg.SampleRatio)))),
		sdktrace.WithResource(res),
	}
	if exp != nil {
		batch := cfg.BatchTimeout
		if batch <= 0 {
			batch = 5 * time.Second
		}
		opts = append(opts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(batch)))
	}
	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	l.Info("otel tracing initialized",
		applogger.String("service", name),
		applogger.String("exporter", exporterName(cfg.Exporter)),
		applogger.String("endpoint", cfg.Endpoint),
	)
	return &Provider{tp: tp}, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch exporterName(cfg.Exporter) {
	case ExporterOTLP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		return otlptracehttp.New(ctx, opts...)
	case ExporterNone:
		return nil, nil
	default:
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		return stdouttrace.New(stdouttrace.WithWriter(w))
	}
}

func exporterName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ExporterStdout
	}
	return s
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}

// TracerProvider exposes the SDK provider, mostly for tests that need to flush.
func (p *Provider) TracerProvider() *sdktrace.TracerProvider { return p.tp }

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
