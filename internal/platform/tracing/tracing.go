// Package tracing wraps the runner's poll/execute/reap cycles in
// OpenTelemetry spans, grounded on the teacher's
// internal/observability/otel.go: a once-initialized TracerProvider,
// env-gated, falling back to the stdout exporter when no collector is
// configured. The task engine has no OTLP collector dependency (§9 "no
// managed tracing backend"), so only the stdout exporter is wired.
package tracing

import (
	"context"
	"os"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/contentforge/taskengine/internal/platform/logger"
)

const tracerName = "taskengine/runner"

var (
	initOnce sync.Once
	shutdown func(context.Context) error
)

// Init wires the global TracerProvider if TRACING_ENABLED is set, using
// the stdout exporter. Returns a shutdown func to call on process exit;
// it is a no-op if tracing was never enabled.
func Init(log *logger.Logger) func(context.Context) error {
	initOnce.Do(func() {
		if !enabled() {
			shutdown = func(context.Context) error { return nil }
			return
		}
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			log.Warn("tracing exporter init failed, continuing without tracing", "error", err)
			shutdown = func(context.Context) error { return nil }
			return
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		otel.SetTracerProvider(tp)
		shutdown = tp.Shutdown
		log.Info("tracing initialized", "exporter", "stdout")
	})
	return shutdown
}

func enabled() bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv("TRACING_ENABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

// StartSpan begins a span for one runner cycle (poll, execute, reap).
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
