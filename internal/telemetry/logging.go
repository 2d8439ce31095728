// Package telemetry centralizes structured logging and the Prometheus
// observability sink the Alert Dispatcher and Data-Plane Selector read
// usage gauges from. The teacher logs with bare log.Printf throughout;
// this wraps log/slog the way jinterlante1206-AleutianLocal's
// pkg/logging package does, instead of reaching for a third-party
// structured logger no repo in the retrieval pack imports.
package telemetry

import (
	"context"
	"log/slog"
	"os"
)

// NewLogger builds the process-wide structured logger: JSON to stderr,
// tagged with service and environment so multi-process deployments can
// tell gateway instances apart in aggregated logs.
func NewLogger(service, environment string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler).With(
		slog.String("service", service),
		slog.String("environment", environment),
	)
}

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID attaches a request id to the context for log correlation
// across the critical path and the detached background fan-out.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID extracts the request id, if any, from ctx.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// FromContext returns a logger annotated with the request id carried in
// ctx, falling back to base if none is present.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if id := RequestID(ctx); id != "" {
		return base.With(slog.String("request_id", id))
	}
	return base
}
