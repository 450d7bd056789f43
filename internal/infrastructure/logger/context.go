package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerCtxKey ctxKey = iota
	requestIDCtxKey
	tenantIDCtxKey
	userIDCtxKey
)

// WithContext stores l in ctx so downstream code can recover it.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, l)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerCtxKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID records the request id in ctx and on the logger.
func WithRequestID(ctx context.Context, l *zap.Logger, id string) (context.Context, *zap.Logger) {
	return tag(ctx, l, requestIDCtxKey, "request_id", id)
}

// WithTenantID records the tenant id in ctx and on the logger.
func WithTenantID(ctx context.Context, l *zap.Logger, id string) (context.Context, *zap.Logger) {
	return tag(ctx, l, tenantIDCtxKey, "tenant_id", id)
}

// WithUserID records the user id in ctx and on the logger.
func WithUserID(ctx context.Context, l *zap.Logger, id string) (context.Context, *zap.Logger) {
	return tag(ctx, l, userIDCtxKey, "user_id", id)
}

func tag(ctx context.Context, l *zap.Logger, key ctxKey, field, value string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, key, value)
	l = l.With(zap.String(field, value))
	return WithContext(ctx, l), l
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDCtxKey)
}

// TenantID returns the tenant id stored in ctx, if any.
func TenantID(ctx context.Context) string {
	return stringValue(ctx, tenantIDCtxKey)
}

// UserID returns the user id stored in ctx, if any.
func UserID(ctx context.Context) string {
	return stringValue(ctx, userIDCtxKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// TraceFields returns trace_id/span_id zap fields for the active span,
// or nil when ctx carries no valid span. Lets log lines correlate with
// exported traces without forcing a span on every caller.
func TraceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
