package logging

import (
	"context"
)

type contextKey string

const (
	TraceIDKey     = "trace_id"
	MessageIDKey   = "message_id"
	RouteKey       = "route"
	ServiceNameKey = "service_name"
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextKey(TraceIDKey), traceID)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, contextKey(MessageIDKey), messageID)
}

func WithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, contextKey(RouteKey), route)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, contextKey(ServiceNameKey), serviceName)
}

func GetTraceID(ctx context.Context) string {
	return getString(ctx, TraceIDKey)
}

func GetMessageID(ctx context.Context) string {
	return getString(ctx, MessageIDKey)
}

func GetRoute(ctx context.Context) string {
	return getString(ctx, RouteKey)
}

func GetServiceName(ctx context.Context) string {
	return getString(ctx, ServiceNameKey)
}

func getString(ctx context.Context, key string) string {
	if v, ok := ctx.Value(contextKey(key)).(string); ok {
		return v
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 8)

	for _, key := range []string{TraceIDKey, MessageIDKey, RouteKey, ServiceNameKey} {
		if v := getString(ctx, key); v != "" {
			fields = append(fields, key, v)
		}
	}

	return fields
}
