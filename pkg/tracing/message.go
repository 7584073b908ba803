package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"labelbus/pkg/models"
)

const (
	tracerName = "labelbus"

	attrLogLevel   = "message.log_level"
	attrLabelCount = "message.label_count"
	attrMessageID  = "message.id"
)

// StartMessageSpan starts a span describing msg.
func StartMessageSpan(ctx context.Context, operation string, msg *models.Message) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.Int(attrLogLevel, msg.LogLevel),
		attribute.Int(attrLabelCount, len(msg.Labels)),
	}
	if msg.ID != "" {
		attrs = append(attrs, attribute.String(attrMessageID, msg.ID))
	}
	return otel.Tracer(tracerName).Start(ctx, operation, trace.WithAttributes(attrs...))
}

// ExtractTraceContext reads W3C trace headers carried as string labels,
// e.g. a "traceparent" label set by the producer.
func ExtractTraceContext(ctx context.Context, labels models.Labels) context.Context {
	carrier := propagation.MapCarrier{}
	for k, v := range labels {
		if s, ok := v.(string); ok {
			carrier[k] = s
		}
	}
	if len(carrier) == 0 {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
