package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type levelSampler struct {
	min int
}

// LevelSampler records message spans whose log level is at least minLevel.
// Spans without a message.log_level attribute, such as admin requests, are
// always recorded.
func LevelSampler(minLevel int) sdktrace.Sampler {
	return levelSampler{min: minLevel}
}

func (s levelSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	decision := sdktrace.RecordAndSample
	for _, attr := range p.Attributes {
		if attr.Key == attrLogLevel && attr.Value.AsInt64() < int64(s.min) {
			decision = sdktrace.Drop
			break
		}
	}
	return sdktrace.SamplingResult{
		Decision:   decision,
		Tracestate: trace.SpanContextFromContext(p.ParentContext).TraceState(),
	}
}

func (s levelSampler) Description() string {
	return fmt.Sprintf("LevelSampler{min=%d}", s.min)
}
