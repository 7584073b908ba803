// Package tracing sets up the OpenTelemetry provider for the bus and
// carries trace context through messages and the admin API.
package tracing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"labelbus/internal/config"
	"labelbus/internal/constants"
)

const (
	attrHubLabelPrefix = "labelbus.hub.label."
	attrHubMinLevel    = "labelbus.hub.min_level"
	attrRouteCount     = "labelbus.routes"
	attrRouteNames     = "labelbus.route_names"
)

type TracerProvider struct {
	tp *sdktrace.TracerProvider
}

func (tp *TracerProvider) Tracer(name string) trace.Tracer {
	return tp.tp.Tracer(name)
}

func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil || tp.tp == nil {
		return nil
	}
	return tp.tp.Shutdown(ctx)
}

// Init builds the provider for a bus configuration. With tracing disabled it
// returns a provider that records nothing and leaves the global one alone.
func Init(cfg *config.Config) (*TracerProvider, error) {
	if !cfg.Tracing.Enabled {
		return &TracerProvider{tp: sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample()))}, nil
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(busAttributes(cfg)...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Tracing.OTLP.Endpoint),
	}
	if cfg.Tracing.OTLP.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(createSampler(cfg.Tracing.Sampler)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{tp: tp}, nil
}

// ServiceName picks the tracing service name, then the hub's, then the
// binary default.
func ServiceName(cfg *config.Config) string {
	if cfg.Tracing.ServiceName != "" {
		return cfg.Tracing.ServiceName
	}
	if cfg.Hub.ServiceName != "" {
		return cfg.Hub.ServiceName
	}
	return constants.ServiceName
}

// busAttributes describes the hub and its routes on the resource, so every
// span names the bus instance it came from. Only string, bool and numeric
// hub labels are exported.
func busAttributes(cfg *config.Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(ServiceName(cfg)),
		attribute.Int(attrRouteCount, len(cfg.Routes)),
	}
	if cfg.Hub.MinLevel != nil {
		attrs = append(attrs, attribute.Int(attrHubMinLevel, *cfg.Hub.MinLevel))
	}

	if len(cfg.Routes) > 0 {
		names := make([]string, 0, len(cfg.Routes))
		for _, r := range cfg.Routes {
			names = append(names, r.Name)
		}
		attrs = append(attrs, attribute.StringSlice(attrRouteNames, names))
	}

	keys := make([]string, 0, len(cfg.Hub.Labels))
	for k := range cfg.Hub.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := attrHubLabelPrefix + k
		switch v := cfg.Hub.Labels[k].(type) {
		case string:
			attrs = append(attrs, attribute.String(key, v))
		case bool:
			attrs = append(attrs, attribute.Bool(key, v))
		case int:
			attrs = append(attrs, attribute.Int(key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(key, v))
		case float64:
			attrs = append(attrs, attribute.Float64(key, v))
		}
	}
	return attrs
}

func createSampler(cfg config.SamplerConfig) sdktrace.Sampler {
	switch cfg.Type {
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(cfg.Param)
	case "parentbased_always_on":
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Param))
	case "log_level":
		return LevelSampler(int(cfg.Param))
	case "parentbased_log_level":
		return sdktrace.ParentBased(LevelSampler(int(cfg.Param)))
	case "always_on":
		fallthrough
	default:
		return sdktrace.AlwaysSample()
	}
}
