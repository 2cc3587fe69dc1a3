package tracingsvc

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ing-la/future-navigator/core"
)

const TracerName = "github.com/Ing-la/future-navigator"

// Setup registers the global tracer provider.
//
// Tracing is opt-in: when it is disabled or no endpoint is configured,
// Setup returns a no-op shutdown function and the global provider is left untouched.
// The returned shutdown function flushes pending spans.
func Setup(ctx context.Context, conf *core.Config) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !conf.Tracing.Enabled || conf.Tracing.Endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(conf.Tracing.Endpoint))
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(conf.AppName),
			semconv.ServiceVersion(conf.Build),
			semconv.DeploymentEnvironment(conf.Env),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// Tracer returns the app tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
