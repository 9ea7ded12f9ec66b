package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Observability bundles the otel meter and tracer used by the pipeline.
// All fields degrade to no-ops when exporters cannot be created.
type Observability struct {
	meterProvider *metric.MeterProvider
	traceProvider *sdktrace.TracerProvider
	tracer        oteltrace.Tracer
	runCounter    otelmetric.Int64Counter
	stageDuration otelmetric.Float64Histogram
}

// New wires a prometheus metric exporter and, when endpoint is non-empty, a
// jaeger trace exporter.
func New(serviceName, jaegerEndpoint string) *Observability {
	o := &Observability{}

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("prometheus exporter unavailable: %v", err)
	} else {
		provider := metric.NewMeterProvider(metric.WithReader(exporter))
		otel.SetMeterProvider(provider)
		meter := provider.Meter(serviceName)

		o.meterProvider = provider
		o.runCounter, _ = meter.Int64Counter(
			"pipeline.runs",
			otelmetric.WithDescription("Number of pipeline runs"),
		)
		o.stageDuration, _ = meter.Float64Histogram(
			"pipeline.stage.duration",
			otelmetric.WithDescription("Stage execution duration"),
			otelmetric.WithUnit("ms"),
		)
	}

	if jaegerEndpoint != "" {
		traceExp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
		if err != nil {
			log.Printf("jaeger exporter unavailable: %v", err)
		} else {
			tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp))
			otel.SetTracerProvider(tp)
			o.traceProvider = tp
		}
	}
	o.tracer = otel.Tracer(serviceName)

	return o
}

// StartStageSpan opens a span for one stage execution.
func (o *Observability) StartStageSpan(ctx context.Context, stage string) (context.Context, oteltrace.Span) {
	return o.tracer.Start(ctx, "stage."+stage)
}

// RecordRun counts one completed pipeline run.
func (o *Observability) RecordRun(ctx context.Context, outcome string) {
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

// RecordStageDuration records one stage execution.
func (o *Observability) RecordStageDuration(ctx context.Context, stage string, d time.Duration) {
	if o.stageDuration != nil {
		o.stageDuration.Record(ctx, float64(d.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("stage", stage),
		))
	}
}

// Shutdown flushes providers.
func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.traceProvider != nil {
		_ = o.traceProvider.Shutdown(ctx)
	}
}
