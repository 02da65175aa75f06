package observability

import (
	"context"
	"time"

	"bell24h-workers/internal/matching"
	"bell24h-workers/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Observability owns the otel meter and tracer providers for the process.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
	matchOutcomes  otelmetric.Int64Counter
	matchResults   otelmetric.Int64Histogram
}

var _ matching.Recorder = (*Observability)(nil)

// New installs global providers. A failing exporter leaves metrics disabled
// but tracing still works.
func New(serviceName string) (*Observability, error) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	o := &Observability{tracerProvider: tp}

	exporter, err := prometheus.New()
	if err != nil {
		return o, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	o.meterProvider = provider
	o.meter = provider.Meter(serviceName)

	o.jobCounter, _ = o.meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	o.jobDuration, _ = o.meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	o.matchOutcomes, _ = o.meter.Int64Counter(
		"match.external.outcomes",
		otelmetric.WithDescription("External match attempts by outcome"),
	)
	o.matchResults, _ = o.meter.Int64Histogram(
		"match.results",
		otelmetric.WithDescription("Ranked suppliers returned per call"),
	)

	return o, nil
}

func (o *Observability) Tracer(name string) trace.Tracer {
	if o == nil || o.tracerProvider == nil {
		return otel.Tracer(name)
	}
	return o.tracerProvider.Tracer(name)
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordExternalOutcome(provider string, outcome matching.Outcome) {
	if o == nil || o.matchOutcomes == nil {
		return
	}
	o.matchOutcomes.Add(context.Background(), 1, otelmetric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", string(outcome)),
	))
}

func (o *Observability) RecordResults(source models.MatchSource, count int) {
	if o == nil || o.matchResults == nil {
		return
	}
	o.matchResults.Record(context.Background(), int64(count), otelmetric.WithAttributes(
		attribute.String("source", string(source)),
	))
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
