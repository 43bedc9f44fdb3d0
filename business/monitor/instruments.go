package monitor

import (
	"context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"log"
	"time"
)

const instrumentationName = "github.com/OpenTransitTools/stopwatch/business/monitor"

// pollInstruments records one span and two measurements per aggregator poll.
// Uses the global providers, which are no-ops until tracing is initialized.
type pollInstruments struct {
	tracer   trace.Tracer
	polls    metric.Int64Counter
	duration metric.Float64Histogram
}

func newPollInstruments(log *log.Logger) *pollInstruments {
	meter := otel.Meter(instrumentationName)
	polls, err := meter.Int64Counter("stopwatch.polls",
		metric.WithDescription("Arrival polls by outcome"),
		metric.WithUnit("{poll}"))
	if err != nil {
		log.Printf("unable to create stopwatch.polls counter, error:%v", err)
	}
	duration, err := meter.Float64Histogram("stopwatch.poll.duration",
		metric.WithDescription("Duration of arrival polls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0))
	if err != nil {
		log.Printf("unable to create stopwatch.poll.duration histogram, error:%v", err)
	}
	return &pollInstruments{
		tracer:   otel.Tracer(instrumentationName),
		polls:    polls,
		duration: duration,
	}
}

// startPoll opens the span covering a poll of stopId
func (p *pollInstruments) startPoll(ctx context.Context, stopId int, relatedStopIds []int) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "monitor.poll",
		trace.WithAttributes(
			attribute.Int("stop_id", stopId),
			attribute.IntSlice("related_stop_ids", relatedStopIds),
		))
}

// endPoll records the outcome of a poll that began at start and closes span
func (p *pollInstruments) endPoll(ctx context.Context, span trace.Span, start time.Time, arrivalCount int, err error) {
	outcome := "ready"
	if err != nil {
		outcome = "degraded"
		span.RecordError(err)
	}
	span.SetAttributes(attribute.Int("arrivals", arrivalCount), attribute.String("outcome", outcome))
	span.End()

	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if p.polls != nil {
		p.polls.Add(ctx, 1, attrs)
	}
	if p.duration != nil {
		p.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
