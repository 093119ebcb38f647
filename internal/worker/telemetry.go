package worker

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	outcomeProcessed       = "processed"
	outcomeMalformed       = "malformed"
	outcomeDetectionFailed = "detection_failed"
)

var (
	jobsCounter      metric.Int64Counter
	queueFailures    metric.Int64Counter
	jobDurationHisto metric.Float64Histogram
)

func init() {
	meter := otel.Meter("github.com/smartcampus/occupancy-pipeline/internal/worker")

	var err error

	jobsCounter, err = meter.Int64Counter(
		"occupancy.worker.jobs",
		metric.WithDescription("Number of jobs taken off the queue, by outcome"),
	)
	if err != nil {
		log.Fatalf("failed to create worker.jobs counter: %v", err)
	}

	queueFailures, err = meter.Int64Counter(
		"occupancy.worker.queue_failures",
		metric.WithDescription("Number of failed dequeue attempts"),
	)
	if err != nil {
		log.Fatalf("failed to create worker.queue_failures counter: %v", err)
	}

	jobDurationHisto, err = meter.Float64Histogram(
		"occupancy.worker.job_duration",
		metric.WithDescription("Time from dequeue to notification for processed jobs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		log.Fatalf("failed to create worker.job_duration histogram: %v", err)
	}
}

func recordJob(ctx context.Context, outcome string) {
	jobsCounter.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func recordQueueFailure(ctx context.Context) {
	queueFailures.Add(context.WithoutCancel(ctx), 1)
}

func recordDuration(ctx context.Context, d time.Duration) {
	jobDurationHisto.Record(context.WithoutCancel(ctx), d.Seconds())
}
