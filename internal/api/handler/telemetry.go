package handler

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var uploadsCounter metric.Int64Counter

func init() {
	meter := otel.Meter("github.com/smartcampus/occupancy-pipeline/internal/api/handler")

	var err error

	uploadsCounter, err = meter.Int64Counter(
		"occupancy.ingress.uploads",
		metric.WithDescription("Number of frame uploads received, by outcome"),
	)
	if err != nil {
		log.Fatalf("failed to create ingress.uploads counter: %v", err)
	}
}

func recordUpload(ctx context.Context, outcome string) {
	uploadsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
