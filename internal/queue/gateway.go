// Package queue is the boundary between the pipeline and the FIFO broker.
// Producers call Enqueue, the worker calls Dequeue; neither sees the
// transport encoding.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/smartcampus/occupancy-pipeline/internal/domain"
)

// Transport moves raw payloads through one named FIFO list on a broker.
// Pop blocks inside the broker and returns nil, nil when timeout expires;
// a zero timeout blocks indefinitely.
type Transport interface {
	Push(ctx context.Context, payload []byte) error
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
	Len(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Gateway encodes jobs onto a Transport and decodes them back off it
type Gateway struct {
	transport Transport
	logger    *slog.Logger
}

// NewGateway creates a new Gateway over transport
func NewGateway(transport Transport, logger *slog.Logger) *Gateway {
	return &Gateway{
		transport: transport,
		logger:    logger,
	}
}

// Enqueue appends job to the tail of the queue.
// Broker failures are returned wrapping domain.ErrQueueUnavailable.
func (g *Gateway) Enqueue(ctx context.Context, job *domain.Job) error {
	payload, err := domain.Encode(job)
	if err != nil {
		return err
	}

	if err := g.transport.Push(ctx, payload); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}

	g.logger.Debug("Job enqueued",
		slog.String("camera_id", job.CameraID),
		slog.Int("payload_size", len(payload)),
	)

	return nil
}

// Dequeue pops the job at the head of the queue, blocking until one is
// available or timeout elapses. It returns nil, nil only on timeout.
//
// A payload that cannot be decoded has already been removed from the broker;
// it is reported as domain.ErrMalformedJob so the caller can drop it.
func (g *Gateway) Dequeue(ctx context.Context, timeout time.Duration) (*domain.Job, error) {
	payload, err := g.transport.Pop(ctx, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}

	if payload == nil {
		return nil, nil
	}

	job, err := domain.Decode(payload)
	if err != nil {
		return nil, err
	}

	return job, nil
}

// Len returns the number of jobs waiting on the queue
func (g *Gateway) Len(ctx context.Context) (int64, error) {
	n, err := g.transport.Len(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	return n, nil
}

// Ping checks that the broker is reachable
func (g *Gateway) Ping(ctx context.Context) error {
	if err := g.transport.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	return nil
}
