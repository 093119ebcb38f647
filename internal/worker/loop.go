package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smartcampus/occupancy-pipeline/internal/domain"
)

// run is the dequeue loop. A job is always processed to completion before
// the next dequeue, and before shutdown is honoured.
func (w *Worker) run(ctx context.Context) error {
	failures := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		job, err := w.source.Dequeue(ctx, w.dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			if errors.Is(err, domain.ErrMalformedJob) {
				failures = 0
				recordJob(ctx, outcomeMalformed)
				w.logger.Warn("Dropping malformed job",
					slog.Any("error", err),
				)
				continue
			}

			failures++
			recordQueueFailure(ctx)
			w.logger.Error("Failed to dequeue job",
				slog.Any("error", err),
				slog.Int("consecutive_failures", failures),
				slog.Int("max_failures", w.maxQueueFailures),
			)

			if failures >= w.maxQueueFailures {
				return fmt.Errorf("queue unavailable after %d consecutive attempts: %w", failures, err)
			}

			if !w.sleep(ctx, w.queueRetryInterval) {
				return nil
			}
			continue
		}

		failures = 0

		if job == nil {
			w.logger.Debug("Dequeue timed out, waiting again")
			continue
		}

		w.processJob(ctx, job)
	}
}

// sleep waits for d and reports false if ctx ended first
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
