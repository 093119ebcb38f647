package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/smartcampus/occupancy-pipeline/internal/domain"
	"github.com/smartcampus/occupancy-pipeline/internal/imaging"
)

// processJob decodes, detects and notifies for a single job. Every failure
// is logged and the job dropped; nothing here stops the loop.
func (w *Worker) processJob(ctx context.Context, job *domain.Job) {
	start := time.Now()

	logger := w.logger.With(
		slog.String("camera_id", job.CameraID),
		slog.Time("captured_at", job.Timestamp),
	)
	logger.Info("Processing job", slog.Int("image_bytes", len(job.Image)))

	// shutdown must not abandon a job mid-detection
	jobCtx := context.WithoutCancel(ctx)
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, w.jobTimeout)
		defer cancel()
	}

	frame, err := imaging.Decode(job.Image)
	if err != nil {
		recordJob(ctx, outcomeMalformed)
		logger.Warn("Dropping job with undecodable image",
			slog.Any("error", err),
		)
		return
	}

	count, err := w.detect(jobCtx, frame)
	if err != nil {
		recordJob(ctx, outcomeDetectionFailed)
		logger.Error("Detection failed, dropping job",
			slog.Any("error", err),
			slog.Duration("elapsed", time.Since(start)),
		)
		return
	}

	result := domain.DetectionResult{
		CameraID:    job.CameraID,
		PersonCount: count,
	}

	logger.Info("Detection completed",
		slog.Int("person_count", count),
		slog.Int("width", frame.Width),
		slog.Int("height", frame.Height),
	)

	w.notifier.Send(jobCtx, result)

	recordJob(ctx, outcomeProcessed)
	recordDuration(ctx, time.Since(start))
}

// detect runs the detector, converting errors, panics and impossible
// counts into ErrDetectionFailed
func (w *Worker) detect(ctx context.Context, frame *imaging.Frame) (count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			count = 0
			err = fmt.Errorf("%w: detector panic: %v", domain.ErrDetectionFailed, r)
		}
	}()

	count, err = w.detector.Detect(ctx, frame)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrDetectionFailed, err)
	}

	if count < 0 {
		return 0, fmt.Errorf("%w: negative person count %d", domain.ErrDetectionFailed, count)
	}

	return count, nil
}
