package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartcampus/occupancy-pipeline/internal/detector"
	"github.com/smartcampus/occupancy-pipeline/internal/domain"
)

// JobSource hands out jobs one at a time. Dequeue returns nil, nil when
// timeout elapses without a job.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*domain.Job, error)
}

// Notifier forwards a detection result downstream. It never fails the caller.
type Notifier interface {
	Send(ctx context.Context, result domain.DetectionResult)
}

// Config holds worker configuration
type Config struct {
	Logger             *slog.Logger
	Source             JobSource
	Detector           detector.Detector
	Notifier           Notifier
	WorkerID           string
	DequeueTimeout     time.Duration
	JobTimeout         time.Duration
	MaxQueueFailures   int
	QueueRetryInterval time.Duration
}

// Worker pulls camera jobs off the queue and processes them one at a time
type Worker struct {
	logger             *slog.Logger
	source             JobSource
	detector           detector.Detector
	notifier           Notifier
	workerID           string
	dequeueTimeout     time.Duration
	jobTimeout         time.Duration
	maxQueueFailures   int
	queueRetryInterval time.Duration
	wg                 sync.WaitGroup
	stopChan           chan struct{}
	stopOnce           sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = generateWorkerID()
	}

	maxFailures := cfg.MaxQueueFailures
	if maxFailures <= 0 {
		maxFailures = 1
	}

	return &Worker{
		logger:             cfg.Logger.With(slog.String("worker_id", workerID)),
		source:             cfg.Source,
		detector:           cfg.Detector,
		notifier:           cfg.Notifier,
		workerID:           workerID,
		dequeueTimeout:     cfg.DequeueTimeout,
		jobTimeout:         cfg.JobTimeout,
		maxQueueFailures:   maxFailures,
		queueRetryInterval: cfg.QueueRetryInterval,
		stopChan:           make(chan struct{}),
	}
}

// ID returns the worker instance identifier
func (w *Worker) ID() string {
	return w.workerID
}

// Start runs the processing loop until ctx is cancelled, Stop is called,
// or the queue stays unreachable for MaxQueueFailures consecutive attempts.
// Only the last case returns an error.
func (w *Worker) Start(ctx context.Context) error {
	w.wg.Add(1)
	defer w.wg.Done()

	w.logger.Info("Starting worker",
		slog.Duration("dequeue_timeout", w.dequeueTimeout),
		slog.Duration("job_timeout", w.jobTimeout),
		slog.Int("max_queue_failures", w.maxQueueFailures),
	)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-loopCtx.Done():
		}
	}()

	err := w.run(loopCtx)
	if err != nil {
		w.logger.Error("Worker stopped on fatal error", slog.Any("error", err))
		return err
	}

	w.logger.Info("Worker loop exited")
	return nil
}

// Stop gracefully stops the worker, waiting for the in-flight job
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

// generateWorkerID creates a unique worker ID from hostname and uuid
func generateWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])
}
