package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/smartcampus/occupancy-pipeline/internal/domain"
)

// CameraIDKey is the gin context key holding the uploading camera's id
const CameraIDKey = "camera_id"

// Enqueuer places jobs on the shared work queue
type Enqueuer interface {
	Enqueue(ctx context.Context, job *domain.Job) error
	Len(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// CameraRegistry decides whether a camera may upload frames
type CameraRegistry interface {
	Check(ctx context.Context, cameraID string) error
}

// HealthChecker is an extra dependency checked by the health endpoint
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger         *slog.Logger
	Queue          Enqueuer
	Registry       CameraRegistry // nil disables the registry check
	Database       HealthChecker  // nil when no database is configured
	ServiceName    string
	MaxUploadBytes int64
	Now            func() time.Time
}

// FeedHandler handles camera feed uploads and service status
type FeedHandler struct {
	logger         *slog.Logger
	queue          Enqueuer
	registry       CameraRegistry
	database       HealthChecker
	serviceName    string
	maxUploadBytes int64
	now            func() time.Time
}

// NewFeedHandler creates a new FeedHandler instance
func NewFeedHandler(deps *Dependencies) *FeedHandler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &FeedHandler{
		logger:         deps.Logger,
		queue:          deps.Queue,
		registry:       deps.Registry,
		database:       deps.Database,
		serviceName:    deps.ServiceName,
		maxUploadBytes: deps.MaxUploadBytes,
		now:            now,
	}
}
