package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smartcampus/occupancy-pipeline/internal/api/dto"
	"github.com/smartcampus/occupancy-pipeline/internal/domain"
)

// UploadFeed handles POST /upload-feed
// Queues a camera snapshot for detection and returns without waiting for it
func (h *FeedHandler) UploadFeed(c *gin.Context) {
	// multipart parsing reads the whole body; cap it first
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+(1<<20))
	}

	var req dto.UploadFeedRequest
	if err := c.ShouldBind(&req); err != nil {
		h.rejectBinding(c, err)
		return
	}

	cameraID := strings.TrimSpace(req.CameraID)
	c.Set(CameraIDKey, cameraID)
	if cameraID == "" {
		h.reject(c, http.StatusBadRequest, domain.NewValidationError("camera_id", "is required"))
		return
	}

	image, err := h.readImage(c)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, errFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.reject(c, status, err)
		return
	}

	if h.registry != nil {
		if err := h.registry.Check(c.Request.Context(), cameraID); err != nil {
			h.rejectCamera(c, cameraID, err)
			return
		}
	}

	job := domain.NewJob(cameraID, image, h.now())

	if err := h.queue.Enqueue(c.Request.Context(), job); err != nil {
		h.logger.Error("Failed to enqueue frame",
			slog.String("camera_id", cameraID),
			slog.Any("error", err),
		)
		recordUpload(c.Request.Context(), "queue_unavailable")
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error: "Queue unavailable, retry later",
		})
		return
	}

	h.logger.Info("Frame queued",
		slog.String("camera_id", cameraID),
		slog.Int("image_bytes", len(image)),
	)

	recordUpload(c.Request.Context(), "queued")
	c.JSON(http.StatusOK, dto.UploadFeedResponse{
		Status:   "queued",
		CameraID: cameraID,
	})
}

var errFileTooLarge = errors.New("file exceeds upload limit")

// readImage returns the uploaded file contents
func (h *FeedHandler) readImage(c *gin.Context) ([]byte, error) {
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, domain.NewValidationError("file", "is required")
	}

	if header.Size == 0 {
		return nil, domain.NewValidationError("file", "is empty")
	}

	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", errFileTooLarge, header.Size, h.maxUploadBytes)
	}

	return readFile(header)
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	if len(data) == 0 {
		return nil, domain.NewValidationError("file", "is empty")
	}

	return data, nil
}

func (h *FeedHandler) rejectBinding(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.reject(c, http.StatusRequestEntityTooLarge, err)
		return
	}
	h.reject(c, http.StatusBadRequest, fmt.Errorf("invalid form: %w", err))
}

func (h *FeedHandler) rejectCamera(c *gin.Context, cameraID string, err error) {
	switch {
	case errors.Is(err, domain.ErrCameraNotFound):
		h.reject(c, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrCameraInactive):
		h.reject(c, http.StatusForbidden, err)
	default:
		h.logger.Error("Camera registry lookup failed",
			slog.String("camera_id", cameraID),
			slog.Any("error", err),
		)
		recordUpload(c.Request.Context(), "registry_unavailable")
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error: "Camera registry unavailable, retry later",
		})
	}
}

func (h *FeedHandler) reject(c *gin.Context, status int, err error) {
	h.logger.Warn("Upload rejected",
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	recordUpload(c.Request.Context(), "rejected")
	c.JSON(status, dto.ErrorResponse{Error: err.Error()})
}

// Root handles GET /
func (h *FeedHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, dto.StatusResponse{
		Status:  "online",
		Service: h.serviceName,
	})
}

// Health handles GET /health
// Reports healthy only when the queue answers, and the database too when configured
func (h *FeedHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.queue.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{
			Status: "unhealthy",
			Error:  err.Error(),
		})
		return
	}

	if h.database != nil {
		if err := h.database.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{
				Status: "unhealthy",
				Error:  err.Error(),
			})
			return
		}
	}

	resp := dto.HealthResponse{Status: "healthy"}
	if depth, err := h.queue.Len(ctx); err == nil {
		resp.QueueDepth = &depth
	}

	c.JSON(http.StatusOK, resp)
}
