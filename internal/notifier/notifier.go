// Package notifier reports detection results to the room-status service.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/smartcampus/occupancy-pipeline/internal/domain"
)

// DefaultTimeout bounds a single delivery attempt
const DefaultTimeout = 5 * time.Second

// Config holds notifier configuration
type Config struct {
	URL     string
	Timeout time.Duration
}

// payload is the wire shape expected by the room-status service
type payload struct {
	CameraID    string `json:"cameraId"`
	PersonCount int    `json:"personCount"`
}

// Client posts occupancy updates. Each update is attempted exactly once.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a notifier client
func New(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		url:        config.URL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Deliver posts the result and reports whether the service accepted it.
// Any 2xx status counts as accepted.
func (c *Client) Deliver(ctx context.Context, result domain.DetectionResult) error {
	body, err := json.Marshal(payload{
		CameraID:    result.CameraID,
		PersonCount: result.PersonCount,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status %d", domain.ErrNotificationFailed, resp.StatusCode)
	}

	return nil
}

// Send delivers the result and logs the outcome. Failures never propagate:
// the caller moves on to the next job regardless.
func (c *Client) Send(ctx context.Context, result domain.DetectionResult) {
	if err := c.Deliver(ctx, result); err != nil {
		c.logger.Warn("Failed to notify room service",
			slog.String("camera_id", result.CameraID),
			slog.Int("person_count", result.PersonCount),
			slog.Any("error", err),
		)
		return
	}

	c.logger.Info("Room service notified",
		slog.String("camera_id", result.CameraID),
		slog.Int("person_count", result.PersonCount),
	)
}
