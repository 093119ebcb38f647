// Package detector counts people in a decoded frame.
package detector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/smartcampus/occupancy-pipeline/internal/imaging"
)

// Backends
const (
	BackendHTTP = "http"
	BackendGoCV = "gocv"
)

// PersonLabel is the class label counted as occupancy
const PersonLabel = "person"

// Detector returns the number of people visible in a frame
type Detector interface {
	Detect(ctx context.Context, frame *imaging.Frame) (int, error)
	Close() error
}

// Config holds detector configuration
type Config struct {
	Backend             string
	Endpoint            string
	ModelPath           string
	ConfigPath          string
	ConfidenceThreshold float64
	Timeout             time.Duration
}

// New builds the detector selected by config.Backend
func New(config Config, logger *slog.Logger) (Detector, error) {
	switch config.Backend {
	case BackendHTTP, "":
		return NewHTTPDetector(config, logger), nil
	case BackendGoCV:
		return NewDNNDetector(config, logger)
	default:
		return nil, fmt.Errorf("unknown detector backend: %q", config.Backend)
	}
}
