//go:build !gocv

package detector

import (
	"errors"
	"log/slog"
)

// NewDNNDetector is unavailable in binaries built without the gocv tag
func NewDNNDetector(config Config, logger *slog.Logger) (Detector, error) {
	return nil, errors.New("gocv detector backend not compiled in (rebuild with -tags gocv)")
}
