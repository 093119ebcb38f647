package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/smartcampus/occupancy-pipeline/internal/imaging"
)

// Detection is one object reported by an inference server
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type inferenceResponse struct {
	Detections []Detection `json:"detections"`
}

// HTTPDetector delegates inference to a model server. The raw image is
// posted as the request body and the server answers with its detections.
type HTTPDetector struct {
	endpoint   string
	threshold  float64
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPDetector creates a detector backed by an inference server
func NewHTTPDetector(config Config, logger *slog.Logger) *HTTPDetector {
	return &HTTPDetector{
		endpoint:   config.Endpoint,
		threshold:  config.ConfidenceThreshold,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// Detect posts the frame and counts person detections at or above the threshold
func (d *HTTPDetector) Detect(ctx context.Context, frame *imaging.Frame) (int, error) {
	target, err := url.Parse(d.endpoint)
	if err != nil {
		return 0, fmt.Errorf("invalid detector endpoint: %w", err)
	}
	query := target.Query()
	query.Set("conf", strconv.FormatFloat(d.threshold, 'f', -1, 64))
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(frame.Raw))
	if err != nil {
		return 0, fmt.Errorf("failed to build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "image/"+frame.Format)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("inference server returned status %d", resp.StatusCode)
	}

	var body inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode inference response: %w", err)
	}

	count := CountPersons(body.Detections, d.threshold)

	d.logger.Debug("Inference completed",
		slog.Int("detections", len(body.Detections)),
		slog.Int("person_count", count),
	)

	return count, nil
}

// Close is a no-op; the HTTP client holds no exclusive resources
func (d *HTTPDetector) Close() error {
	return nil
}

// CountPersons counts detections labelled person (or unlabelled, for
// single-class models) whose confidence reaches threshold
func CountPersons(detections []Detection, threshold float64) int {
	count := 0
	for _, det := range detections {
		label := strings.ToLower(strings.TrimSpace(det.Label))
		if label != PersonLabel && label != "" {
			continue
		}
		if det.Confidence >= threshold {
			count++
		}
	}
	return count
}
