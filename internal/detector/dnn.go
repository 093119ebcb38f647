//go:build gocv

package detector

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/smartcampus/occupancy-pipeline/internal/imaging"
)

// COCO class id for person in SSD MobileNet models
const personClassID = 1

// DNNDetector runs an SSD MobileNet network in-process through OpenCV.
// gocv.Net is not safe for concurrent use, so inference is serialised.
type DNNDetector struct {
	net       gocv.Net
	threshold float32
	logger    *slog.Logger
	mu        sync.Mutex
}

// NewDNNDetector loads the network from the model and config files
func NewDNNDetector(config Config, logger *slog.Logger) (Detector, error) {
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", config.ModelPath)
	}

	if config.ConfigPath != "" {
		if _, err := os.Stat(config.ConfigPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", config.ConfigPath)
		}
	}

	net := gocv.ReadNet(config.ModelPath, config.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", config.ModelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable target: %w", err)
	}

	logger.Info("Detection network initialized",
		slog.String("model_path", config.ModelPath),
	)

	return &DNNDetector{
		net:       net,
		threshold: float32(config.ConfidenceThreshold),
		logger:    logger,
	}, nil
}

// Detect runs the network over the frame and counts person rows
func (d *DNNDetector) Detect(ctx context.Context, frame *imaging.Frame) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	mat, err := gocv.IMDecode(frame.Raw, gocv.IMReadColor)
	if err != nil {
		return 0, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return 0, fmt.Errorf("decoded image is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	// each detection row: [batch, class, confidence, x1, y1, x2, y2]
	rows := output.Reshape(1, output.Total()/7)
	defer rows.Close()

	count := 0
	for i := 0; i < rows.Rows(); i++ {
		confidence := rows.GetFloatAt(i, 2)
		if confidence < d.threshold {
			continue
		}
		if int(rows.GetFloatAt(i, 1)) == personClassID {
			count++
		}
	}

	d.logger.Debug("Inference completed", slog.Int("person_count", count))

	return count, nil
}

// Close releases the network
func (d *DNNDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
