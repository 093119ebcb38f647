package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/smartcampus/occupancy-pipeline/internal/api/model"
)

// CameraWriter persists registry rows
type CameraWriter interface {
	UpsertCamera(ctx context.Context, camera *model.Camera) error
}

// SeedCameras upserts cameras in order, stamping a zero CreatedAt with now.
// Existing rows keep their creation time. It stops at the first failure.
func SeedCameras(ctx context.Context, w CameraWriter, cameras []*model.Camera, now time.Time) error {
	for _, camera := range cameras {
		if camera.CreatedAt.IsZero() {
			camera.CreatedAt = now.UTC()
		}

		if err := w.UpsertCamera(ctx, camera); err != nil {
			return fmt.Errorf("failed to seed camera %s: %w", camera.CameraID, err)
		}
	}

	return nil
}
