package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/smartcampus/occupancy-pipeline/internal/api/model"
	"github.com/smartcampus/occupancy-pipeline/internal/domain"
	"github.com/smartcampus/occupancy-pipeline/shared/postgresql"
)

const schema = `
	CREATE TABLE IF NOT EXISTS cameras (
		camera_id  TEXT PRIMARY KEY,
		room_id    TEXT NOT NULL DEFAULT '',
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// CameraStorage reads and writes the camera registry table
type CameraStorage struct {
	db *sqlx.DB
}

func NewCameraStorage(pg *postgresql.Client) *CameraStorage {
	return &CameraStorage{
		db: pg.GetDB(),
	}
}

// EnsureSchema creates the cameras table if it does not exist
func (s *CameraStorage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create cameras table: %w", err)
	}
	return nil
}

func (s *CameraStorage) GetCamera(ctx context.Context, cameraID string) (*model.Camera, error) {
	var camera model.Camera
	query := `
		SELECT camera_id, room_id, active, created_at
		FROM cameras
		WHERE camera_id = $1
	`

	err := s.db.GetContext(ctx, &camera, query, cameraID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCameraNotFound, cameraID)
		}
		return nil, fmt.Errorf("failed to get camera: %w", err)
	}

	return &camera, nil
}

func (s *CameraStorage) UpsertCamera(ctx context.Context, camera *model.Camera) error {
	query := `
		INSERT INTO cameras (camera_id, room_id, active, created_at)
		VALUES (:camera_id, :room_id, :active, :created_at)
		ON CONFLICT (camera_id) DO UPDATE
		SET room_id = EXCLUDED.room_id,
			active = EXCLUDED.active
	`

	if _, err := s.db.NamedExecContext(ctx, query, camera); err != nil {
		return fmt.Errorf("failed to upsert camera: %w", err)
	}

	return nil
}
