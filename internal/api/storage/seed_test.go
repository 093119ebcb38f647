package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcampus/occupancy-pipeline/internal/api/model"
	"github.com/smartcampus/occupancy-pipeline/internal/domain"
)

func TestSeedCameras_RegistryAcceptsSeededCameras(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

	err := SeedCameras(context.Background(), store, []*model.Camera{
		{CameraID: "CAM_001", RoomID: "A-101", Active: true},
		{CameraID: "CAM_002", RoomID: "A-102", Active: false},
	}, now)
	require.NoError(t, err)

	registry := NewCameraRegistry(store, time.Minute)
	defer registry.Close()

	assert.NoError(t, registry.Check(context.Background(), "CAM_001"))
	assert.ErrorIs(t, registry.Check(context.Background(), "CAM_002"), domain.ErrCameraInactive)
	assert.ErrorIs(t, registry.Check(context.Background(), "CAM_003"), domain.ErrCameraNotFound)

	camera, err := store.GetCamera(context.Background(), "CAM_001")
	require.NoError(t, err)
	assert.Equal(t, now, camera.CreatedAt)
	assert.Equal(t, "A-101", camera.RoomID)
}

func TestSeedCameras_UpdatesExistingRows(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeStore(&model.Camera{CameraID: "CAM_001", RoomID: "A-101", Active: true, CreatedAt: created})

	err := SeedCameras(context.Background(), store, []*model.Camera{
		{CameraID: "CAM_001", RoomID: "B-201", Active: false},
	}, time.Now())
	require.NoError(t, err)

	camera, err := store.GetCamera(context.Background(), "CAM_001")
	require.NoError(t, err)
	assert.Equal(t, "B-201", camera.RoomID)
	assert.False(t, camera.Active)
	assert.Equal(t, created, camera.CreatedAt)
}

func TestSeedCameras_StopsOnStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.SetErr(errors.New("connection refused"))

	err := SeedCameras(context.Background(), store, []*model.Camera{
		{CameraID: "CAM_001", Active: true},
		{CameraID: "CAM_002", Active: true},
	}, time.Now())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to seed camera CAM_001")
	assert.Contains(t, err.Error(), "connection refused")
}
