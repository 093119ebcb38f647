package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcampus/occupancy-pipeline/internal/api/model"
	"github.com/smartcampus/occupancy-pipeline/internal/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	cameras map[string]*model.Camera
	err     error
	calls   map[string]int
}

func newFakeStore(cameras ...*model.Camera) *fakeStore {
	s := &fakeStore{cameras: map[string]*model.Camera{}, calls: map[string]int{}}
	for _, c := range cameras {
		s.cameras[c.CameraID] = c
	}
	return s
}

func (s *fakeStore) GetCamera(ctx context.Context, cameraID string) (*model.Camera, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[cameraID]++
	if s.err != nil {
		return nil, s.err
	}
	camera, ok := s.cameras[cameraID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCameraNotFound, cameraID)
	}
	return camera, nil
}

func (s *fakeStore) UpsertCamera(ctx context.Context, camera *model.Camera) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	if existing, ok := s.cameras[camera.CameraID]; ok {
		updated := *camera
		updated.CreatedAt = existing.CreatedAt
		s.cameras[camera.CameraID] = &updated
		return nil
	}
	stored := *camera
	s.cameras[camera.CameraID] = &stored
	return nil
}

func (s *fakeStore) Calls(cameraID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[cameraID]
}

func (s *fakeStore) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func TestCameraRegistry_Check(t *testing.T) {
	store := newFakeStore(
		&model.Camera{CameraID: "CAM_001", RoomID: "R101", Active: true},
		&model.Camera{CameraID: "CAM_OFF", RoomID: "R102", Active: false},
	)
	registry := NewCameraRegistry(store, time.Minute)
	defer registry.Close()

	tests := []struct {
		name     string
		cameraID string
		wantErr  error
	}{
		{name: "active camera", cameraID: "CAM_001"},
		{name: "inactive camera", cameraID: "CAM_OFF", wantErr: domain.ErrCameraInactive},
		{name: "unknown camera", cameraID: "CAM_404", wantErr: domain.ErrCameraNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.Check(context.Background(), tt.cameraID)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCameraRegistry_CachesLookups(t *testing.T) {
	store := newFakeStore(&model.Camera{CameraID: "CAM_001", Active: true})
	registry := NewCameraRegistry(store, time.Minute)
	defer registry.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, registry.Check(context.Background(), "CAM_001"))
		assert.ErrorIs(t, registry.Check(context.Background(), "CAM_404"), domain.ErrCameraNotFound)
	}

	assert.Equal(t, 1, store.Calls("CAM_001"))
	assert.Equal(t, 1, store.Calls("CAM_404"))

	registry.Invalidate("CAM_001")
	require.NoError(t, registry.Check(context.Background(), "CAM_001"))
	assert.Equal(t, 2, store.Calls("CAM_001"))
}

func TestCameraRegistry_StoreFailureIsNotCached(t *testing.T) {
	store := newFakeStore(&model.Camera{CameraID: "CAM_001", Active: true})
	store.SetErr(errors.New("connection refused"))

	registry := NewCameraRegistry(store, time.Minute)
	defer registry.Close()

	err := registry.Check(context.Background(), "CAM_001")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCameraNotFound)
	assert.Contains(t, err.Error(), "connection refused")

	store.SetErr(nil)
	require.NoError(t, registry.Check(context.Background(), "CAM_001"))
	assert.Equal(t, 2, store.Calls("CAM_001"))
}

func TestCameraRegistry_EntriesExpire(t *testing.T) {
	store := newFakeStore(&model.Camera{CameraID: "CAM_001", Active: true})
	registry := NewCameraRegistry(store, 20*time.Millisecond)
	defer registry.Close()

	require.NoError(t, registry.Check(context.Background(), "CAM_001"))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, registry.Check(context.Background(), "CAM_001"))

	assert.Equal(t, 2, store.Calls("CAM_001"))
}
