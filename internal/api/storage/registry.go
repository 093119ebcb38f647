package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/smartcampus/occupancy-pipeline/internal/api/model"
	"github.com/smartcampus/occupancy-pipeline/internal/domain"
)

// CameraStore is the uncached lookup behind CameraRegistry
type CameraStore interface {
	GetCamera(ctx context.Context, cameraID string) (*model.Camera, error)
}

type cameraCacheValue struct {
	camera *model.Camera
	err    error
}

// CameraRegistry answers whether a camera may upload frames. Lookups,
// including unknown cameras, are cached for the configured TTL. Store
// failures are not cached.
type CameraRegistry struct {
	store CameraStore
	cache *ttlcache.Cache[string, cameraCacheValue]
}

func NewCameraRegistry(store CameraStore, ttl time.Duration) *CameraRegistry {
	cache := ttlcache.New[string, cameraCacheValue](
		ttlcache.WithTTL[string, cameraCacheValue](ttl),
	)
	go cache.Start()

	return &CameraRegistry{
		store: store,
		cache: cache,
	}
}

// Check returns nil for an active camera, domain.ErrCameraNotFound or
// domain.ErrCameraInactive when the camera must be rejected, and any other
// error when the registry could not be consulted.
func (r *CameraRegistry) Check(ctx context.Context, cameraID string) error {
	var lookupErr error

	loader := ttlcache.LoaderFunc[string, cameraCacheValue](
		func(cache *ttlcache.Cache[string, cameraCacheValue], key string) *ttlcache.Item[string, cameraCacheValue] {
			camera, err := r.store.GetCamera(ctx, key)
			if err != nil && !errors.Is(err, domain.ErrCameraNotFound) {
				lookupErr = err
				return nil
			}
			return cache.Set(key, cameraCacheValue{camera: camera, err: err}, ttlcache.DefaultTTL)
		},
	)

	item := r.cache.Get(cameraID, ttlcache.WithLoader(loader))
	if item == nil {
		if lookupErr == nil {
			lookupErr = errors.New("camera lookup returned no result")
		}
		return fmt.Errorf("camera registry unavailable: %w", lookupErr)
	}

	value := item.Value()
	if value.err != nil {
		return value.err
	}

	if !value.camera.Active {
		return fmt.Errorf("%w: %s", domain.ErrCameraInactive, cameraID)
	}

	return nil
}

// Invalidate drops a cached lookup so the next Check hits the store
func (r *CameraRegistry) Invalidate(cameraID string) {
	r.cache.Delete(cameraID)
}

// Close stops the cache expiry loop
func (r *CameraRegistry) Close() {
	r.cache.Stop()
}
