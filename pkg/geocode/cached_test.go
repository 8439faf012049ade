package geocode

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jordanlanch/prospectroute/pkg/cache"
	"github.com/jordanlanch/prospectroute/pkg/logger"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGeocoder struct {
	mu     sync.Mutex
	coords map[string]models.Coordinate
	err    error
	calls  int
}

func (f *fakeGeocoder) Forward(ctx context.Context, address string) (*models.Coordinate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.coords[address]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeGeocoder) Reverse(ctx context.Context, coord models.Coordinate) (string, error) {
	return "somewhere", nil
}

func setupResolver(t *testing.T, next *fakeGeocoder) (*CachedResolver, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { store.Close() })
	return NewCachedResolver(next, store, time.Hour, nil, logger.Discard()), mr
}

func TestCachedResolver_Hit(t *testing.T) {
	next := &fakeGeocoder{coords: map[string]models.Coordinate{"1 Main St": {Lng: -85, Lat: 32}}}
	resolver, mr := setupResolver(t, next)
	ctx := context.Background()

	first, err := resolver.Forward(ctx, "1 Main St")
	require.NoError(t, err)
	second, err := resolver.Forward(ctx, "1  MAIN st")
	require.NoError(t, err)

	assert.Equal(t, *first, *second)
	assert.Equal(t, 1, next.calls)
	assert.True(t, mr.Exists(CacheKey("1 Main St")))
	assert.Equal(t, time.Hour, mr.TTL(CacheKey("1 Main St")))
}

func TestCachedResolver_NegativeNotCached(t *testing.T) {
	next := &fakeGeocoder{coords: map[string]models.Coordinate{}}
	resolver, mr := setupResolver(t, next)
	ctx := context.Background()

	coord, err := resolver.Forward(ctx, "nowhere")
	require.NoError(t, err)
	assert.Nil(t, coord)

	_, _ = resolver.Forward(ctx, "nowhere")
	assert.Equal(t, 2, next.calls)
	assert.False(t, mr.Exists(CacheKey("nowhere")))
}

func TestCachedResolver_ErrorsPassThrough(t *testing.T) {
	next := &fakeGeocoder{err: ErrTimeout}
	resolver, _ := setupResolver(t, next)

	_, err := resolver.Forward(context.Background(), "1 Main St")
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestCachedResolver_CacheDown(t *testing.T) {
	next := &fakeGeocoder{coords: map[string]models.Coordinate{"1 Main St": {Lng: 1, Lat: 2}}}
	store := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})}
	t.Cleanup(func() { store.Close() })
	resolver := NewCachedResolver(next, store, time.Hour, nil, logger.Discard())

	coord, err := resolver.Forward(context.Background(), "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, models.Coordinate{Lng: 1, Lat: 2}, *coord)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "geocode:v1:1 main st", CacheKey("  1 Main   ST "))
}
