package geocode

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jordanlanch/prospectroute/pkg/cache"
	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/logger"
	"github.com/jordanlanch/prospectroute/pkg/metrics"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"golang.org/x/text/cases"
)

// Store is the subset of the cache client the resolver needs
type Store interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error
}

// CachedResolver serves forward lookups from Redis before asking upstream.
// Only hits are cached, so an address that starts resolving is picked up on
// the next call.
type CachedResolver struct {
	next    domain.Geocoder
	store   Store
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  logger.Logger
}

// NewCachedResolver wraps next with a cache
func NewCachedResolver(next domain.Geocoder, store Store, ttl time.Duration, m *metrics.Metrics, log logger.Logger) *CachedResolver {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedResolver{next: next, store: store, ttl: ttl, metrics: m, logger: logger.OrDefault(log)}
}

var _ domain.Geocoder = (*CachedResolver)(nil)

// CacheKey returns the cache key for an address
func CacheKey(address string) string {
	return "geocode:v1:" + cases.Fold().String(strings.Join(strings.Fields(address), " "))
}

// Forward returns the cached coordinate or resolves and caches it. Cache
// failures fall through to the upstream lookup.
func (r *CachedResolver) Forward(ctx context.Context, address string) (*models.Coordinate, error) {
	if strings.TrimSpace(address) == "" {
		return r.next.Forward(ctx, address)
	}
	key := CacheKey(address)

	var cached models.Coordinate
	err := r.store.GetJSON(ctx, key, &cached)
	switch {
	case err == nil:
		r.metrics.RecordGeocodeCache("hit")
		return &cached, nil
	case errors.Is(err, cache.ErrMiss):
		r.metrics.RecordGeocodeCache("miss")
	default:
		r.metrics.RecordGeocodeCache("error")
		r.logger.Warn("geocode cache read failed", "error", err)
	}

	coord, err := r.next.Forward(ctx, address)
	if err != nil || coord == nil {
		return coord, err
	}

	if err := r.store.SetJSON(ctx, key, coord, r.ttl); err != nil {
		r.logger.Warn("geocode cache write failed", "error", err)
	}
	return coord, nil
}

// Reverse is not cached; it serves one-off map clicks.
func (r *CachedResolver) Reverse(ctx context.Context, coord models.Coordinate) (string, error) {
	return r.next.Reverse(ctx, coord)
}
