package domain

import (
	"context"
	"io"
	"time"

	"github.com/jordanlanch/prospectroute/pkg/models"
)

// Geocoder resolves addresses to coordinates and back.
// Forward returns (nil, nil) when the service has no match.
type Geocoder interface {
	Forward(ctx context.Context, address string) (*models.Coordinate, error)
	Reverse(ctx context.Context, coord models.Coordinate) (string, error)
}

// ProspectRepository defines data access operations for prospects
type ProspectRepository interface {
	Create(ctx context.Context, p *models.Prospect) (*models.Prospect, error)
	GetByID(ctx context.Context, id int) (*models.Prospect, error)
	ListByIDs(ctx context.Context, ids []int) ([]*models.Prospect, error)
	ListByOwner(ctx context.Context, userID int, limit int) ([]*models.Prospect, error)
	ReplaceActivityLog(ctx context.Context, id, expectedVersion int, log []models.ActivityLogEntry, lastContact *time.Time) error
	RecentAddresses(ctx context.Context, since time.Time, limit int) ([]string, error)
}

// UserDirectory exposes the organizational data the notification router needs
type UserDirectory interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
}

// ObjectStorage stores uploaded objects and returns a public URL
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Broadcaster publishes lightweight realtime signals on named channels
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// CacheRepository defines caching operations
type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}
