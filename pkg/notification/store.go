package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/prospectroute/pkg/database"
	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/models"
)

const (
	table = "notifications"
	// maxAttempts bounds compare-and-swap retries on a contended record.
	maxAttempts = 3
)

var recordColumns = []string{"id", "user_id", "notifications", "version", "created_at", "updated_at"}

// ErrVersionConflict is returned by write when the record changed after it was read.
var ErrVersionConflict = errors.New("notification record version conflict")

// Store keeps notifications as an array inside per-user records. A user may
// own several records; reads and appends always target the most recently
// updated one. Every write is a compare-and-swap on the record's version.
type Store struct {
	db  *database.Client
	now func() time.Time
	// beforeWrite runs between reading a record and writing it back.
	beforeWrite func()
}

// NewStore creates a notification store
func NewStore(db *database.Client) *Store {
	return &Store{db: db, now: time.Now}
}

// Append adds n to the user's latest record, creating the record when the
// user has none.
func (s *Store) Append(ctx context.Context, userID int, n models.Notification) error {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		now := s.now().UTC()
		rec, err := s.latest(ctx, s.db.DB(), userID)
		if err != nil {
			return err
		}

		if rec == nil {
			data, err := json.Marshal([]models.Notification{n})
			if err != nil {
				return fmt.Errorf("failed to encode notifications: %w", err)
			}
			ib := s.db.Builder().Insert(table).
				Columns("user_id", "notifications", "version", "created_at", "updated_at").
				Values(userID, string(data), 0, now, now)
			if _, err := s.db.InsertReturningID(ctx, s.db.DB(), ib); err != nil {
				return fmt.Errorf("failed to create notification record: %w", err)
			}
			return nil
		}

		s.hook()
		list := append(rec.Notifications, n)
		err = s.write(ctx, rec.ID, rec.Version, list, now)
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
	}
	return domain.NewConflictError("notifications were changed concurrently, please retry")
}

// Latest returns the user's most recently updated record, or nil.
func (s *Store) Latest(ctx context.Context, userID int) (*models.NotificationRecord, error) {
	return s.latest(ctx, s.db.DB(), userID)
}

// FetchAndMarkRead returns the entries of the user's latest record as they
// were before the call and marks them read. Older records are left alone.
func (s *Store) FetchAndMarkRead(ctx context.Context, userID int) ([]models.Notification, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		rec, err := s.latest(ctx, s.db.DB(), userID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return []models.Notification{}, nil
		}
		out := append([]models.Notification(nil), rec.Notifications...)

		marked := make([]models.Notification, len(rec.Notifications))
		dirty := false
		for i, n := range rec.Notifications {
			if !n.Read {
				n.Read = true
				dirty = true
			}
			marked[i] = n
		}
		if !dirty {
			return out, nil
		}

		s.hook()
		// updated_at stays put so marking read never reorders records.
		err = s.write(ctx, rec.ID, rec.Version, marked, rec.UpdatedAt)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
	}
	return nil, domain.NewConflictError("notifications were changed concurrently, please retry")
}

// UnreadCount counts unread entries in the user's latest record.
func (s *Store) UnreadCount(ctx context.Context, userID int) (int, error) {
	rec, err := s.Latest(ctx, userID)
	if err != nil || rec == nil {
		return 0, err
	}
	count := 0
	for _, n := range rec.Notifications {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *Store) latest(ctx context.Context, q database.Querier, userID int) (*models.NotificationRecord, error) {
	query, args := s.db.Builder().
		Select(recordColumns...).
		From(entsql.Table(table)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("updated_at"), entsql.Desc("id")).
		Limit(1).
		Query()

	var (
		rec  models.NotificationRecord
		data []byte
	)
	err := q.QueryRowContext(ctx, query, args...).Scan(&rec.ID, &rec.UserID, &data, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}

	rec.Notifications = []models.Notification{}
	if trimmed := strings.TrimSpace(string(data)); trimmed != "" && trimmed != "null" {
		if err := json.Unmarshal([]byte(trimmed), &rec.Notifications); err != nil {
			return nil, fmt.Errorf("failed to decode notifications: %w", err)
		}
	}
	return &rec, nil
}

func (s *Store) hook() {
	if s.beforeWrite != nil {
		s.beforeWrite()
	}
}

// write replaces the record's array if its version is still expectedVersion.
func (s *Store) write(ctx context.Context, id, expectedVersion int, list []models.Notification, updatedAt time.Time) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode notifications: %w", err)
	}
	query, args := s.db.Builder().Update(table).
		Set("notifications", string(data)).
		Set("version", expectedVersion+1).
		Set("updated_at", updatedAt.UTC()).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("version", expectedVersion))).
		Query()
	res, err := s.db.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update notifications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update notifications: %w", err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}
