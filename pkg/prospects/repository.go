// Package prospects persists prospect rows and their JSON activity logs.
package prospects

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
	"github.com/jordanlanch/prospectroute/pkg/phone"
)

// ErrVersionConflict is returned when the activity log changed since it was read.
var ErrVersionConflict = errors.New("activity log was modified concurrently")

const table = "prospects"

var columns = []string{
	"id", "user_id", "business_name", "address", "phone", "email", "website",
	"status", "priority", "territory", "last_contact", "activity_log",
	"activity_version", "created_at", "updated_at",
}

// Repository implements domain.ProspectRepository on SQL.
type Repository struct {
	db *database.Client
	// PhoneRegion is the default region for numbers without a country prefix.
	PhoneRegion string
}

// NewRepository creates a prospect repository.
func NewRepository(db *database.Client) *Repository {
	return &Repository{db: db, PhoneRegion: phone.DefaultRegion}
}

var _ domain.ProspectRepository = (*Repository)(nil)

// Create inserts a prospect. A nil activity log is stored as an empty array.
func (r *Repository) Create(ctx context.Context, p *models.Prospect) (*models.Prospect, error) {
	if strings.TrimSpace(p.BusinessName) == "" {
		return nil, domain.NewValidationError("business name is required")
	}
	if p.Status == "" {
		p.Status = models.StatusNew
	}
	if !p.Status.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid status %q", p.Status))
	}
	if p.Priority == "" {
		p.Priority = models.PriorityMedium
	}
	if !p.Priority.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid priority %q", p.Priority))
	}
	if p.Phone != "" {
		p.Phone = phone.Normalize(p.Phone, r.PhoneRegion)
	}
	if p.ActivityLog == nil {
		p.ActivityLog = []models.ActivityLogEntry{}
	}

	logJSON, err := json.Marshal(p.ActivityLog)
	if err != nil {
		return nil, fmt.Errorf("failed to encode activity log: %w", err)
	}

	now := time.Now().UTC()
	var lastContact any
	if p.LastContact != nil {
		lastContact = p.LastContact.UTC()
	}

	ib := r.db.Builder().Insert(table).
		Columns("user_id", "business_name", "address", "phone", "email", "website",
			"status", "priority", "territory", "last_contact", "activity_log",
			"activity_version", "created_at", "updated_at").
		Values(p.UserID, p.BusinessName, p.Address, p.Phone, p.Email, p.Website,
			string(p.Status), string(p.Priority), p.Territory, lastContact, string(logJSON),
			0, now, now)

	id, err := r.db.InsertReturningID(ctx, r.db.DB(), ib)
	if err != nil {
		return nil, fmt.Errorf("failed to create prospect: %w", err)
	}

	created := *p
	created.ID = id
	created.Version = 0
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// GetByID loads a prospect together with its activity log and version.
func (r *Repository) GetByID(ctx context.Context, id int) (*models.Prospect, error) {
	query, args := r.db.Builder().
		Select(columns...).
		From(entsql.Table(table)).
		Where(entsql.EQ("id", id)).
		Query()

	p, err := scanProspect(r.db.DB().QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("prospect")
		}
		return nil, fmt.Errorf("failed to get prospect: %w", err)
	}
	return p, nil
}

// ListByIDs returns the prospects with the given ids in id order. Unknown ids
// are ignored.
func (r *Repository) ListByIDs(ctx context.Context, ids []int) ([]*models.Prospect, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query, qargs := r.db.Builder().
		Select(columns...).
		From(entsql.Table(table)).
		Where(entsql.In("id", args...)).
		OrderBy("id").
		Query()

	return r.queryProspects(ctx, query, qargs)
}

// ListByOwner returns a user's prospects, most recently updated first.
func (r *Repository) ListByOwner(ctx context.Context, userID int, limit int) ([]*models.Prospect, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query, args := r.db.Builder().
		Select(columns...).
		From(entsql.Table(table)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("updated_at"), entsql.Desc("id")).
		Limit(limit).
		Query()

	return r.queryProspects(ctx, query, args)
}

// UpdatePipeline changes status and/or priority. Empty values are left alone.
func (r *Repository) UpdatePipeline(ctx context.Context, id int, status models.ProspectStatus, priority models.ProspectPriority) error {
	if status == "" && priority == "" {
		return domain.NewValidationError("status or priority is required")
	}
	ub := r.db.Builder().Update(table).Set("updated_at", time.Now().UTC())
	if status != "" {
		if !status.Valid() {
			return domain.NewValidationError(fmt.Sprintf("invalid status %q", status))
		}
		ub.Set("status", string(status))
	}
	if priority != "" {
		if !priority.Valid() {
			return domain.NewValidationError(fmt.Sprintf("invalid priority %q", priority))
		}
		ub.Set("priority", string(priority))
	}
	query, args := ub.Where(entsql.EQ("id", id)).Query()

	res, err := r.db.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update prospect: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewNotFoundError("prospect")
	}
	return nil
}

// ReplaceActivityLog writes log back only if the stored version still equals
// expectedVersion, bumping the version. lastContact is written when non-nil.
// Returns ErrVersionConflict when another writer got there first.
func (r *Repository) ReplaceActivityLog(ctx context.Context, id, expectedVersion int, log []models.ActivityLogEntry, lastContact *time.Time) error {
	if log == nil {
		log = []models.ActivityLogEntry{}
	}
	logJSON, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to encode activity log: %w", err)
	}

	ub := r.db.Builder().Update(table).
		Set("activity_log", string(logJSON)).
		Add("activity_version", 1).
		Set("updated_at", time.Now().UTC())
	if lastContact != nil {
		ub.Set("last_contact", lastContact.UTC())
	}
	query, args := ub.Where(entsql.And(
		entsql.EQ("id", id),
		entsql.EQ("activity_version", expectedVersion),
	)).Query()

	res, err := r.db.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}
	if n == 1 {
		return nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrVersionConflict
}

// RecentAddresses returns distinct non-empty addresses of prospects updated
// since the given time.
func (r *Repository) RecentAddresses(ctx context.Context, since time.Time, limit int) ([]string, error) {
	query, args := r.db.Builder().
		Select("address").
		Distinct().
		From(entsql.Table(table)).
		Where(entsql.And(
			entsql.GTE("updated_at", since.UTC()),
			entsql.NEQ("address", ""),
		)).
		OrderBy("address").
		Limit(limit).
		Query()

	rows, err := r.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}

func (r *Repository) queryProspects(ctx context.Context, query string, args []any) ([]*models.Prospect, error) {
	rows, err := r.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prospects: %w", err)
	}
	defer rows.Close()

	var out []*models.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prospect: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProspect(row rowScanner) (*models.Prospect, error) {
	var (
		p           models.Prospect
		status      string
		priority    string
		lastContact sql.NullTime
		logJSON     []byte
	)
	err := row.Scan(&p.ID, &p.UserID, &p.BusinessName, &p.Address, &p.Phone, &p.Email,
		&p.Website, &status, &priority, &p.Territory, &lastContact, &logJSON,
		&p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = models.ProspectStatus(status)
	p.Priority = models.ProspectPriority(priority)
	if lastContact.Valid {
		t := lastContact.Time
		p.LastContact = &t
	}
	p.ActivityLog, err = decodeLog(logJSON)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// decodeLog tolerates null and empty columns left by imports.
func decodeLog(raw []byte) ([]models.ActivityLogEntry, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []models.ActivityLogEntry{}, nil
	}
	var log []models.ActivityLogEntry
	if err := json.Unmarshal([]byte(trimmed), &log); err != nil {
		return nil, fmt.Errorf("failed to decode activity log: %w", err)
	}
	if log == nil {
		log = []models.ActivityLogEntry{}
	}
	return log, nil
}
