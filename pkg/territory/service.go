package territory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/prospectroute/pkg/database"
	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"golang.org/x/text/cases"
)

const table = "territories"

// Service handles territory management operations.
type Service struct {
	db *database.Client
}

// NewService creates a new territory service.
func NewService(db *database.Client) *Service {
	return &Service{db: db}
}

// CreateTerritoryRequest represents a request to create a territory.
type CreateTerritoryRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// ListTerritoriesFilter represents filters for listing territories.
type ListTerritoriesFilter struct {
	ActiveOnly bool
	Limit      int
}

// NameKey folds a territory name for uniqueness checks: case-insensitive and
// with inner whitespace collapsed.
func NameKey(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// CreateTerritory creates a new active territory owned by userID.
func (s *Service) CreateTerritory(ctx context.Context, userID int, req CreateTerritoryRequest) (*models.Territory, error) {
	name := strings.Join(strings.Fields(req.Name), " ")
	if name == "" {
		return nil, domain.NewValidationError("territory name is required")
	}
	key := NameKey(name)

	// Checked up front for a clean error; the unique index covers races.
	exists, err := s.exists(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check territory: %w", err)
	}
	if exists {
		return nil, domain.NewConflictError(fmt.Sprintf("territory %q already exists", name))
	}

	now := time.Now().UTC()
	ib := s.db.Builder().Insert(table).
		Columns("user_id", "name", "name_key", "active", "created_at").
		Values(userID, name, key, true, now)

	id, err := s.db.InsertReturningID(ctx, s.db.DB(), ib)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, domain.NewConflictError(fmt.Sprintf("territory %q already exists", name))
		}
		return nil, fmt.Errorf("failed to create territory: %w", err)
	}

	return &models.Territory{ID: id, UserID: userID, Name: name, Active: true, CreatedAt: now}, nil
}

// GetTerritory returns a territory owned by userID.
func (s *Service) GetTerritory(ctx context.Context, userID, territoryID int) (*models.Territory, error) {
	query, args := s.db.Builder().
		Select("id", "user_id", "name", "active", "created_at").
		From(entsql.Table(table)).
		Where(entsql.And(entsql.EQ("id", territoryID), entsql.EQ("user_id", userID))).
		Query()

	var t models.Territory
	err := s.db.DB().QueryRowContext(ctx, query, args...).Scan(&t.ID, &t.UserID, &t.Name, &t.Active, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("territory")
		}
		return nil, fmt.Errorf("failed to get territory: %w", err)
	}
	return &t, nil
}

// ListTerritories lists a user's territories by name.
func (s *Service) ListTerritories(ctx context.Context, userID int, filter ListTerritoriesFilter) ([]*models.Territory, error) {
	pred := entsql.EQ("user_id", userID)
	if filter.ActiveOnly {
		pred = entsql.And(pred, entsql.EQ("active", true))
	}
	sel := s.db.Builder().
		Select("id", "user_id", "name", "active", "created_at").
		From(entsql.Table(table)).
		Where(pred).
		OrderBy("name_key")
	if filter.Limit > 0 {
		sel.Limit(filter.Limit)
	}
	query, args := sel.Query()

	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list territories: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Territory, 0)
	for rows.Next() {
		var t models.Territory
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Active, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan territory: %w", err)
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}

// SetActive toggles a territory. Prospects keep referencing it by name either way.
func (s *Service) SetActive(ctx context.Context, userID, territoryID int, active bool) (*models.Territory, error) {
	query, args := s.db.Builder().Update(table).
		Set("active", active).
		Where(entsql.And(entsql.EQ("id", territoryID), entsql.EQ("user_id", userID))).
		Query()

	res, err := s.db.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update territory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.NewNotFoundError("territory")
	}
	return s.GetTerritory(ctx, userID, territoryID)
}

func (s *Service) exists(ctx context.Context, userID int, key string) (bool, error) {
	query, args := s.db.Builder().
		Select("id").
		From(entsql.Table(table)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("name_key", key))).
		Limit(1).
		Query()

	var id int
	err := s.db.DB().QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
