package users

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
)

var userColumns = []string{"id", "email", "name", "role", "supervisor_id", "created_at"}

// Service reads and writes the user directory.
type Service struct {
	db *database.Client
}

// NewService creates a new user directory service.
func NewService(db *database.Client) *Service {
	return &Service{db: db}
}

// CreateUserRequest represents a request to add a user.
type CreateUserRequest struct {
	Email        string      `json:"email" validate:"required,email"`
	Name         string      `json:"name"`
	Role         models.Role `json:"role" validate:"required,oneof=user supervisor admin"`
	SupervisorID *int        `json:"supervisor_id,omitempty"`
}

// Create inserts a user.
func (s *Service) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, domain.NewValidationError("email is required")
	}
	if _, err := models.ParseRole(string(req.Role)); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	var supervisor any
	if req.SupervisorID != nil {
		supervisor = *req.SupervisorID
	}
	now := time.Now().UTC()
	ib := s.db.Builder().Insert("users").
		Columns("email", "name", "role", "supervisor_id", "created_at").
		Values(req.Email, req.Name, string(req.Role), supervisor, now)

	id, err := s.db.InsertReturningID(ctx, s.db.DB(), ib)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, domain.NewConflictError("user already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &models.User{
		ID:           id,
		Email:        req.Email,
		Name:         req.Name,
		Role:         req.Role,
		SupervisorID: req.SupervisorID,
		CreatedAt:    now,
	}, nil
}

// GetByID loads a user.
func (s *Service) GetByID(ctx context.Context, id int) (*models.User, error) {
	query, args := s.db.Builder().
		Select(userColumns...).
		From(entsql.Table("users")).
		Where(entsql.EQ("id", id)).
		Query()

	u, err := scanUser(s.db.DB().QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("user")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// ListReports returns the users supervised by supervisorID.
func (s *Service) ListReports(ctx context.Context, supervisorID int) ([]*models.User, error) {
	query, args := s.db.Builder().
		Select(userColumns...).
		From(entsql.Table("users")).
		Where(entsql.EQ("supervisor_id", supervisorID)).
		OrderBy("id").
		Query()

	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u          models.User
		role       string
		supervisor sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &supervisor, &u.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := models.ParseRole(role)
	if err != nil {
		return nil, err
	}
	u.Role = parsed
	if supervisor.Valid {
		id := int(supervisor.Int64)
		u.SupervisorID = &id
	}
	return &u, nil
}
