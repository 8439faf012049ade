// Package handlers exposes the route planner, map, activity log,
// notification and territory services over HTTP.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jordanlanch/prospectroute/pkg/api/errors"
	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/identity"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/labstack/echo/v4"
)

// ProspectReader loads prospects for authorization and planning
type ProspectReader interface {
	GetByID(ctx context.Context, id int) (*models.Prospect, error)
	ListByIDs(ctx context.Context, ids []int) ([]*models.Prospect, error)
	ListByOwner(ctx context.Context, userID int, limit int) ([]*models.Prospect, error)
}

// maxProspectsPerRequest bounds batch map and route requests.
const maxProspectsPerRequest = 500

func currentUser(c echo.Context) (identity.Identity, error) {
	id, ok := identity.FromContext(c.Request().Context())
	if !ok {
		return identity.Identity{}, domain.NewUnauthorizedError()
	}
	return id, nil
}

func pathID(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("invalid " + name)
	}
	return id, nil
}

// canAccess reports whether caller may read and annotate p. Contributors see
// their own prospects; supervisors and admins see everyone's.
func canAccess(caller identity.Identity, p *models.Prospect) bool {
	return caller.Role.IsManager() || p.UserID == caller.UserID
}

func loadProspect(ctx context.Context, repo ProspectReader, caller identity.Identity, id int) (*models.Prospect, error) {
	p, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(caller, p) {
		// Reported as missing rather than forbidden.
		return nil, domain.NewNotFoundError("prospect")
	}
	return p, nil
}

// loadProspects returns the accessible prospects among ids, or the caller's
// own prospects when ids is empty.
func loadProspects(ctx context.Context, repo ProspectReader, caller identity.Identity, ids []int) ([]*models.Prospect, error) {
	if len(ids) == 0 {
		return repo.ListByOwner(ctx, caller.UserID, maxProspectsPerRequest)
	}
	all, err := repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Prospect, 0, len(all))
	for _, p := range all {
		if canAccess(caller, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func bindError(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "invalid_request",
		Message: "Invalid request body",
	})
}

func respond(c echo.Context, err error) error {
	return errors.FromDomain(c, err)
}
