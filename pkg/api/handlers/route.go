package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/prospectroute/pkg/api/errors"
	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/jordanlanch/prospectroute/pkg/routeplanner"
	"github.com/labstack/echo/v4"
)

// PlanRouteRequest starts a route at a coordinate or an address
type PlanRouteRequest struct {
	Start        *models.Coordinate `json:"start"`
	StartAddress string             `json:"start_address" validate:"max=500"`
	ProspectIDs  []int              `json:"prospect_ids" validate:"required,min=1,max=500,dive,gt=0"`
}

// PlaceNameResponse is a reverse geocoding result
type PlaceNameResponse struct {
	PlaceName string `json:"place_name"`
}

// RouteHandler handles route planning endpoints
type RouteHandler struct {
	planner   *routeplanner.Planner
	prospects ProspectReader
	validator *validator.Validate
}

// NewRouteHandler creates a new route handler
func NewRouteHandler(planner *routeplanner.Planner, prospects ProspectReader) *RouteHandler {
	return &RouteHandler{
		planner:   planner,
		prospects: prospects,
		validator: validator.New(),
	}
}

// PlanRoute godoc
// @Summary Plan an optimized route
// @Description Geocodes the selected prospects and orders up to 11 of them, nearest to the start first, into a round trip. A newer request from the same user supersedes this one.
// @Tags Routes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PlanRouteRequest true "Start and prospects"
// @Success 200 {object} routeplanner.Plan
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 409 {object} models.ErrorResponse "Superseded by a newer request"
// @Failure 422 {object} models.ErrorResponse "Nothing could be routed"
// @Failure 502 {object} models.ErrorResponse "Routing service unavailable"
// @Failure 504 {object} models.ErrorResponse "Routing service timed out"
// @Router /routes [post]
func (h *RouteHandler) PlanRoute(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}

	var req PlanRouteRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}
	if req.Start == nil && req.StartAddress == "" {
		return respond(c, domain.NewValidationError("start or start_address is required"))
	}

	ctx := c.Request().Context()
	prospects, err := loadProspects(ctx, h.prospects, caller, req.ProspectIDs)
	if err != nil {
		return respond(c, err)
	}

	plan, err := h.planner.PlanRoute(ctx, routeplanner.SessionID(caller.UserID),
		routeplanner.Start{Coordinate: req.Start, Address: req.StartAddress}, prospects)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, plan)
}

// ClearRoute godoc
// @Summary Clear the current route
// @Description Removes the route line, numbered stops and stop list. Cancels a route still being computed. Safe to call repeatedly.
// @Tags Routes
// @Security BearerAuth
// @Success 204 "Cleared"
// @Router /routes [delete]
func (h *RouteHandler) ClearRoute(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}
	h.planner.ClearRoute(routeplanner.SessionID(caller.UserID))
	return c.NoContent(http.StatusNoContent)
}

// CurrentRoute godoc
// @Summary Get the current route
// @Tags Routes
// @Produce json
// @Security BearerAuth
// @Success 200 {object} routeplanner.Plan
// @Failure 404 {object} models.ErrorResponse "No route"
// @Router /routes/current [get]
func (h *RouteHandler) CurrentRoute(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}
	plan, ok := h.planner.CurrentPlan(routeplanner.SessionID(caller.UserID))
	if !ok {
		return errors.NotFoundError(c, "route")
	}
	return c.JSON(http.StatusOK, plan)
}

// ReverseGeocode godoc
// @Summary Name a map position
// @Description Used when the route start is picked by clicking the map.
// @Tags Routes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.Coordinate true "Position"
// @Success 200 {object} PlaceNameResponse
// @Failure 422 {object} models.ErrorResponse "No place at this position"
// @Router /geocode/reverse [post]
func (h *RouteHandler) ReverseGeocode(c echo.Context) error {
	if _, err := currentUser(c); err != nil {
		return respond(c, err)
	}

	var coord models.Coordinate
	if err := c.Bind(&coord); err != nil {
		return bindError(c, err)
	}
	if err := h.validator.Struct(coord); err != nil {
		return errors.ValidationError(c, err)
	}

	name, err := h.planner.ReverseStart(c.Request().Context(), coord)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, PlaceNameResponse{PlaceName: name})
}
