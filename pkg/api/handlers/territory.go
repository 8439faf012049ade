package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/prospectroute/pkg/api/errors"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/jordanlanch/prospectroute/pkg/territory"
	"github.com/labstack/echo/v4"
)

// SetActiveRequest toggles a territory
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// TerritoryListResponse lists territories
type TerritoryListResponse struct {
	Territories []*models.Territory `json:"territories"`
	Total       int                 `json:"total"`
}

// TerritoryHandler handles territory endpoints
type TerritoryHandler struct {
	service   *territory.Service
	validator *validator.Validate
}

// NewTerritoryHandler creates a new territory handler
func NewTerritoryHandler(service *territory.Service) *TerritoryHandler {
	return &TerritoryHandler{
		service:   service,
		validator: validator.New(),
	}
}

// CreateTerritory godoc
// @Summary Create a territory
// @Description Names are unique per user, ignoring case and repeated spaces.
// @Tags Territories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body territory.CreateTerritoryRequest true "Territory"
// @Success 201 {object} models.Territory
// @Failure 409 {object} models.ErrorResponse "Name already used"
// @Router /territories [post]
func (h *TerritoryHandler) CreateTerritory(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}

	var req territory.CreateTerritoryRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	t, err := h.service.CreateTerritory(c.Request().Context(), caller.UserID, req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// ListTerritories godoc
// @Summary List territories
// @Tags Territories
// @Produce json
// @Security BearerAuth
// @Param active query boolean false "Only active territories"
// @Param limit query int false "Max results" default(50)
// @Success 200 {object} TerritoryListResponse
// @Router /territories [get]
func (h *TerritoryHandler) ListTerritories(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}

	filter := territory.ListTerritoriesFilter{}
	if v, err := strconv.ParseBool(c.QueryParam("active")); err == nil {
		filter.ActiveOnly = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		filter.Limit = v
	}

	list, err := h.service.ListTerritories(c.Request().Context(), caller.UserID, filter)
	if err != nil {
		return respond(c, err)
	}
	if list == nil {
		list = []*models.Territory{}
	}
	return c.JSON(http.StatusOK, TerritoryListResponse{Territories: list, Total: len(list)})
}

// SetActive godoc
// @Summary Activate or deactivate a territory
// @Tags Territories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Territory ID"
// @Param request body SetActiveRequest true "State"
// @Success 200 {object} models.Territory
// @Failure 404 {object} models.ErrorResponse "Territory not found"
// @Router /territories/{id}/active [patch]
func (h *TerritoryHandler) SetActive(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, err)
	}

	var req SetActiveRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	t, err := h.service.SetActive(c.Request().Context(), caller.UserID, id, *req.Active)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
