package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/prospectroute/pkg/api/errors"
	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/routeplanner"
	"github.com/labstack/echo/v4"
)

const defaultClusterZoom = 10

// PlaceProspectsRequest selects the prospects to show; empty means the
// caller's own.
type PlaceProspectsRequest struct {
	ProspectIDs []int `json:"prospect_ids" validate:"max=500,dive,gt=0"`
}

// MapHandler handles map scene endpoints
type MapHandler struct {
	markers   *routeplanner.MarkerService
	prospects ProspectReader
	validator *validator.Validate
}

// NewMapHandler creates a new map handler
func NewMapHandler(markers *routeplanner.MarkerService, prospects ProspectReader) *MapHandler {
	return &MapHandler{
		markers:   markers,
		prospects: prospects,
		validator: validator.New(),
	}
}

// PlaceProspects godoc
// @Summary Place prospect markers
// @Description Geocodes prospects and replaces the marker source. Prospects that cannot be located are counted in skipped.
// @Tags Map
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PlaceProspectsRequest false "Prospects to place"
// @Success 200 {object} routeplanner.Placement
// @Router /map/prospects [post]
func (h *MapHandler) PlaceProspects(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}

	var req PlaceProspectsRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	ctx := c.Request().Context()
	prospects, err := loadProspects(ctx, h.prospects, caller, req.ProspectIDs)
	if err != nil {
		return respond(c, err)
	}

	placement, err := h.markers.PlaceProspects(ctx, routeplanner.SessionID(caller.UserID), prospects)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, placement)
}

// Clusters godoc
// @Summary Clustered markers
// @Description Returns the placed prospects clustered for the given zoom level as GeoJSON.
// @Tags Map
// @Produce json
// @Security BearerAuth
// @Param zoom query number false "Map zoom" default(10)
// @Success 200 {object} object "GeoJSON FeatureCollection"
// @Router /map/clusters [get]
func (h *MapHandler) Clusters(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}

	zoom := float64(defaultClusterZoom)
	if raw := c.QueryParam("zoom"); raw != "" {
		zoom, err = strconv.ParseFloat(raw, 64)
		if err != nil || zoom < 0 || zoom > 24 {
			return respond(c, domain.NewValidationError("zoom must be a number between 0 and 24"))
		}
	}
	return c.JSON(http.StatusOK, h.markers.Clusters(routeplanner.SessionID(caller.UserID), zoom))
}

// Popup godoc
// @Summary Marker popup
// @Tags Map
// @Produce json
// @Security BearerAuth
// @Param id path int true "Prospect ID"
// @Success 200 {object} mapview.Popup
// @Failure 404 {object} models.ErrorResponse "Marker not placed"
// @Router /map/prospects/{id}/popup [get]
func (h *MapHandler) Popup(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, err)
	}
	popup, err := h.markers.Popup(routeplanner.SessionID(caller.UserID), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, popup)
}

// Scene godoc
// @Summary Full map scene
// @Description Sources, layers, markers and viewport currently held for the caller.
// @Tags Map
// @Produce json
// @Security BearerAuth
// @Success 200 {object} mapview.Snapshot
// @Router /map/scene [get]
func (h *MapHandler) Scene(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, h.markers.Scene(routeplanner.SessionID(caller.UserID)))
}
