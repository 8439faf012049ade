package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/prospectroute/pkg/api/errors"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/labstack/echo/v4"
)

// ProspectStore reads prospects and moves them through the pipeline
type ProspectStore interface {
	ProspectReader
	UpdatePipeline(ctx context.Context, id int, status models.ProspectStatus, priority models.ProspectPriority) error
}

// UpdatePipelineRequest changes a prospect's stage or priority. Omitted
// fields are left as they are.
type UpdatePipelineRequest struct {
	Status   models.ProspectStatus   `json:"status" validate:"omitempty,oneof=New Contacted Meeting Proposal Won Lost"`
	Priority models.ProspectPriority `json:"priority" validate:"omitempty,oneof=Low Medium High"`
}

// ProspectHandler handles prospect endpoints
type ProspectHandler struct {
	prospects ProspectStore
	validator *validator.Validate
}

// NewProspectHandler creates a new prospect handler
func NewProspectHandler(prospects ProspectStore) *ProspectHandler {
	return &ProspectHandler{
		prospects: prospects,
		validator: validator.New(),
	}
}

// Get godoc
// @Summary Get a prospect
// @Tags Prospects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Prospect ID"
// @Success 200 {object} models.Prospect
// @Failure 404 {object} models.ErrorResponse "Prospect not found"
// @Router /prospects/{id} [get]
func (h *ProspectHandler) Get(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, err)
	}
	p, err := loadProspect(c.Request().Context(), h.prospects, caller, id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// UpdatePipeline godoc
// @Summary Change a prospect's status or priority
// @Tags Prospects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Prospect ID"
// @Param request body UpdatePipelineRequest true "Status and/or priority"
// @Success 200 {object} models.Prospect
// @Failure 400 {object} models.ErrorResponse "Unknown status or priority, or neither given"
// @Failure 404 {object} models.ErrorResponse "Prospect not found"
// @Router /prospects/{id} [patch]
func (h *ProspectHandler) UpdatePipeline(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, err)
	}

	var req UpdatePipelineRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	ctx := c.Request().Context()
	if _, err := loadProspect(ctx, h.prospects, caller, id); err != nil {
		return respond(c, err)
	}
	if err := h.prospects.UpdatePipeline(ctx, id, req.Status, req.Priority); err != nil {
		return respond(c, err)
	}

	p, err := h.prospects.GetByID(ctx, id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
