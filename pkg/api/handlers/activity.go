package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/prospectroute/pkg/activitylog"
	"github.com/jordanlanch/prospectroute/pkg/api/errors"
	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/labstack/echo/v4"
)

// AppendEntryRequest is a new note or contact entry
type AppendEntryRequest struct {
	Type    models.EntryType `json:"type" validate:"required,oneof=note call email meeting visit"`
	Content string           `json:"content" validate:"required,max=10000"`
}

// UpdateLikesRequest sets an entry's like count
type UpdateLikesRequest struct {
	Likes *int `json:"likes" validate:"required,gte=0"`
}

// ReplyRequest is a reply under an entry
type ReplyRequest struct {
	Content string `json:"content" validate:"required,max=10000"`
}

// ActivityLogResponse is a prospect's timeline
type ActivityLogResponse struct {
	ProspectID int                       `json:"prospect_id"`
	Entries    []models.ActivityLogEntry `json:"entries"`
	NoteCount  int                       `json:"note_count"`
}

// ActivityHandler handles activity log endpoints
type ActivityHandler struct {
	service   *activitylog.Service
	prospects ProspectReader
	validator *validator.Validate
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(service *activitylog.Service, prospects ProspectReader) *ActivityHandler {
	return &ActivityHandler{
		service:   service,
		prospects: prospects,
		validator: validator.New(),
	}
}

// List godoc
// @Summary Prospect activity log
// @Tags Activity
// @Produce json
// @Security BearerAuth
// @Param id path int true "Prospect ID"
// @Success 200 {object} ActivityLogResponse
// @Failure 404 {object} models.ErrorResponse "Prospect not found"
// @Router /prospects/{id}/activity [get]
func (h *ActivityHandler) List(c echo.Context) error {
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
	return c.JSON(http.StatusOK, ActivityLogResponse{
		ProspectID: p.ID,
		Entries:    p.ActivityLog,
		NoteCount:  activitylog.NoteCount(p.ActivityLog),
	})
}

// Append godoc
// @Summary Add an activity entry
// @Description Notes notify the author's supervisor and the designated admin, or the prospect owner when a manager writes. Contact entries (call, email, meeting, visit) update the last contact time.
// @Tags Activity
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Prospect ID"
// @Param request body AppendEntryRequest true "Entry"
// @Success 201 {object} activitylog.Result "Created; warning is set when notifications failed"
// @Failure 409 {object} models.ErrorResponse "Concurrent edits, retry"
// @Router /prospects/{id}/activity [post]
func (h *ActivityHandler) Append(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, err)
	}

	var req AppendEntryRequest
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
	res, err := h.service.AppendEntry(ctx, caller, id, activitylog.Draft{Type: req.Type, Content: req.Content})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// UploadAttachment godoc
// @Summary Attach a file
// @Description Uploads the file, then logs it as a file or image entry. Nothing is logged if the upload fails.
// @Tags Activity
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Prospect ID"
// @Param file formData file true "Attachment"
// @Success 201 {object} activitylog.Result
// @Failure 502 {object} models.ErrorResponse "Upload failed"
// @Router /prospects/{id}/activity/attachments [post]
func (h *ActivityHandler) UploadAttachment(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return respond(c, domain.NewValidationError("file is required"))
	}

	ctx := c.Request().Context()
	if _, err := loadProspect(ctx, h.prospects, caller, id); err != nil {
		return respond(c, err)
	}

	f, err := fh.Open()
	if err != nil {
		return errors.InternalError(c, err)
	}
	defer f.Close()

	res, err := h.service.AppendAttachment(ctx, caller, id, activitylog.Attachment{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// UpdateLikes godoc
// @Summary Set an entry's like count
// @Tags Activity
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Prospect ID"
// @Param entry_id path string true "Entry ID (or RFC 3339 timestamp for entries without one)"
// @Param request body UpdateLikesRequest true "Likes"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse "Entry not found"
// @Router /prospects/{id}/activity/{entry_id}/likes [put]
func (h *ActivityHandler) UpdateLikes(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, err)
	}

	var req UpdateLikesRequest
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
	ok, err := h.service.UpdateLikes(ctx, id, c.Param("entry_id"), *req.Likes)
	if err != nil {
		return respond(c, err)
	}
	if !ok {
		return errors.NotFoundError(c, "activity entry")
	}
	return c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}

// AddReply godoc
// @Summary Reply to an entry
// @Tags Activity
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Prospect ID"
// @Param entry_id path string true "Parent entry ID"
// @Param request body ReplyRequest true "Reply"
// @Success 201 {object} models.ActivityLogEntry
// @Router /prospects/{id}/activity/{entry_id}/replies [post]
func (h *ActivityHandler) AddReply(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, err)
	}

	var req ReplyRequest
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
	reply, err := h.service.AddReply(ctx, caller, id, c.Param("entry_id"), req.Content)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusCreated, reply)
}
