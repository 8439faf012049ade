package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jordanlanch/prospectroute/pkg/api/errors"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/labstack/echo/v4"
)

const keepAliveInterval = 25 * time.Second

// NotificationReader reads a user's notifications
type NotificationReader interface {
	FetchAndMarkRead(ctx context.Context, userID int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID int) (int, error)
}

// SignalSource streams refresh signals for a user
type SignalSource interface {
	Stream(ctx context.Context, userID int) (<-chan models.NotificationSignal, error)
}

// UnreadCountResponse is the badge count
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// NotificationHandler handles notification endpoints
type NotificationHandler struct {
	store   NotificationReader
	signals SignalSource
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(store NotificationReader, signals SignalSource) *NotificationHandler {
	return &NotificationHandler{store: store, signals: signals}
}

// List godoc
// @Summary Fetch notifications
// @Description Returns the latest notifications as they were and marks them read.
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Notification
// @Router /notifications [get]
func (h *NotificationHandler) List(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}
	list, err := h.store.FetchAndMarkRead(c.Request().Context(), caller.UserID)
	if err != nil {
		return errors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// UnreadCount godoc
// @Summary Unread notification count
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UnreadCountResponse
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}
	n, err := h.store.UnreadCount(c.Request().Context(), caller.UserID)
	if err != nil {
		return errors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, UnreadCountResponse{Count: n})
}

// Stream godoc
// @Summary Notification stream
// @Description Server-sent events. Sends an "unread" event on connect and a "notification" event whenever a new notification arrives. The token may be passed as ?token= for EventSource clients.
// @Tags Notifications
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 "Event stream"
// @Router /notifications/stream [get]
func (h *NotificationHandler) Stream(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	signals, err := h.signals.Stream(ctx, caller.UserID)
	if err != nil {
		return errors.InternalError(c, err)
	}
	unread, err := h.store.UnreadCount(ctx, caller.UserID)
	if err != nil {
		return errors.InternalError(c, err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	if err := writeEvent(res, "unread", UnreadCountResponse{Count: unread}); err != nil {
		return nil
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case signal, ok := <-signals:
			if !ok {
				return nil
			}
			if err := writeEvent(res, "notification", signal); err != nil {
				return nil
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeEvent(res *echo.Response, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
