package handlers

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jordanlanch/prospectroute/pkg/identity"
	"github.com/jordanlanch/prospectroute/pkg/logger"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/jordanlanch/prospectroute/pkg/notification"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupNotificationTest(t *testing.T) (*team, *NotificationHandler, *notification.Store) {
	tm := setupTeam(t)
	store := notification.NewStore(tm.db)
	signals := notification.NewSignals(tm.cache, "", logger.Discard())
	return tm, NewNotificationHandler(store, signals), store
}

func seedNotifications(t *testing.T, store *notification.Store, userID int, messages ...string) {
	t.Helper()
	for i, msg := range messages {
		require.NoError(t, store.Append(context.Background(), userID, models.Notification{
			ID:        fmt.Sprintf("n%d", i+1),
			UserID:    userID,
			Message:   msg,
			CreatedAt: time.Now().UTC(),
		}))
	}
}

func TestNotificationHandler_List(t *testing.T) {
	t.Run("returns_unread_then_marks_read", func(t *testing.T) {
		tm, h, store := setupNotificationTest(t)
		seedNotifications(t, store, tm.supervisor.UserID,
			"rep@test.com added a note to Acme",
			"rep@test.com added a image to Acme")

		ctx, rec := newContext(http.MethodGet, "/api/v1/notifications", "", &tm.supervisor)
		require.NoError(t, h.List(ctx))
		require.Equal(t, http.StatusOK, rec.Code)

		var list []models.Notification
		decodeBody(t, rec, &list)
		require.Len(t, list, 2)
		assert.False(t, list[0].Read)
		assert.False(t, list[1].Read)

		ctx, rec = newContext(http.MethodGet, "/api/v1/notifications/unread-count", "", &tm.supervisor)
		require.NoError(t, h.UnreadCount(ctx))
		var count UnreadCountResponse
		decodeBody(t, rec, &count)
		assert.Equal(t, 0, count.Count)

		ctx, rec = newContext(http.MethodGet, "/api/v1/notifications", "", &tm.supervisor)
		require.NoError(t, h.List(ctx))
		decodeBody(t, rec, &list)
		require.Len(t, list, 2)
		assert.True(t, list[0].Read)
	})

	t.Run("empty", func(t *testing.T) {
		tm, h, _ := setupNotificationTest(t)

		ctx, rec := newContext(http.MethodGet, "/api/v1/notifications", "", &tm.rep)
		require.NoError(t, h.List(ctx))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, h, _ := setupNotificationTest(t)

		ctx, rec := newContext(http.MethodGet, "/api/v1/notifications", "", nil)
		require.NoError(t, h.List(ctx))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestNotificationHandler_UnreadCount(t *testing.T) {
	tm, h, store := setupNotificationTest(t)
	seedNotifications(t, store, tm.admin.UserID, "a", "b", "c")

	ctx, rec := newContext(http.MethodGet, "/api/v1/notifications/unread-count", "", &tm.admin)
	require.NoError(t, h.UnreadCount(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UnreadCountResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, 3, resp.Count)
}

func asCaller(id identity.Identity) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.SetRequest(c.Request().WithContext(identity.WithIdentity(c.Request().Context(), id)))
			return next(c)
		}
	}
}

func TestNotificationHandler_Stream(t *testing.T) {
	tm, h, store := setupNotificationTest(t)
	seedNotifications(t, store, tm.supervisor.UserID, "rep@test.com added a note to Acme")

	e := echo.New()
	e.GET("/stream", h.Stream, asCaller(tm.supervisor))
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get(echo.HeaderContentType))

	events := make(chan [2]string, 4)
	go func() {
		defer close(events)
		r := bufio.NewReader(resp.Body)
		for {
			event, data := readEvent(r)
			if event == "" {
				return
			}
			events <- [2]string{event, data}
		}
	}()

	next := func() [2]string {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "stream ended")
			return ev
		case <-time.After(3 * time.Second):
			t.Fatal("no event received")
			return [2]string{}
		}
	}

	first := next()
	assert.Equal(t, "unread", first[0])
	assert.JSONEq(t, `{"count":1}`, first[1])

	// The subscription is confirmed before the first event is written.
	signal := models.NotificationSignal{UserID: tm.supervisor.UserID, ProspectID: 9, ID: "n2"}
	require.NoError(t, tm.cache.Publish(context.Background(), notification.Channel(notification.DefaultChannelPrefix, tm.rep.UserID), signal))
	require.NoError(t, tm.cache.Publish(context.Background(), notification.Channel(notification.DefaultChannelPrefix, tm.supervisor.UserID), signal))

	second := next()
	assert.Equal(t, "notification", second[0])
	assert.JSONEq(t, fmt.Sprintf(`{"user_id":%d,"prospect_id":9,"id":"n2"}`, tm.supervisor.UserID), second[1])
}

// readEvent returns the next named event, or empty strings once the stream ends.
func readEvent(r *bufio.Reader) (string, string) {
	var event, data string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", ""
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event != "" {
				return event, data
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}
