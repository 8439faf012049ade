package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.RecordRoutePlan("ok", 5)
	m.RecordRoutePlan("ok", 3)
	m.RecordRoutePlan("no_route", 0)
	m.RecordGeocode("timeout")
	m.RecordGeocodeCache("hit")
	m.RecordActivityEntry("note")
	m.RecordNotifications(2, 1)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RoutePlans.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RoutePlans.WithLabelValues("no_route")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("timeout")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GeocodeCache.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ActivityEntries.WithLabelValues("note")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Notifications.WithLabelValues("delivered")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Notifications.WithLabelValues("failed")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRoutePlan("ok", 1)
		m.RecordGeocode("hit")
		m.RecordGeocodeCache("miss")
		m.RecordActivityEntry("call")
		m.RecordNotifications(1, 0)
		m.UpdateDBConnections(3)
	})
}

func TestMiddleware(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/v1/routes/current", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/routes/current", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/routes/current", "200")))
}
