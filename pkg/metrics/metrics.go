package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Business metrics
	RoutePlans      *prometheus.CounterVec
	RouteStops      prometheus.Histogram
	GeocodeRequests *prometheus.CounterVec
	ActivityEntries *prometheus.CounterVec
	Notifications   *prometheus.CounterVec

	// Database metrics
	DBConnections prometheus.Gauge

	// Cache metrics
	GeocodeCache *prometheus.CounterVec
}

// New creates a new Metrics instance registered on the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers all metrics on reg
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
			},
			[]string{"method", "path"},
		),

		RoutePlans: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "route_plans_total",
				Help: "Total number of route computations by outcome",
			},
			[]string{"result"}, // ok, truncated, no_route, stale, error
		),
		RouteStops: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "route_stops",
			Help:    "Number of stops in successfully planned routes",
			Buckets: []float64{1, 2, 3, 5, 8, 11},
		}),
		GeocodeRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geocode_requests_total",
				Help: "Total number of upstream geocoding requests by outcome",
			},
			[]string{"result"}, // hit, no_result, timeout, error
		),
		ActivityEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_entries_total",
				Help: "Total number of activity log entries appended",
			},
			[]string{"type"},
		),
		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_sent_total",
				Help: "Total number of notification deliveries by outcome",
			},
			[]string{"result"}, // delivered, failed
		),

		DBConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		}),

		GeocodeCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geocode_cache_total",
				Help: "Geocode cache lookups by outcome",
			},
			[]string{"outcome"}, // hit, miss, error
		),
	}
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // route pattern, e.g. /api/v1/prospects/:id/activity

			err := next(c)

			status := c.Response().Status
			duration := time.Since(start).Seconds()

			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, strconv.Itoa(status)).Observe(duration)
			m.HTTPResponseSize.WithLabelValues(req.Method, path).Observe(float64(c.Response().Size))

			return err
		}
	}
}

// RecordRoutePlan counts a route computation outcome
func (m *Metrics) RecordRoutePlan(result string, stops int) {
	if m == nil {
		return
	}
	m.RoutePlans.WithLabelValues(result).Inc()
	if stops > 0 {
		m.RouteStops.Observe(float64(stops))
	}
}

// RecordGeocode counts an upstream geocoding outcome
func (m *Metrics) RecordGeocode(result string) {
	if m == nil {
		return
	}
	m.GeocodeRequests.WithLabelValues(result).Inc()
}

// RecordGeocodeCache counts a geocode cache lookup
func (m *Metrics) RecordGeocodeCache(outcome string) {
	if m == nil {
		return
	}
	m.GeocodeCache.WithLabelValues(outcome).Inc()
}

// RecordActivityEntry counts an appended activity entry
func (m *Metrics) RecordActivityEntry(entryType string) {
	if m == nil {
		return
	}
	m.ActivityEntries.WithLabelValues(entryType).Inc()
}

// RecordNotifications counts notification deliveries
func (m *Metrics) RecordNotifications(delivered, failed int) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues("delivered").Add(float64(delivered))
	m.Notifications.WithLabelValues("failed").Add(float64(failed))
}

// UpdateDBConnections updates active database connections gauge
func (m *Metrics) UpdateDBConnections(count float64) {
	if m == nil {
		return
	}
	m.DBConnections.Set(count)
}
