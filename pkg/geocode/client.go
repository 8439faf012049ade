// Package geocode resolves addresses to coordinates and back through the
// Mapbox geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/logger"
	"github.com/jordanlanch/prospectroute/pkg/metrics"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"golang.org/x/time/rate"
)

const service = "geocoding service"

var (
	// ErrTimeout is returned when a lookup exceeds its deadline.
	ErrTimeout = domain.NewTimeoutError(service, nil)
	// ErrUnavailable is returned for network, status and decode failures.
	ErrUnavailable = domain.NewUpstreamError(service, nil)
	// ErrNoToken is returned when no access token is configured.
	ErrNoToken = domain.NewValidationError("geocoding access token is not configured")
)

// Config configures a Client
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	// RequestsPerSecond caps upstream calls; zero means unlimited.
	RequestsPerSecond float64
}

// Client is a forward/reverse geocoding client
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
	logger     logger.Logger
}

// NewClient creates a geocoding client
func NewClient(cfg Config, m *metrics.Metrics, log logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.AccessToken,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(limit, burst),
		metrics:    m,
		logger:     logger.OrDefault(log),
	}
}

var _ domain.Geocoder = (*Client)(nil)

type featureCollection struct {
	Features []struct {
		Center    []float64 `json:"center"`
		PlaceName string    `json:"place_name"`
	} `json:"features"`
}

// Forward geocodes address. It returns (nil, nil) when the service has no match.
func (c *Client) Forward(ctx context.Context, address string) (*models.Coordinate, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, domain.NewValidationError("address is required")
	}

	fc, err := c.lookup(ctx, url.PathEscape(address))
	if err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 || len(fc.Features[0].Center) < 2 {
		c.metrics.RecordGeocode("no_result")
		return nil, nil
	}

	c.metrics.RecordGeocode("hit")
	center := fc.Features[0].Center
	return &models.Coordinate{Lng: center[0], Lat: center[1]}, nil
}

// Reverse returns the place name at coord, or "" when the service has no match.
func (c *Client) Reverse(ctx context.Context, coord models.Coordinate) (string, error) {
	if coord.Lng < -180 || coord.Lng > 180 || coord.Lat < -90 || coord.Lat > 90 {
		return "", domain.NewValidationError("coordinate out of range")
	}

	query := strconv.FormatFloat(coord.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(coord.Lat, 'f', -1, 64)
	fc, err := c.lookup(ctx, query)
	if err != nil {
		return "", err
	}
	if len(fc.Features) == 0 {
		c.metrics.RecordGeocode("no_result")
		return "", nil
	}

	c.metrics.RecordGeocode("hit")
	return fc.Features[0].PlaceName, nil
}

func (c *Client) lookup(ctx context.Context, query string) (*featureCollection, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Wait fails early when the deadline would pass before a token is free.
	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		c.metrics.RecordGeocode("timeout")
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?access_token=%s&limit=1",
		c.baseURL, query, url.QueryEscape(c.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordGeocode("error")
		c.logger.Warn("geocoding request failed", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		c.metrics.RecordGeocode("error")
		return nil, c.classify(ctx, fmt.Errorf("decode response: %w", err))
	}
	return &fc, nil
}

// classify maps transport failures onto ErrTimeout, ErrUnavailable, or the
// caller's cancellation.
func (c *Client) classify(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		c.metrics.RecordGeocode("timeout")
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		c.metrics.RecordGeocode("error")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
