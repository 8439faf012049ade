// Package routing calls the Mapbox Optimization API to order a round trip.
package routing

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
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// MaxCoordinates is the service's per-request ceiling, start included.
const MaxCoordinates = 12

const service = "routing service"

var (
	// ErrNoRoute is returned when the service answers without a usable trip.
	ErrNoRoute = domain.NewNoResultError("no route could be found for these stops")
	// ErrTimeout is returned when the request exceeds its deadline.
	ErrTimeout = domain.NewTimeoutError(service, nil)
	// ErrUnavailable is returned for network, status and decode failures.
	ErrUnavailable = domain.NewUpstreamError(service, nil)
)

// Config configures a Client
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

// Client requests optimized driving trips
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient creates an optimization client
func NewClient(cfg Config, log logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.AccessToken,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		logger:     logger.OrDefault(log),
	}
}

// Leg is the drive between two consecutive visited waypoints.
type Leg struct {
	Duration float64 `json:"duration"` // seconds
	Distance float64 `json:"distance"` // meters
}

// Trip is the optimized round trip.
type Trip struct {
	Geometry orb.LineString
	Legs     []Leg
	Duration float64
	Distance float64
}

// Waypoint describes one input coordinate. Waypoints are reported in input
// order; WaypointIndex is the coordinate's position in the optimized visit order.
type Waypoint struct {
	WaypointIndex int
	Location      models.Coordinate
	Name          string
}

// Result is a successful optimization.
type Result struct {
	Trip      Trip
	Waypoints []Waypoint
}

type apiResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Trips   []struct {
		Geometry *geojson.Geometry `json:"geometry"`
		Legs     []Leg             `json:"legs"`
		Duration float64           `json:"duration"`
		Distance float64           `json:"distance"`
	} `json:"trips"`
	Waypoints []struct {
		WaypointIndex int       `json:"waypoint_index"`
		Location      []float64 `json:"location"`
		Name          string    `json:"name"`
	} `json:"waypoints"`
}

// OptimizeTrip orders coords as a driving round trip starting at coords[0].
func (c *Client) OptimizeTrip(ctx context.Context, coords []models.Coordinate) (*Result, error) {
	if len(coords) < 2 {
		return nil, domain.NewValidationError("at least two coordinates are required")
	}
	if len(coords) > MaxCoordinates {
		return nil, domain.NewValidationError(fmt.Sprintf("at most %d coordinates are allowed, got %d", MaxCoordinates, len(coords)))
	}
	if c.token == "" {
		return nil, domain.NewValidationError("routing access token is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(coords), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
		return nil, classify(ctx, fmt.Errorf("decode response: %w", err))
	}

	// The API reports "NoRoute"/"NoTrips" with 4xx statuses and a JSON body.
	if body.Code != "" && body.Code != "Ok" {
		c.logger.Info("optimization returned no route", "code", body.Code, "message", body.Message)
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, body.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if body.Code != "Ok" || len(body.Trips) == 0 {
		return nil, ErrNoRoute
	}
	if len(body.Waypoints) != len(coords) {
		return nil, fmt.Errorf("%w: expected %d waypoints, got %d", ErrUnavailable, len(coords), len(body.Waypoints))
	}

	trip := body.Trips[0]
	// A round trip returns one leg per coordinate.
	if len(trip.Legs) != len(coords) {
		return nil, fmt.Errorf("%w: expected %d legs, got %d", ErrUnavailable, len(coords), len(trip.Legs))
	}
	result := &Result{
		Trip: Trip{
			Legs:     trip.Legs,
			Duration: trip.Duration,
			Distance: trip.Distance,
		},
		Waypoints: make([]Waypoint, len(body.Waypoints)),
	}
	if trip.Geometry != nil {
		if ls, ok := trip.Geometry.Coordinates.(orb.LineString); ok {
			result.Trip.Geometry = ls
		}
	}
	for i, wp := range body.Waypoints {
		w := Waypoint{WaypointIndex: wp.WaypointIndex, Name: wp.Name}
		if len(wp.Location) >= 2 {
			w.Location = models.Coordinate{Lng: wp.Location[0], Lat: wp.Location[1]}
		}
		result.Waypoints[i] = w
	}
	return result, nil
}

func (c *Client) endpoint(coords []models.Coordinate) string {
	parts := make([]string, len(coords))
	for i, p := range coords {
		parts[i] = strconv.FormatFloat(p.Lng, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lat, 'f', 6, 64)
	}
	q := url.Values{}
	q.Set("roundtrip", "true")
	q.Set("source", "first")
	q.Set("geometries", "geojson")
	q.Set("overview", "full")
	q.Set("access_token", c.token)
	return fmt.Sprintf("%s/optimized-trips/v1/mapbox/driving/%s?%s", c.baseURL, strings.Join(parts, ";"), q.Encode())
}

func classify(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
