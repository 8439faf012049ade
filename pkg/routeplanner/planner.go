// Package routeplanner builds optimized visiting routes over prospects and
// places prospects on the session map.
package routeplanner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/logger"
	"github.com/jordanlanch/prospectroute/pkg/mapview"
	"github.com/jordanlanch/prospectroute/pkg/metrics"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/jordanlanch/prospectroute/pkg/routing"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrStale is returned when a newer request or a clear superseded this one.
// Nothing from the stale computation is applied.
var ErrStale = domain.NewConflictError("route request was superseded by a newer one")

// Optimizer orders a round trip starting at coords[0].
type Optimizer interface {
	OptimizeTrip(ctx context.Context, coords []models.Coordinate) (*routing.Result, error)
}

// Start is the route origin: a coordinate (e.g. a map click) or an address.
type Start struct {
	Coordinate *models.Coordinate `json:"coordinate,omitempty"`
	Address    string             `json:"address,omitempty"`
}

// Plan is an applied route.
type Plan struct {
	ID             string             `json:"id"`
	Start          models.Coordinate  `json:"start"`
	Stops          []models.RouteStop `json:"stops"`
	TotalDuration  float64            `json:"total_duration"` // seconds, all legs including the return
	TotalDistance  float64            `json:"total_distance"` // meters
	Geometry       orb.LineString     `json:"geometry"`
	Truncation     *Truncation        `json:"truncation,omitempty"`
	MissingAddress int                `json:"missing_address"`
	Unlocated      int                `json:"unlocated"`
	CreatedAt      time.Time          `json:"created_at"`
}

type session struct {
	generation uint64
	cancel     context.CancelFunc
	plan       *Plan
}

// Planner computes routes per session. Each new PlanRoute or ClearRoute
// supersedes whatever the session had in flight.
type Planner struct {
	geocoder  domain.Geocoder
	optimizer Optimizer
	scenes    *mapview.Scenes
	metrics   *metrics.Metrics
	logger    logger.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewPlanner creates a route planner
func NewPlanner(geocoder domain.Geocoder, optimizer Optimizer, scenes *mapview.Scenes, m *metrics.Metrics, log logger.Logger) *Planner {
	return &Planner{
		geocoder:  geocoder,
		optimizer: optimizer,
		scenes:    scenes,
		metrics:   m,
		logger:    logger.OrDefault(log),
		sessions:  make(map[string]*session),
	}
}

// SessionID keys planner and map state by user.
func SessionID(userID int) string {
	return strconv.Itoa(userID)
}

// begin starts a new generation, cancelling the previous computation and
// clearing the drawn route.
func (p *Planner) begin(ctx context.Context, sessionID string) (context.Context, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[sessionID]
	if !ok {
		s = &session{}
		p.sessions[sessionID] = s
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	s.plan = nil
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	p.clearScene(sessionID)
	return runCtx, s.generation
}

// finish releases the computation's context if it is still current.
func (p *Planner) finish(sessionID string, gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s := p.sessions[sessionID]; s != nil && s.generation == gen && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (p *Planner) isCurrent(sessionID string, gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.sessions[sessionID]
	return s != nil && s.generation == gen
}

// PlanRoute geocodes start and prospects, keeps at most MaxDestinations
// nearest to start, optimizes the round trip and draws it on the session map.
func (p *Planner) PlanRoute(ctx context.Context, sessionID string, start Start, prospects []*models.Prospect) (*Plan, error) {
	runCtx, gen := p.begin(ctx, sessionID)
	defer p.finish(sessionID, gen)

	plan, err := p.compute(runCtx, start, prospects)
	if err != nil {
		if ctx.Err() == nil && !p.isCurrent(sessionID, gen) {
			p.metrics.RecordRoutePlan("stale", 0)
			return nil, ErrStale
		}
		switch {
		case errors.Is(err, routing.ErrNoRoute), domain.IsNoResult(err):
			p.metrics.RecordRoutePlan("no_route", 0)
		default:
			p.metrics.RecordRoutePlan("error", 0)
		}
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.sessions[sessionID]
	if s == nil || s.generation != gen {
		p.metrics.RecordRoutePlan("stale", 0)
		return nil, ErrStale
	}
	s.plan = plan
	p.draw(sessionID, plan)

	result := "ok"
	if plan.Truncation != nil {
		result = "truncated"
	}
	p.metrics.RecordRoutePlan(result, len(plan.Stops))
	p.logger.Info("route planned",
		"session", sessionID,
		"plan_id", plan.ID,
		"stops", len(plan.Stops),
		"unlocated", plan.Unlocated,
		"truncated", plan.Truncation != nil,
	)
	return plan, nil
}

func (p *Planner) compute(ctx context.Context, start Start, prospects []*models.Prospect) (*Plan, error) {
	origin, err := p.resolveStart(ctx, start)
	if err != nil {
		return nil, err
	}

	plan := &Plan{ID: uuid.NewString(), Start: origin, Stops: []models.RouteStop{}, CreatedAt: time.Now().UTC()}

	// Sequential, in input order, so upstream never sees a burst from one request.
	var dests []destination
	for _, pr := range prospects {
		if pr == nil || !pr.HasAddress() {
			plan.MissingAddress++
			continue
		}
		coord, err := p.geocoder.Forward(ctx, pr.Address)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil || coord == nil {
			if err != nil {
				p.logger.Debug("prospect geocode failed", "prospect_id", pr.ID, "error", err)
			}
			plan.Unlocated++
			continue
		}
		dests = append(dests, destination{prospect: pr, at: *coord})
	}
	if len(dests) == 0 {
		return nil, domain.NewNoResultError("none of the selected prospects could be located")
	}

	dests, plan.Truncation = selectNearest(origin, dests, MaxDestinations)

	coords := make([]models.Coordinate, 0, len(dests)+1)
	coords = append(coords, origin)
	for _, d := range dests {
		coords = append(coords, d.at)
	}

	res, err := p.optimizer.OptimizeTrip(ctx, coords)
	if err != nil {
		return nil, err
	}

	stops, err := reconstruct(res, dests)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", routing.ErrUnavailable, err)
	}
	plan.Stops = stops
	plan.TotalDuration = totalDuration(res.Trip.Legs)
	plan.TotalDistance = res.Trip.Distance
	plan.Geometry = res.Trip.Geometry
	return plan, nil
}

func (p *Planner) resolveStart(ctx context.Context, start Start) (models.Coordinate, error) {
	if start.Coordinate != nil {
		c := *start.Coordinate
		if c.Lng < -180 || c.Lng > 180 || c.Lat < -90 || c.Lat > 90 {
			return models.Coordinate{}, domain.NewValidationError("start coordinate out of range")
		}
		return c, nil
	}
	if start.Address == "" {
		return models.Coordinate{}, domain.NewValidationError("a start coordinate or address is required")
	}
	coord, err := p.geocoder.Forward(ctx, start.Address)
	if err != nil {
		return models.Coordinate{}, err
	}
	if coord == nil {
		return models.Coordinate{}, domain.NewNoResultError("start address could not be found")
	}
	return *coord, nil
}

// ClearRoute cancels any computation in flight and removes the drawn route.
// It is safe to call when nothing is drawn.
func (p *Planner) ClearRoute(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[sessionID]; ok {
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.generation++
		s.plan = nil
	}
	p.clearScene(sessionID)
}

// CurrentPlan returns the session's applied plan.
func (p *Planner) CurrentPlan(sessionID string) (*Plan, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[sessionID]
	if !ok || s.plan == nil {
		return nil, false
	}
	return s.plan, true
}

// ReverseStart names the place at a clicked coordinate so it can be used as
// the route start.
func (p *Planner) ReverseStart(ctx context.Context, coord models.Coordinate) (string, error) {
	name, err := p.geocoder.Reverse(ctx, coord)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", domain.NewNoResultError("no place found at this location")
	}
	return name, nil
}

func (p *Planner) clearScene(sessionID string) {
	scene := p.scenes.Get(sessionID)
	scene.RemoveLayer(mapview.LayerRouteLine)
	scene.RemoveSource(mapview.SourceRouteLine)
	scene.RemoveGroup(mapview.GroupRouteStops)
}

func (p *Planner) draw(sessionID string, plan *Plan) {
	scene := p.scenes.Get(sessionID)

	fc := geojson.NewFeatureCollection()
	if len(plan.Geometry) > 0 {
		line := geojson.NewFeature(plan.Geometry)
		line.Properties["plan_id"] = plan.ID
		fc.Append(line)
	}
	scene.SetSource(mapview.SourceRouteLine, fc)
	scene.AddLayer(mapview.Layer{
		ID:     mapview.LayerRouteLine,
		Source: mapview.SourceRouteLine,
		Type:   "line",
		Paint:  map[string]any{"line-color": mapview.RouteLineColor, "line-width": 4},
	})

	points := []models.Coordinate{plan.Start}
	for i, stop := range plan.Stops {
		scene.AddMarker(mapview.Marker{
			ID:       fmt.Sprintf("%s-%d", mapview.GroupRouteStops, i+1),
			Group:    mapview.GroupRouteStops,
			Position: stop.Location,
			Label:    strconv.Itoa(i + 1),
			Color:    mapview.RouteStopColor,
		})
		points = append(points, stop.Location)
	}
	scene.SetViewport(mapview.FitBounds(points, mapview.DefaultFitOptions()))
}
