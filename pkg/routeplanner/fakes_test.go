package routeplanner

import (
	"context"
	"sync"

	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/jordanlanch/prospectroute/pkg/routing"
	"github.com/paulmach/orb"
)

type fakeGeocoder struct {
	mu      sync.Mutex
	coords  map[string]models.Coordinate
	errs    map[string]error
	calls   []string
	place   string
	block   map[string]chan struct{}
	entered chan string
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		coords: map[string]models.Coordinate{},
		errs:   map[string]error{},
		block:  map[string]chan struct{}{},
	}
}

func (f *fakeGeocoder) Forward(ctx context.Context, address string) (*models.Coordinate, error) {
	f.mu.Lock()
	f.calls = append(f.calls, address)
	gate := f.block[address]
	entered := f.entered
	f.mu.Unlock()

	if gate != nil {
		if entered != nil {
			entered <- address
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[address]; err != nil {
		return nil, err
	}
	c, ok := f.coords[address]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeGeocoder) Reverse(ctx context.Context, coord models.Coordinate) (string, error) {
	return f.place, nil
}

func (f *fakeGeocoder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeOptimizer visits destinations in reverse input order; leg k lasts
// 10*(k+1) seconds.
type fakeOptimizer struct {
	mu     sync.Mutex
	calls  [][]models.Coordinate
	err    error
	result func(coords []models.Coordinate) *routing.Result
}

func (f *fakeOptimizer) OptimizeTrip(ctx context.Context, coords []models.Coordinate) (*routing.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]models.Coordinate(nil), coords...))
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result(coords), nil
	}
	return reverseTrip(coords), nil
}

func reverseTrip(coords []models.Coordinate) *routing.Result {
	n := len(coords)
	res := &routing.Result{Waypoints: make([]routing.Waypoint, n)}
	for i, c := range coords {
		idx := 0
		if i > 0 {
			idx = n - i
		}
		res.Waypoints[i] = routing.Waypoint{WaypointIndex: idx, Location: c}
		res.Trip.Geometry = append(res.Trip.Geometry, orb.Point{c.Lng, c.Lat})
	}
	for k := 0; k < n; k++ {
		res.Trip.Legs = append(res.Trip.Legs, routing.Leg{Duration: float64(10 * (k + 1))})
	}
	return res
}
