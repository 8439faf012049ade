package routeplanner

import (
	"fmt"
	"sort"

	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/jordanlanch/prospectroute/pkg/routing"
)

// reconstruct turns an optimization result back into visited stops.
//
// Waypoints come back in input order, each carrying its position in the
// optimized visit. Input position 0 is the start; input position i >= 1 is
// dests[i-1]. The k-th visited stop (k >= 1) is reached by leg k-1. A round
// trip has one leg per waypoint, the last one returning to the start.
func reconstruct(res *routing.Result, dests []destination) ([]models.RouteStop, error) {
	if len(res.Waypoints) != len(dests)+1 {
		return nil, fmt.Errorf("expected %d waypoints, got %d", len(dests)+1, len(res.Waypoints))
	}
	if len(res.Trip.Legs) != len(res.Waypoints) {
		return nil, fmt.Errorf("expected %d legs, got %d", len(res.Waypoints), len(res.Trip.Legs))
	}

	order := make([]int, len(res.Waypoints))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return res.Waypoints[order[a]].WaypointIndex < res.Waypoints[order[b]].WaypointIndex
	})

	stops := make([]models.RouteStop, 0, len(dests))
	for _, input := range order {
		if input == 0 {
			continue
		}
		duration := res.Trip.Legs[len(stops)].Duration
		d := dests[input-1]
		stops = append(stops, models.RouteStop{
			ProspectID:           d.prospect.ID,
			Name:                 d.prospect.BusinessName,
			Address:              d.prospect.Address,
			DurationFromPrevious: duration,
			Location:             d.at,
		})
	}
	return stops, nil
}

func totalDuration(legs []routing.Leg) float64 {
	var sum float64
	for _, l := range legs {
		sum += l.Duration
	}
	return sum
}
