package routeplanner

import (
	"fmt"
	"sort"

	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/jordanlanch/prospectroute/pkg/routing"
)

// MaxDestinations is the number of prospects a route can visit: the
// optimizer's coordinate ceiling minus the start.
const MaxDestinations = routing.MaxCoordinates - 1

// destination is a geocoded prospect eligible for the route.
type destination struct {
	prospect *models.Prospect
	at       models.Coordinate
}

// Truncation reports that eligible prospects were dropped to fit the optimizer.
type Truncation struct {
	Selected int    `json:"selected"`
	Eligible int    `json:"eligible"`
	Excluded int    `json:"excluded"`
	Message  string `json:"message"`
}

// squaredDistance ranks in raw lng/lat space. It is not geodesic and only
// meaningful for short-range comparisons.
func squaredDistance(a, b models.Coordinate) float64 {
	dx := a.Lng - b.Lng
	dy := a.Lat - b.Lat
	return dx*dx + dy*dy
}

// selectNearest keeps the limit destinations closest to start, preserving
// input order among the kept ones. Ties keep the earlier input.
func selectNearest(start models.Coordinate, dests []destination, limit int) ([]destination, *Truncation) {
	if len(dests) <= limit {
		return dests, nil
	}

	idx := make([]int, len(dests))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return squaredDistance(start, dests[idx[a]].at) < squaredDistance(start, dests[idx[b]].at)
	})
	keep := idx[:limit]
	sort.Ints(keep)

	selected := make([]destination, len(keep))
	for i, k := range keep {
		selected[i] = dests[k]
	}

	excluded := len(dests) - limit
	return selected, &Truncation{
		Selected: limit,
		Eligible: len(dests),
		Excluded: excluded,
		Message:  fmt.Sprintf("Route limited to %d of %d prospects (%d excluded)", limit, len(dests), excluded),
	}
}
