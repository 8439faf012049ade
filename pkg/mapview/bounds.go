package mapview

import (
	"math"

	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/paulmach/orb"
)

// FitOptions describes the client viewport used to fit bounds.
type FitOptions struct {
	Width   float64
	Height  float64
	Padding float64
	MaxZoom float64
}

// DefaultFitOptions keeps a lone marker from zooming past street level.
func DefaultFitOptions() FitOptions {
	return FitOptions{Width: 1024, Height: 768, Padding: 50, MaxZoom: 15}
}

// FitBounds returns the viewport that shows every point, or nil when there
// are none.
func FitBounds(points []models.Coordinate, opts FitOptions) *Viewport {
	if len(points) == 0 {
		return nil
	}
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = orb.Point{p.Lng, p.Lat}
	}
	b := mp.Bound()

	nw := worldPixel(orb.Point{b.Min[0], b.Max[1]}, 0)
	se := worldPixel(orb.Point{b.Max[0], b.Min[1]}, 0)
	spanX := se[0] - nw[0]
	spanY := se[1] - nw[1]

	availX := math.Max(opts.Width-2*opts.Padding, 1)
	availY := math.Max(opts.Height-2*opts.Padding, 1)

	zoom := opts.MaxZoom
	if spanX > 0 || spanY > 0 {
		scale := math.Inf(1)
		if spanX > 0 {
			scale = availX / spanX
		}
		if spanY > 0 {
			scale = math.Min(scale, availY/spanY)
		}
		zoom = math.Min(opts.MaxZoom, math.Log2(scale))
	}
	if zoom < 0 {
		zoom = 0
	}

	center := b.Center()
	return &Viewport{
		Center: models.Coordinate{Lng: center[0], Lat: center[1]},
		Zoom:   zoom,
		Bounds: [2]models.Coordinate{
			{Lng: b.Min[0], Lat: b.Min[1]},
			{Lng: b.Max[0], Lat: b.Max[1]},
		},
	}
}
