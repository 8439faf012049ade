package mapview

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
)

const (
	tileSize       = 512.0
	mercatorExtent = 20037508.342789244 // meters from the origin to the map edge
)

// ClusterOptions tunes point grouping. Steps are ascending point-count
// thresholds; a cluster below Steps[i].Below gets Steps[i].Color.
type ClusterOptions struct {
	Radius     float64 // pixels
	MaxZoom    float64 // at higher zooms every point is shown on its own
	Steps      []ColorStep
	LargeColor string
}

// ColorStep maps a point-count ceiling to a color.
type ColorStep struct {
	Below int
	Color string
}

// DefaultClusterOptions matches the prospect map's appearance.
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{
		Radius:  50,
		MaxZoom: 14,
		Steps: []ColorStep{
			{Below: 10, Color: "#51bbd6"},
			{Below: 30, Color: "#f1f075"},
		},
		LargeColor: "#f28cb1",
	}
}

// Color returns the cluster color for count points.
func (o ClusterOptions) Color(count int) string {
	for _, s := range o.Steps {
		if count < s.Below {
			return s.Color
		}
	}
	return o.LargeColor
}

// StepExpression renders the color steps as a style "step" expression over
// point_count.
func (o ClusterOptions) StepExpression() []any {
	expr := []any{"step", []any{"get", "point_count"}}
	if len(o.Steps) == 0 {
		return append(expr, o.LargeColor)
	}
	expr = append(expr, o.Steps[0].Color)
	for i := 1; i < len(o.Steps); i++ {
		expr = append(expr, o.Steps[i-1].Below, o.Steps[i].Color)
	}
	return append(expr, o.Steps[len(o.Steps)-1].Below, o.LargeColor)
}

// worldPixel projects p to web-mercator pixels at zoom.
func worldPixel(p orb.Point, zoom float64) orb.Point {
	m := project.Point(p, project.WGS84.ToMercator)
	size := tileSize * math.Pow(2, zoom)
	return orb.Point{
		(m[0] + mercatorExtent) / (2 * mercatorExtent) * size,
		(mercatorExtent - m[1]) / (2 * mercatorExtent) * size,
	}
}

// Cluster groups the point features of fc for display at zoom. Single points
// keep their original properties; groups become features with cluster=true,
// point_count, prospect_ids and color. Grouping is greedy in ascending
// prospect id order so results are stable.
func Cluster(fc *geojson.FeatureCollection, zoom float64, opts ClusterOptions) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	if fc == nil {
		return out
	}

	type item struct {
		feature *geojson.Feature
		point   orb.Point
		pixel   orb.Point
		id      int
	}
	items := make([]item, 0, len(fc.Features))
	for _, f := range fc.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		items = append(items, item{feature: f, point: p, pixel: worldPixel(p, zoom), id: propInt(f, "prospect_id")})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].id < items[j].id })

	if zoom > opts.MaxZoom {
		for _, it := range items {
			out.Append(it.feature)
		}
		return out
	}

	used := make([]bool, len(items))
	r2 := opts.Radius * opts.Radius
	for i := range items {
		if used[i] {
			continue
		}
		used[i] = true
		members := []int{i}
		for j := i + 1; j < len(items); j++ {
			if used[j] {
				continue
			}
			dx := items[j].pixel[0] - items[i].pixel[0]
			dy := items[j].pixel[1] - items[i].pixel[1]
			if dx*dx+dy*dy <= r2 {
				used[j] = true
				members = append(members, j)
			}
		}

		if len(members) == 1 {
			out.Append(items[i].feature)
			continue
		}

		var lng, lat float64
		ids := make([]int, 0, len(members))
		for _, m := range members {
			lng += items[m].point[0]
			lat += items[m].point[1]
			ids = append(ids, items[m].id)
		}
		n := float64(len(members))
		f := geojson.NewFeature(orb.Point{lng / n, lat / n})
		f.Properties["cluster"] = true
		f.Properties["point_count"] = len(members)
		f.Properties["prospect_ids"] = ids
		f.Properties["color"] = opts.Color(len(members))
		out.Append(f)
	}
	return out
}

func propInt(f *geojson.Feature, key string) int {
	switch v := f.Properties[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
