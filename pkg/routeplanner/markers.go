package routeplanner

import (
	"context"

	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/logger"
	"github.com/jordanlanch/prospectroute/pkg/mapview"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"
)

// Placement summarizes a marker refresh. Unresolvable prospects are counted,
// not listed.
type Placement struct {
	Placed   int                        `json:"placed"`
	Skipped  int                        `json:"skipped"`
	Viewport *mapview.Viewport          `json:"viewport,omitempty"`
	Source   *geojson.FeatureCollection `json:"source"`
}

// MarkerService places prospects on the session map. It only touches the
// prospects source and layers.
type MarkerService struct {
	geocoder    domain.Geocoder
	scenes      *mapview.Scenes
	concurrency int
	clusters    mapview.ClusterOptions
	logger      logger.Logger
}

// NewMarkerService creates a marker service geocoding at most concurrency
// addresses at once.
func NewMarkerService(geocoder domain.Geocoder, scenes *mapview.Scenes, concurrency int, log logger.Logger) *MarkerService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &MarkerService{
		geocoder:    geocoder,
		scenes:      scenes,
		concurrency: concurrency,
		clusters:    mapview.DefaultClusterOptions(),
		logger:      logger.OrDefault(log),
	}
}

// PlaceProspects geocodes prospects and replaces the session's prospect
// markers with those that resolved, then fits the viewport around them.
// Marker order is not significant.
func (m *MarkerService) PlaceProspects(ctx context.Context, sessionID string, prospects []*models.Prospect) (*Placement, error) {
	located := make([]*models.Coordinate, len(prospects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, p := range prospects {
		if p == nil || !p.HasAddress() {
			continue
		}
		i, p := i, p
		g.Go(func() error {
			coord, err := m.geocoder.Forward(gctx, p.Address)
			if err != nil {
				// A minority of failures never blocks the rest.
				m.logger.Debug("marker geocode failed", "prospect_id", p.ID, "error", err)
				return nil
			}
			located[i] = coord
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	var points []models.Coordinate
	skipped := 0
	for i, p := range prospects {
		if located[i] == nil {
			skipped++
			continue
		}
		fc.Append(mapview.ProspectFeature(p, *located[i]))
		points = append(points, *located[i])
	}

	scene := m.scenes.Get(sessionID)
	scene.SetSource(mapview.SourceProspects, fc)
	scene.AddLayer(mapview.Layer{
		ID:     mapview.LayerClusters,
		Source: mapview.SourceProspects,
		Type:   "circle",
		Paint: map[string]any{
			"circle-color":     m.clusters.StepExpression(),
			"cluster-radius":   m.clusters.Radius,
			"cluster-max-zoom": m.clusters.MaxZoom,
		},
	})
	scene.AddLayer(mapview.Layer{
		ID:     mapview.LayerProspects,
		Source: mapview.SourceProspects,
		Type:   "circle",
		Paint:  map[string]any{"circle-color": []any{"get", "color"}},
	})

	viewport := mapview.FitBounds(points, mapview.DefaultFitOptions())
	if viewport != nil {
		scene.SetViewport(viewport)
	}

	return &Placement{
		Placed:   len(points),
		Skipped:  skipped,
		Viewport: viewport,
		Source:   fc,
	}, nil
}

// Clusters returns the session's prospect markers grouped for zoom.
func (m *MarkerService) Clusters(sessionID string, zoom float64) *geojson.FeatureCollection {
	return mapview.Cluster(m.scenes.Get(sessionID).Source(mapview.SourceProspects), zoom, m.clusters)
}

// Popup returns the summary for a placed prospect.
func (m *MarkerService) Popup(sessionID string, prospectID int) (*mapview.Popup, error) {
	p, ok := m.scenes.Get(sessionID).Popup(prospectID)
	if !ok {
		return nil, domain.NewNotFoundError("marker")
	}
	return &p, nil
}

// Scene returns a snapshot of the session's map.
func (m *MarkerService) Scene(sessionID string) mapview.Snapshot {
	return m.scenes.Get(sessionID).Snapshot()
}
