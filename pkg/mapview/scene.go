// Package mapview holds the server-side map scene that clients paint: GeoJSON
// sources, the layers drawn from them, point markers and the viewport.
package mapview

import (
	"sort"
	"strings"
	"sync"

	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/paulmach/orb/geojson"
)

// Resource ids. The marker layer and the route planner own disjoint ids and
// never touch each other's resources.
const (
	SourceProspects = "prospects"
	LayerProspects  = "prospects"
	LayerClusters   = "prospects-clusters"
	SourceRouteLine = "route-line"
	LayerRouteLine  = "route-line"
	GroupRouteStops = "route-stops"
)

// Layer draws a source.
type Layer struct {
	ID     string         `json:"id"`
	Source string         `json:"source"`
	Type   string         `json:"type"` // line, circle, symbol
	Paint  map[string]any `json:"paint,omitempty"`
}

// Marker is a standalone pin, e.g. a numbered route stop.
type Marker struct {
	ID       string            `json:"id"`
	Group    string            `json:"group"`
	Position models.Coordinate `json:"position"`
	Label    string            `json:"label,omitempty"`
	Color    string            `json:"color,omitempty"`
}

// Viewport is the camera the client should move to.
type Viewport struct {
	Center models.Coordinate    `json:"center"`
	Zoom   float64              `json:"zoom"`
	Bounds [2]models.Coordinate `json:"bounds"`
}

// Scene is one session's map. It is safe for concurrent use.
type Scene struct {
	mu       sync.RWMutex
	sources  map[string]*geojson.FeatureCollection
	layers   map[string]Layer
	order    []string
	markers  map[string]Marker
	viewport *Viewport
}

// NewScene returns an empty scene
func NewScene() *Scene {
	return &Scene{
		sources: make(map[string]*geojson.FeatureCollection),
		layers:  make(map[string]Layer),
		markers: make(map[string]Marker),
	}
}

// SetSource replaces or adds a source.
func (s *Scene) SetSource(id string, fc *geojson.FeatureCollection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[id] = fc
}

// Source returns a source, or nil.
func (s *Scene) Source(id string) *geojson.FeatureCollection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sources[id]
}

// RemoveSource deletes a source. Removing a missing source is a no-op.
func (s *Scene) RemoveSource(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, id)
}

// AddLayer adds or replaces a layer, keeping draw order of first insertion.
func (s *Scene) AddLayer(l Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.layers[l.ID]; !ok {
		s.order = append(s.order, l.ID)
	}
	s.layers[l.ID] = l
}

// HasLayer reports whether a layer exists.
func (s *Scene) HasLayer(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.layers[id]
	return ok
}

// RemoveLayer deletes a layer. Removing a missing layer is a no-op.
func (s *Scene) RemoveLayer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.layers[id]; !ok {
		return
	}
	delete(s.layers, id)
	for i, lid := range s.order {
		if lid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// AddMarker adds or replaces a marker.
func (s *Scene) AddMarker(m Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[m.ID] = m
}

// RemoveGroup deletes every marker in group and returns how many were removed.
func (s *Scene) RemoveGroup(group string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, m := range s.markers {
		if m.Group == group {
			delete(s.markers, id)
			n++
		}
	}
	return n
}

// Markers returns the markers of group ordered by id.
func (s *Scene) Markers(group string) []Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Marker
	for _, m := range s.markers {
		if group == "" || m.Group == group {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return naturalLess(out[i].ID, out[j].ID) })
	return out
}

// SetViewport records where the client should look.
func (s *Scene) SetViewport(v *Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = v
}

// Snapshot is a JSON view of a scene.
type Snapshot struct {
	Sources  map[string]*geojson.FeatureCollection `json:"sources"`
	Layers   []Layer                               `json:"layers"`
	Markers  []Marker                              `json:"markers"`
	Viewport *Viewport                             `json:"viewport,omitempty"`
}

// Snapshot copies the scene's current state.
func (s *Scene) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		Sources:  make(map[string]*geojson.FeatureCollection, len(s.sources)),
		Layers:   make([]Layer, 0, len(s.order)),
		Viewport: s.viewport,
	}
	for id, fc := range s.sources {
		snap.Sources[id] = fc
	}
	for _, id := range s.order {
		snap.Layers = append(snap.Layers, s.layers[id])
	}
	s.mu.RUnlock()

	snap.Markers = s.Markers("")
	if snap.Markers == nil {
		snap.Markers = []Marker{}
	}
	return snap
}

// naturalLess orders "route-stop-2" before "route-stop-10".
func naturalLess(a, b string) bool {
	pa, na := splitNumericSuffix(a)
	pb, nb := splitNumericSuffix(b)
	if pa != pb || na < 0 || nb < 0 {
		return a < b
	}
	return na < nb
}

func splitNumericSuffix(s string) (string, int) {
	i := strings.LastIndexByte(s, '-')
	if i < 0 || i == len(s)-1 {
		return s, -1
	}
	n := 0
	for _, r := range s[i+1:] {
		if r < '0' || r > '9' {
			return s, -1
		}
		n = n*10 + int(r-'0')
	}
	return s[:i], n
}

// Scenes keeps one scene per session.
type Scenes struct {
	mu     sync.Mutex
	scenes map[string]*Scene
}

// NewScenes creates an empty registry
func NewScenes() *Scenes {
	return &Scenes{scenes: make(map[string]*Scene)}
}

// Get returns the session's scene, creating it on first use.
func (r *Scenes) Get(session string) *Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.scenes[session]
	if !ok {
		sc = NewScene()
		r.scenes[session] = sc
	}
	return sc
}
