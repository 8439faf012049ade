package models

// RouteStop is one visited prospect in an optimized route.
type RouteStop struct {
	ProspectID           int        `json:"prospect_id"`
	Name                 string     `json:"name"`
	Address              string     `json:"address"`
	DurationFromPrevious float64    `json:"duration_from_previous"` // seconds
	Location             Coordinate `json:"location"`
}
