package mapview

import "github.com/jordanlanch/prospectroute/pkg/models"

// DefaultStatusColor is used for statuses missing from the palette.
const DefaultStatusColor = "#6B7280"

var statusColors = map[models.ProspectStatus]string{
	models.StatusNew:       "#3B82F6",
	models.StatusContacted: "#F59E0B",
	models.StatusMeeting:   "#8B5CF6",
	models.StatusProposal:  "#EC4899",
	models.StatusWon:       "#10B981",
	models.StatusLost:      "#EF4444",
}

// StatusColor returns the marker color for a prospect status.
func StatusColor(status models.ProspectStatus) string {
	if c, ok := statusColors[status]; ok {
		return c
	}
	return DefaultStatusColor
}

// RouteLineColor and RouteStopColor style the planned route.
const (
	RouteLineColor = "#2563EB"
	RouteStopColor = "#1D4ED8"
)
