package models

import (
	"strings"
	"time"
)

// ProspectStatus is a pipeline stage.
type ProspectStatus string

const (
	StatusNew       ProspectStatus = "New"
	StatusContacted ProspectStatus = "Contacted"
	StatusMeeting   ProspectStatus = "Meeting"
	StatusProposal  ProspectStatus = "Proposal"
	StatusWon       ProspectStatus = "Won"
	StatusLost      ProspectStatus = "Lost"
)

// ProspectStatuses lists every pipeline stage in order.
var ProspectStatuses = []ProspectStatus{
	StatusNew, StatusContacted, StatusMeeting, StatusProposal, StatusWon, StatusLost,
}

// Valid reports whether s is a known status.
func (s ProspectStatus) Valid() bool {
	for _, known := range ProspectStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ProspectPriority ranks prospects.
type ProspectPriority string

const (
	PriorityLow    ProspectPriority = "Low"
	PriorityMedium ProspectPriority = "Medium"
	PriorityHigh   ProspectPriority = "High"
)

// Valid reports whether p is a known priority.
func (p ProspectPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Coordinate is a WGS84 position in longitude/latitude order.
type Coordinate struct {
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
}

// Prospect is a business lead tracked through the pipeline.
type Prospect struct {
	ID           int                `json:"id"`
	UserID       int                `json:"user_id"`
	BusinessName string             `json:"business_name"`
	Address      string             `json:"address"`
	Phone        string             `json:"phone,omitempty"`
	Email        string             `json:"email,omitempty"`
	Website      string             `json:"website,omitempty"`
	Status       ProspectStatus     `json:"status"`
	Priority     ProspectPriority   `json:"priority"`
	Territory    string             `json:"territory,omitempty"`
	LastContact  *time.Time         `json:"last_contact,omitempty"`
	ActivityLog  []ActivityLogEntry `json:"activity_log"`
	Version      int                `json:"-"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// HasAddress reports whether the prospect carries a geocodable address.
func (p Prospect) HasAddress() bool {
	return strings.TrimSpace(p.Address) != ""
}
