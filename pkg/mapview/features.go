package mapview

import (
	"time"

	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/jordanlanch/prospectroute/pkg/phone"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ProspectFeature renders a placed prospect as a colored point.
func ProspectFeature(p *models.Prospect, at models.Coordinate) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{at.Lng, at.Lat})
	f.ID = p.ID
	f.Properties["prospect_id"] = p.ID
	f.Properties["name"] = p.BusinessName
	f.Properties["address"] = p.Address
	f.Properties["status"] = string(p.Status)
	f.Properties["priority"] = string(p.Priority)
	f.Properties["color"] = StatusColor(p.Status)
	if p.Territory != "" {
		f.Properties["territory"] = p.Territory
	}
	if p.Phone != "" {
		f.Properties["phone"] = phone.Display(p.Phone, phone.DefaultRegion)
	}
	if p.LastContact != nil {
		f.Properties["last_contact"] = p.LastContact.UTC().Format(time.RFC3339)
	}
	return f
}

// Popup is the summary shown when a single marker is clicked.
type Popup struct {
	ProspectID  int               `json:"prospect_id"`
	Name        string            `json:"name"`
	Address     string            `json:"address"`
	Status      string            `json:"status"`
	Priority    string            `json:"priority"`
	Color       string            `json:"color"`
	Phone       string            `json:"phone,omitempty"`
	Territory   string            `json:"territory,omitempty"`
	LastContact string            `json:"last_contact,omitempty"`
	Position    models.Coordinate `json:"position"`
}

// Popup looks up a placed prospect in the prospects source. ok is false when
// the prospect is not on the map.
func (s *Scene) Popup(prospectID int) (Popup, bool) {
	fc := s.Source(SourceProspects)
	if fc == nil {
		return Popup{}, false
	}
	for _, f := range fc.Features {
		if propInt(f, "prospect_id") != prospectID {
			continue
		}
		pt, _ := f.Geometry.(orb.Point)
		str := func(k string) string {
			v, _ := f.Properties[k].(string)
			return v
		}
		return Popup{
			ProspectID:  prospectID,
			Name:        str("name"),
			Address:     str("address"),
			Status:      str("status"),
			Priority:    str("priority"),
			Color:       str("color"),
			Phone:       str("phone"),
			Territory:   str("territory"),
			LastContact: str("last_contact"),
			Position:    models.Coordinate{Lng: pt[0], Lat: pt[1]},
		}, true
	}
	return Popup{}, false
}
