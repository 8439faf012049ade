package routeplanner

import (
	"testing"

	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/jordanlanch/prospectroute/pkg/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dest(id int, lng, lat float64) destination {
	return destination{prospect: &models.Prospect{ID: id, BusinessName: "P"}, at: models.Coordinate{Lng: lng, Lat: lat}}
}

func TestSelectNearest(t *testing.T) {
	start := models.Coordinate{Lng: 0, Lat: 0}

	t.Run("Under the limit keeps everything", func(t *testing.T) {
		in := []destination{dest(1, 5, 5), dest(2, 1, 1)}
		out, trunc := selectNearest(start, in, 11)
		assert.Equal(t, in, out)
		assert.Nil(t, trunc)
	})

	t.Run("Keeps smallest squared distances in input order", func(t *testing.T) {
		in := []destination{dest(1, 3, 0), dest(2, 1, 0), dest(3, 0, 4), dest(4, 0, 2)}
		out, trunc := selectNearest(start, in, 2)
		require.Len(t, out, 2)
		assert.Equal(t, 2, out[0].prospect.ID)
		assert.Equal(t, 4, out[1].prospect.ID)
		assert.Equal(t, &Truncation{Selected: 2, Eligible: 4, Excluded: 2,
			Message: "Route limited to 2 of 4 prospects (2 excluded)"}, trunc)
	})

	t.Run("Ties keep the earlier input", func(t *testing.T) {
		in := []destination{dest(1, 1, 0), dest(2, 0, 1), dest(3, -1, 0)}
		out, _ := selectNearest(start, in, 2)
		assert.Equal(t, 1, out[0].prospect.ID)
		assert.Equal(t, 2, out[1].prospect.ID)
	})
}

func TestReconstruct(t *testing.T) {
	dests := []destination{dest(10, 1, 0), dest(20, 2, 0), dest(30, 3, 0)}
	res := &routing.Result{
		Trip: routing.Trip{Legs: []routing.Leg{{Duration: 5}, {Duration: 7}, {Duration: 11}, {Duration: 13}}},
		Waypoints: []routing.Waypoint{
			{WaypointIndex: 0},
			{WaypointIndex: 3}, // prospect 10 visited last
			{WaypointIndex: 1}, // prospect 20 first
			{WaypointIndex: 2}, // prospect 30 second
		},
	}

	stops, err := reconstruct(res, dests)
	require.NoError(t, err)
	require.Len(t, stops, 3)
	assert.Equal(t, 20, stops[0].ProspectID)
	assert.Equal(t, 5.0, stops[0].DurationFromPrevious)
	assert.Equal(t, 30, stops[1].ProspectID)
	assert.Equal(t, 7.0, stops[1].DurationFromPrevious)
	assert.Equal(t, 10, stops[2].ProspectID)
	assert.Equal(t, 11.0, stops[2].DurationFromPrevious)
	assert.Equal(t, models.Coordinate{Lng: 1, Lat: 0}, stops[2].Location)

	assert.Equal(t, 36.0, totalDuration(res.Trip.Legs))

	_, err = reconstruct(&routing.Result{Waypoints: res.Waypoints[:2]}, dests)
	assert.Error(t, err)
}

func TestReconstruct_RejectsMissingLegs(t *testing.T) {
	dests := []destination{dest(10, 1, 0), dest(20, 2, 0)}
	waypoints := []routing.Waypoint{{WaypointIndex: 0}, {WaypointIndex: 1}, {WaypointIndex: 2}}

	for name, legs := range map[string][]routing.Leg{
		"no legs":   nil,
		"one short": {{Duration: 5}, {Duration: 7}},
		"one extra": {{Duration: 5}, {Duration: 7}, {Duration: 9}, {Duration: 11}},
	} {
		t.Run(name, func(t *testing.T) {
			stops, err := reconstruct(&routing.Result{
				Trip:      routing.Trip{Legs: legs},
				Waypoints: waypoints,
			}, dests)
			assert.Error(t, err)
			assert.Nil(t, stops)
		})
	}
}
