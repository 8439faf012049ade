package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jordanlanch/prospectroute/pkg/cache"
	"github.com/jordanlanch/prospectroute/pkg/database"
	"github.com/jordanlanch/prospectroute/pkg/database/dbtest"
	"github.com/jordanlanch/prospectroute/pkg/identity"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/jordanlanch/prospectroute/pkg/prospects"
	"github.com/jordanlanch/prospectroute/pkg/routing"
	"github.com/labstack/echo/v4"
	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// team is a rep reporting to a supervisor, an admin, and an unrelated rep.
type team struct {
	db    *database.Client
	repo  *prospects.Repository
	cache *cache.Client
	mr    *miniredis.Miniredis

	rep, supervisor, admin, outsider identity.Identity
}

func setupTeam(t *testing.T) *team {
	t.Helper()
	db := dbtest.Open(t)

	sup := dbtest.CreateUser(t, db, "sup@test.com", string(models.RoleSupervisor), nil)
	rep := dbtest.CreateUser(t, db, "rep@test.com", string(models.RoleUser), &sup)
	admin := dbtest.CreateUser(t, db, "admin@test.com", string(models.RoleAdmin), nil)
	outsider := dbtest.CreateUser(t, db, "outsider@test.com", string(models.RoleUser), nil)

	mr := miniredis.RunT(t)
	c := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { c.Close() })

	return &team{
		db:         db,
		repo:       prospects.NewRepository(db),
		cache:      c,
		mr:         mr,
		rep:        identity.Identity{UserID: rep, Email: "rep@test.com", Role: models.RoleUser},
		supervisor: identity.Identity{UserID: sup, Email: "sup@test.com", Role: models.RoleSupervisor},
		admin:      identity.Identity{UserID: admin, Email: "admin@test.com", Role: models.RoleAdmin},
		outsider:   identity.Identity{UserID: outsider, Email: "outsider@test.com", Role: models.RoleUser},
	}
}

func (tm *team) prospect(t *testing.T, owner identity.Identity, name, address string) *models.Prospect {
	t.Helper()
	p, err := tm.repo.Create(context.Background(), &models.Prospect{
		UserID:       owner.UserID,
		BusinessName: name,
		Address:      address,
	})
	require.NoError(t, err)
	return p
}

// newContext builds an echo context for caller; a nil caller is anonymous.
func newContext(method, target, body string, caller *identity.Identity) (echo.Context, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if caller != nil {
		req = req.WithContext(identity.WithIdentity(req.Context(), *caller))
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type fakeGeocoder struct {
	mu     sync.Mutex
	coords map[string]models.Coordinate
	places map[models.Coordinate]string
	err    error
}

func (f *fakeGeocoder) Forward(ctx context.Context, address string) (*models.Coordinate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.coords[address]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeGeocoder) Reverse(ctx context.Context, coord models.Coordinate) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.places[coord], nil
}

// inputOrderOptimizer visits destinations in the order given; every leg
// takes one minute.
type inputOrderOptimizer struct {
	err error
}

func (o *inputOrderOptimizer) OptimizeTrip(ctx context.Context, coords []models.Coordinate) (*routing.Result, error) {
	if o.err != nil {
		return nil, o.err
	}
	res := &routing.Result{}
	for i, c := range coords {
		res.Waypoints = append(res.Waypoints, routing.Waypoint{WaypointIndex: i, Location: c})
		res.Trip.Geometry = append(res.Trip.Geometry, orb.Point{c.Lng, c.Lat})
		res.Trip.Legs = append(res.Trip.Legs, routing.Leg{Duration: 60, Distance: 1000})
	}
	res.Trip.Distance = float64(1000 * len(coords))
	return res, nil
}
