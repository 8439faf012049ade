package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedLimiter(t *testing.T, perMinute, burst int) (*RateLimiter, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(perMinute, burst)
	rl.now = clk.now
	t.Cleanup(rl.Close)
	return rl, clk
}

type limitedCall struct {
	method, path, route string
	ip                  string
	userID              int
}

func serveLimited(t *testing.T, mw echo.MiddlewareFunc, call limitedCall) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	method := call.method
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, call.path, nil)
	req.RemoteAddr = call.ip + ":40000"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(call.route)
	if call.userID > 0 {
		c.Set("user_id", call.userID)
	}
	require.NoError(t, mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c))
	return rec
}

func TestRateLimiter_TakeRefillsOverTime(t *testing.T) {
	// 30/min refills one token every 2s.
	rl, clk := newClockedLimiter(t, 30, 2)

	for i := 0; i < 2; i++ {
		ok, wait := rl.Take("ip:10.0.0.1")
		require.True(t, ok, "burst request %d", i+1)
		assert.Zero(t, wait)
	}

	ok, wait := rl.Take("ip:10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, 2*time.Second, wait)

	clk.advance(time.Second)
	ok, wait = rl.Take("ip:10.0.0.1")
	assert.False(t, ok, "a rejected Take does not consume a token")
	assert.Equal(t, time.Second, wait)

	clk.advance(time.Second)
	ok, _ = rl.Take("ip:10.0.0.1")
	assert.True(t, ok)

	ok, _ = rl.Take("ip:10.0.0.2")
	assert.True(t, ok, "keys have independent buckets")
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	rl, clk := newClockedLimiter(t, 60, 1)

	rl.GetLimiter("ip:a")
	clk.advance(2 * time.Minute)
	rl.GetLimiter("ip:b")
	assert.Equal(t, 2, rl.evictIdle())

	clk.advance(visitorIdle - time.Minute + time.Second)
	assert.Equal(t, 1, rl.evictIdle(), "a is idle past the window, b is not")

	rl.mu.Lock()
	_, hasA := rl.visitors["ip:a"]
	_, hasB := rl.visitors["ip:b"]
	rl.mu.Unlock()
	assert.False(t, hasA)
	assert.True(t, hasB)

	// An evicted caller starts over with a full bucket.
	ok, _ := rl.Take("ip:a")
	assert.True(t, ok)
}

func TestRateLimitMiddleware_RetryAfter(t *testing.T) {
	rl, clk := newClockedLimiter(t, 2, 1)
	mw := rl.RateLimitMiddleware()
	call := limitedCall{path: "/health", ip: "192.168.1.1"}

	assert.Equal(t, http.StatusOK, serveLimited(t, mw, call).Code)

	rec := serveLimited(t, mw, call)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_exceeded", body.Error)
	assert.Equal(t, 30, body.RetryAfter)

	clk.advance(29*time.Second + 500*time.Millisecond)
	rec = serveLimited(t, mw, call)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"), "partial seconds round up")

	clk.advance(time.Second)
	assert.Equal(t, http.StatusOK, serveLimited(t, mw, call).Code)
}

func TestRateLimitMiddleware_Keys(t *testing.T) {
	tests := []struct {
		name       string
		keyBy      KeyFunc
		second     limitedCall
		wantSecond int
	}{
		{
			name:       "caller key separates users behind one IP",
			keyBy:      CallerKey,
			second:     limitedCall{ip: "10.0.0.1", userID: 2},
			wantSecond: http.StatusOK,
		},
		{
			name:       "caller key charges the same user across IPs",
			keyBy:      CallerKey,
			second:     limitedCall{ip: "10.9.9.9", userID: 1},
			wantSecond: http.StatusTooManyRequests,
		},
		{
			name:       "ip key ignores the user",
			keyBy:      IPKey,
			second:     limitedCall{ip: "10.0.0.1", userID: 2},
			wantSecond: http.StatusTooManyRequests,
		},
		{
			name:       "anonymous callers are charged by IP",
			keyBy:      CallerKey,
			second:     limitedCall{ip: "10.0.0.2"},
			wantSecond: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl, _ := newClockedLimiter(t, 1, 1)
			mw := rl.KeyBy(tt.keyBy).RateLimitMiddleware()

			first := limitedCall{path: "/api/v1/routes", ip: "10.0.0.1", userID: 1}
			if tt.second.userID == 0 {
				first.userID = 0
			}
			require.Equal(t, http.StatusOK, serveLimited(t, mw, first).Code)

			tt.second.path = "/api/v1/routes"
			assert.Equal(t, tt.wantSecond, serveLimited(t, mw, tt.second).Code)
		})
	}
}

func TestPerEndpointRateLimiter(t *testing.T) {
	clk := &clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	perl := NewPerEndpointRateLimiter(60, 5)
	perl.now = clk.now
	perl.SetEndpointLimit("POST /api/v1/routes", 10, 2)
	t.Cleanup(perl.Close)
	mw := perl.RateLimitMiddleware()

	plan := limitedCall{method: http.MethodPost, path: "/api/v1/routes", route: "/api/v1/routes", ip: "10.0.0.1", userID: 7}
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, serveLimited(t, mw, plan).Code, "burst request %d", i+1)
	}
	rec := serveLimited(t, mw, plan)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "6", rec.Header().Get("Retry-After"), "10/min refills every 6s")

	// Other routes and methods draw from their own budgets.
	clear := plan
	clear.method = http.MethodDelete
	assert.Equal(t, http.StatusOK, serveLimited(t, mw, clear).Code)

	popup := limitedCall{path: "/api/v1/map/prospects/3/popup", route: "/api/v1/map/prospects/:id/popup", ip: "10.0.0.1", userID: 7}
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, serveLimited(t, mw, popup).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, serveLimited(t, mw, popup).Code)

	// Another user planning a route is unaffected.
	other := plan
	other.userID = 8
	assert.Equal(t, http.StatusOK, serveLimited(t, mw, other).Code)

	clk.advance(7 * time.Second)
	assert.Equal(t, http.StatusOK, serveLimited(t, mw, plan).Code)
}

func TestPerEndpointRateLimiter_ReplacingLimit(t *testing.T) {
	perl := NewPerEndpointRateLimiter(60, 5)
	t.Cleanup(perl.Close)

	perl.SetEndpointLimit("POST /api/v1/routes", 10, 1)
	perl.SetEndpointLimit("POST /api/v1/routes", 10, 3)
	mw := perl.RateLimitMiddleware()

	plan := limitedCall{method: http.MethodPost, path: "/api/v1/routes", route: "/api/v1/routes", ip: "10.0.0.1"}
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serveLimited(t, mw, plan).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, serveLimited(t, mw, plan).Code)
}
