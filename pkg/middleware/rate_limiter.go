package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const visitorIdle = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(c echo.Context) string

// RateLimiter holds one token bucket per caller key.
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	r        rate.Limit // requests per second
	b        int        // burst
	key      KeyFunc
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

// NewRateLimiter creates a limiter keyed by CallerKey
func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		r:        rate.Limit(float64(requestsPerMinute) / 60.0),
		b:        burst,
		key:      CallerKey,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go rl.cleanupVisitors()
	return rl
}

// KeyBy replaces the function that picks a request's bucket.
func (rl *RateLimiter) KeyBy(fn KeyFunc) *RateLimiter {
	rl.key = fn
	return rl
}

// Close stops the background cleanup
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

// GetLimiter returns the limiter for key
func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.r, rl.b)}
		rl.visitors[key] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

func (rl *RateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(visitorIdle)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

// evictIdle drops buckets unused for longer than visitorIdle and returns how
// many remain.
func (rl *RateLimiter) evictIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorIdle {
			delete(rl.visitors, key)
		}
	}
	return len(rl.visitors)
}

// Take consumes a token for key. When none is available it returns false and
// the wait until the next one.
func (rl *RateLimiter) Take(key string) (bool, time.Duration) {
	limiter := rl.GetLimiter(key)
	now := rl.now()
	res := limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Minute
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// CallerKey charges authenticated requests to their user and anonymous ones
// to their IP. The user is only known behind the JWT middleware.
func CallerKey(c echo.Context) string {
	if id, ok := c.Get("user_id").(int); ok && id > 0 {
		return "user:" + strconv.Itoa(id)
	}
	return IPKey(c)
}

// IPKey charges every request to the client IP.
func IPKey(c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = c.Request().RemoteAddr
	}
	return "ip:" + ip
}

// RateLimitMiddleware rejects callers over their budget with 429 and a
// Retry-After header in whole seconds.
func (rl *RateLimiter) RateLimitMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, wait := rl.Take(rl.key(c))
			if !ok {
				seconds := int(math.Ceil(wait.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
				return c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
					Error:      "rate_limit_exceeded",
					Message:    "Too many requests. Please try again later.",
					RetryAfter: seconds,
				})
			}
			return next(c)
		}
	}
}

// PerEndpointRateLimiter keeps a separate RateLimiter per "METHOD route".
// Mounted behind the JWT middleware, its buckets are per user.
type PerEndpointRateLimiter struct {
	limiters map[string]*RateLimiter
	mu       sync.Mutex
	defaultR int
	defaultB int
	now      func() time.Time
}

// NewPerEndpointRateLimiter creates a rate limiter with custom limits per endpoint
func NewPerEndpointRateLimiter(requestsPerMinute, burst int) *PerEndpointRateLimiter {
	return &PerEndpointRateLimiter{
		limiters: make(map[string]*RateLimiter),
		defaultR: requestsPerMinute,
		defaultB: burst,
		now:      time.Now,
	}
}

func (perl *PerEndpointRateLimiter) newLimiter(requestsPerMinute, burst int) *RateLimiter {
	rl := NewRateLimiter(requestsPerMinute, burst)
	rl.now = perl.now
	return rl
}

// SetEndpointLimit sets a custom limit for "METHOD /route/path"
func (perl *PerEndpointRateLimiter) SetEndpointLimit(endpoint string, requestsPerMinute, burst int) {
	perl.mu.Lock()
	defer perl.mu.Unlock()

	if old, ok := perl.limiters[endpoint]; ok {
		old.Close()
	}
	perl.limiters[endpoint] = perl.newLimiter(requestsPerMinute, burst)
}

// Close stops every endpoint limiter
func (perl *PerEndpointRateLimiter) Close() {
	perl.mu.Lock()
	defer perl.mu.Unlock()
	for _, rl := range perl.limiters {
		rl.Close()
	}
}

// RateLimitMiddleware creates middleware with endpoint-specific limits
func (perl *PerEndpointRateLimiter) RateLimitMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			endpoint := c.Request().Method + " " + c.Path()

			perl.mu.Lock()
			limiter, exists := perl.limiters[endpoint]
			if !exists {
				limiter = perl.newLimiter(perl.defaultR, perl.defaultB)
				perl.limiters[endpoint] = limiter
			}
			perl.mu.Unlock()

			return limiter.RateLimitMiddleware()(next)(c)
		}
	}
}
