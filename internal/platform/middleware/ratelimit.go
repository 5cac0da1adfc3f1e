package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/AminoVic23/PHC-4/internal/platform/auth"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// minIdleTTL is how long an unused limiter is kept at least.
const minIdleTTL = 3 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore holds one limiter per client key. Limiters idle for longer
// than idleTTL are dropped; idleTTL is never shorter than a full refill, so a
// dropped limiter was full and recreating it admits nothing extra.
type limiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	config    RateLimitConfig
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	ttl := minIdleTTL
	if cfg.RequestsPerSecond > 0 {
		refill := time.Duration(float64(cfg.BurstSize) / cfg.RequestsPerSecond * float64(time.Second))
		ttl = max(ttl, refill)
	}
	return &limiterStore{
		limiters:  make(map[string]*limiterEntry),
		config:    cfg,
		idleTTL:   ttl,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Sub(s.lastSweep) >= s.idleTTL {
		s.sweep(now)
	}
	e, ok := s.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(s.config.RequestsPerSecond), s.config.BurstSize)}
		s.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// sweep drops idle limiters. The caller holds mu.
func (s *limiterStore) sweep(now time.Time) {
	for k, e := range s.limiters {
		if now.Sub(e.lastSeen) >= s.idleTTL {
			delete(s.limiters, k)
		}
	}
	s.lastSweep = now
}

func (s *limiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// retryAfter returns whole seconds until l admits another request.
func retryAfter(l *rate.Limiter, now time.Time) int {
	if l.Limit() <= 0 {
		return 1
	}
	r := l.ReserveN(now, 1)
	defer r.CancelAt(now)
	if !r.OK() {
		return 1
	}
	secs := int(math.Ceil(r.DelayFrom(now).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// clientKey identifies the caller: the authenticated actor when known,
// otherwise the remote address.
func clientKey(c echo.Context) string {
	if id := auth.ActorIDFromContext(c.Request().Context()); id != uuid.Nil {
		return "actor:" + id.String()
	}
	return "ip:" + c.RealIP()
}

// RateLimit returns a per-client rate limiting middleware.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newLimiterStore(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := store.get(clientKey(c))
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limitHeader)

			now := time.Now()
			if !l.AllowN(now, 1) {
				h.Set("Retry-After", strconv.Itoa(retryAfter(l, now)))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
