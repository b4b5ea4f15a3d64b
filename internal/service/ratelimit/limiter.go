package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter keeps one token bucket per key. Idle keys are swept on access.
type Limiter struct {
	mu     sync.Mutex
	m      map[string]*client
	rps    rate.Limit
	burst  int
	idle   time.Duration
	now    func() time.Time
	lastGC time.Time
}

func New(rps float64, burst int) *Limiter {
	return &Limiter{
		m:     make(map[string]*client),
		rps:   rate.Limit(rps),
		burst: burst,
		idle:  10 * time.Minute,
		now:   time.Now,
	}
}

// Allow consumes one token for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	c, ok := l.m[key]
	if !ok {
		c = &client{lim: rate.NewLimiter(l.rps, l.burst)}
		l.m[key] = c
	}
	c.seen = now
	if now.Sub(l.lastGC) > l.idle {
		l.sweepLocked(now)
	}
	lim := c.lim
	l.mu.Unlock()

	return lim.AllowN(now, 1)
}

func (l *Limiter) sweepLocked(now time.Time) {
	for k, c := range l.m {
		if now.Sub(c.seen) > l.idle {
			delete(l.m, k)
		}
	}
	l.lastGC = now
}

// Middleware rejects requests over the per-client budget with 429.
// The key is the learner path parameter when present, else the client IP.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if id := c.Param("id"); id != "" {
				key = "learner:" + id
			}
			if !l.Allow(key) {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}
