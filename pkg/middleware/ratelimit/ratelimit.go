package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/noah-isme/schedule-browser/pkg/config"
	appErrors "github.com/noah-isme/schedule-browser/pkg/errors"
	"github.com/noah-isme/schedule-browser/pkg/response"
)

const staleAfter = 10 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// store maps client keys to token buckets. Entries unseen for staleAfter are
// swept on access.
type store struct {
	mu        sync.Mutex
	entries   map[string]*entry
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newStore(limit rate.Limit, burst int, now func() time.Time) *store {
	return &store{
		entries:   make(map[string]*entry),
		limit:     limit,
		burst:     burst,
		lastSweep: now(),
		now:       now,
	}
}

func (s *store) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > staleAfter {
		cutoff := now.Add(-staleAfter)
		for k, e := range s.entries {
			if e.lastSeen.Before(cutoff) {
				delete(s.entries, k)
			}
		}
		s.lastSweep = now
	}

	e, ok := s.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (s *store) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// New returns a per-client token bucket limiter. Preflight requests and the
// skipped routes are never limited.
func New(cfg config.RateLimitConfig, skip ...string) gin.HandlerFunc {
	return newMiddleware(cfg, time.Now, skip...)
}

func newMiddleware(cfg config.RateLimitConfig, now func() time.Time, skip ...string) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	skipped := make(map[string]struct{}, len(skip))
	for _, route := range skip {
		skipped[route] = struct{}{}
	}
	buckets := newStore(rate.Limit(cfg.RPS), cfg.Burst, now)

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if _, ok := skipped[c.FullPath()]; ok {
			c.Next()
			return
		}

		if !buckets.allow("ip:" + c.ClientIP()) {
			c.Header("Retry-After", "1")
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
