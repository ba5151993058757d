package api

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/packing-audit/internal/errors"
)

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	limiters map[string]*visitor
	mu       sync.Mutex

	limit      rate.Limit
	burstSize  int
	idleTTL    time.Duration
	sweepEvery time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second per IP
// with bursts of burst requests.
func NewRateLimiter(rps, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = rps * 2
	}
	return &RateLimiter{
		limiters:   make(map[string]*visitor),
		limit:      rate.Limit(rps),
		burstSize:  burst,
		idleTTL:    10 * time.Minute,
		sweepEvery: time.Minute,
		lastSweep:  time.Now(),
		now:        time.Now,
	}
}

// getLimiter returns the limiter for key. Idle visitors are evicted at most
// once per sweepEvery.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.limiters[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burstSize)}
		rl.limiters[key] = v
	}
	v.lastSeen = now

	if now.Sub(rl.lastSweep) >= rl.sweepEvery {
		rl.sweep(now)
	}
	return v.limiter
}

// sweep drops visitors idle for longer than idleTTL. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, other := range rl.limiters {
		if now.Sub(other.lastSeen) > rl.idleTTL {
			delete(rl.limiters, k)
		}
	}
	rl.lastSweep = now
}

// RateLimitMiddleware creates a middleware that enforces rate limiting
func (s *Server) RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := rl.getLimiter(s.proxies.clientIP(r))
			if !limiter.Allow() {
				retryAfter := int(math.Max(1, math.Ceil(1/float64(limiter.Limit()))))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				s.respondError(w, r, apperrors.NewRateLimitError(retryAfter))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
