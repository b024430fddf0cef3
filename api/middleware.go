package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// pruneThreshold is the minimum tracked-IP count before a prune pass runs.
	pruneThreshold = 500
	// idleExpiry is how long an IP may go without an entry attempt before its
	// limiter is eligible for pruning.
	idleExpiry = 10 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter bounds per-IP entry attempts. Entries are open to anyone with
// a funded account, so the entry endpoint is the one surface worth
// throttling; reads stay unthrottled. Stale visitors are pruned inline
// instead of on a background ticker.
type IPRateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
}

// NewIPRateLimiter creates a limiter allowing limit entry attempts per second
// with the given burst per IP.
func NewIPRateLimiter(limit rate.Limit, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
	}
}

// GetLimiter returns the rate.Limiter for the given IP, pruning idle visitors
// once the map grows past pruneThreshold.
func (l *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.visitors) > pruneThreshold {
		cutoff := time.Now().Add(-idleExpiry)
		for addr, v := range l.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(l.visitors, addr)
			}
		}
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()

	return v.limiter
}

// RateLimitMiddleware rejects requests over the per-IP limit with 429.
func RateLimitMiddleware(limiter *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !limiter.GetLimiter(ip).Allow() {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
