package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per client key (the client IP, as
// resolved by chi's RealIP middleware upstream). Buckets idle past the
// reaping window are dropped so the map stays bounded.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client

	limit rate.Limit
	burst int
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const reapAfter = 10 * time.Minute

// NewRateLimiter creates a limiter allowing limit events per second with
// the given burst, per client.
func NewRateLimiter(limit rate.Limit, burst int) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*client),
		limit:   limit,
		burst:   burst,
	}
	go rl.reap()
	return rl
}

// PerMinute is a convenience constructor for "n requests per minute" limits.
func PerMinute(n int) *RateLimiter {
	return NewRateLimiter(rate.Limit(float64(n)/60), n)
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow()
}

func (rl *RateLimiter) reap() {
	for {
		time.Sleep(time.Minute)

		rl.mu.Lock()
		for key, c := range rl.clients {
			if time.Since(c.lastSeen) > reapAfter {
				delete(rl.clients, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Handler is the middleware: requests over the client's budget get a 429
// without reaching the handler.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.RemoteAddr) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "too many requests, slow down",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
