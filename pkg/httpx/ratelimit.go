package httpx

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ledgerworks/stitchlink/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines a token-bucket limit applied per client IP.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// LoginLimit guards the endpoints that kick off an authorization flow; each
// hit writes a pending request to the store, so it stays tight.
var LoginLimit = RateLimitConfig{
	RequestsPerWindow: 10,
	Window:            time.Minute,
	Burst:             10,
}

type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	lastSeen map[string]time.Time
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.lastSeen[ip] = now

	if lim, ok := l.limiters[ip]; ok {
		return lim
	}

	// Evict stale entries so the map does not grow without bound.
	for key, seen := range l.lastSeen {
		if now.Sub(seen) > 10*time.Minute {
			delete(l.limiters, key)
			delete(l.lastSeen, key)
		}
	}

	lim := rate.NewLimiter(l.rate, l.burst)
	l.limiters[ip] = lim
	return lim
}

// RateLimitByIP limits requests per client IP using the given config.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	l := &ipLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:    cfg.Burst,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !l.get(ip).Allow() {
				slogx.FromContext(r.Context()).Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error":             "rate_limit_exceeded",
					"error_description": "too many requests, try again later",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
