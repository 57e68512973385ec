package httpapi

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

type RateLimitConfig struct {
	Window time.Duration
	Max    int
}

// RateLimiter is a fixed-window per-IP-per-endpoint throttle, local to
// this process. Windows are approximate: a burst straddling a window
// boundary can briefly pass close to twice the nominal rate, the price
// of O(1) state per key. Expired windows are swept opportunistically so
// the map stays bounded by currently active clients.
type RateLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	entries   map[string]*window
	lastSweep time.Time
}

type window struct {
	start time.Time
	count int
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Window <= 0 {
		cfg.Window = 10 * time.Second
	}
	if cfg.Max <= 0 {
		cfg.Max = 20
	}
	return &RateLimiter{
		window:  cfg.Window,
		max:     cfg.Max,
		entries: make(map[string]*window),
	}
}

func (l *RateLimiter) Allow(clientIP, label string) bool {
	key := label + "|" + clientIP

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
		l.lastSweep = now
	}

	entry, ok := l.entries[key]
	if !ok || now.Sub(entry.start) >= l.window {
		l.entries[key] = &window{start: now, count: 1}
		return true
	}
	entry.count++
	return entry.count <= l.max
}

func (l *RateLimiter) sweep(now time.Time) {
	for key, entry := range l.entries {
		if now.Sub(entry.start) >= l.window {
			delete(l.entries, key)
		}
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r), routeLabel(r)) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// routeLabel keys the limiter on method plus the first two path
// segments, so /api/orders/{id}/status counts against /api/orders
// rather than one window per order id.
func routeLabel(r *http.Request) string {
	parts := strings.SplitN(strings.Trim(r.URL.Path, "/"), "/", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return r.Method + " /" + strings.Join(parts, "/")
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
