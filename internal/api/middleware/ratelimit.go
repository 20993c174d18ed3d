package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter throttles requests per client IP over a fixed window. It
// fronts the login endpoint so credential guessing exhausts the window, not
// the bcrypt budget. State is in-process only and resets on restart.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*ipWindow
}

// ipWindow counts hits from one client until resetAt passes.
type ipWindow struct {
	hits    int
	resetAt time.Time
}

// NewRateLimiter allows up to limit requests per window per client IP.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]*ipWindow),
	}
	go rl.sweep()
	return rl
}

// sweep drops expired windows so idle clients do not accumulate.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		rl.mu.Lock()
		for ip, win := range rl.windows {
			if now.After(win.resetAt) {
				delete(rl.windows, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Handler enforces the limit. RealIP runs earlier in the chain, so
// RemoteAddr holds the actual client address rather than a proxy's.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		retryAfter, ok := rl.take(r.RemoteAddr)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many attempts, try again later"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// take records one hit and reports whether it stays within the limit,
// returning the whole seconds left in the window when it does not.
func (rl *RateLimiter) take(ip string) (int, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	win, ok := rl.windows[ip]
	if !ok || now.After(win.resetAt) {
		win = &ipWindow{resetAt: now.Add(rl.window)}
		rl.windows[ip] = win
	}
	win.hits++
	if win.hits > rl.limit {
		return int(win.resetAt.Sub(now).Seconds()) + 1, false
	}
	return 0, true
}

// RateLimitEntry is one client's live window, as shown in the admin view.
type RateLimitEntry struct {
	IP      string    `json:"ip"`
	Count   int       `json:"count"`
	ResetAt time.Time `json:"reset_at"`
}

// RateLimitStatus is the admin view of the limiter.
type RateLimitStatus struct {
	Limit   int              `json:"limit"`
	Window  string           `json:"window"`
	Entries []RateLimitEntry `json:"entries"`
}

// Status lists the windows that have not yet expired.
func (rl *RateLimiter) Status() RateLimitStatus {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entries := make([]RateLimitEntry, 0, len(rl.windows))
	for ip, win := range rl.windows {
		if now.Before(win.resetAt) {
			entries = append(entries, RateLimitEntry{IP: ip, Count: win.hits, ResetAt: win.resetAt})
		}
	}
	return RateLimitStatus{Limit: rl.limit, Window: rl.window.String(), Entries: entries}
}

// Clear forgets all windows, lifting any active blocks immediately.
func (rl *RateLimiter) Clear() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.windows = make(map[string]*ipWindow)
}
