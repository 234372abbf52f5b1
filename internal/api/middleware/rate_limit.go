package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// visitor tracks remaining tokens for one client within the current window.
type visitor struct {
	tokens    int
	lastReset time.Time
}

// RateLimiter implements fixed-window per-IP rate limiting.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	stopCh   chan struct{}
}

// NewRateLimiter creates a limiter allowing rate requests per window and
// starts its cleanup loop.
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// allow consumes one token for the client, resetting the window if it
// has elapsed.
func (rl *RateLimiter) allow(identifier string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, exists := rl.visitors[identifier]
	if !exists || now.Sub(v.lastReset) > rl.window {
		rl.visitors[identifier] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}

	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// Limit rejects over-limit clients with 429.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","message":"Rate limit exceeded. Try again later."}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stop shuts down the cleanup loop.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// cleanup drops clients whose window expired long ago so the map does
// not grow without bound.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			threshold := rl.window * 2
			now := time.Now()
			for id, v := range rl.visitors {
				if now.Sub(v.lastReset) > threshold {
					delete(rl.visitors, id)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
