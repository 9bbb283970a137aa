package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/vntrieu/werewolf/internal/auth"
	"github.com/vntrieu/werewolf/internal/httpapi/handler"
	"github.com/vntrieu/werewolf/internal/ratelimit"
	"github.com/vntrieu/werewolf/internal/websocket"
)

// RateLimitMiddleware returns a middleware that limits by key extracted from the request (e.g. IP).
// When over limit, responds with 429 and optional Retry-After header.
func RateLimitMiddleware(limiter ratelimit.Limiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				key = "unknown"
			}
			allowed, retryAfter := limiter.Allow(key)
			if !allowed {
				if retryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				}
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitKeyByIP returns the client IP from the request (using X-Real-IP / X-Forwarded-For when set).
func RateLimitKeyByIP(r *http.Request) string {
	if x := r.Header.Get("X-Real-IP"); x != "" {
		return x
	}
	if x := r.Header.Get("X-Forwarded-For"); x != "" {
		first, _, _ := strings.Cut(x, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}

// DefaultMaxBodyBytes caps JSON request bodies.
const DefaultMaxBodyBytes = 1 << 20 // 1MB

// LimitRequestBody returns middleware that limits request body size; over-size requests get 413.
func LimitRequestBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// OptionalSeat returns middleware that reads a seat token from the Authorization Bearer header
// (or ?token=) and, if valid, stores its claims under handler.SeatContextKey. Requests without a
// token continue anonymously; a token that does not verify gets 401.
func OptionalSeat(tokenSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := websocket.TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(tokenSecret) == 0 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			claims, err := auth.VerifySeatToken(token, tokenSecret)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), handler.SeatContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
