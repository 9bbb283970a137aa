package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/vntrieu/werewolf/internal/auth"
	"github.com/vntrieu/werewolf/internal/log"
)

// contextKey type for request context keys (avoids collisions with other packages).
type contextKey string

// SeatContextKey is the context key for verified seat claims (set by the OptionalSeat middleware).
const SeatContextKey contextKey = "seat"

// SeatFromRequest returns the seat claims set by the seat middleware, or nil for anonymous callers.
func SeatFromRequest(r *http.Request) *auth.Claims {
	if c, ok := r.Context().Value(SeatContextKey).(*auth.Claims); ok {
		return c
	}
	return nil
}

// requestID returns the request ID from chi's context for logging.
func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(middleware.RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func writeJSON(w http.ResponseWriter, r *http.Request, logger *log.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("[%s] encode response error: %v", requestID(r), err)
	}
}
