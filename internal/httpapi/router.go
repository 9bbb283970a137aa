package httpapi

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/vntrieu/werewolf/internal/httpapi/handler"
	"github.com/vntrieu/werewolf/internal/log"
	"github.com/vntrieu/werewolf/internal/ratelimit"
	"github.com/vntrieu/werewolf/internal/runner"
	"github.com/vntrieu/werewolf/internal/store"
	"github.com/vntrieu/werewolf/internal/websocket"
)

//go:embed openapi.json
var openAPIDoc []byte

// Deps are the services the router serves.
type Deps struct {
	Store  store.Store
	Runner *runner.Manager
	// Hub streams entries over /ws/games/{id}; the caller runs it.
	Hub *websocket.Hub
	// TokenSecret signs seat tokens; if empty, created games carry no tokens and every reader is a spectator.
	TokenSecret []byte
	// RateLimiter limits game creation per IP; nil disables it.
	RateLimiter ratelimit.Limiter
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
	Logger         *log.Logger
}

// NewRouter builds the root HTTP router with basic middleware, health check, API docs,
// game routes and the game WebSocket.
func NewRouter(deps Deps) http.Handler {
	rateLimiter := deps.RateLimiter
	if rateLimiter == nil {
		rateLimiter = &ratelimit.Noop{}
	}
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", handler.Healthz)

	// Swagger UI over the embedded OpenAPI document
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/", http.StatusMovedPermanently)
	})
	r.Get("/docs/doc.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(openAPIDoc)
	})
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	rateLimitByIP := RateLimitMiddleware(rateLimiter, RateLimitKeyByIP)

	gameHandler := handler.NewGameHandler(deps.Runner, deps.Store, deps.TokenSecret, deps.Logger)
	r.Route("/api/games", func(r chi.Router) {
		r.Use(LimitRequestBody(DefaultMaxBodyBytes))
		r.With(rateLimitByIP).Post("/", gameHandler.CreateGame)
		r.Get("/", gameHandler.ListGames)
		r.Get("/{id}", gameHandler.GetGame)
		r.Delete("/{id}", gameHandler.CancelGame)
		r.With(OptionalSeat(deps.TokenSecret)).Get("/{id}/events", gameHandler.GetGameEvents)
	})

	if deps.Hub != nil {
		wsHandler := websocket.NewWSHandler(deps.Hub, deps.Store, deps.TokenSecret)
		r.Get("/ws/games/{id}", wsHandler.HandleGameWebSocket)
	}

	return r
}

// DefaultRateLimiter allows perMinute game creations per IP per minute; perMinute <= 0 disables the limit.
func DefaultRateLimiter(perMinute int) ratelimit.Limiter {
	if perMinute <= 0 {
		return &ratelimit.Noop{}
	}
	return ratelimit.NewTokenBucket(perMinute, time.Minute)
}
