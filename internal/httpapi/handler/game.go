package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vntrieu/werewolf/internal/auth"
	"github.com/vntrieu/werewolf/internal/games"
	"github.com/vntrieu/werewolf/internal/log"
	"github.com/vntrieu/werewolf/internal/memory"
	"github.com/vntrieu/werewolf/internal/runner"
	"github.com/vntrieu/werewolf/internal/store"
)

// CreateGameRequest is the body for POST /api/games.
type CreateGameRequest struct {
	// Players are display names in seat order; seat ids are 1..N.
	Players []string `json:"players"`
	// Roles maps role name to count (e.g. {"werewolf": 2, "villager": 2}); omitted means the default distribution.
	Roles          map[string]int `json:"roles,omitempty"`
	Seed           *int64         `json:"seed,omitempty"`
	MaxRounds      int            `json:"max_rounds,omitempty"`
	SheriffEnabled *bool          `json:"sheriff_enabled,omitempty"`
}

// SeatResponse is one seat of a new game. Token is the seat's bearer token
// for /events and /ws; it is omitted when the server has no token secret.
type SeatResponse struct {
	PlayerID  int        `json:"player_id"`
	Name      string     `json:"name"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateGameResponse is returned by POST /api/games.
type CreateGameResponse struct {
	GameID string         `json:"game_id"`
	Seed   int64          `json:"seed"`
	Status string         `json:"status"`
	Seats  []SeatResponse `json:"seats"`
}

// GameResponse is returned by GET /api/games/{id}. Roles and history are
// included only once the game is over.
type GameResponse struct {
	games.Summary
	Seed      int64                  `json:"seed"`
	Running   bool                   `json:"running"`
	Config    map[string]interface{} `json:"config,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	EndedAt   *time.Time             `json:"ended_at,omitempty"`
}

// GameListItem is one row of GET /api/games.
type GameListItem struct {
	GameID    string     `json:"game_id"`
	Status    string     `json:"status"`
	Winner    string     `json:"winner,omitempty"`
	Players   int        `json:"players"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// EventsResponse is returned by GET /api/games/{id}/events.
type EventsResponse struct {
	GameID  string         `json:"game_id"`
	Audit   bool           `json:"audit"`
	Entries []memory.Entry `json:"entries"`
}

// GameHandler handles game-related HTTP requests.
type GameHandler struct {
	runner      *runner.Manager
	store       store.Store
	tokenSecret []byte
	logger      *log.Logger
}

// NewGameHandler creates a new GameHandler. tokenSecret signs seat tokens; if empty, seats get no token.
func NewGameHandler(r *runner.Manager, st store.Store, tokenSecret []byte, logger *log.Logger) *GameHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &GameHandler{runner: r, store: st, tokenSecret: tokenSecret, logger: logger}
}

// CreateGame handles POST /api/games: assigns roles and starts the run in the background.
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var body CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req := runner.StartRequest{
		Players:        body.Players,
		Seed:           body.Seed,
		MaxRounds:      body.MaxRounds,
		SheriffEnabled: body.SheriffEnabled,
	}
	if body.MaxRounds < 0 {
		http.Error(w, "max_rounds must not be negative", http.StatusBadRequest)
		return
	}
	if len(body.Roles) > 0 {
		req.RoleCounts = make(map[games.Role]int, len(body.Roles))
		for name, n := range body.Roles {
			role, err := games.ParseRole(name)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			req.RoleCounts[role] += n
		}
	}

	run, err := h.runner.Start(r.Context(), req)
	if err != nil {
		var cfgErr *games.ConfigurationError
		switch {
		case errors.As(err, &cfgErr):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, runner.ErrShuttingDown):
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		default:
			h.logger.Error("[%s] start game error: %v", requestID(r), err)
			http.Error(w, "failed to start game", http.StatusInternalServerError)
		}
		return
	}

	resp := CreateGameResponse{GameID: run.GameID, Seed: run.Seed, Status: games.StatusPlaying}
	for _, p := range run.Players {
		seat := SeatResponse{PlayerID: p.ID, Name: p.Name}
		if len(h.tokenSecret) > 0 {
			token, exp, err := auth.GenerateSeatToken(run.GameID, p.ID, string(p.Role), h.tokenSecret, auth.DefaultTokenExpiry)
			if err != nil {
				h.logger.Error("[%s] seat token error: %v", requestID(r), err)
				http.Error(w, "failed to issue seat tokens", http.StatusInternalServerError)
				return
			}
			seat.Token, seat.ExpiresAt = token, &exp
		}
		resp.Seats = append(resp.Seats, seat)
	}
	writeJSON(w, r, h.logger, http.StatusCreated, resp)
}

// ListGames handles GET /api/games?limit=N (newest first).
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	list, err := h.store.ListGames(r.Context(), limit)
	if err != nil {
		h.logger.Error("[%s] list games error: %v", requestID(r), err)
		http.Error(w, "failed to list games", http.StatusInternalServerError)
		return
	}
	out := make([]GameListItem, 0, len(list))
	for _, g := range list {
		out = append(out, GameListItem{
			GameID:    g.ID,
			Status:    g.Status,
			Winner:    g.Winner,
			Players:   len(g.Players),
			CreatedAt: g.CreatedAt,
			EndedAt:   g.EndedAt,
		})
	}
	writeJSON(w, r, h.logger, http.StatusOK, out)
}

// loadGame writes the error response itself and returns nil when the game cannot be served.
func (h *GameHandler) loadGame(w http.ResponseWriter, r *http.Request) *store.Game {
	gameID := chi.URLParam(r, "id")
	if gameID == "" {
		http.Error(w, "game id is required", http.StatusBadRequest)
		return nil
	}
	g, err := h.store.GetGame(r.Context(), gameID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "game not found", http.StatusNotFound)
			return nil
		}
		h.logger.Error("[%s] get game error: %v", requestID(r), err)
		http.Error(w, "failed to load game", http.StatusInternalServerError)
		return nil
	}
	return g
}

// latestState returns the newest snapshot, or the initial state when none was written yet.
func (h *GameHandler) latestState(r *http.Request, g *store.Game) (*games.GameState, error) {
	snap, err := h.store.GetLatestSnapshot(r.Context(), g.ID)
	if err != nil {
		return nil, err
	}
	state, err := games.StateFromMap(snap)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = games.NewGameState(g.ID, g.Players)
	}
	if g.Status != games.StatusPlaying {
		state.Status, state.Winner = g.Status, g.Winner
	}
	return state, nil
}

// GetGame handles GET /api/games/{id}.
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	g := h.loadGame(w, r)
	if g == nil {
		return
	}
	state, err := h.latestState(r, g)
	if err != nil {
		h.logger.Error("[%s] load snapshot error: %v", requestID(r), err)
		http.Error(w, "failed to load game state", http.StatusInternalServerError)
		return
	}
	var diag *games.Diagnostics
	if run, ok := h.runner.Get(g.ID); ok {
		diag = run.Diagnostics
	}
	over := state.Status != games.StatusPlaying
	writeJSON(w, r, h.logger, http.StatusOK, GameResponse{
		Summary:   games.Summarize(state, diag, over, over),
		Seed:      g.Seed,
		Running:   h.runner.Running(g.ID),
		Config:    g.Config,
		CreatedAt: g.CreatedAt,
		EndedAt:   g.EndedAt,
	})
}

// GetGameEvents handles GET /api/games/{id}/events?after=N&audit=true.
// A seat token limits entries to what that seat may read; without one only
// public entries are returned. audit=true returns every entry once the game is over.
func (h *GameHandler) GetGameEvents(w http.ResponseWriter, r *http.Request) {
	g := h.loadGame(w, r)
	if g == nil {
		return
	}
	after := 0
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "after must be a non-negative integer", http.StatusBadRequest)
			return
		}
		after = n
	}
	seat := SeatFromRequest(r)
	if seat != nil && seat.GameID != g.ID {
		http.Error(w, "token belongs to another game", http.StatusForbidden)
		return
	}
	audit := strings.EqualFold(r.URL.Query().Get("audit"), "true")
	if audit && g.Status == games.StatusPlaying {
		http.Error(w, "audit is available once the game is over", http.StatusForbidden)
		return
	}

	events, err := h.store.GetGameEvents(r.Context(), g.ID, after)
	if err != nil {
		h.logger.Error("[%s] get events error: %v", requestID(r), err)
		http.Error(w, "failed to load events", http.StatusInternalServerError)
		return
	}
	entries := make([]memory.Entry, 0, len(events))
	for _, ev := range events {
		entries = append(entries, ev.Entry)
	}
	if !audit {
		playerID, role := 0, ""
		if seat != nil {
			playerID, role = seat.PlayerID, seat.Role
		}
		entries = memory.Visible(playerID, role, entries)
	}
	writeJSON(w, r, h.logger, http.StatusOK, EventsResponse{GameID: g.ID, Audit: audit, Entries: entries})
}

// CancelGame handles DELETE /api/games/{id}: the run stops and ends inconclusive.
func (h *GameHandler) CancelGame(w http.ResponseWriter, r *http.Request) {
	g := h.loadGame(w, r)
	if g == nil {
		return
	}
	if err := h.runner.Cancel(g.ID); err != nil {
		if errors.Is(err, runner.ErrNotRunning) {
			http.Error(w, "game is not running", http.StatusConflict)
			return
		}
		h.logger.Error("[%s] cancel game error: %v", requestID(r), err)
		http.Error(w, "failed to cancel game", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, h.logger, http.StatusAccepted, map[string]string{"game_id": g.ID, "status": "canceling"})
}
