package websocket

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vntrieu/werewolf/internal/auth"
	"github.com/vntrieu/werewolf/internal/store"
)

// GameLookup confirms a game exists before upgrading.
type GameLookup interface {
	GetGame(ctx context.Context, gameID string) (*store.Game, error)
}

// WSHandler serves GET /ws/games/{id}.
type WSHandler struct {
	hub         *Hub
	games       GameLookup
	tokenSecret []byte
}

// NewWSHandler creates a new WSHandler. With an empty tokenSecret every
// connection is a public spectator.
func NewWSHandler(hub *Hub, games GameLookup, tokenSecret []byte) *WSHandler {
	return &WSHandler{
		hub:         hub,
		games:       games,
		tokenSecret: tokenSecret,
	}
}

// TokenFromRequest reads a seat token from ?token= or an Authorization bearer header.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	const prefix = "Bearer "
	if v := r.Header.Get("Authorization"); strings.HasPrefix(v, prefix) {
		return strings.TrimSpace(v[len(prefix):])
	}
	return ""
}

// HandleGameWebSocket streams a game's entries. With a seat token the client
// sees what that seat sees; without one it sees public entries only.
// ?after=N skips entries the client already has.
func (h *WSHandler) HandleGameWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	if gameID == "" {
		http.Error(w, "game id is required", http.StatusBadRequest)
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

	var playerID int
	var role string
	if token := TokenFromRequest(r); token != "" {
		if len(h.tokenSecret) == 0 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		claims, err := auth.VerifySeatToken(token, h.tokenSecret)
		if err != nil {
			h.hub.logger.Info("websocket auth: game_id=%s token verification failed: %v", gameID, err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if claims.GameID != gameID {
			http.Error(w, "game does not match token", http.StatusUnauthorized)
			return
		}
		playerID, role = claims.PlayerID, claims.Role
	}

	if _, err := h.games.GetGame(r.Context(), gameID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		h.hub.logger.Error("websocket: get game %s: %v", gameID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Warn("websocket upgrade error: %v", err)
		return
	}
	client := &Client{
		hub:      h.hub,
		conn:     conn,
		send:     make(chan *ServerEnvelope, 256),
		GameID:   gameID,
		PlayerID: playerID,
		Role:     role,
		After:    after,
	}
	h.hub.Register(client)
	go client.writePump()
	go client.readPump()
}
