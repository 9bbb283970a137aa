package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vntrieu/werewolf/internal/games"
	"github.com/vntrieu/werewolf/internal/memory"
)

// ErrNotFound is returned when a game does not exist.
var ErrNotFound = errors.New("not found")

// Game is one persisted run.
type Game struct {
	ID        string                 `json:"id"`
	Status    string                 `json:"status"` // playing | ended | inconclusive
	Winner    string                 `json:"winner,omitempty"`
	Seed      int64                  `json:"seed"`
	Config    map[string]interface{} `json:"config"`
	Players   []games.Player         `json:"players"`
	CreatedAt time.Time              `json:"created_at"`
	EndedAt   *time.Time             `json:"ended_at,omitempty"`
}

// CreateGameRequest contains the data needed to create a game.
// ID is generated when empty.
type CreateGameRequest struct {
	ID      string                 `json:"id,omitempty"`
	Seed    int64                  `json:"seed"`
	Config  map[string]interface{} `json:"config,omitempty"`
	Players []games.Player         `json:"players"`
}

// GameEvent is one persisted memory entry.
type GameEvent struct {
	ID        string       `json:"id"`
	GameID    string       `json:"game_id"`
	Entry     memory.Entry `json:"entry"`
	CreatedAt time.Time    `json:"created_at"`
}

// Store persists runs. Every backend implements games.GameStore and
// games.GameEventStore so an engine can write to it directly.
type Store interface {
	CreateGame(ctx context.Context, req CreateGameRequest) (*Game, error)
	GetGame(ctx context.Context, gameID string) (*Game, error)
	// ListGames returns the most recent games first.
	ListGames(ctx context.Context, limit int) ([]Game, error)
	CreateOrUpdateSnapshot(ctx context.Context, gameID string, stateJSON map[string]interface{}) (int32, error)
	// GetLatestSnapshot returns nil when the game has no snapshot yet.
	GetLatestSnapshot(ctx context.Context, gameID string) (map[string]interface{}, error)
	UpdateGameStatus(ctx context.Context, gameID string, status string, winner string, endedAt *time.Time) error
	AppendEvents(ctx context.Context, gameID string, entries []memory.Entry) error
	// GetGameEvents returns events with Entry.Seq > afterSeq in order.
	GetGameEvents(ctx context.Context, gameID string, afterSeq int) ([]GameEvent, error)
	Close() error
}

var (
	_ games.GameStore      = Store(nil)
	_ games.GameEventStore = Store(nil)
)

const defaultListLimit = 50

func listLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultListLimit
	}
	return limit
}

func prepareGame(req CreateGameRequest, now time.Time) (*Game, []byte, []byte, error) {
	if len(req.Players) == 0 {
		return nil, nil, nil, fmt.Errorf("cannot create game: no players")
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid game_id: %w", err)
	}

	// Serialize config to JSON
	configJSON := []byte("{}")
	if len(req.Config) > 0 {
		var err error
		configJSON, err = json.Marshal(req.Config)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal config: %w", err)
		}
	}
	playersJSON, err := json.Marshal(req.Players)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal players: %w", err)
	}

	config := req.Config
	if config == nil {
		config = make(map[string]interface{})
	}
	g := &Game{
		ID:        id,
		Status:    games.StatusPlaying,
		Seed:      req.Seed,
		Config:    config,
		Players:   append([]games.Player(nil), req.Players...),
		CreatedAt: now,
	}
	return g, configJSON, playersJSON, nil
}

func decodeGame(g *Game, configJSON, playersJSON []byte) {
	// Parse config back
	if err := json.Unmarshal(configJSON, &g.Config); err != nil || g.Config == nil {
		g.Config = make(map[string]interface{})
	}
	if err := json.Unmarshal(playersJSON, &g.Players); err != nil || g.Players == nil {
		g.Players = []games.Player{}
	}
}

func encodeState(stateJSON map[string]interface{}) ([]byte, error) {
	if len(stateJSON) == 0 {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(stateJSON)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return data, nil
}

func decodeState(data []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
	}
	if out == nil {
		out = make(map[string]interface{})
	}
	return out, nil
}

func decodeEntry(payload []byte) (memory.Entry, error) {
	var e memory.Entry
	if err := json.Unmarshal(payload, &e); err != nil {
		return memory.Entry{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return e, nil
}
