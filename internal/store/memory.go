package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vntrieu/werewolf/internal/games"
	"github.com/vntrieu/werewolf/internal/memory"
)

// Memory keeps runs in process memory. Used by the CLI without --sqlite and in tests.
type Memory struct {
	mu        sync.RWMutex
	games     map[string]*Game
	order     []string
	snapshots map[string][][]byte
	events    map[string][]GameEvent
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		games:     make(map[string]*Game),
		snapshots: make(map[string][][]byte),
		events:    make(map[string][]GameEvent),
	}
}

func (s *Memory) Close() error { return nil }

func copyGame(g *Game) Game {
	out := *g
	out.Players = append([]games.Player(nil), g.Players...)
	if g.EndedAt != nil {
		t := *g.EndedAt
		out.EndedAt = &t
	}
	return out
}

func (s *Memory) CreateGame(_ context.Context, req CreateGameRequest) (*Game, error) {
	g, _, _, err := prepareGame(req, time.Now())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.games[g.ID]; exists {
		return nil, fmt.Errorf("create game: id %s already exists", g.ID)
	}
	s.games[g.ID] = g
	s.order = append(s.order, g.ID)
	out := copyGame(g)
	return &out, nil
}

func (s *Memory) GetGame(_ context.Context, gameID string) (*Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyGame(g)
	return &out, nil
}

func (s *Memory) ListGames(_ context.Context, limit int) ([]Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit = listLimit(limit)
	out := make([]Game, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, copyGame(s.games[s.order[i]]))
	}
	return out, nil
}

func (s *Memory) CreateOrUpdateSnapshot(_ context.Context, gameID string, stateJSON map[string]interface{}) (int32, error) {
	data, err := encodeState(stateJSON)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[gameID]; !ok {
		return 0, fmt.Errorf("create snapshot: %w", ErrNotFound)
	}
	s.snapshots[gameID] = append(s.snapshots[gameID], data)
	return int32(len(s.snapshots[gameID])), nil
}

func (s *Memory) GetLatestSnapshot(_ context.Context, gameID string) (map[string]interface{}, error) {
	s.mu.RLock()
	snaps := s.snapshots[gameID]
	s.mu.RUnlock()
	if len(snaps) == 0 {
		return nil, nil
	}
	return decodeState(snaps[len(snaps)-1])
}

func (s *Memory) UpdateGameStatus(_ context.Context, gameID string, status string, winner string, endedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok {
		return ErrNotFound
	}
	g.Status = status
	g.Winner = winner
	g.EndedAt = endedAt
	return nil
}

func (s *Memory) AppendEvents(_ context.Context, gameID string, entries []memory.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[gameID]; !ok {
		return fmt.Errorf("create game events: %w", ErrNotFound)
	}
	now := time.Now()
	for _, e := range entries {
		// round-trip so stored entries never alias the caller's
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		stored, err := decodeEntry(payload)
		if err != nil {
			return err
		}
		s.events[gameID] = append(s.events[gameID], GameEvent{ID: uuid.NewString(), GameID: gameID, Entry: stored, CreatedAt: now})
	}
	sort.SliceStable(s.events[gameID], func(i, j int) bool {
		return s.events[gameID][i].Entry.Seq < s.events[gameID][j].Entry.Seq
	})
	return nil
}

func (s *Memory) GetGameEvents(_ context.Context, gameID string, afterSeq int) ([]GameEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]GameEvent, 0)
	for _, ev := range s.events[gameID] {
		if ev.Entry.Seq > afterSeq {
			out = append(out, ev)
		}
	}
	return out, nil
}
