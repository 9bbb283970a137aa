package store

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vntrieu/werewolf/internal/games"
	"github.com/vntrieu/werewolf/internal/memory"
)

func testPlayers() []games.Player {
	return []games.Player{
		{ID: 1, Name: "Ada", Role: games.RoleWerewolf, IsAlive: true},
		{ID: 2, Name: "Bo", Role: games.RoleVillager, IsAlive: true},
		{ID: 3, Name: "Cleo", Role: games.RoleWerewolf, IsAlive: true},
		{ID: 4, Name: "Dev", Role: games.RoleVillager, IsAlive: true},
	}
}

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemory() },
		"sqlite": func(t *testing.T) Store { return SetupTestSQLite(t) },
		"postgres": func(t *testing.T) Store {
			pool := SetupTestDB(t)
			s := NewPostgres(pool)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestStore(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("create and get game", func(t *testing.T) { testCreateGame(t, open(t)) })
			t.Run("snapshots are versioned", func(t *testing.T) { testSnapshots(t, open(t)) })
			t.Run("status update", func(t *testing.T) { testStatus(t, open(t)) })
			t.Run("events in order", func(t *testing.T) { testEvents(t, open(t)) })
			t.Run("list newest first", func(t *testing.T) { testList(t, open(t)) })
			t.Run("engine run persists", func(t *testing.T) { testEngineRun(t, open(t)) })
		})
	}
}

func createTestGame(t *testing.T, s Store) *Game {
	t.Helper()
	g, err := s.CreateGame(context.Background(), CreateGameRequest{
		Seed:    42,
		Config:  map[string]interface{}{"max_rounds": float64(5)},
		Players: testPlayers(),
	})
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	return g
}

func testCreateGame(t *testing.T, s Store) {
	ctx := context.Background()
	created := createTestGame(t, s)
	if _, err := uuid.Parse(created.ID); err != nil {
		t.Errorf("expected uuid id, got %q", created.ID)
	}
	if created.Status != games.StatusPlaying {
		t.Errorf("expected status %q, got %q", games.StatusPlaying, created.Status)
	}

	got, err := s.GetGame(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetGame failed: %v", err)
	}
	if got.Seed != 42 {
		t.Errorf("expected seed 42, got %d", got.Seed)
	}
	if len(got.Players) != 4 || got.Players[2].Name != "Cleo" || got.Players[2].Role != games.RoleWerewolf {
		t.Errorf("players not round-tripped: %+v", got.Players)
	}
	if got.Config["max_rounds"] != float64(5) {
		t.Errorf("config not round-tripped: %v", got.Config)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
	if got.EndedAt != nil {
		t.Error("expected ended_at to be nil")
	}

	if _, err := s.GetGame(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.CreateGame(ctx, CreateGameRequest{}); err == nil {
		t.Error("expected error for game without players")
	}
	if _, err := s.CreateGame(ctx, CreateGameRequest{ID: "not-a-uuid", Players: testPlayers()}); err == nil {
		t.Error("expected error for invalid id")
	}
}

func testSnapshots(t *testing.T, s Store) {
	ctx := context.Background()
	g := createTestGame(t, s)

	snap, err := s.GetLatestSnapshot(ctx, g.ID)
	if err != nil || snap != nil {
		t.Fatalf("expected no snapshot, got %v, %v", snap, err)
	}
	for want := int32(1); want <= 3; want++ {
		v, err := s.CreateOrUpdateSnapshot(ctx, g.ID, map[string]interface{}{"day_number": float64(want)})
		if err != nil {
			t.Fatalf("CreateOrUpdateSnapshot failed: %v", err)
		}
		if v != want {
			t.Errorf("expected version %d, got %d", want, v)
		}
	}
	snap, err = s.GetLatestSnapshot(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetLatestSnapshot failed: %v", err)
	}
	if snap["day_number"] != float64(3) {
		t.Errorf("expected latest snapshot, got %v", snap)
	}
}

func testStatus(t *testing.T, s Store) {
	ctx := context.Background()
	g := createTestGame(t, s)
	ended := time.Now().UTC().Truncate(time.Second)
	if err := s.UpdateGameStatus(ctx, g.ID, games.StatusEnded, games.WinnerVillagers, &ended); err != nil {
		t.Fatalf("UpdateGameStatus failed: %v", err)
	}
	got, err := s.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGame failed: %v", err)
	}
	if got.Status != games.StatusEnded || got.Winner != games.WinnerVillagers {
		t.Errorf("expected ended/villagers, got %s/%s", got.Status, got.Winner)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
		t.Errorf("expected ended_at %v, got %v", ended, got.EndedAt)
	}
	if err := s.UpdateGameStatus(ctx, uuid.NewString(), games.StatusEnded, "", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testEvents(t *testing.T, s Store) {
	ctx := context.Background()
	g := createTestGame(t, s)
	first := []memory.Entry{
		{Seq: 1, Day: 1, Phase: "night", Kind: memory.KindWolfChat, Level: memory.LevelRole, Role: "werewolf", Speaker: 1, Content: "take Bo"},
		{Seq: 2, Day: 1, Phase: "night", Kind: memory.KindCheck, Level: memory.LevelPrivate, AgentID: 3, Content: "Ada is a werewolf"},
	}
	second := []memory.Entry{
		{Seq: 3, Day: 1, Phase: "day", Kind: memory.KindDeath, Level: memory.LevelPublic, Content: "Bo died"},
	}
	if err := s.AppendEvents(ctx, g.ID, first); err != nil {
		t.Fatalf("AppendEvents failed: %v", err)
	}
	if err := s.AppendEvents(ctx, g.ID, second); err != nil {
		t.Fatalf("AppendEvents failed: %v", err)
	}
	if err := s.AppendEvents(ctx, g.ID, nil); err != nil {
		t.Fatalf("AppendEvents with no entries failed: %v", err)
	}

	events, err := s.GetGameEvents(ctx, g.ID, 0)
	if err != nil {
		t.Fatalf("GetGameEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.Entry.Seq != i+1 {
			t.Errorf("event %d has seq %d", i, ev.Entry.Seq)
		}
		if ev.GameID != g.ID || ev.ID == "" {
			t.Errorf("event %d missing ids: %+v", i, ev)
		}
	}
	if events[0].Entry != first[0] {
		t.Errorf("entry not round-tripped: %+v", events[0].Entry)
	}

	tail, err := s.GetGameEvents(ctx, g.ID, 2)
	if err != nil {
		t.Fatalf("GetGameEvents failed: %v", err)
	}
	if len(tail) != 1 || tail[0].Entry.Content != "Bo died" {
		t.Errorf("expected only seq 3, got %+v", tail)
	}
}

func testList(t *testing.T, s Store) {
	ctx := context.Background()
	a := createTestGame(t, s)
	time.Sleep(5 * time.Millisecond)
	b := createTestGame(t, s)

	list, err := s.ListGames(ctx, 10)
	if err != nil {
		t.Fatalf("ListGames failed: %v", err)
	}
	if len(list) < 2 {
		t.Fatalf("expected at least 2 games, got %d", len(list))
	}
	if list[0].ID != b.ID || list[1].ID != a.ID {
		t.Errorf("expected newest first, got %s, %s", list[0].ID, list[1].ID)
	}
	one, err := s.ListGames(ctx, 1)
	if err != nil || len(one) != 1 {
		t.Errorf("expected limit 1, got %d (%v)", len(one), err)
	}
}

// idle is a seat that abstains from every vote and never uses a power.
type idle struct {
	id   int
	role games.Role
}

func (a idle) ID() int                                                         { return a.id }
func (a idle) Role() games.Role                                                { return a.role }
func (a idle) DecideSheriffRun(context.Context, games.Turn) bool               { return false }
func (a idle) DecideWithdraw(context.Context, games.Turn) bool                 { return false }
func (a idle) DecideVote(context.Context, games.Turn, games.Ballot, []int) int { return games.NoTarget }
func (a idle) DecideSpeech(context.Context, games.Turn, games.SpeechContext) string {
	return "..."
}
func (a idle) DecideSpeakingOrder(context.Context, games.Turn) games.SpeakingOrder {
	return games.OrderForward
}
func (a idle) DecideSheriffTransfer(context.Context, games.Turn, []int) int { return games.NoTarget }
func (a idle) WolfChat(context.Context, games.Turn) string                  { return "..." }
func (a idle) DecideSelfDetonate(context.Context, games.Turn) bool          { return false }

// DecideKill takes the lowest eligible seat, so werewolves win in two nights.
func (a idle) DecideKill(_ context.Context, _ games.Turn, eligible []int) int {
	if len(eligible) == 0 {
		return games.NoTarget
	}
	return eligible[0]
}

func testEngineRun(t *testing.T, s Store) {
	ctx := context.Background()
	g := createTestGame(t, s)
	var seats []games.Agent
	for _, p := range g.Players {
		seats = append(seats, idle{id: p.ID, role: p.Role})
	}
	cfg := games.ClassicWerewolfConfig()
	cfg.SheriffEnabled = false
	e := games.NewEngine(cfg, seats, games.WithStores(s, s))

	final, err := e.Run(ctx, games.NewGameState(g.ID, g.Players), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if final.Winner != games.WinnerWerewolves {
		t.Fatalf("expected werewolves to win, got %q (%s)", final.Winner, final.Status)
	}

	got, err := s.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGame failed: %v", err)
	}
	if got.Status != games.StatusEnded || got.Winner != games.WinnerWerewolves || got.EndedAt == nil {
		t.Errorf("final status not persisted: %+v", got)
	}
	events, err := s.GetGameEvents(ctx, g.ID, 0)
	if err != nil {
		t.Fatalf("GetGameEvents failed: %v", err)
	}
	if len(events) != len(final.Memory) {
		t.Errorf("expected %d events, got %d", len(final.Memory), len(events))
	}
	snap, err := s.GetLatestSnapshot(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetLatestSnapshot failed: %v", err)
	}
	restored, err := games.StateFromMap(snap)
	if err != nil {
		t.Fatalf("StateFromMap failed: %v", err)
	}
	if restored.Winner != games.WinnerWerewolves || restored.Status != games.StatusEnded {
		t.Errorf("latest snapshot does not match final state: %s/%s", restored.Status, restored.Winner)
	}
}
