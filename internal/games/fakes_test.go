package games

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vntrieu/werewolf/internal/log"
	"github.com/vntrieu/werewolf/internal/memory"
)

// scripted is a test agent for every role. Nil hooks fall back to the
// first eligible target and false for flags.
type scripted struct {
	id   int
	role Role

	run      bool
	withdraw bool
	order    SpeakingOrder

	vote      func(t Turn, b Ballot, eligible []int) int
	kill      func(t Turn, eligible []int) int
	check     func(t Turn, eligible []int) int
	protect   func(t Turn, eligible []int) int
	poison    func(t Turn, eligible []int) int
	antidote  func(t Turn, victim int) bool
	detonate  func(t Turn) bool
	transfer  func(t Turn, eligible []int) int
	lastSeen  []int // eligible sets passed to protect, flattened per call
	calls     map[string]int
	callsLock sync.Mutex
}

func (a *scripted) hit(kind string) {
	a.callsLock.Lock()
	defer a.callsLock.Unlock()
	if a.calls == nil {
		a.calls = make(map[string]int)
	}
	a.calls[kind]++
}

func (a *scripted) count(kind string) int {
	a.callsLock.Lock()
	defer a.callsLock.Unlock()
	return a.calls[kind]
}

func first(eligible []int) int {
	if len(eligible) == 0 {
		return NoTarget
	}
	return eligible[0]
}

func (a *scripted) ID() int    { return a.id }
func (a *scripted) Role() Role { return a.role }

func (a *scripted) DecideSheriffRun(ctx context.Context, t Turn) bool {
	a.hit(KindSheriffRun)
	return a.run
}

func (a *scripted) DecideWithdraw(ctx context.Context, t Turn) bool {
	a.hit(KindWithdraw)
	return a.withdraw
}

func (a *scripted) DecideVote(ctx context.Context, t Turn, b Ballot, eligible []int) int {
	a.hit(string(b))
	if a.vote != nil {
		return a.vote(t, b, eligible)
	}
	return first(eligible)
}

func (a *scripted) DecideSpeech(ctx context.Context, t Turn, sc SpeechContext) string {
	a.hit(KindSpeech)
	return fmt.Sprintf("player %d speaks (%s)", a.id, sc.Kind)
}

func (a *scripted) DecideSpeakingOrder(ctx context.Context, t Turn) SpeakingOrder {
	if a.order == "" {
		return OrderForward
	}
	return a.order
}

func (a *scripted) DecideSheriffTransfer(ctx context.Context, t Turn, eligible []int) int {
	a.hit(KindSheriffTransfer)
	if a.transfer != nil {
		return a.transfer(t, eligible)
	}
	return first(eligible)
}

func (a *scripted) WolfChat(ctx context.Context, t Turn) string {
	return fmt.Sprintf("wolf %d is hungry", a.id)
}

func (a *scripted) DecideKill(ctx context.Context, t Turn, eligible []int) int {
	a.hit(KindKill)
	if a.kill != nil {
		return a.kill(t, eligible)
	}
	return first(eligible)
}

func (a *scripted) DecideSelfDetonate(ctx context.Context, t Turn) bool {
	if a.detonate != nil {
		return a.detonate(t)
	}
	return false
}

func (a *scripted) DecideCheck(ctx context.Context, t Turn, eligible []int) int {
	a.hit(KindCheck)
	if a.check != nil {
		return a.check(t, eligible)
	}
	return first(eligible)
}

func (a *scripted) DecideProtect(ctx context.Context, t Turn, eligible []int) int {
	a.hit(KindProtect)
	a.lastSeen = append([]int(nil), eligible...)
	if a.protect != nil {
		return a.protect(t, eligible)
	}
	return NoTarget
}

func (a *scripted) DecideAntidote(ctx context.Context, t Turn, victim int) bool {
	a.hit(KindAntidote)
	if a.antidote != nil {
		return a.antidote(t, victim)
	}
	return false
}

func (a *scripted) DecidePoison(ctx context.Context, t Turn, eligible []int) int {
	a.hit(KindPoison)
	if a.poison != nil {
		return a.poison(t, eligible)
	}
	return NoTarget
}

func always(id int) func(Turn, []int) int {
	return func(Turn, []int) int { return id }
}

func voteFor(id int) func(Turn, Ballot, []int) int {
	return func(Turn, Ballot, []int) int { return id }
}

// table seats one scripted agent per role, ids 1..len(roles).
type table struct {
	state  *GameState
	agents map[int]*scripted
}

func newTable(roles ...Role) *table {
	players := make([]Player, len(roles))
	agents := make(map[int]*scripted, len(roles))
	for i, r := range roles {
		players[i] = Player{ID: i + 1, Name: fmt.Sprintf("P%d", i+1), Role: r, IsAlive: true}
		agents[i+1] = &scripted{id: i + 1, role: r}
	}
	return &table{state: NewGameState("game-1", players), agents: agents}
}

func (tb *table) engine(cfg RulesConfig, opts ...Option) *Engine {
	list := make([]Agent, 0, len(tb.agents))
	for i := 1; i <= len(tb.agents); i++ {
		list = append(list, tb.agents[i])
	}
	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	return NewEngine(cfg, list, opts...)
}

// at returns a copy of the table state positioned at node with the given players dead.
func (tb *table) at(node string, dead ...int) *GameState {
	s := tb.state.Clone()
	s.Node = node
	for _, id := range dead {
		s.Player(id).IsAlive = false
	}
	if node != NodeNight {
		s.CurrentPhase = PhaseDay
	}
	return s
}

func noSheriff() RulesConfig {
	cfg := ClassicWerewolfConfig()
	cfg.SheriffEnabled = false
	return cfg
}

type fakeGameStore struct {
	mu        sync.Mutex
	snapshots []map[string]interface{}
	status    string
	winner    string
}

func (f *fakeGameStore) CreateOrUpdateSnapshot(ctx context.Context, gameID string, stateJSON map[string]interface{}) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, stateJSON)
	return int32(len(f.snapshots)), nil
}

func (f *fakeGameStore) UpdateGameStatus(ctx context.Context, gameID string, status string, winner string, endedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.winner = winner
	return nil
}

type fakeEventStore struct {
	mu      sync.Mutex
	entries []memory.Entry
}

func (f *fakeEventStore) AppendEvents(ctx context.Context, gameID string, entries []memory.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entries...)
	return nil
}

type fakePublisher struct {
	count int
}

func (f *fakePublisher) Publish(gameID string, entries []memory.Entry) {
	f.count += len(entries)
}
