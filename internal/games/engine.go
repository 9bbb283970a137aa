package games

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vntrieu/werewolf/internal/log"
	"github.com/vntrieu/werewolf/internal/memory"
)

// GameStore persists snapshots and final status (avoid circular import; implemented by store backends).
type GameStore interface {
	CreateOrUpdateSnapshot(ctx context.Context, gameID string, stateJSON map[string]interface{}) (int32, error)
	UpdateGameStatus(ctx context.Context, gameID string, status string, winner string, endedAt *time.Time) error
}

// GameEventStore appends memory entries as ordered game events.
type GameEventStore interface {
	AppendEvents(ctx context.Context, gameID string, entries []memory.Entry) error
}

// EventPublisher receives every new memory entry after a step (e.g. the websocket hub).
type EventPublisher interface {
	Publish(gameID string, entries []memory.Entry)
}

// Engine drives a game through the phase graph.
type Engine struct {
	config    RulesConfig
	agents    map[int]Agent
	store     GameStore
	events    GameEventStore
	publisher EventPublisher
	diag      *Diagnostics
	logger    *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithStores persists a snapshot and the new events after every step.
func WithStores(games GameStore, events GameEventStore) Option {
	return func(e *Engine) {
		e.store = games
		e.events = events
	}
}

// WithPublisher forwards new entries after every step.
func WithPublisher(p EventPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithDiagnostics shares a diagnostics counter (usually with the agents).
func WithDiagnostics(d *Diagnostics) Option {
	return func(e *Engine) { e.diag = d }
}

// WithLogger sets the engine logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine for one game with the given seats.
func NewEngine(config RulesConfig, agents []Agent, opts ...Option) *Engine {
	e := &Engine{
		config: config.withDefaults(),
		agents: make(map[int]Agent, len(agents)),
	}
	for _, a := range agents {
		e.agents[a.ID()] = a
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.diag == nil {
		e.diag = NewDiagnostics()
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	return e
}

// Config returns the effective rules.
func (e *Engine) Config() RulesConfig { return e.config }

// Diagnostics returns the engine's failure counters.
func (e *Engine) Diagnostics() *Diagnostics { return e.diag }

// CheckSeats verifies that every player has an agent with the matching role
// and the capability that role needs.
func (e *Engine) CheckSeats(s *GameState) error {
	for _, p := range s.Players {
		a, ok := e.agents[p.ID]
		if !ok {
			return &ConfigurationError{Reason: fmt.Sprintf("no agent for player %d", p.ID)}
		}
		if a.Role() != p.Role {
			return &ConfigurationError{Reason: fmt.Sprintf("agent %d plays %s but seat is %s", p.ID, a.Role(), p.Role)}
		}
		var capable bool
		switch p.Role {
		case RoleWerewolf:
			_, capable = a.(WerewolfAgent)
		case RoleSeer:
			_, capable = a.(SeerAgent)
		case RoleGuard:
			_, capable = a.(GuardAgent)
		case RoleWitch:
			_, capable = a.(WitchAgent)
		default:
			capable = true
		}
		if !capable {
			return &ConfigurationError{Reason: fmt.Sprintf("agent %d lacks %s actions", p.ID, p.Role)}
		}
	}
	return nil
}

// maxSteps bounds graph steps independently of the round cap.
func (e *Engine) maxSteps() int {
	return e.config.MaxRounds*16 + 32
}

// Run executes the graph from state.Node until the judgment node completes.
// The returned state is always the last consistent state; on cancellation it
// is marked inconclusive and returned together with ctx.Err(). A nil rng is
// seeded from the clock.
func (e *Engine) Run(ctx context.Context, state *GameState, rng *rand.Rand) (*GameState, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if err := e.CheckSeats(state); err != nil {
		return state, err
	}
	s := state
	if err := e.persist(ctx, nil, s); err != nil {
		return s, err
	}
	for steps := 0; s.Node != ""; steps++ {
		if err := ctx.Err(); err != nil {
			stopped := abort(s, "canceled")
			_ = e.persist(ctx, s, stopped)
			return stopped, err
		}
		if steps >= e.maxSteps() && s.Node != NodeJudgment {
			e.logger.Warn("game %s: step cap reached at node %s", s.GameID, s.Node)
			next := abort(s, "step cap")
			next.Node = NodeJudgment
			if err := e.persist(ctx, s, next); err != nil {
				return next, err
			}
			s = next
			continue
		}
		next, err := e.Step(ctx, s, rng)
		if err != nil {
			return s, err
		}
		s = next
	}
	return s, nil
}

// Step runs the current node once, routes to the next node and persists the result.
func (e *Engine) Step(ctx context.Context, s *GameState, rng *rand.Rand) (*GameState, error) {
	n, ok := graph[s.Node]
	if !ok {
		return nil, fmt.Errorf("unknown node %q", s.Node)
	}
	next := n.run(e, ctx, s, rng)
	if next == s {
		next = s.Clone()
	}
	next.SheriffDisabled = !e.config.SheriffEnabled
	label := n.route(next)
	if label == "" {
		next.Node = ""
	} else {
		target, ok := n.edges[label]
		if !ok {
			return nil, fmt.Errorf("node %s: no edge for %q", s.Node, label)
		}
		next.Node = target
	}
	e.logger.Info("game %s: day %d %s -> %s (%s)", s.GameID, next.DayNumber, s.Node, next.Node, label)
	if err := e.persist(ctx, s, next); err != nil {
		return nil, err
	}
	return next, nil
}

// abort ends a playing state as inconclusive.
func abort(s *GameState, reason string) *GameState {
	next := s.Clone()
	if next.Status == StatusPlaying {
		next.Status = StatusInconclusive
		next.record(memory.Public(memory.KindAnnouncement, "The game ends without a winner ("+reason+")."))
	}
	next.Node = ""
	return next
}

// persist writes new events, the snapshot and the final status. prev may be nil.
// A completed step is written even when ctx is already canceled.
func (e *Engine) persist(ctx context.Context, prev, next *GameState) error {
	ctx = context.WithoutCancel(ctx)
	from := 0
	if prev != nil {
		from = len(prev.Memory)
	}
	fresh := next.Memory[from:]

	if e.events != nil && len(fresh) > 0 {
		if err := e.events.AppendEvents(ctx, next.GameID, fresh); err != nil {
			e.logger.Error("game %s: persist events: %v", next.GameID, err)
			return fmt.Errorf("persist events: %w", err)
		}
	}
	if e.store != nil {
		version, err := e.store.CreateOrUpdateSnapshot(ctx, next.GameID, next.ToMap())
		if err != nil {
			e.logger.Error("game %s: persist snapshot: %v", next.GameID, err)
			return fmt.Errorf("persist snapshot: %w", err)
		}
		next.Version = int(version)
		if next.Status != StatusPlaying && (prev == nil || prev.Status == StatusPlaying) {
			now := time.Now()
			if err := e.store.UpdateGameStatus(ctx, next.GameID, next.Status, next.Winner, &now); err != nil {
				return fmt.Errorf("update game status: %w", err)
			}
		}
	}
	if e.publisher != nil && len(fresh) > 0 {
		e.publisher.Publish(next.GameID, fresh)
	}
	return nil
}

func (e *Engine) turn(s *GameState, rng *rand.Rand) Turn {
	return Turn{State: s, Rand: rng}
}

// accept re-validates a target returned by an agent. Anything outside
// eligible is counted, logged and turned into an abstention.
func (e *Engine) accept(s *GameState, kind string, actor, target int, eligible []int) int {
	if target == NoTarget || contains(eligible, target) {
		return target
	}
	e.diag.Record(kind, ReasonInvariant)
	err := fmt.Errorf("%w: %s by %d targeted %d", ErrInvariant, kind, actor, target)
	e.logger.Warn("game %s: %v", s.GameID, err)
	return NoTarget
}

// collect asks every id for a decision. Each id gets its own random source
// derived from rng in id order, so sequential and parallel collection draw
// the same numbers and results are merged by position, never by completion.
func collect[T any](ctx context.Context, parallel bool, ids []int, rng *rand.Rand, decide func(ctx context.Context, id int, r *rand.Rand) T) []T {
	out := make([]T, len(ids))
	seeds := make([]int64, len(ids))
	for i := range ids {
		seeds[i] = rng.Int63()
	}
	if !parallel {
		for i, id := range ids {
			out[i] = decide(ctx, id, rand.New(rand.NewSource(seeds[i])))
		}
		return out
	}
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			out[i] = decide(gctx, id, rand.New(rand.NewSource(seeds[i])))
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func contains(ids []int, id int) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func without(ids []int, drop ...int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !contains(drop, id) {
			out = append(out, id)
		}
	}
	return out
}

// topScorers returns the ids with the highest positive tally, ascending.
func topScorers(tally map[int]float64) []int {
	best := 0.0
	var top []int
	for id, v := range tally {
		switch {
		case v <= 0:
		case v > best:
			best = v
			top = []int{id}
		case v == best:
			top = append(top, id)
		}
	}
	return sortedIDs(top)
}
