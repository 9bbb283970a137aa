// Package runner sets up game runs and drives them in the background.
package runner

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vntrieu/werewolf/internal/agents"
	"github.com/vntrieu/werewolf/internal/games"
	"github.com/vntrieu/werewolf/internal/log"
	"github.com/vntrieu/werewolf/internal/oracle"
	"github.com/vntrieu/werewolf/internal/store"
)

var (
	// ErrNotRunning is returned by Cancel for a game that is not in progress.
	ErrNotRunning = errors.New("game is not running")
	// ErrShuttingDown is returned by Start after Shutdown.
	ErrShuttingDown = errors.New("runner is shutting down")
)

// EndNotifier is told when a run stops. A publisher implementing it is notified
// after the final state is persisted.
type EndNotifier interface {
	GameEnded(gameID, status, winner string)
}

// maxRetained bounds how many finished runs keep their diagnostics in memory.
const maxRetained = 256

// StartRequest describes one game to play.
type StartRequest struct {
	// Players are the display names, in seat order (ids 1..N).
	Players []string
	// RoleCounts is the distribution; nil means games.DefaultRoleCounts.
	RoleCounts map[games.Role]int
	// Seed drives every random choice of the run; nil draws one from crypto/rand.
	Seed *int64
	// MaxRounds overrides the default round cap when positive.
	MaxRounds int
	// SheriffEnabled overrides the default sheriff rule when set.
	SheriffEnabled *bool
}

// Run is one game in progress or finished.
type Run struct {
	GameID      string
	Seed        int64
	Players     []games.Player
	Rules       games.RulesConfig
	Diagnostics *games.Diagnostics
	StartedAt   time.Time

	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	final *games.GameState
	err   error
}

// Done is closed when the run has finished.
func (r *Run) Done() <-chan struct{} { return r.done }

// Result returns the final state and the error of Engine.Run. Both are nil
// while the run is in progress.
func (r *Run) Result() (*games.GameState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.final, r.err
}

// Wait blocks until the run finishes or ctx is done.
func (r *Run) Wait(ctx context.Context) (*games.GameState, error) {
	select {
	case <-r.done:
		return r.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Run) finish(final *games.GameState, err error) {
	r.mu.Lock()
	r.final, r.err = final, err
	r.mu.Unlock()
	close(r.done)
}

// Manager starts runs and tracks the ones in progress.
type Manager struct {
	store        store.Store
	publisher    games.EventPublisher
	oracle       oracle.Oracle
	rules        games.RulesConfig
	agentTimeout time.Duration
	logger       *log.Logger

	mu       sync.Mutex
	runs     map[string]*Run
	finished []string
	closed   bool
	wg       sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithPublisher streams every new entry of every run to p.
func WithPublisher(p games.EventPublisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// WithOracle sets the decision oracle shared by all seats. Without one every
// seat plays its fallback policy.
func WithOracle(o oracle.Oracle) Option {
	return func(m *Manager) { m.oracle = o }
}

// WithRules sets the default rules of new runs.
func WithRules(rules games.RulesConfig) Option {
	return func(m *Manager) { m.rules = rules }
}

// WithAgentTimeout bounds each oracle call of a seat.
func WithAgentTimeout(d time.Duration) Option {
	return func(m *Manager) { m.agentTimeout = d }
}

// WithLogger sets the logger handed to engines and agents.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a manager persisting runs to st.
func NewManager(st store.Store, opts ...Option) *Manager {
	m := &Manager{
		store: st,
		rules: games.ClassicWerewolfConfig(),
		runs:  make(map[string]*Run),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.Default()
	}
	return m
}

// NewSeed draws a seed from crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// prepared is a run ready to execute.
type prepared struct {
	run    *Run
	engine *games.Engine
	state  *games.GameState
	rng    *rand.Rand
}

func (m *Manager) prepare(ctx context.Context, req StartRequest) (*prepared, error) {
	names := make([]string, 0, len(req.Players))
	for _, n := range req.Players {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, &games.ConfigurationError{Reason: "player names must not be empty"}
		}
		names = append(names, n)
	}

	var seed int64
	if req.Seed != nil {
		seed = *req.Seed
	} else {
		s, err := NewSeed()
		if err != nil {
			return nil, err
		}
		seed = s
	}
	rng := rand.New(rand.NewSource(seed))

	counts := req.RoleCounts
	if counts == nil {
		counts = games.DefaultRoleCounts(len(names))
	}
	players, err := games.AssignRoles(names, counts, rng)
	if err != nil {
		return nil, err
	}

	rules := m.rules
	rules.RoleCounts = counts
	if req.MaxRounds > 0 {
		rules.MaxRounds = req.MaxRounds
	}
	if req.SheriffEnabled != nil {
		rules.SheriffEnabled = *req.SheriffEnabled
	}

	cfgMap, err := rulesToMap(rules)
	if err != nil {
		return nil, err
	}
	gameID := uuid.NewString()
	if _, err := m.store.CreateGame(ctx, store.CreateGameRequest{
		ID:      gameID,
		Seed:    seed,
		Config:  cfgMap,
		Players: players,
	}); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}

	logger := m.logger.With(log.Fields{"game_id": gameID})
	diag := games.NewDiagnostics()
	agentOpts := []agents.Option{agents.WithDiagnostics(diag), agents.WithLogger(logger)}
	if m.agentTimeout > 0 {
		agentOpts = append(agentOpts, agents.WithTimeout(m.agentTimeout))
	}
	roster, err := agents.NewRoster(players, m.oracle, agentOpts...)
	if err != nil {
		return nil, err
	}

	engineOpts := []games.Option{
		games.WithStores(m.store, m.store),
		games.WithDiagnostics(diag),
		games.WithLogger(logger),
	}
	if m.publisher != nil {
		engineOpts = append(engineOpts, games.WithPublisher(m.publisher))
	}
	engine := games.NewEngine(rules, roster, engineOpts...)

	return &prepared{
		run: &Run{
			GameID:      gameID,
			Seed:        seed,
			Players:     players,
			Rules:       engine.Config(),
			Diagnostics: diag,
			StartedAt:   time.Now().UTC(),
			done:        make(chan struct{}),
		},
		engine: engine,
		state:  games.NewGameState(gameID, players),
		rng:    rng,
	}, nil
}

// Start sets up a run and plays it in the background. The returned run is
// registered until it finishes; cancel it with Cancel.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*Run, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, ErrShuttingDown
	}

	p, err := m.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithCancel(context.Background())
	p.run.cancel = cancel

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return nil, ErrShuttingDown
	}
	m.runs[p.run.GameID] = p.run
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("game %s: started with %d players (seed %d)", p.run.GameID, len(p.run.Players), p.run.Seed)
	go func() {
		defer m.wg.Done()
		defer cancel()
		m.execute(runCtx, p)
	}()
	return p.run, nil
}

// Play sets up a run and plays it to the end on the calling goroutine.
func (m *Manager) Play(ctx context.Context, req StartRequest) (*Run, error) {
	p, err := m.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.run.cancel = cancel
	m.execute(runCtx, p)
	_, err = p.run.Result()
	return p.run, err
}

func (m *Manager) execute(ctx context.Context, p *prepared) {
	final, err := p.engine.Run(ctx, p.state, p.rng)
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		m.logger.Info("game %s: canceled", p.run.GameID)
	case err != nil:
		m.logger.Error("game %s: run failed: %v", p.run.GameID, err)
	default:
		m.logger.Info("game %s: %s, winner %q after %d days", p.run.GameID, final.Status, final.Winner, final.DayNumber)
	}
	p.run.finish(final, err)
	m.retire(p.run.GameID)
	if n, ok := m.publisher.(EndNotifier); ok && final != nil {
		n.GameEnded(p.run.GameID, final.Status, final.Winner)
	}
}

// retire keeps the run for diagnostics lookups, dropping the oldest beyond maxRetained.
func (m *Manager) retire(gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[gameID]; !ok {
		return
	}
	m.finished = append(m.finished, gameID)
	for len(m.finished) > maxRetained {
		delete(m.runs, m.finished[0])
		m.finished = m.finished[1:]
	}
}

// Get returns a run started by this manager, in progress or recently finished.
func (m *Manager) Get(gameID string) (*Run, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[gameID]
	return r, ok
}

// Running reports whether gameID is in progress.
func (m *Manager) Running(gameID string) bool {
	r, ok := m.Get(gameID)
	if !ok {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// Cancel stops a running game. The engine ends it inconclusive and persists
// the final state; Cancel does not wait for that.
func (m *Manager) Cancel(gameID string) error {
	if !m.Running(gameID) {
		return ErrNotRunning
	}
	r, _ := m.Get(gameID)
	r.cancel()
	return nil
}

// Shutdown cancels every run in progress and waits for them to persist
// their final state, or for ctx to be done.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	for _, r := range m.runs {
		if r.cancel != nil {
			r.cancel()
		}
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func rulesToMap(rules games.RulesConfig) (map[string]interface{}, error) {
	b, err := json.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("marshal rules: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unmarshal rules: %w", err)
	}
	return out, nil
}
