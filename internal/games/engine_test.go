package games

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateFromMap_ToMap_RoundTrip(t *testing.T) {
	tb := eightSeats()
	s := tb.at(NodeExileVote, 4)
	s.SeerChecks = []SeerCheck{{Day: 1, Target: 1, IsWerewolf: true}}
	s.ExileVotes = map[int]int{1: 6, 2: 6}
	s.SheriffTransfer = &SheriffTransfer{FromID: 4, ToID: 2}
	s.History = append(s.History, HistoryEntry{Type: HistoryNight, Night: &NightRecord{WolfTarget: 4, Deaths: []int{4}}})

	back, err := StateFromMap(s.ToMap())
	require.NoError(t, err)
	require.NotNil(t, back)
	assert.Equal(t, s.GameID, back.GameID)
	assert.Equal(t, s.Node, back.Node)
	assert.Equal(t, s.Players, back.Players)
	assert.Equal(t, s.SeerChecks, back.SeerChecks)
	assert.Equal(t, s.ExileVotes, back.ExileVotes)
	assert.Equal(t, *s.SheriffTransfer, *back.SheriffTransfer)
	assert.Equal(t, 4, back.History[0].Night.WolfTarget)
}

func TestClone_IsIndependent(t *testing.T) {
	tb := eightSeats()
	s := tb.at(NodeNight)
	s.TiedPlayers = []int{1, 2}
	s.LastWords = map[int]string{1: "bye"}

	c := s.Clone()
	c.Player(1).IsAlive = false
	c.TiedPlayers[0] = 9
	c.LastWords[1] = "changed"

	assert.True(t, s.IsAlive(1))
	assert.Equal(t, []int{1, 2}, s.TiedPlayers)
	assert.Equal(t, "bye", s.LastWords[1])
}

func TestClassicWerewolfConfig(t *testing.T) {
	cfg := ClassicWerewolfConfig()
	assert.True(t, cfg.SheriffEnabled)
	assert.Equal(t, DefaultSheriffVoteWeight, cfg.SheriffVoteWeight)
	assert.Equal(t, DefaultMaxRounds, cfg.MaxRounds)
	assert.False(t, cfg.GuardMaySelfProtect)

	e := NewEngine(RulesConfig{}, nil)
	assert.Equal(t, DefaultMaxRounds, e.Config().MaxRounds)
	assert.Equal(t, DefaultSheriffVoteWeight, e.Config().SheriffVoteWeight)
}

func TestRun_CompletesAndPersists(t *testing.T) {
	tb := eightSeats()
	tb.agents[6].run = true
	st := &fakeGameStore{}
	ev := &fakeEventStore{}
	pub := &fakePublisher{}
	e := tb.engine(ClassicWerewolfConfig(), WithStores(st, ev), WithPublisher(pub))

	final, err := e.Run(context.Background(), tb.state.Clone(), rand.New(rand.NewSource(11)))
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, final.Status)
	assert.Equal(t, WinnerVillagers, final.Winner)
	assert.Empty(t, final.Node)
	assert.Equal(t, HistoryJudgment, lastHistory(final).Type)

	assert.Equal(t, StatusEnded, st.status)
	assert.Equal(t, WinnerVillagers, st.winner)
	require.Len(t, ev.entries, len(final.Memory))
	for i, entry := range ev.entries {
		assert.Equal(t, i+1, entry.Seq)
	}
	assert.Equal(t, len(final.Memory), pub.count)

	prevHistory := 0
	for i, snap := range st.snapshots {
		s, err := StateFromMap(snap)
		require.NoError(t, err)
		alive := 0
		for _, p := range s.Players {
			if p.IsSheriff && p.IsAlive {
				alive++
			}
		}
		assert.LessOrEqual(t, alive, 1, "snapshot %d has %d sheriffs", i, alive)
		assert.GreaterOrEqual(t, len(s.History), prevHistory, "history only grows")
		prevHistory = len(s.History)
	}
	assert.Equal(t, 6, final.SheriffID(), "sheriff elected unopposed on day 1")
}

func TestRun_RoundCapEndsInconclusive(t *testing.T) {
	tb := eightSeats()
	abstainAll(tb)
	for _, id := range []int{1, 2} {
		tb.agents[id].kill = always(NoTarget)
	}
	cfg := noSheriff()
	cfg.MaxRounds = 3
	st := &fakeGameStore{}

	final, err := tb.engine(cfg, WithStores(st, &fakeEventStore{})).Run(context.Background(), tb.state.Clone(), rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	assert.Equal(t, StatusInconclusive, final.Status)
	assert.Empty(t, final.Winner)
	assert.Equal(t, 4, final.RoundNumber)
	assert.Len(t, final.AliveIDs(), 8)
	assert.Equal(t, StatusInconclusive, st.status)
}

func randomPolicy(tb *table) {
	pick := func(t Turn, eligible []int) int {
		if len(eligible) == 0 {
			return NoTarget
		}
		return eligible[t.Rand.Intn(len(eligible))]
	}
	for _, a := range tb.agents {
		a.vote = func(t Turn, _ Ballot, eligible []int) int { return pick(t, eligible) }
		a.kill = pick
		a.check = pick
		a.protect = pick
		a.transfer = pick
		a.run = a.id%3 == 0
	}
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	run := func(parallel bool) *GameState {
		tb := eightSeats()
		randomPolicy(tb)
		cfg := ClassicWerewolfConfig()
		cfg.ParallelDecisions = parallel
		final, err := tb.engine(cfg).Run(context.Background(), tb.state.Clone(), rand.New(rand.NewSource(42)))
		require.NoError(t, err)
		return final
	}
	seq := run(false)
	par := run(true)
	assert.Equal(t, seq.Winner, par.Winner)
	assert.Equal(t, seq.Status, par.Status)
	assert.Equal(t, seq.Memory, par.Memory)
	assert.Equal(t, seq.History, par.History)
}

func TestRun_SameSeedSameGame(t *testing.T) {
	run := func() *GameState {
		tb := eightSeats()
		randomPolicy(tb)
		final, err := tb.engine(ClassicWerewolfConfig()).Run(context.Background(), tb.state.Clone(), rand.New(rand.NewSource(9)))
		require.NoError(t, err)
		return final
	}
	assert.Equal(t, run().Memory, run().Memory)
}

func TestRun_MissingSeatIsConfigurationError(t *testing.T) {
	tb := fiveSeats()
	delete(tb.agents, 5)
	list := []Agent{tb.agents[1], tb.agents[2], tb.agents[3], tb.agents[4]}
	e := NewEngine(ClassicWerewolfConfig(), list)

	_, err := e.Run(context.Background(), tb.state.Clone(), rand.New(rand.NewSource(1)))
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

// basicAgent has only the shared decisions.
type basicAgent struct {
	id   int
	role Role
}

func (a basicAgent) ID() int                                     { return a.id }
func (a basicAgent) Role() Role                                  { return a.role }
func (a basicAgent) DecideSheriffRun(context.Context, Turn) bool { return false }
func (a basicAgent) DecideWithdraw(context.Context, Turn) bool   { return false }
func (a basicAgent) DecideSpeakingOrder(context.Context, Turn) SpeakingOrder {
	return OrderForward
}
func (a basicAgent) DecideVote(context.Context, Turn, Ballot, []int) int { return NoTarget }
func (a basicAgent) DecideSpeech(context.Context, Turn, SpeechContext) string {
	return ""
}
func (a basicAgent) DecideSheriffTransfer(context.Context, Turn, []int) int { return NoTarget }

func TestCheckSeats(t *testing.T) {
	tb := fiveSeats()
	list := []Agent{basicAgent{1, RoleWerewolf}, tb.agents[2], tb.agents[3], tb.agents[4], tb.agents[5]}
	err := NewEngine(ClassicWerewolfConfig(), list).CheckSeats(tb.state)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "lacks werewolf actions")

	list[0] = tb.agents[1]
	tb.agents[3].role = RoleVillager
	err = NewEngine(ClassicWerewolfConfig(), list).CheckSeats(tb.state)
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "agent 3 plays villager")

	tb.agents[3].role = RoleSeer
	assert.NoError(t, NewEngine(ClassicWerewolfConfig(), list).CheckSeats(tb.state))
}

func TestRun_CanceledEndsInconclusive(t *testing.T) {
	tb := eightSeats()
	st := &fakeGameStore{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	final, err := tb.engine(ClassicWerewolfConfig(), WithStores(st, &fakeEventStore{})).Run(ctx, tb.state.Clone(), rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusInconclusive, final.Status)
	assert.Equal(t, StatusInconclusive, st.status)
}

func TestCollect_MergesByPosition(t *testing.T) {
	ids := []int{1, 2, 3, 4}
	got := collect(context.Background(), true, ids, rand.New(rand.NewSource(1)), func(ctx context.Context, id int, r *rand.Rand) int {
		time.Sleep(time.Duration(5-id) * time.Millisecond)
		return id * 10
	})
	assert.Equal(t, []int{10, 20, 30, 40}, got)
}

func TestStep_UnknownNode(t *testing.T) {
	tb := fiveSeats()
	s := tb.at("nowhere")
	_, err := tb.engine(ClassicWerewolfConfig()).Step(context.Background(), s, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	tb := fiveSeats()
	s := tb.at(NodeJudgment, 1, 2)
	s.Player(3).IsSheriff = true
	d := NewDiagnostics()
	d.Record(KindExileVote, ReasonOracleAbsent)

	hidden := Summarize(s, d, false, false)
	for _, p := range hidden.Players {
		assert.Empty(t, p.Role)
	}
	assert.Empty(t, hidden.History)
	assert.True(t, hidden.Players[2].IsSheriff)

	shown := Summarize(s, d, true, true)
	assert.Equal(t, RoleWerewolf, shown.Players[0].Role)
	assert.Equal(t, []DiagnosticCount{{Kind: KindExileVote, Reason: ReasonOracleAbsent, Count: 1}}, shown.Diagnostics)
	assert.Contains(t, shown.Text(), "sheriff")
}
