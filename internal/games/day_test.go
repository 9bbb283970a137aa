package games

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func abstainAll(tb *table) {
	for _, a := range tb.agents {
		a.vote = voteFor(NoTarget)
	}
}

func lastHistory(s *GameState) HistoryEntry {
	return s.History[len(s.History)-1]
}

func TestExile_ThreeWayTieReplaysThenSkips(t *testing.T) {
	tb := newTable(RoleWerewolf, RoleSeer, RoleVillager, RoleVillager, RoleGuard)
	tb.agents[1].vote = voteFor(2)
	tb.agents[2].vote = voteFor(3)
	tb.agents[3].vote = voteFor(1)
	e := tb.engine(noSheriff())

	s := step(t, e, tb.at(NodeExileVote, 4, 5))
	assert.Equal(t, TransitionReplay, RouteAfterExile(s))
	assert.Equal(t, NodeDiscussion, s.Node)
	assert.Equal(t, 1, s.TieRound)
	assert.Equal(t, []int{1, 2, 3}, s.TiedPlayers)
	assert.Len(t, s.AliveIDs(), 3)

	s = step(t, e, s)
	require.Equal(t, NodeExileVote, s.Node)
	speeches := lastHistory(s).Speeches
	require.Len(t, speeches, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{speeches[0].PlayerID, speeches[1].PlayerID, speeches[2].PlayerID})

	s = step(t, e, s)
	assert.Equal(t, NodeNight, s.Node)
	assert.Equal(t, "no_exile", lastHistory(s).Result)
	assert.Len(t, s.AliveIDs(), 3)
	assert.Equal(t, 2, s.DayNumber)
	assert.Zero(t, s.TieRound)
	assert.Empty(t, s.TiedPlayers)
}

func TestExile_SingleTopScorerIsExiled(t *testing.T) {
	tb := eightSeats()
	for _, a := range tb.agents {
		a.vote = voteFor(6)
	}
	tb.agents[6].vote = voteFor(1)
	e := tb.engine(noSheriff())

	before := tb.at(NodeExileVote)
	s := step(t, e, before)
	for _, p := range s.Players {
		assert.Equal(t, p.ID != 6, p.IsAlive, "player %d", p.ID)
	}
	assert.Equal(t, 6, lastHistory(s).Subject)
	assert.Contains(t, s.LastWords, 6)
	assert.Equal(t, NodeNight, s.Node)
	assert.Equal(t, PhaseNight, s.CurrentPhase)
	assert.Len(t, before.AliveIDs(), 8, "input state untouched")
}

func TestExile_ReplayBallotIsRestricted(t *testing.T) {
	tb := fiveSeats()
	s := tb.at(NodeExileVote)
	s.TieRound = 1
	s.TiedPlayers = []int{1, 2, 3}
	assert.Equal(t, []int{2, 3}, ExileBallot(s, 1))
	assert.Equal(t, []int{1, 2, 3}, ExileBallot(s, 5))

	s.TiedPlayers = nil
	assert.Equal(t, []int{1, 2, 3, 5}, ExileBallot(s, 4))
}

func TestExile_SheriffVoteWeighs(t *testing.T) {
	tb := eightSeats()
	abstainAll(tb)
	tb.agents[3].vote = voteFor(6)
	tb.agents[7].vote = voteFor(8)

	s := tb.at(NodeExileVote)
	s.Player(3).IsSheriff = true
	next := step(t, tb.engine(ClassicWerewolfConfig()), s)
	assert.False(t, next.IsAlive(6))
	assert.Equal(t, 1.5, lastHistory(next).Tally[6])

	cfg := ClassicWerewolfConfig()
	cfg.SheriffVoteWeight = 1
	next = step(t, tb.engine(cfg), s)
	assert.Equal(t, NodeDiscussion, next.Node, "equal weights tie")
}

func TestExile_NoVotesGoesToNight(t *testing.T) {
	tb := eightSeats()
	abstainAll(tb)
	s := step(t, tb.engine(noSheriff()), tb.at(NodeExileVote))
	assert.Equal(t, NodeNight, s.Node)
	assert.Equal(t, "no_votes", lastHistory(s).Result)
	assert.Len(t, s.AliveIDs(), 8)
}

func TestExile_LastVillagerExiledEndsGame(t *testing.T) {
	tb := fiveSeats()
	for _, a := range tb.agents {
		a.vote = voteFor(4)
	}
	tb.agents[4].vote = voteFor(1)
	s := step(t, tb.engine(noSheriff()), tb.at(NodeExileVote, 5))
	assert.Equal(t, StatusEnded, s.Status)
	assert.Equal(t, WinnerWerewolves, s.Winner)
	assert.Equal(t, NodeJudgment, s.Node)
}

func TestDiscussion_SelfDetonationEndsDay(t *testing.T) {
	tb := eightSeats()
	tb.agents[1].detonate = func(Turn) bool { return true }
	e := tb.engine(noSheriff())
	s := tb.at(NodeDiscussion)
	s.DayNumber, s.RoundNumber = 2, 2

	next := step(t, e, s)
	assert.False(t, next.IsAlive(1))
	assert.True(t, next.SelfDetonated)
	assert.Equal(t, 1, next.DetonatorID)
	assert.Equal(t, NodeNight, next.Node)
	assert.Equal(t, 3, next.DayNumber)
	for _, h := range next.History {
		assert.NotEqual(t, HistoryExileVote, h.Type)
	}
	for id, a := range tb.agents {
		assert.Zero(t, a.count(string(BallotExile)), "player %d voted", id)
	}

	// the next night clears the flag
	night := step(t, e, next)
	assert.False(t, night.SelfDetonated)
}

func TestDiscussion_SheriffDirectsOrder(t *testing.T) {
	tb := eightSeats()
	tb.agents[3].order = OrderReverse
	s := tb.at(NodeDiscussion)
	s.Player(3).IsSheriff = true

	next := step(t, tb.engine(ClassicWerewolfConfig()), s)
	got := []int{}
	for _, sp := range lastHistory(next).Speeches {
		got = append(got, sp.PlayerID)
	}
	assert.Equal(t, []int{2, 1, 8, 7, 6, 5, 4, 3}, got)
	assert.Equal(t, NodeExileVote, next.Node)
}

func TestAnnounceDeath_FirstNightLastWords(t *testing.T) {
	tb := eightSeats()
	s := tb.at(NodeAnnounceDeath, 6)
	s.LastNightDeaths = []int{6}

	next := step(t, tb.engine(noSheriff()), s)
	assert.Contains(t, next.LastWords, 6)
	assert.Equal(t, NodeDiscussion, next.Node)

	s.DayNumber = 2
	next = step(t, tb.engine(noSheriff()), s)
	assert.Empty(t, next.LastWords)
}
