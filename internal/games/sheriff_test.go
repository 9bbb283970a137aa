package games

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fiveSeats: 1,2 werewolves; 3 seer; 4,5 villagers.
func fiveSeats() *table {
	return newTable(RoleWerewolf, RoleWerewolf, RoleSeer, RoleVillager, RoleVillager)
}

func step(t *testing.T, e *Engine, s *GameState) *GameState {
	t.Helper()
	next, err := e.Step(context.Background(), s, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	return next
}

func sheriffs(s *GameState) []int {
	out := []int{}
	for _, p := range s.Players {
		if p.IsSheriff {
			out = append(out, p.ID)
		}
	}
	return out
}

func TestSheriff_TieGoesToPKThenVoids(t *testing.T) {
	tb := fiveSeats()
	tb.agents[1].run = true
	tb.agents[2].run = true
	tb.agents[3].vote = voteFor(1)
	tb.agents[4].vote = voteFor(2)
	tb.agents[5].vote = voteFor(NoTarget)
	e := tb.engine(ClassicWerewolfConfig())

	s := step(t, e, tb.at(NodeSheriffCampaign))
	assert.Equal(t, []int{1, 2}, s.SheriffCandidates)
	assert.Equal(t, NodeSheriffVote, s.Node)

	s = step(t, e, s)
	assert.Equal(t, 1, s.SheriffVoteRound)
	assert.Equal(t, []int{1, 2}, s.SheriffTied)
	assert.Equal(t, TransitionPK, RouteAfterSheriffVote(s))
	assert.Equal(t, NodeSheriffPK, s.Node)
	assert.Empty(t, sheriffs(s))

	s = step(t, e, s)
	assert.Equal(t, NodeSheriffVote, s.Node)
	assert.Equal(t, 2, tb.agents[1].count(KindSpeech), "campaign speech plus PK speech")
	assert.Zero(t, tb.agents[4].count(KindSpeech))

	s = step(t, e, s)
	assert.True(t, s.SheriffElectionDone)
	assert.Empty(t, s.SheriffCandidates)
	assert.Empty(t, s.SheriffTied)
	assert.Empty(t, sheriffs(s))
	assert.Equal(t, NodeAnnounceDeath, s.Node)
}

func TestSheriff_MajorityElects(t *testing.T) {
	tb := fiveSeats()
	tb.agents[1].run = true
	tb.agents[2].run = true
	tb.agents[3].vote = voteFor(1)
	tb.agents[4].vote = voteFor(1)
	tb.agents[5].vote = voteFor(2)
	e := tb.engine(ClassicWerewolfConfig())

	s := step(t, e, step(t, e, tb.at(NodeSheriffCampaign)))
	assert.Equal(t, []int{1}, sheriffs(s))
	assert.Equal(t, 1, s.SheriffID())
	assert.Equal(t, NodeAnnounceDeath, s.Node)
	assert.Equal(t, map[int]int{1: 2, 2: 1, 3: 1, 4: 1, 5: 2}, s.SheriffVotes)
}

func TestSheriff_CandidateCannotVoteForSelf(t *testing.T) {
	tb := fiveSeats()
	tb.agents[1].run = true
	tb.agents[2].run = true
	tb.agents[1].vote = voteFor(1)
	e := tb.engine(ClassicWerewolfConfig())

	s := step(t, e, step(t, e, tb.at(NodeSheriffCampaign)))
	_, voted := s.SheriffVotes[1]
	assert.False(t, voted)
	assert.Equal(t, 1, e.Diagnostics().Count(KindSheriffVote, ReasonInvariant))
}

func TestSheriff_NobodyOrEveryoneRunsVoidsBadge(t *testing.T) {
	for _, everyone := range []bool{false, true} {
		tb := fiveSeats()
		for _, a := range tb.agents {
			a.run = everyone
		}
		s := step(t, tb.engine(ClassicWerewolfConfig()), tb.at(NodeSheriffCampaign))
		assert.True(t, s.SheriffElectionDone)
		assert.Empty(t, s.SheriffCandidates)
		assert.Empty(t, sheriffs(s))
		assert.Equal(t, NodeAnnounceDeath, s.Node)
		assert.Zero(t, tb.agents[1].count(KindWithdraw))
	}
}

func TestSheriff_WithdrawalLeavesSingleCandidate(t *testing.T) {
	tb := fiveSeats()
	tb.agents[1].run = true
	tb.agents[2].run = true
	tb.agents[2].withdraw = true

	s := step(t, tb.engine(ClassicWerewolfConfig()), tb.at(NodeSheriffCampaign))
	assert.Equal(t, []int{2}, s.Withdrawn)
	assert.Equal(t, []int{1}, sheriffs(s))
	assert.Equal(t, NodeAnnounceDeath, s.Node)
}

func TestSheriff_AllWithdrawVoidsBadge(t *testing.T) {
	tb := fiveSeats()
	tb.agents[1].run, tb.agents[1].withdraw = true, true
	tb.agents[2].run, tb.agents[2].withdraw = true, true

	s := step(t, tb.engine(ClassicWerewolfConfig()), tb.at(NodeSheriffCampaign))
	assert.True(t, s.SheriffElectionDone)
	assert.Empty(t, sheriffs(s))
}

func TestSheriff_NightRoutesToElectionOnDayOneOnly(t *testing.T) {
	tb := fiveSeats()
	s := tb.at(NodeNight)
	assert.Equal(t, TransitionSheriff, RouteAfterNight(s))

	s.SheriffElectionDone = true
	assert.Equal(t, TransitionAnnounce, RouteAfterNight(s))

	s.SheriffElectionDone = false
	s.DayNumber = 2
	assert.Equal(t, TransitionAnnounce, RouteAfterNight(s))

	s.DayNumber = 1
	s.SheriffDisabled = true
	assert.Equal(t, TransitionAnnounce, RouteAfterNight(s))
}

func TestSheriff_BadgeTransferOnDeath(t *testing.T) {
	tb := fiveSeats()
	tb.agents[3].transfer = always(4)
	s := tb.at(NodeAnnounceDeath, 3)
	s.DayNumber = 2
	s.Player(3).IsSheriff = true
	s.LastNightDeaths = []int{3}

	next := step(t, tb.engine(ClassicWerewolfConfig()), s)
	assert.Equal(t, []int{4}, sheriffs(next))
	require.NotNil(t, next.SheriffTransfer)
	assert.Equal(t, SheriffTransfer{FromID: 3, ToID: 4}, *next.SheriffTransfer)
}

func TestSheriff_BadgeDestroyedOrInvalidTransfer(t *testing.T) {
	for _, target := range []int{NoTarget, 3, 99} {
		tb := fiveSeats()
		tb.agents[3].transfer = always(target)
		s := tb.at(NodeAnnounceDeath, 3)
		s.DayNumber = 2
		s.Player(3).IsSheriff = true
		s.LastNightDeaths = []int{3}

		next := step(t, tb.engine(ClassicWerewolfConfig()), s)
		assert.Empty(t, sheriffs(next), "target %d", target)
		require.NotNil(t, next.SheriffTransfer)
		assert.True(t, next.SheriffTransfer.Destroyed)
	}
}

func TestSpeakingOrderFor(t *testing.T) {
	alive := []int{1, 2, 3, 4, 5, 6}
	assert.Equal(t, []int{4, 5, 6, 1, 2, 3}, SpeakingOrderFor(alive, 3, OrderForward))
	assert.Equal(t, []int{2, 1, 6, 5, 4, 3}, SpeakingOrderFor(alive, 3, OrderReverse))
	assert.Equal(t, []int{2, 3, 4, 5, 6, 1}, SpeakingOrderFor(alive, 1, OrderForward))
	assert.Equal(t, []int{6, 5, 4, 3, 2, 1}, SpeakingOrderFor(alive, 1, OrderReverse))
	assert.Equal(t, alive, SpeakingOrderFor(alive, 9, OrderReverse))
}
