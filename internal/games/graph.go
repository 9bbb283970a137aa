package games

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/vntrieu/werewolf/internal/memory"
)

// Transition labels returned by the route functions.
const (
	TransitionJudgment = "judgment"
	TransitionNight    = "night"
	TransitionSheriff  = "sheriff"
	TransitionVote     = "vote"
	TransitionPK       = "pk"
	TransitionAnnounce = "announce"
	TransitionDiscuss  = "discuss"
	TransitionExile    = "exile"
	TransitionReplay   = "replay"
)

type nodeFunc func(e *Engine, ctx context.Context, s *GameState, rng *rand.Rand) *GameState

type node struct {
	run   nodeFunc
	route func(s *GameState) string
	edges map[string]string
}

var graph map[string]node

func init() {
	graph = map[string]node{
		NodeNight: {
			run:   (*Engine).runNight,
			route: RouteAfterNight,
			edges: map[string]string{
				TransitionJudgment: NodeJudgment,
				TransitionSheriff:  NodeSheriffCampaign,
				TransitionAnnounce: NodeAnnounceDeath,
			},
		},
		NodeSheriffCampaign: {
			run:   (*Engine).runSheriffCampaign,
			route: RouteAfterSheriffCampaign,
			edges: map[string]string{
				TransitionVote:     NodeSheriffVote,
				TransitionAnnounce: NodeAnnounceDeath,
			},
		},
		NodeSheriffVote: {
			run:   (*Engine).runSheriffVote,
			route: RouteAfterSheriffVote,
			edges: map[string]string{
				TransitionPK:       NodeSheriffPK,
				TransitionAnnounce: NodeAnnounceDeath,
			},
		},
		NodeSheriffPK: {
			run:   (*Engine).runSheriffPK,
			route: func(*GameState) string { return TransitionVote },
			edges: map[string]string{TransitionVote: NodeSheriffVote},
		},
		NodeAnnounceDeath: {
			run:   (*Engine).runAnnounceDeath,
			route: func(s *GameState) string { return TransitionDiscuss },
			edges: map[string]string{TransitionDiscuss: NodeDiscussion},
		},
		NodeDiscussion: {
			run:   (*Engine).runDiscussion,
			route: RouteAfterDiscussion,
			edges: map[string]string{
				TransitionExile:    NodeExileVote,
				TransitionNight:    NodeNight,
				TransitionJudgment: NodeJudgment,
			},
		},
		NodeExileVote: {
			run:   (*Engine).runExileVote,
			route: RouteAfterExile,
			edges: map[string]string{
				TransitionReplay:   NodeDiscussion,
				TransitionNight:    NodeNight,
				TransitionJudgment: NodeJudgment,
			},
		},
		NodeJudgment: {
			run:   (*Engine).runJudgment,
			route: func(*GameState) string { return "" },
		},
	}
}

// RouteAfterNight ends the game, opens the day-1 sheriff election, or goes
// straight to the death announcement.
func RouteAfterNight(s *GameState) string {
	if s.Status != StatusPlaying {
		return TransitionJudgment
	}
	if s.DayNumber == 1 && !s.SheriffElectionDone && sheriffEnabled(s) {
		return TransitionSheriff
	}
	return TransitionAnnounce
}

// RouteAfterSheriffCampaign skips the vote when the badge was voided or
// went to a single remaining candidate.
func RouteAfterSheriffCampaign(s *GameState) string {
	if s.SheriffElectionDone {
		return TransitionAnnounce
	}
	return TransitionVote
}

// RouteAfterSheriffVote sends a first-round tie to the PK round.
func RouteAfterSheriffVote(s *GameState) string {
	if !s.SheriffElectionDone && s.SheriffVoteRound == 1 && len(s.SheriffTied) > 0 {
		return TransitionPK
	}
	return TransitionAnnounce
}

// RouteAfterDiscussion skips the vote after a self-detonation.
func RouteAfterDiscussion(s *GameState) string {
	switch {
	case s.Status != StatusPlaying:
		return TransitionJudgment
	case s.SelfDetonated:
		return TransitionNight
	default:
		return TransitionExile
	}
}

// RouteAfterExile replays a first-round tie, otherwise moves on to the night.
func RouteAfterExile(s *GameState) string {
	switch {
	case s.Status != StatusPlaying:
		return TransitionJudgment
	case s.TieRound == 1 && len(s.TiedPlayers) > 0:
		return TransitionReplay
	default:
		return TransitionNight
	}
}

// sheriffEnabled reads the rule the engine mirrors into every state.
func sheriffEnabled(s *GameState) bool {
	return !s.SheriffDisabled
}

// runJudgment closes the run and reveals every role.
func (e *Engine) runJudgment(_ context.Context, s *GameState, _ *rand.Rand) *GameState {
	next := Judge(s).Clone()
	if next.Status == StatusPlaying {
		next.Status = StatusInconclusive
	}
	reveal := make([]string, 0, len(next.Players))
	for _, p := range next.Players {
		reveal = append(reveal, fmt.Sprintf("%s=%s", next.PlayerName(p.ID), p.Role))
	}
	next.record(memory.Public(memory.KindAnnouncement, "Roles: "+strings.Join(reveal, ", ")+"."))
	result := next.Status
	if next.Winner != "" {
		result = next.Winner
	}
	next.addHistory(HistoryEntry{Type: HistoryJudgment, Result: result})
	e.logger.Info("game %s: %s after %d days (winner %q)", next.GameID, next.Status, next.DayNumber, next.Winner)
	return next
}
