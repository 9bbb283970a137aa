package games

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/vntrieu/werewolf/internal/memory"
)

// runSheriffCampaign collects opt-ins, campaign speeches and withdrawals.
// Zero or all players running voids the badge for the whole game.
func (e *Engine) runSheriffCampaign(ctx context.Context, s *GameState, rng *rand.Rand) *GameState {
	next := s.Clone()
	next.CurrentPhase = PhaseDay
	next.record(memory.Public(memory.KindSheriff, "Day 1 begins with the sheriff election."))

	alive := next.AliveIDs()
	runs := collect(ctx, e.config.ParallelDecisions, alive, rng, func(ctx context.Context, id int, r *rand.Rand) bool {
		return e.agents[id].DecideSheriffRun(ctx, e.turn(next, r))
	})
	candidates := make([]int, 0)
	for i, id := range alive {
		if runs[i] {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 || len(candidates) == len(alive) {
		reason := "nobody ran"
		if len(candidates) > 0 {
			reason = "everyone ran"
		}
		return voidBadge(next, reason)
	}

	next.SheriffCandidates = candidates
	next.record(memory.Public(memory.KindSheriff, "Candidates: "+idList(next, candidates)+"."))

	order := append([]int(nil), candidates...)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	speeches := e.speak(ctx, next, rng, order, SpeechContext{Kind: SpeechCampaign, Candidates: candidates})

	for _, id := range order {
		if e.agents[id].DecideWithdraw(ctx, e.turn(next, rng)) {
			next.Withdrawn = append(next.Withdrawn, id)
			next.record(memory.Public(memory.KindSheriff, fmt.Sprintf("%s withdraws from the election.", next.PlayerName(id))))
		}
	}
	remaining := without(candidates, next.Withdrawn...)
	next.SheriffCandidates = remaining
	next.addHistory(HistoryEntry{Type: HistorySheriffCampaign, Speeches: speeches, Result: idList(next, remaining)})

	switch len(remaining) {
	case 0:
		return voidBadge(next, "every candidate withdrew")
	case 1:
		electSheriff(next, remaining[0], "unopposed")
	}
	return next
}

// SheriffBallot returns the players voter may vote for in the current sheriff round.
func SheriffBallot(s *GameState, voter int) []int {
	pool := s.SheriffCandidates
	if s.SheriffVoteRound > 0 {
		pool = s.SheriffTied
	}
	return without(pool, voter)
}

// runSheriffVote tallies one sheriff round. A first-round tie sets up the PK
// round; a PK tie voids the badge.
func (e *Engine) runSheriffVote(ctx context.Context, s *GameState, rng *rand.Rand) *GameState {
	next := s.Clone()
	next.CurrentPhase = PhaseDay
	pool := next.SheriffCandidates
	if next.SheriffVoteRound > 0 {
		pool = next.SheriffTied
	}

	voters := next.AliveIDs()
	picks := collect(ctx, e.config.ParallelDecisions, voters, rng, func(ctx context.Context, id int, r *rand.Rand) int {
		return e.agents[id].DecideVote(ctx, e.turn(next, r), BallotSheriff, SheriffBallot(next, id))
	})
	votes := make(map[int]int)
	tally := make(map[int]float64)
	for i, id := range voters {
		target := e.accept(next, KindSheriffVote, id, picks[i], SheriffBallot(next, id))
		if target == NoTarget {
			continue
		}
		votes[id] = target
		tally[target]++
	}
	next.SheriffVotes = votes
	next.record(memory.Public(memory.KindVote, "Sheriff votes: "+voteList(next, voters, votes)+"."))

	top := topScorers(tally)
	if len(top) == 0 {
		top = sortedIDs(pool)
	}
	h := HistoryEntry{Type: HistorySheriffVote, Votes: votes, Tally: tally}

	switch {
	case len(top) == 1:
		h.Subject = top[0]
		h.Result = "elected"
		next.addHistory(h)
		electSheriff(next, top[0], "elected")
	case next.SheriffVoteRound == 0:
		next.SheriffVoteRound = 1
		next.SheriffTied = top
		h.Result = "tie"
		next.addHistory(h)
		next.record(memory.Public(memory.KindSheriff, "Tie between "+idList(next, top)+": PK round."))
	default:
		h.Result = "tie"
		next.addHistory(h)
		next = voidBadge(next, "the PK round tied again")
	}
	return next
}

// runSheriffPK gives the tied candidates a second speech.
func (e *Engine) runSheriffPK(ctx context.Context, s *GameState, rng *rand.Rand) *GameState {
	next := s.Clone()
	speeches := e.speak(ctx, next, rng, next.SheriffTied, SpeechContext{Kind: SpeechPK, Candidates: next.SheriffTied})
	next.addHistory(HistoryEntry{Type: HistorySheriffCampaign, Speeches: speeches, Result: "pk"})
	return next
}

func electSheriff(next *GameState, id int, how string) {
	for i := range next.Players {
		next.Players[i].IsSheriff = next.Players[i].ID == id
	}
	next.SheriffElectionDone = true
	next.SheriffTied = nil
	next.record(memory.Public(memory.KindSheriff, fmt.Sprintf("%s is the sheriff (%s).", next.PlayerName(id), how)))
}

func voidBadge(next *GameState, reason string) *GameState {
	next.SheriffCandidates = nil
	next.SheriffTied = nil
	next.SheriffElectionDone = true
	next.record(memory.Public(memory.KindSheriff, "No sheriff this game: "+reason+"."))
	return next
}

// transferBadge lets a sheriff who just died pass the badge to a living
// player or destroy it.
func (e *Engine) transferBadge(ctx context.Context, next *GameState, rng *rand.Rand) {
	var from *Player
	for i := range next.Players {
		if next.Players[i].IsSheriff && !next.Players[i].IsAlive {
			from = &next.Players[i]
		}
	}
	if from == nil {
		return
	}
	from.IsSheriff = false
	fromID := from.ID

	eligible := next.AliveIDs()
	to := NoTarget
	if len(eligible) > 0 && next.Status == StatusPlaying {
		to = e.accept(next, KindSheriffTransfer, fromID,
			e.agents[fromID].DecideSheriffTransfer(ctx, e.turn(next, rng), eligible), eligible)
	}
	next.SheriffTransfer = &SheriffTransfer{FromID: fromID, ToID: to, Destroyed: to == NoTarget}
	msg := fmt.Sprintf("%s destroys the sheriff badge.", next.PlayerName(fromID))
	if to != NoTarget {
		next.Player(to).IsSheriff = true
		msg = fmt.Sprintf("%s passes the sheriff badge to %s.", next.PlayerName(fromID), next.PlayerName(to))
	}
	next.record(memory.Public(memory.KindSheriff, msg))
	next.addHistory(HistoryEntry{Type: HistorySheriffTransfer, Subject: to, Result: msg})
}

// speak asks each living id in order for a speech of the given kind and
// records it publicly.
func (e *Engine) speak(ctx context.Context, next *GameState, rng *rand.Rand, order []int, sc SpeechContext) []Speech {
	speeches := make([]Speech, 0, len(order))
	for i, id := range order {
		if !next.IsAlive(id) {
			continue
		}
		sc.Position = i + 1
		text := strings.TrimSpace(e.agents[id].DecideSpeech(ctx, e.turn(next, rng), sc))
		speeches = append(speeches, Speech{PlayerID: id, Text: text})
		entry := memory.Public(memory.KindSpeech, text)
		entry.Speaker = id
		next.record(entry)
	}
	return speeches
}

func idList(s *GameState, ids []int) string {
	if len(ids) == 0 {
		return "none"
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = s.PlayerName(id)
	}
	return strings.Join(names, ", ")
}

func voteList(s *GameState, voters []int, votes map[int]int) string {
	parts := make([]string, 0, len(voters))
	for _, id := range voters {
		target, ok := votes[id]
		if !ok {
			parts = append(parts, fmt.Sprintf("#%d abstains", id))
			continue
		}
		parts = append(parts, fmt.Sprintf("#%d→#%d", id, target))
	}
	return strings.Join(parts, ", ")
}
