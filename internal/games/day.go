package games

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/vntrieu/werewolf/internal/memory"
)

// runAnnounceDeath publishes last night's deaths, collects first-night last
// words and settles the badge if the sheriff died.
func (e *Engine) runAnnounceDeath(ctx context.Context, s *GameState, rng *rand.Rand) *GameState {
	next := s.Clone()
	next.CurrentPhase = PhaseDay
	next.LastWords = nil
	deaths := next.LastNightDeaths
	if len(deaths) == 0 {
		next.record(memory.Public(memory.KindDeath, fmt.Sprintf("Day %d: last night was peaceful.", next.DayNumber)))
	} else {
		next.record(memory.Public(memory.KindDeath, fmt.Sprintf("Day %d: last night %s died.", next.DayNumber, idList(next, deaths))))
	}
	next.addHistory(HistoryEntry{Type: HistoryDeathAnnounce, Deaths: deaths})

	if next.DayNumber == 1 {
		for _, id := range deaths {
			e.lastWords(ctx, next, rng, id)
		}
	}
	e.transferBadge(ctx, next, rng)
	return next
}

// SpeakingOrderFor arranges alive (seat order) for a day's discussion.
// Forward starts after the sheriff and ends with the sheriff; reverse walks
// back from the seat before the sheriff, wraps, and also ends with the sheriff.
func SpeakingOrderFor(alive []int, sheriff int, dir SpeakingOrder) []int {
	idx := -1
	for i, id := range alive {
		if id == sheriff {
			idx = i
		}
	}
	if idx < 0 {
		return append([]int(nil), alive...)
	}
	out := make([]int, 0, len(alive))
	if dir == OrderReverse {
		out = append(out, reversed(alive[:idx])...)
		out = append(out, reversed(alive[idx:])...)
		return out
	}
	out = append(out, alive[idx+1:]...)
	out = append(out, alive[:idx]...)
	return append(out, sheriff)
}

func reversed(ids []int) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

// speakingOrder picks today's order: sheriff-directed when a sheriff lives,
// shuffled otherwise. A replay only hears the tied players, in seat order.
func (e *Engine) speakingOrder(ctx context.Context, next *GameState, rng *rand.Rand) []int {
	if len(next.TiedPlayers) > 0 {
		return sortedIDs(next.TiedPlayers)
	}
	alive := next.AliveIDs()
	if sheriff := next.SheriffID(); sheriff != NoTarget {
		dir := e.agents[sheriff].DecideSpeakingOrder(ctx, e.turn(next, rng))
		if dir != OrderForward && dir != OrderReverse {
			e.diag.Record(KindSpeakingOrder, ReasonInvariant)
			dir = OrderForward
		}
		next.record(memory.Public(memory.KindAnnouncement, fmt.Sprintf("The sheriff chooses the %s speaking order.", dir)))
		return SpeakingOrderFor(alive, sheriff, dir)
	}
	rng.Shuffle(len(alive), func(i, j int) { alive[i], alive[j] = alive[j], alive[i] })
	return alive
}

// runDiscussion lets every speaker talk in order. A werewolf may self-detonate
// on its turn, which kills it and ends the day without an exile vote.
func (e *Engine) runDiscussion(ctx context.Context, s *GameState, rng *rand.Rand) *GameState {
	next := s.Clone()
	next.CurrentPhase = PhaseDay
	kind := SpeechDiscussion
	if len(next.TiedPlayers) > 0 {
		kind = SpeechReplay
	}
	order := e.speakingOrder(ctx, next, rng)
	speeches := make([]Speech, 0, len(order))

	for i, id := range order {
		if !next.IsAlive(id) {
			continue
		}
		if w, ok := e.agents[id].(WerewolfAgent); ok && next.Player(id).Role == RoleWerewolf {
			if w.DecideSelfDetonate(ctx, e.turn(next, rng)) {
				next.addHistory(HistoryEntry{Type: HistoryDiscussion, Speeches: speeches, Result: "interrupted"})
				return e.detonate(ctx, next, rng, id)
			}
		}
		sc := SpeechContext{Kind: kind, Position: i + 1, Candidates: next.TiedPlayers}
		text := strings.TrimSpace(e.agents[id].DecideSpeech(ctx, e.turn(next, rng), sc))
		speeches = append(speeches, Speech{PlayerID: id, Text: text})
		entry := memory.Public(memory.KindSpeech, text)
		entry.Speaker = id
		next.record(entry)
	}
	next.addHistory(HistoryEntry{Type: HistoryDiscussion, Speeches: speeches})
	return next
}

func (e *Engine) detonate(ctx context.Context, next *GameState, rng *rand.Rand, id int) *GameState {
	next.kill(id)
	next.SelfDetonated = true
	next.DetonatorID = id
	entry := memory.Public(memory.KindDetonation, fmt.Sprintf("%s reveals as a werewolf and self-detonates. The day ends.", next.PlayerName(id)))
	entry.Speaker = id
	next.record(entry)
	next.addHistory(HistoryEntry{Type: HistoryDetonation, Subject: id, Deaths: []int{id}})
	judged := Judge(next)
	if judged.Status == StatusPlaying {
		e.transferBadge(ctx, judged, rng)
		endDay(judged)
	}
	return judged
}

// ExileBallot returns the players voter may vote to exile: living players
// (or the tied set during a replay) other than the voter.
func ExileBallot(s *GameState, voter int) []int {
	pool := s.AliveIDs()
	if len(s.TiedPlayers) > 0 {
		pool = make([]int, 0, len(s.TiedPlayers))
		for _, id := range s.TiedPlayers {
			if s.IsAlive(id) {
				pool = append(pool, id)
			}
		}
	}
	return without(pool, voter)
}

// runExileVote tallies the day's vote. The sheriff's vote weighs
// RulesConfig.SheriffVoteWeight. A single top scorer is exiled; a first tie
// sets up a replay among the tied players; a replay tie exiles nobody.
func (e *Engine) runExileVote(ctx context.Context, s *GameState, rng *rand.Rand) *GameState {
	next := s.Clone()
	next.CurrentPhase = PhaseDay
	voters := next.AliveIDs()
	sheriff := next.SheriffID()

	picks := collect(ctx, e.config.ParallelDecisions, voters, rng, func(ctx context.Context, id int, r *rand.Rand) int {
		return e.agents[id].DecideVote(ctx, e.turn(next, r), BallotExile, ExileBallot(next, id))
	})
	votes := make(map[int]int)
	tally := make(map[int]float64)
	for i, id := range voters {
		target := e.accept(next, KindExileVote, id, picks[i], ExileBallot(next, id))
		if target == NoTarget {
			continue
		}
		votes[id] = target
		weight := 1.0
		if id == sheriff {
			weight = e.config.SheriffVoteWeight
		}
		tally[target] += weight
	}
	next.ExileVotes = votes
	next.record(memory.Public(memory.KindVote, "Exile votes: "+voteList(next, voters, votes)+"."))

	top := topScorers(tally)
	h := HistoryEntry{Type: HistoryExileVote, Votes: votes, Tally: tally}
	switch {
	case len(top) == 1:
		exiled := top[0]
		next.kill(exiled)
		h.Subject = exiled
		h.Deaths = []int{exiled}
		h.Result = "exiled"
		next.addHistory(h)
		next.TiedPlayers = nil
		next.TieRound = 0
		next.record(memory.Public(memory.KindDeath, fmt.Sprintf("%s is exiled.", next.PlayerName(exiled))))
		e.lastWords(ctx, next, rng, exiled)
		next = Judge(next)
		if next.Status == StatusPlaying {
			e.transferBadge(ctx, next, rng)
		}
	case len(top) > 1 && next.TieRound == 0:
		h.Result = "tie"
		next.addHistory(h)
		next.TieRound = 1
		next.TiedPlayers = top
		next.record(memory.Public(memory.KindAnnouncement, "Tie between "+idList(next, top)+": they speak again and the vote is repeated."))
		return next
	default:
		h.Result = "no_exile"
		if len(top) == 0 {
			h.Result = "no_votes"
		}
		next.addHistory(h)
		next.TiedPlayers = nil
		next.record(memory.Public(memory.KindAnnouncement, "Nobody is exiled today."))
	}
	if next.Status == StatusPlaying {
		endDay(next)
	}
	return next
}

func (e *Engine) lastWords(ctx context.Context, next *GameState, rng *rand.Rand, id int) {
	text := strings.TrimSpace(e.agents[id].DecideSpeech(ctx, e.turn(next, rng), SpeechContext{Kind: SpeechLastWords}))
	if next.LastWords == nil {
		next.LastWords = make(map[int]string)
	}
	next.LastWords[id] = text
	entry := memory.Public(memory.KindLastWords, text)
	entry.Speaker = id
	next.record(entry)
}

// endDay closes the day: counters advance and the per-day fields are reset.
// The detonation flag survives until the night starts so routing can see it.
func endDay(next *GameState) {
	next.DayNumber++
	next.RoundNumber++
	next.CurrentPhase = PhaseNight
	next.ExileVotes = nil
	next.TieRound = 0
	next.TiedPlayers = nil
	next.LastNightDeaths = nil
	next.SheriffVotes = nil
	next.Withdrawn = nil
}
