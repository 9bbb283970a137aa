package games

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/vntrieu/werewolf/internal/memory"
)

// Decision kinds used for diagnostics and logs.
const (
	KindWolfChat        = "wolf_chat"
	KindKill            = "kill"
	KindCheck           = "check"
	KindProtect         = "protect"
	KindAntidote        = "antidote"
	KindPoison          = "poison"
	KindSheriffRun      = "sheriff_run"
	KindWithdraw        = "withdraw"
	KindSheriffVote     = "sheriff_vote"
	KindExileVote       = "exile_vote"
	KindSpeech          = "speech"
	KindSpeakingOrder   = "speaking_order"
	KindSelfDetonate    = "self_detonate"
	KindSheriffTransfer = "sheriff_transfer"
)

// KillTargets are the players werewolves may attack: living non-werewolves.
func KillTargets(s *GameState) []int {
	out := make([]int, 0)
	for _, p := range s.Players {
		if p.IsAlive && p.Role != RoleWerewolf {
			out = append(out, p.ID)
		}
	}
	return out
}

// CheckTargets are the players the seer may check: living, not self.
func CheckTargets(s *GameState, seer int) []int {
	return without(s.AliveIDs(), seer)
}

// ProtectTargets are the players the guard may shield tonight: living, never
// last night's target, and not self unless selfAllowed.
func ProtectTargets(s *GameState, guard int, selfAllowed bool) []int {
	out := without(s.AliveIDs(), s.LastProtected)
	if !selfAllowed {
		out = without(out, guard)
	}
	return out
}

// PoisonTargets are the players the witch may poison: living, not self.
func PoisonTargets(s *GameState, witch int) []int {
	return without(s.AliveIDs(), witch)
}

// runNight collects the night actions in the fixed order werewolves → seer →
// guard → witch and applies all deaths at once.
func (e *Engine) runNight(ctx context.Context, s *GameState, rng *rand.Rand) *GameState {
	next := s.Clone()
	next.CurrentPhase = PhaseNight
	if next.RoundNumber > e.config.MaxRounds {
		next.Status = StatusInconclusive
		next.record(memory.Public(memory.KindAnnouncement,
			fmt.Sprintf("Round cap of %d reached: the game ends without a winner.", e.config.MaxRounds)))
		return next
	}
	next.Protected = NoTarget
	next.SelfDetonated = false
	next.DetonatorID = NoTarget
	next.record(memory.Public(memory.KindAnnouncement, fmt.Sprintf("Night %d falls. Everyone closes their eyes.", next.DayNumber)))

	rec := &NightRecord{}
	rec.WolfTarget, rec.KillVotes = e.werewolvesAct(ctx, next, rng)
	rec.SeerCheck, rec.SeerResult = e.seerActs(ctx, next, rng)
	rec.Protected = e.guardActs(ctx, next, rng)
	rec.Cured, rec.PoisonTarget = e.witchActs(ctx, next, rng, rec.WolfTarget)

	rec.Deaths = ResolveNight(rec.WolfTarget, rec.Protected, rec.Cured, rec.PoisonTarget)
	for _, id := range rec.Deaths {
		next.kill(id)
	}
	next.LastProtected = rec.Protected
	next.LastNightDeaths = rec.Deaths
	next.addHistory(HistoryEntry{Type: HistoryNight, Night: rec, Deaths: rec.Deaths})
	return Judge(next)
}

// ResolveNight computes the night's deaths in ascending id order. The guard's
// shield and the antidote cancel only the werewolves' attack; poison always lands.
func ResolveNight(wolfTarget, protected, cured, poisoned int) []int {
	deaths := make([]int, 0, 2)
	if wolfTarget != NoTarget && wolfTarget != protected && wolfTarget != cured {
		deaths = append(deaths, wolfTarget)
	}
	if poisoned != NoTarget && !contains(deaths, poisoned) {
		deaths = append(deaths, poisoned)
	}
	return sortedIDs(deaths)
}

func (e *Engine) werewolvesAct(ctx context.Context, next *GameState, rng *rand.Rand) (int, map[int]int) {
	wolves := next.AliveWithRole(RoleWerewolf)
	if len(wolves) == 0 {
		return NoTarget, nil
	}
	for _, id := range wolves {
		w := e.agents[id].(WerewolfAgent)
		if msg := strings.TrimSpace(w.WolfChat(ctx, e.turn(next, rng))); msg != "" {
			entry := memory.ForRole(string(RoleWerewolf), memory.KindWolfChat, msg)
			entry.Speaker = id
			next.record(entry)
		}
	}

	eligible := KillTargets(next)
	picks := collect(ctx, e.config.ParallelDecisions, wolves, rng, func(ctx context.Context, id int, r *rand.Rand) int {
		return e.agents[id].(WerewolfAgent).DecideKill(ctx, e.turn(next, r), eligible)
	})
	votes := make(map[int]int, len(wolves))
	tally := make(map[int]float64)
	for i, id := range wolves {
		target := e.accept(next, KindKill, id, picks[i], eligible)
		if target == NoTarget {
			continue
		}
		votes[id] = target
		tally[target]++
	}
	top := topScorers(tally)
	target := NoTarget
	switch len(top) {
	case 0:
		next.record(memory.ForRole(string(RoleWerewolf), memory.KindKillVote, "The pack could not agree on a target tonight."))
	case 1:
		target = top[0]
	default:
		target = top[rng.Intn(len(top))]
	}
	if target != NoTarget {
		next.record(memory.ForRole(string(RoleWerewolf), memory.KindKillVote,
			fmt.Sprintf("The pack attacks %s.", next.PlayerName(target))))
	}
	return target, votes
}

func (e *Engine) seerActs(ctx context.Context, next *GameState, rng *rand.Rand) (int, string) {
	seers := next.AliveWithRole(RoleSeer)
	if len(seers) == 0 {
		return NoTarget, ""
	}
	id := seers[0]
	eligible := CheckTargets(next, id)
	target := e.accept(next, KindCheck, id, e.agents[id].(SeerAgent).DecideCheck(ctx, e.turn(next, rng), eligible), eligible)
	if target == NoTarget {
		return NoTarget, ""
	}
	isWolf := next.Player(target).Role == RoleWerewolf
	next.SeerChecks = append(next.SeerChecks, SeerCheck{Day: next.DayNumber, Target: target, IsWerewolf: isWolf})
	result := "good"
	if isWolf {
		result = "werewolf"
	}
	next.record(memory.Private(id, memory.KindCheck, fmt.Sprintf("Your check: %s is %s.", next.PlayerName(target), result)))
	return target, result
}

func (e *Engine) guardActs(ctx context.Context, next *GameState, rng *rand.Rand) int {
	guards := next.AliveWithRole(RoleGuard)
	if len(guards) == 0 {
		return NoTarget
	}
	id := guards[0]
	eligible := ProtectTargets(next, id, e.config.GuardMaySelfProtect)
	target := e.accept(next, KindProtect, id, e.agents[id].(GuardAgent).DecideProtect(ctx, e.turn(next, rng), eligible), eligible)
	next.Protected = target
	if target != NoTarget {
		next.record(memory.Private(id, memory.KindProtect, fmt.Sprintf("You protect %s tonight.", next.PlayerName(target))))
	}
	return target
}

func (e *Engine) witchActs(ctx context.Context, next *GameState, rng *rand.Rand, victim int) (cured, poisoned int) {
	witches := next.AliveWithRole(RoleWitch)
	if len(witches) == 0 {
		return NoTarget, NoTarget
	}
	id := witches[0]
	w := e.agents[id].(WitchAgent)

	if !next.AntidoteUsed && victim != NoTarget {
		next.record(memory.Private(id, memory.KindPotion, fmt.Sprintf("Tonight the werewolves attacked %s.", next.PlayerName(victim))))
		if w.DecideAntidote(ctx, e.turn(next, rng), victim) {
			cured = victim
			next.AntidoteUsed = true
			next.record(memory.Private(id, memory.KindPotion, fmt.Sprintf("You used the antidote on %s.", next.PlayerName(victim))))
		}
	}
	if !next.PoisonUsed {
		eligible := PoisonTargets(next, id)
		poisoned = e.accept(next, KindPoison, id, w.DecidePoison(ctx, e.turn(next, rng), eligible), eligible)
		if poisoned != NoTarget {
			next.PoisonUsed = true
			next.record(memory.Private(id, memory.KindPotion, fmt.Sprintf("You poisoned %s.", next.PlayerName(poisoned))))
		}
	}
	return cured, poisoned
}
