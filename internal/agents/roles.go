package agents

import (
	"context"
	"fmt"

	"github.com/vntrieu/werewolf/internal/games"
	"github.com/vntrieu/werewolf/internal/oracle"
)

// Villager has only the shared decisions.
type Villager struct{ *base }

// Werewolf talks in the wolf channel, votes on the night kill and may
// self-detonate during discussion.
type Werewolf struct{ *base }

func (w *Werewolf) WolfChat(ctx context.Context, t games.Turn) string {
	d, ok := w.ask(ctx, t, games.KindWolfChat, oracle.ExpectSpeech, "Talk privately with your fellow werewolves about tonight's target.", games.KillTargets(t.State))
	if !ok {
		return fmt.Sprintf("%s: let's pick someone quiet tonight.", w.name)
	}
	return d.Speech
}

func (w *Werewolf) DecideKill(ctx context.Context, t games.Turn, eligible []int) int {
	return w.target(ctx, t, games.KindKill, "Choose tonight's kill target, or null to hold back.", eligible, true,
		func() int { return randomOf(t, eligible) })
}

func (w *Werewolf) DecideSelfDetonate(ctx context.Context, t games.Turn) bool {
	return w.flag(ctx, t, games.KindSelfDetonate, "Do you self-detonate now? You die at once, discussion ends and there is no exile vote today. Set flag.", false)
}

// Seer checks one player a night.
type Seer struct{ *base }

// DecideCheck falls back to a random player the seer has not checked yet.
func (s *Seer) DecideCheck(ctx context.Context, t games.Turn, eligible []int) int {
	return s.target(ctx, t, games.KindCheck, "Choose a player to check tonight.", eligible, true, func() int {
		var fresh []int
		for _, id := range eligible {
			if !t.State.CheckedBySeer(id) {
				fresh = append(fresh, id)
			}
		}
		if len(fresh) > 0 {
			return randomOf(t, fresh)
		}
		return randomOf(t, eligible)
	})
}

// Guard shields one player a night, never the same one twice in a row.
type Guard struct{ *base }

func (g *Guard) DecideProtect(ctx context.Context, t games.Turn, eligible []int) int {
	eligible = without(eligible, t.State.LastProtected)
	return g.target(ctx, t, games.KindProtect, "Choose a player to protect tonight.", eligible, true,
		func() int { return randomOf(t, eligible) })
}

// Witch holds one antidote and one poison for the whole game.
type Witch struct{ *base }

// DecideAntidote falls back to saving herself on the first night only.
func (w *Witch) DecideAntidote(ctx context.Context, t games.Turn, victim int) bool {
	fallback := t.State.DayNumber == 1 && victim == w.id
	instruction := fmt.Sprintf("The werewolves attacked %s tonight. Use your antidote to save them? Set flag.", t.State.PlayerName(victim))
	return w.flag(ctx, t, games.KindAntidote, instruction, fallback)
}

func (w *Witch) DecidePoison(ctx context.Context, t games.Turn, eligible []int) int {
	eligible = without(eligible, w.id)
	return w.target(ctx, t, games.KindPoison, "Poison a player tonight, or null to keep the poison.", eligible, true,
		func() int { return games.NoTarget })
}

func without(list []int, drop int) []int {
	out := make([]int, 0, len(list))
	for _, id := range list {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
