package games

import (
	"fmt"

	"github.com/vntrieu/werewolf/internal/memory"
)

// FactionCounts are the living members of each purge-rule category.
type FactionCounts struct {
	Werewolves int `json:"werewolves"`
	Villagers  int `json:"villagers"`
	Gods       int `json:"gods"`
}

// CountAlive tallies living players by category.
func CountAlive(s *GameState) FactionCounts {
	var c FactionCounts
	for _, p := range s.Players {
		if !p.IsAlive {
			continue
		}
		switch p.Role.Category() {
		case CategoryKill:
			c.Werewolves++
		case CategoryPlain:
			c.Villagers++
		case CategoryGod:
			c.Gods++
		}
	}
	return c
}

// Judge applies the purge rule: the game ends as soon as a category that was
// dealt at the start has no living members. Werewolves win if the villagers or
// the gods are gone (checked first); the village wins if the werewolves are.
// A state that is not playing is returned unchanged.
func Judge(s *GameState) *GameState {
	if s == nil || s.Status != StatusPlaying {
		return s
	}
	winner := purgeWinner(s)
	if winner == "" {
		return s
	}
	next := s.Clone()
	next.Status = StatusEnded
	next.Winner = winner
	next.record(memory.Public(memory.KindAnnouncement, fmt.Sprintf("Game over: the %s win.", winner)))
	return next
}

func purgeWinner(s *GameState) string {
	alive := CountAlive(s)
	dealt := CountRoles(s.Players)
	var plainDealt, godDealt, killDealt int
	for role, n := range dealt {
		switch role.Category() {
		case CategoryPlain:
			plainDealt += n
		case CategoryGod:
			godDealt += n
		case CategoryKill:
			killDealt += n
		}
	}
	if (plainDealt > 0 && alive.Villagers == 0) || (godDealt > 0 && alive.Gods == 0) {
		return WinnerWerewolves
	}
	if killDealt > 0 && alive.Werewolves == 0 {
		return WinnerVillagers
	}
	return ""
}
