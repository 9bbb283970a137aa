package games

import (
	"fmt"
	"strings"
)

// PlayerSummary is one seat in a run summary. Role is empty when hidden.
type PlayerSummary struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Role      Role   `json:"role,omitempty"`
	IsAlive   bool   `json:"is_alive"`
	IsSheriff bool   `json:"is_sheriff"`
}

// Summary is the run summary derived from a GameState.
type Summary struct {
	GameID      string            `json:"game_id"`
	Status      string            `json:"status"`
	Winner      string            `json:"winner,omitempty"`
	DayNumber   int               `json:"day_number"`
	RoundNumber int               `json:"round_number"`
	Players     []PlayerSummary   `json:"players"`
	History     []HistoryEntry    `json:"history,omitempty"`
	Diagnostics []DiagnosticCount `json:"diagnostics,omitempty"`
}

// Summarize builds the summary of s. Roles are included only when revealRoles
// is set; the history (which names roles) only when withHistory is set.
func Summarize(s *GameState, diag *Diagnostics, revealRoles, withHistory bool) Summary {
	out := Summary{
		GameID:      s.GameID,
		Status:      s.Status,
		Winner:      s.Winner,
		DayNumber:   s.DayNumber,
		RoundNumber: s.RoundNumber,
		Players:     make([]PlayerSummary, 0, len(s.Players)),
		Diagnostics: diag.Report(),
	}
	for _, p := range s.Players {
		ps := PlayerSummary{ID: p.ID, Name: p.Name, IsAlive: p.IsAlive, IsSheriff: p.IsSheriff && p.IsAlive}
		if revealRoles {
			ps.Role = p.Role
		}
		out.Players = append(out.Players, ps)
	}
	if withHistory {
		out.History = s.History
	}
	return out
}

// Text renders the summary for a console.
func (sum Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game %s: %s", sum.GameID, sum.Status)
	if sum.Winner != "" {
		fmt.Fprintf(&b, ", %s win", sum.Winner)
	}
	fmt.Fprintf(&b, " (day %d, round %d)\n", sum.DayNumber, sum.RoundNumber)
	for _, p := range sum.Players {
		mark := "dead"
		if p.IsAlive {
			mark = "alive"
		}
		if p.IsSheriff {
			mark += ", sheriff"
		}
		role := string(p.Role)
		if role == "" {
			role = "?"
		}
		fmt.Fprintf(&b, "  #%d %-12s %-9s %s\n", p.ID, p.Name, role, mark)
	}
	for _, h := range sum.History {
		fmt.Fprintf(&b, "  [day %d %s] %s", h.Day, h.Phase, h.Type)
		if len(h.Deaths) > 0 {
			fmt.Fprintf(&b, " deaths=%v", h.Deaths)
		}
		if h.Result != "" {
			fmt.Fprintf(&b, " %s", h.Result)
		}
		b.WriteByte('\n')
	}
	for _, d := range sum.Diagnostics {
		fmt.Fprintf(&b, "  fallback %s/%s: %d\n", d.Kind, d.Reason, d.Count)
	}
	return b.String()
}
