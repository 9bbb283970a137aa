package agents

import (
	"fmt"
	"strings"

	"github.com/vntrieu/werewolf/internal/games"
	"github.com/vntrieu/werewolf/internal/memory"
)

// Seat is a public roster line: everyone knows who is alive and who wears the badge.
type Seat struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsAlive   bool   `json:"is_alive"`
	IsSheriff bool   `json:"is_sheriff"`
}

// View is everything one seat may know about the game at a decision point.
type View struct {
	AgentID int            `json:"agent_id"`
	Name    string         `json:"name"`
	Role    games.Role     `json:"role"`
	Day     int            `json:"day"`
	Phase   string         `json:"phase"`
	Roster  []Seat         `json:"roster"`
	Entries []memory.Entry `json:"entries"`

	// Role knowledge.
	Teammates     []int             `json:"teammates,omitempty"`   // werewolves
	SeerChecks    []games.SeerCheck `json:"seer_checks,omitempty"` // seer
	LastProtected int               `json:"last_protected,omitempty"`
	AntidoteUsed  bool              `json:"antidote_used,omitempty"`
	PoisonUsed    bool              `json:"poison_used,omitempty"`

	Notes []string `json:"notes,omitempty"`
}

// Observe builds the view of seat id playing role. Log entries pass through
// memory.Visible; role knowledge is added only for the matching role.
func Observe(s *games.GameState, id int, role games.Role) View {
	v := View{
		AgentID: id,
		Role:    role,
		Day:     s.DayNumber,
		Phase:   s.CurrentPhase,
		Roster:  make([]Seat, 0, len(s.Players)),
		Entries: memory.Visible(id, string(role), s.Memory),
	}
	for _, p := range s.Players {
		if p.ID == id {
			v.Name = p.Name
		}
		v.Roster = append(v.Roster, Seat{ID: p.ID, Name: p.Name, IsAlive: p.IsAlive, IsSheriff: p.IsSheriff && p.IsAlive})
	}
	switch role {
	case games.RoleWerewolf:
		for _, p := range s.Players {
			if p.Role == games.RoleWerewolf && p.ID != id {
				v.Teammates = append(v.Teammates, p.ID)
			}
		}
	case games.RoleSeer:
		v.SeerChecks = append(v.SeerChecks, s.SeerChecks...)
	case games.RoleGuard:
		v.LastProtected = s.LastProtected
	case games.RoleWitch:
		v.AntidoteUsed = s.AntidoteUsed
		v.PoisonUsed = s.PoisonUsed
	}
	return v
}

// Text renders the view for the oracle.
func (v View) Text() string {
	var b strings.Builder
	b.WriteString("Players:\n")
	for _, p := range v.Roster {
		status := "alive"
		if !p.IsAlive {
			status = "dead"
		}
		if p.IsSheriff {
			status += ", sheriff"
		}
		you := ""
		if p.ID == v.AgentID {
			you = " (you)"
		}
		fmt.Fprintf(&b, "- #%d %s%s: %s\n", p.ID, p.Name, you, status)
	}

	if len(v.Teammates) > 0 {
		fmt.Fprintf(&b, "Your fellow werewolves: %s\n", ids(v.Teammates))
	}
	if len(v.SeerChecks) > 0 {
		b.WriteString("Your checks:\n")
		for _, c := range v.SeerChecks {
			result := "good"
			if c.IsWerewolf {
				result = "werewolf"
			}
			fmt.Fprintf(&b, "- night %d: #%d is %s\n", c.Day, c.Target, result)
		}
	}
	if v.Role == games.RoleGuard && v.LastProtected != games.NoTarget {
		fmt.Fprintf(&b, "You protected #%d last night and may not protect them again tonight.\n", v.LastProtected)
	}
	if v.Role == games.RoleWitch {
		fmt.Fprintf(&b, "Antidote: %s. Poison: %s.\n", potion(v.AntidoteUsed), potion(v.PoisonUsed))
	}

	if len(v.Entries) > 0 {
		b.WriteString("\nWhat you know so far:\n")
		for _, e := range v.Entries {
			fmt.Fprintf(&b, "[day %d %s] %s\n", e.Day, e.Phase, e.Content)
		}
	}
	if len(v.Notes) > 0 {
		b.WriteString("\nYour earlier reasoning:\n")
		for _, n := range v.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	return b.String()
}

func potion(used bool) string {
	if used {
		return "used"
	}
	return "available"
}

func ids(list []int) string {
	parts := make([]string, len(list))
	for i, id := range list {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, ", ")
}
