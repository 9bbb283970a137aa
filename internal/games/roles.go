package games

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// Role is one of the closed set of werewolf roles.
type Role string

const (
	RoleVillager Role = "villager"
	RoleWerewolf Role = "werewolf"
	RoleSeer     Role = "seer"
	RoleGuard    Role = "guard"
	RoleWitch    Role = "witch"
)

// Roles lists every role in canonical order.
var Roles = []Role{RoleVillager, RoleWerewolf, RoleSeer, RoleGuard, RoleWitch}

// Category groups roles for the purge rule.
type Category string

const (
	CategoryPlain Category = "plain"
	CategoryKill  Category = "kill"
	CategoryGod   Category = "god"
)

// Category returns the purge-rule group of r.
func (r Role) Category() Category {
	switch r {
	case RoleWerewolf:
		return CategoryKill
	case RoleVillager:
		return CategoryPlain
	default:
		return CategoryGod
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole accepts a role name, case-insensitive.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", &ConfigurationError{Reason: fmt.Sprintf("unknown role %q", s)}
	}
	return r, nil
}

// ConfigurationError reports a role distribution that cannot be used for the roster.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// DefaultRoleCounts returns the built-in distribution for n players:
// 4 → 2 villagers + 2 werewolves; 6 → 3 + 2 + seer; 8 → 3 + 2 + seer, witch, guard;
// otherwise max(2, n/4) werewolves and the rest villagers.
func DefaultRoleCounts(n int) map[Role]int {
	switch n {
	case 4:
		return map[Role]int{RoleVillager: 2, RoleWerewolf: 2}
	case 6:
		return map[Role]int{RoleVillager: 3, RoleWerewolf: 2, RoleSeer: 1}
	case 8:
		return map[Role]int{RoleVillager: 3, RoleWerewolf: 2, RoleSeer: 1, RoleWitch: 1, RoleGuard: 1}
	default:
		wolves := n / 4
		if wolves < 2 {
			wolves = 2
		}
		return map[Role]int{RoleVillager: n - wolves, RoleWerewolf: wolves}
	}
}

// ValidateRoleCounts checks that counts uses known roles, has no negative
// entries and sums to n.
func ValidateRoleCounts(counts map[Role]int, n int) error {
	if n <= 0 {
		return &ConfigurationError{Reason: "roster is empty"}
	}
	total := 0
	for role, c := range counts {
		if !role.Valid() {
			return &ConfigurationError{Reason: fmt.Sprintf("unknown role %q", role)}
		}
		if c < 0 {
			return &ConfigurationError{Reason: fmt.Sprintf("negative count for %s", role)}
		}
		total += c
	}
	if total != n {
		return &ConfigurationError{Reason: fmt.Sprintf("role counts sum to %d but roster has %d players", total, n)}
	}
	return nil
}

// AssignRoles deals the roles of counts (DefaultRoleCounts when nil) to names
// uniformly at random. Player ids are 1..N in roster order.
func AssignRoles(names []string, counts map[Role]int, rng *rand.Rand) ([]Player, error) {
	n := len(names)
	if counts == nil {
		counts = DefaultRoleCounts(n)
	}
	if err := ValidateRoleCounts(counts, n); err != nil {
		return nil, err
	}

	deck := make([]Role, 0, n)
	for _, role := range Roles {
		for i := 0; i < counts[role]; i++ {
			deck = append(deck, role)
		}
	}
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	players := make([]Player, n)
	for i, name := range names {
		players[i] = Player{ID: i + 1, Name: name, Role: deck[i], IsAlive: true}
	}
	return players, nil
}

// CountRoles tallies the roles of players.
func CountRoles(players []Player) map[Role]int {
	out := make(map[Role]int)
	for _, p := range players {
		out[p.Role]++
	}
	return out
}

// FormatRoleCounts renders counts as "werewolf=2,villager=2" in canonical role order.
func FormatRoleCounts(counts map[Role]int) string {
	parts := make([]string, 0, len(counts))
	for _, role := range Roles {
		if c, ok := counts[role]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", role, c))
		}
	}
	return strings.Join(parts, ",")
}

// ParseRoleCounts parses "werewolf=2,villager=2".
func ParseRoleCounts(s string) (map[Role]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	out := make(map[Role]int)
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("malformed role count %q", part)}
		}
		role, err := ParseRole(kv[0])
		if err != nil {
			return nil, err
		}
		var c int
		if _, err := fmt.Sscanf(strings.TrimSpace(kv[1]), "%d", &c); err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("malformed count for %s", role)}
		}
		out[role] += c
	}
	return out, nil
}

func sortedIDs(ids []int) []int {
	out := make([]int, len(ids))
	copy(out, ids)
	sort.Ints(out)
	return out
}
