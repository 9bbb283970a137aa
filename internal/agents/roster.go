package agents

import (
	"fmt"
	"time"

	"github.com/vntrieu/werewolf/internal/games"
	"github.com/vntrieu/werewolf/internal/log"
	"github.com/vntrieu/werewolf/internal/oracle"
)

// Option configures the seats built by New and NewRoster.
type Option func(*base)

// WithDiagnostics counts fallbacks in d (share it with the engine).
func WithDiagnostics(d *games.Diagnostics) Option {
	return func(b *base) { b.diag = d }
}

// WithLogger sets the logger for recovered oracle failures.
func WithLogger(l *log.Logger) Option {
	return func(b *base) { b.logger = l }
}

// WithTimeout bounds every oracle call; a timeout takes the fallback.
func WithTimeout(d time.Duration) Option {
	return func(b *base) { b.timeout = d }
}

// New builds the seat for p. o may be nil: every decision then uses its fallback.
func New(p games.Player, o oracle.Oracle, opts ...Option) (games.Agent, error) {
	b := &base{id: p.ID, name: p.Name, role: p.Role, oracle: o}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.Default()
	}
	switch p.Role {
	case games.RoleVillager:
		return &Villager{b}, nil
	case games.RoleWerewolf:
		return &Werewolf{b}, nil
	case games.RoleSeer:
		return &Seer{b}, nil
	case games.RoleGuard:
		return &Guard{b}, nil
	case games.RoleWitch:
		return &Witch{b}, nil
	default:
		return nil, &games.ConfigurationError{Reason: fmt.Sprintf("no agent for role %q", p.Role)}
	}
}

// NewRoster builds one seat per player, in roster order.
func NewRoster(players []games.Player, o oracle.Oracle, opts ...Option) ([]games.Agent, error) {
	out := make([]games.Agent, 0, len(players))
	for _, p := range players {
		a, err := New(p, o, opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
