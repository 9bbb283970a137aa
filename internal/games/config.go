package games

// RulesConfig holds the role distribution and rule toggles for one game.
type RulesConfig struct {
	// RoleCounts is the role distribution; nil means DefaultRoleCounts for the roster size.
	RoleCounts map[Role]int `json:"role_counts,omitempty"`
	// MaxRounds is the circuit breaker: a game still playing after this many
	// day/night rounds ends inconclusive.
	MaxRounds int `json:"max_rounds"`
	// SheriffEnabled routes the first day through the sheriff election.
	SheriffEnabled bool `json:"sheriff_enabled"`
	// SheriffVoteWeight is the sheriff's weight in exile votes (others count 1).
	SheriffVoteWeight float64 `json:"sheriff_vote_weight"`
	// GuardMaySelfProtect allows the guard to pick itself (never twice in a row).
	GuardMaySelfProtect bool `json:"guard_may_self_protect"`
	// ParallelDecisions fans out independent per-player decisions of one
	// phase; results are merged in seat order.
	ParallelDecisions bool `json:"parallel_decisions"`
}

// Graph nodes.
const (
	NodeNight           = "night"
	NodeSheriffCampaign = "sheriff_campaign"
	NodeSheriffVote     = "sheriff_vote"
	NodeSheriffPK       = "sheriff_pk"
	NodeAnnounceDeath   = "announce_death"
	NodeDiscussion      = "discussion"
	NodeExileVote       = "exile_vote"
	NodeJudgment        = "judgment"
)

// Phases of GameState.CurrentPhase.
const (
	PhaseDay   = "day"
	PhaseNight = "night"
)

// Game status values.
const (
	StatusPlaying      = "playing"
	StatusEnded        = "ended"
	StatusInconclusive = "inconclusive"
)

// Winners.
const (
	WinnerVillagers  = "villagers"
	WinnerWerewolves = "werewolves"
)

const (
	DefaultMaxRounds         = 20
	DefaultSheriffVoteWeight = 1.5
)

// ClassicWerewolfConfig returns the default rules: sheriff election on day 1,
// a 1.5 sheriff vote, no guard self-protection and sequential decisions.
func ClassicWerewolfConfig() RulesConfig {
	return RulesConfig{
		MaxRounds:         DefaultMaxRounds,
		SheriffEnabled:    true,
		SheriffVoteWeight: DefaultSheriffVoteWeight,
	}
}

func (c RulesConfig) withDefaults() RulesConfig {
	if c.MaxRounds <= 0 {
		c.MaxRounds = DefaultMaxRounds
	}
	if c.SheriffVoteWeight <= 0 {
		c.SheriffVoteWeight = DefaultSheriffVoteWeight
	}
	return c
}
