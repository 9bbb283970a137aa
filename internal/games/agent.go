package games

import (
	"context"
	"math/rand"
)

// Turn is what the engine hands an agent for one decision. State must be
// treated as read-only; Rand is the only randomness an agent may use.
type Turn struct {
	State *GameState
	Rand  *rand.Rand
}

// Ballot kinds for DecideVote.
type Ballot string

const (
	BallotExile   Ballot = "exile"
	BallotSheriff Ballot = "sheriff"
)

// Speech contexts.
const (
	SpeechCampaign   = "sheriff_campaign"
	SpeechPK         = "sheriff_pk"
	SpeechDiscussion = "discussion"
	SpeechReplay     = "exile_replay"
	SpeechLastWords  = "last_words"
)

// SpeechContext tells an agent why it is speaking.
type SpeechContext struct {
	Kind       string `json:"kind"`
	Candidates []int  `json:"candidates,omitempty"` // PK / replay restriction
	Position   int    `json:"position"`             // 1-based slot in the speaking order
}

// SpeakingOrder is the sheriff's choice of direction.
type SpeakingOrder string

const (
	OrderForward SpeakingOrder = "forward"
	OrderReverse SpeakingOrder = "reverse"
)

// Agent is the decision capability every seat exposes. Target-returning
// methods return NoTarget to abstain. Implementations must not mutate
// Turn.State; the engine validates every answer again before merging it.
type Agent interface {
	ID() int
	Role() Role
	DecideSheriffRun(ctx context.Context, t Turn) bool
	DecideWithdraw(ctx context.Context, t Turn) bool
	DecideVote(ctx context.Context, t Turn, ballot Ballot, eligible []int) int
	DecideSpeech(ctx context.Context, t Turn, sc SpeechContext) string
	DecideSpeakingOrder(ctx context.Context, t Turn) SpeakingOrder
	// DecideSheriffTransfer returns the successor, or NoTarget to destroy the badge.
	DecideSheriffTransfer(ctx context.Context, t Turn, eligible []int) int
}

// WerewolfAgent is implemented by werewolf seats.
type WerewolfAgent interface {
	Agent
	WolfChat(ctx context.Context, t Turn) string
	DecideKill(ctx context.Context, t Turn, eligible []int) int
	DecideSelfDetonate(ctx context.Context, t Turn) bool
}

// SeerAgent is implemented by the seer seat.
type SeerAgent interface {
	Agent
	DecideCheck(ctx context.Context, t Turn, eligible []int) int
}

// GuardAgent is implemented by the guard seat.
type GuardAgent interface {
	Agent
	DecideProtect(ctx context.Context, t Turn, eligible []int) int
}

// WitchAgent is implemented by the witch seat. victim is the werewolves'
// target for the night (NoTarget when none).
type WitchAgent interface {
	Agent
	DecideAntidote(ctx context.Context, t Turn, victim int) bool
	DecidePoison(ctx context.Context, t Turn, eligible []int) int
}
