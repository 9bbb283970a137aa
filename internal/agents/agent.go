// Package agents implements the five seat types of the game. Every decision
// is asked of an oracle.Oracle with a view filtered to what the seat may
// know; when the oracle is missing, fails, or answers outside the rules, a
// fallback policy decides instead and the failure is counted.
package agents

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vntrieu/werewolf/internal/games"
	"github.com/vntrieu/werewolf/internal/log"
	"github.com/vntrieu/werewolf/internal/oracle"
)

const maxNotes = 12

// base holds what every seat shares: identity, the oracle and the seat's own
// notes. Role types embed it.
type base struct {
	id      int
	name    string
	role    games.Role
	oracle  oracle.Oracle
	diag    *games.Diagnostics
	logger  *log.Logger
	timeout time.Duration

	mu    sync.Mutex
	notes []string
}

func (b *base) ID() int { return b.id }

func (b *base) Role() games.Role { return b.role }

// Name returns the seat's display name.
func (b *base) Name() string { return b.name }

// Notes returns a copy of the reasoning the seat has kept from its own decisions.
func (b *base) Notes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.notes...)
}

func (b *base) remember(note string) {
	if note == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notes = append(b.notes, note)
	if len(b.notes) > maxNotes {
		b.notes = b.notes[len(b.notes)-maxNotes:]
	}
}

// Observe returns the seat's view of s.
func (b *base) Observe(s *games.GameState) View {
	v := Observe(s, b.id, b.role)
	v.Notes = b.Notes()
	return v
}

// ask consults the oracle. ok is false when the fallback must be used; the
// reason has then been counted.
func (b *base) ask(ctx context.Context, t games.Turn, kind string, expect oracle.Expect, instruction string, eligible []int) (oracle.Decision, bool) {
	if b.oracle == nil {
		b.fail(t, kind, games.ReasonOracleAbsent, nil)
		return oracle.Decision{}, false
	}
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	v := b.Observe(t.State)
	d, err := b.oracle.Decide(ctx, oracle.Request{
		Kind:        kind,
		Expect:      expect,
		AgentID:     b.id,
		Name:        b.name,
		Role:        string(b.role),
		Day:         t.State.DayNumber,
		Phase:       t.State.CurrentPhase,
		Instruction: instruction,
		View:        v.Text(),
		Eligible:    eligible,
	})
	if err == nil {
		err = d.Validate(expect)
	}
	if err != nil {
		reason := games.ReasonOracleError
		if errors.Is(err, oracle.ErrSchema) {
			reason = games.ReasonSchemaInvalid
		}
		b.fail(t, kind, reason, err)
		return oracle.Decision{}, false
	}
	b.remember(fmt.Sprintf("day %d %s: %s", t.State.DayNumber, kind, d.Reasoning))
	return d, true
}

func (b *base) fail(t games.Turn, kind, reason string, err error) {
	b.diag.Record(kind, reason)
	if err != nil {
		b.logger.Warn("game %s: player %d %s: %s, using fallback: %v", t.State.GameID, b.id, kind, reason, err)
	} else {
		b.logger.Debug("game %s: player %d %s: %s, using fallback", t.State.GameID, b.id, kind, reason)
	}
}

// target asks for a target among eligible. A null answer abstains when
// abstain is allowed; anything outside eligible falls back.
func (b *base) target(ctx context.Context, t games.Turn, kind, instruction string, eligible []int, abstain bool, fallback func() int) int {
	d, ok := b.ask(ctx, t, kind, oracle.ExpectTarget, instruction, eligible)
	if !ok {
		return fallback()
	}
	if d.Target == nil || *d.Target == games.NoTarget {
		if abstain {
			return games.NoTarget
		}
		b.fail(t, kind, games.ReasonInvalidTarget, fmt.Errorf("no target"))
		return fallback()
	}
	if !contains(eligible, *d.Target) {
		b.fail(t, kind, games.ReasonInvalidTarget, fmt.Errorf("target %d not in %v", *d.Target, eligible))
		return fallback()
	}
	return *d.Target
}

func (b *base) flag(ctx context.Context, t games.Turn, kind, instruction string, fallback bool) bool {
	d, ok := b.ask(ctx, t, kind, oracle.ExpectFlag, instruction, nil)
	if !ok {
		return fallback
	}
	return *d.Flag
}

func (b *base) DecideSheriffRun(ctx context.Context, t games.Turn) bool {
	return b.flag(ctx, t, games.KindSheriffRun, "The sheriff election is open. Do you run for sheriff? Set flag.", false)
}

func (b *base) DecideWithdraw(ctx context.Context, t games.Turn) bool {
	return b.flag(ctx, t, games.KindWithdraw, "You are a sheriff candidate. Do you withdraw before the vote? Set flag.", false)
}

func (b *base) DecideVote(ctx context.Context, t games.Turn, ballot games.Ballot, eligible []int) int {
	kind := games.KindExileVote
	instruction := "Vote to exile one player, or null to abstain."
	if ballot == games.BallotSheriff {
		kind = games.KindSheriffVote
		instruction = "Vote for a sheriff candidate, or null to abstain."
	}
	return b.target(ctx, t, kind, instruction, eligible, true, func() int { return randomOf(t, eligible) })
}

func (b *base) DecideSpeech(ctx context.Context, t games.Turn, sc games.SpeechContext) string {
	d, ok := b.ask(ctx, t, games.KindSpeech, oracle.ExpectSpeech, speechInstruction(sc), sc.Candidates)
	if !ok {
		return cannedSpeech(b.name, sc)
	}
	return d.Speech
}

func (b *base) DecideSpeakingOrder(ctx context.Context, t games.Turn) games.SpeakingOrder {
	d, ok := b.ask(ctx, t, games.KindSpeakingOrder, oracle.ExpectOrder, "You are the sheriff. Should discussion go forward or in reverse seat order from you?", nil)
	if !ok {
		return games.OrderForward
	}
	return games.SpeakingOrder(d.Order)
}

func (b *base) DecideSheriffTransfer(ctx context.Context, t games.Turn, eligible []int) int {
	return b.target(ctx, t, games.KindSheriffTransfer, "You are dying as sheriff. Pass the badge to a living player, or null to destroy it.", eligible, true,
		func() int { return randomOf(t, eligible) })
}

func speechInstruction(sc games.SpeechContext) string {
	switch sc.Kind {
	case games.SpeechCampaign:
		return "Give your sheriff campaign speech."
	case games.SpeechPK:
		return "The sheriff vote tied. Give your runoff speech against the other tied candidates."
	case games.SpeechReplay:
		return "The exile vote tied. Defend yourself or argue against the other tied players."
	case games.SpeechLastWords:
		return "You have been eliminated. Give your last words."
	default:
		return fmt.Sprintf("It is your turn to speak in the discussion (position %d).", sc.Position)
	}
}

func cannedSpeech(name string, sc games.SpeechContext) string {
	switch sc.Kind {
	case games.SpeechCampaign, games.SpeechPK:
		return fmt.Sprintf("%s: I will use the badge to keep the village together. Vote for me.", name)
	case games.SpeechLastWords:
		return fmt.Sprintf("%s: Good luck, everyone. Find the wolves.", name)
	default:
		return fmt.Sprintf("%s: I have nothing solid yet. I will listen and vote carefully.", name)
	}
}

// randomOf picks uniformly from eligible using the turn's random source.
func randomOf(t games.Turn, eligible []int) int {
	if len(eligible) == 0 {
		return games.NoTarget
	}
	return eligible[t.Rand.Intn(len(eligible))]
}

func contains(list []int, id int) bool {
	for _, x := range list {
		if x == id {
			return true
		}
	}
	return false
}
