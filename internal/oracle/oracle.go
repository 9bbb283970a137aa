// Package oracle is the boundary to the external reasoning service that makes
// every agent decision. It defines the request and decision schema, the
// per-shape validation of answers and an OpenAI-compatible chat client.
package oracle

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the oracle could not be reached or kept failing.
	ErrUnavailable = errors.New("oracle unavailable")
	// ErrSchema means the oracle answered with data that does not match the decision schema.
	ErrSchema = errors.New("oracle answer does not match schema")
)

// Expect is the decision field a request needs filled.
type Expect string

const (
	ExpectTarget Expect = "target" // target id, or null to abstain
	ExpectFlag   Expect = "flag"
	ExpectSpeech Expect = "speech"
	ExpectOrder  Expect = "order" // "forward" | "reverse"
)

// Request is one decision asked of the oracle. View is the text rendering of
// everything the seat may see; nothing else about the game is sent.
type Request struct {
	Kind        string `json:"kind"`
	Expect      Expect `json:"expect"`
	AgentID     int    `json:"agent_id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Day         int    `json:"day"`
	Phase       string `json:"phase"`
	Instruction string `json:"instruction"`
	View        string `json:"view"`
	Eligible    []int  `json:"eligible,omitempty"`
}

// Decision is the structured answer. Only the field named by the request's
// Expect is read by the caller.
type Decision struct {
	Reasoning  string  `json:"reasoning"`
	Target     *int    `json:"target"`
	Flag       *bool   `json:"flag"`
	Speech     string  `json:"speech"`
	Order      string  `json:"order"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Validate checks the shape of d for the expected field. Target legality is
// the caller's concern.
func (d Decision) Validate(expect Expect) error {
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrSchema, d.Confidence)
	}
	switch expect {
	case ExpectTarget:
		if d.Target != nil && *d.Target < 0 {
			return fmt.Errorf("%w: negative target %d", ErrSchema, *d.Target)
		}
	case ExpectFlag:
		if d.Flag == nil {
			return fmt.Errorf("%w: flag missing", ErrSchema)
		}
	case ExpectSpeech:
		if d.Speech == "" {
			return fmt.Errorf("%w: speech missing", ErrSchema)
		}
	case ExpectOrder:
		if d.Order != "forward" && d.Order != "reverse" {
			return fmt.Errorf("%w: order %q", ErrSchema, d.Order)
		}
	default:
		return fmt.Errorf("%w: unknown expectation %q", ErrSchema, expect)
	}
	return nil
}

// Oracle makes decisions.
type Oracle interface {
	Decide(ctx context.Context, req Request) (Decision, error)
}

// Func adapts a function to the Oracle interface.
type Func func(ctx context.Context, req Request) (Decision, error)

// Decide calls f.
func (f Func) Decide(ctx context.Context, req Request) (Decision, error) {
	return f(ctx, req)
}

// IntPtr and BoolPtr build optional decision fields.
func IntPtr(v int) *int { return &v }

func BoolPtr(v bool) *bool { return &v }
