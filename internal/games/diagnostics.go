package games

import (
	"errors"
	"sort"
	"sync"
)

// ErrInvariant marks a decision rejected by engine validation. It is logged
// and counted, never returned from Run.
var ErrInvariant = errors.New("invariant violation")

// Fallback and rejection reasons.
const (
	ReasonOracleAbsent  = "oracle_absent"
	ReasonOracleError   = "oracle_error"
	ReasonSchemaInvalid = "schema_invalid"
	ReasonInvalidTarget = "invalid_target"
	ReasonInvariant     = "invariant_rejected"
)

// Diagnostics counts recovered failures by decision kind and reason.
// It is safe for concurrent use.
type Diagnostics struct {
	mu     sync.Mutex
	counts map[string]map[string]int
}

// NewDiagnostics creates an empty counter.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{counts: make(map[string]map[string]int)}
}

// Record increments the counter for kind/reason. A nil receiver is a no-op.
func (d *Diagnostics) Record(kind, reason string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.counts[kind] == nil {
		d.counts[kind] = make(map[string]int)
	}
	d.counts[kind][reason]++
}

// Count returns the counter for kind/reason.
func (d *Diagnostics) Count(kind, reason string) int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[kind][reason]
}

// CountReason sums reason over all kinds.
func (d *Diagnostics) CountReason(reason string) int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, byReason := range d.counts {
		n += byReason[reason]
	}
	return n
}

// DiagnosticCount is one row of a diagnostics report.
type DiagnosticCount struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// Report returns all non-zero counters sorted by kind then reason.
func (d *Diagnostics) Report() []DiagnosticCount {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DiagnosticCount, 0)
	for kind, byReason := range d.counts {
		for reason, n := range byReason {
			out = append(out, DiagnosticCount{Kind: kind, Reason: reason, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
