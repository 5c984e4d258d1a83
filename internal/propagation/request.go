// Package propagation implements the core algorithm: signed, weighted,
// context-gated, breadth-ordered traversal over an immutable graph
// (spec §4.4). Simulate is a pure function — no global state, no I/O —
// so the surrounding HTTP layer can call it concurrently against a
// shared read-only graph (spec §5).
package propagation

import (
	"github.com/qualphys/reasoner/internal/domain"
)

// Options tunes a single simulation run (spec §6: SimulationRequest.options).
type Options struct {
	MaxHops       int               `json:"max_hops"`
	MinConfidence float64           `json:"min_confidence"`
	TimeWindow    domain.TimeWindow `json:"time_window"`
	DimUnaffected bool              `json:"dim_unaffected"`
}

// DefaultOptions returns the engine's defaults when a request omits options.
func DefaultOptions() Options {
	return Options{MaxHops: 5, MinConfidence: 0, TimeWindow: domain.WindowAll}
}

// Validate rejects option values outside their documented ranges
// (spec §7: "option values out of range → 400").
func (o Options) Validate() error {
	if o.MaxHops < 0 {
		return errRange("max_hops", "must be >= 0")
	}
	if o.MinConfidence < 0 || o.MinConfidence > 1 {
		return errRange("min_confidence", "must be in [0, 1]")
	}
	if !o.TimeWindow.Valid() {
		return errRange("time_window", "must be one of immediate|minutes|hours|days|all")
	}
	return nil
}

// Request is one simulation request: perturbations, patient context, and
// run options (spec §6).
type Request struct {
	Perturbations []domain.Perturbation `json:"perturbations"`
	Context       map[string]bool       `json:"context"`
	Options       Options               `json:"options"`
	// ConflictEpsilon overrides the default conflict-resolution epsilon
	// (spec §9 Open Questions: "should be a configurable option").
	// Zero means use DefaultConflictEpsilon.
	ConflictEpsilon float64 `json:"conflict_epsilon,omitempty"`

	// OnTick, if set, is called once for every node processed at each
	// tick, in the same (tick, node-id) order the engine itself walks.
	// It exists purely so a caller (the WebSocket layer) can observe
	// the frontier live; it never influences propagation and Simulate's
	// return value is identical whether or not it is set.
	OnTick func(TickEvent) `json:"-"`
}

// TickEvent is one node settling at one tick, emitted for observers.
type TickEvent struct {
	Tick       int
	NodeID     string
	Direction  domain.Direction
	Confidence float64
}

// DefaultConflictEpsilon is the margin within which competing up/down
// confidences are declared a tie, yielding direction `unknown` (spec §4.4).
const DefaultConflictEpsilon = 0.05

func (r Request) epsilon() float64 {
	if r.ConflictEpsilon > 0 {
		return r.ConflictEpsilon
	}
	return DefaultConflictEpsilon
}

func errRange(field, message string) error {
	return &rangeError{field: field, message: message}
}

type rangeError struct {
	field   string
	message string
}

func (e *rangeError) Error() string { return e.field + ": " + e.message }

// Field exposes the offending option field so the REST layer can
// classify the error as a 400 without string-parsing the message.
func (e *rangeError) Field() string { return e.field }
