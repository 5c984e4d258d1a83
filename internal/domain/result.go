package domain

// AffectedNode is one row of a simulation's output: a node whose
// direction changed from baseline, with the confidence and timescale
// the propagation engine attached to it (spec §3).
type AffectedNode struct {
	NodeID      string          `json:"node_id"`
	Direction   Direction       `json:"direction"`
	Magnitude   MagnitudeBucket `json:"magnitude"`
	Confidence  float64         `json:"confidence"`
	Timescale   Delay           `json:"dominant_timescale,omitempty"`
	FirstTick   int             `json:"first_tick"`
}

// TraceStep is one reconstructed causal path from a seed to an
// affected node, with a human-readable step string per edge traversed
// (spec §4.5).
type TraceStep struct {
	Path       []string `json:"path"`
	Steps      []string `json:"steps"`
	Confidence float64  `json:"confidence"`
	Macro      string   `json:"macro_summary,omitempty"`
}

// ComparedNode is the Comparator's per-node classification of a
// baseline-vs-intervention run (spec §4.6).
type ComparedNode struct {
	NodeID              string      `json:"node_id"`
	Class               ChangeClass `json:"class"`
	BaselineDirection   Direction   `json:"baseline_direction"`
	InterventionDirection Direction `json:"intervention_direction"`
	ConfidenceDelta     float64     `json:"confidence_delta"`
}
