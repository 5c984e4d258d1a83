package domain

// Edge is a signed, weighted causal relation between two nodes,
// conditionally live under a patient context (spec §3).
type Edge struct {
	Source      string
	Target      string
	Rel         RelationKind
	Weight      float64
	Delay       Delay
	Context     map[string]bool
	Priority    string
	Description string
}

// Validate checks the closed enumerations and the weight range. It does
// not check endpoint existence, which requires the full node set
// (spec §4.1, checked by the loader).
func (e *Edge) Validate() error {
	if !e.Rel.Valid() {
		return errInvalidEnum("rel", string(e.Rel))
	}
	if !e.Delay.Valid() {
		return errInvalidEnum("delay", string(e.Delay))
	}
	if e.Weight <= 0 || e.Weight > 1 {
		return errInvalidEnum("weight", "must be in (0, 1]")
	}
	if e.Source == e.Target && (e.Rel == RelIncreases || e.Rel == RelDecreases) {
		return errInvalidEnum("edge", "self-loop on increases/decreases edge")
	}
	return nil
}

// Live reports whether this edge's context requirements are satisfied
// by the current patient context. A key absent from the context is
// treated as false (spec §4.2: the Context Gate).
func (e *Edge) Live(context map[string]bool) bool {
	for flag, required := range e.Context {
		if context[flag] != required {
			return false
		}
	}
	return true
}

// MergeKey identifies edges that the loader treats as duplicates:
// same source, target, relation and context (spec §4.1).
type MergeKey struct {
	Source  string
	Target  string
	Rel     RelationKind
	Context string // canonicalized context map, see loader
}
