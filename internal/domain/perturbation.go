package domain

import "encoding/json"

// Perturbation is a user-supplied forced change on one node, acting as
// a seed for propagation (spec §3, GLOSSARY).
type Perturbation struct {
	NodeID   string
	Op       Op
	Value    float64
	HasValue bool
}

// wire is the JSON shape from spec §6: {node_id, op, value?}. Value is
// a pointer so a request that omits it round-trips as HasValue=false
// rather than a misleading literal zero.
type perturbationWire struct {
	NodeID string   `json:"node_id"`
	Op     Op       `json:"op"`
	Value  *float64 `json:"value,omitempty"`
}

func (p Perturbation) MarshalJSON() ([]byte, error) {
	w := perturbationWire{NodeID: p.NodeID, Op: p.Op}
	if p.HasValue {
		w.Value = &p.Value
	}
	return json.Marshal(w)
}

func (p *Perturbation) UnmarshalJSON(data []byte) error {
	var w perturbationWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.NodeID = w.NodeID
	p.Op = w.Op
	if w.Value != nil {
		p.Value = *w.Value
		p.HasValue = true
	}
	return nil
}

func (p *Perturbation) Validate() error {
	if p.NodeID == "" {
		return errInvalidEnum("node_id", p.NodeID)
	}
	if !p.Op.Valid() {
		return errInvalidEnum("op", string(p.Op))
	}
	return nil
}

// SeedDirection resolves the direction and confidence a perturbation
// contributes as a tick-0 seed (spec §4.4). For `set`, the node's
// normal range midpoint decides increase vs decrease; numeric nodes
// without a normal range default to increase.
func (p *Perturbation) SeedDirection(node *Node) (direction Direction, blocked bool) {
	switch p.Op {
	case OpIncrease:
		return Up, false
	case OpDecrease:
		return Down, false
	case OpBlock:
		return Down, true
	case OpSet:
		if node != nil && node.NormalRange != nil && p.Value <= node.NormalRange.Midpoint() {
			return Down, false
		}
		return Up, false
	default:
		return Unknown, false
	}
}
