package domain

import "strings"

// Node is a physiological entity: a hormone, variable, organ, vessel or
// process (spec §3). Nodes are immutable once the graph is built.
type Node struct {
	ID          string
	Label       string
	Domain      Domain
	Subdomain   string
	Type        NodeType
	StateType   StateType
	Unit        string
	NormalRange *NormalRange
	Aliases     []string
	Description string
}

// Validate checks the closed enumerations and the normal-range shape.
// It does not check alias/id uniqueness, which is a property of the
// merged graph, not of a single node record (spec §4.1).
func (n *Node) Validate() error {
	if n.ID == "" {
		return errInvalidEnum("id", n.ID)
	}
	if !n.Domain.Valid() {
		return errInvalidEnum("domain", string(n.Domain))
	}
	if !n.Type.Valid() {
		return errInvalidEnum("type", string(n.Type))
	}
	if !n.StateType.Valid() {
		return errInvalidEnum("state_type", string(n.StateType))
	}
	if n.NormalRange != nil && n.NormalRange.Min > n.NormalRange.Max {
		return errInvalidEnum("normal_range", "min greater than max")
	}
	return nil
}

// CompatibleWith reports whether two declarations of the same node id
// agree on the fields that matter for merging (spec §4.1: "same domain,
// type, state_type").
func (n *Node) CompatibleWith(other *Node) bool {
	return n.Domain == other.Domain && n.Type == other.Type && n.StateType == other.StateType
}

// NormalizeAlias applies the case-insensitive, whitespace-collapsed
// normalization used for every alias lookup (spec §4.1).
func NormalizeAlias(alias string) string {
	return strings.ToLower(strings.Join(strings.Fields(alias), " "))
}
