// Package loader implements the Pack Loader & Merger: a pure function
// from parsed knowledge-pack documents to a canonical graph.Graph plus
// a diagnostics list (spec §4.1). It never touches disk or network —
// callers (cmd/server, tests) decode files into pack.Document values
// and hand them to Merge.
package loader

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/qualphys/reasoner/internal/domain"
	domainerrors "github.com/qualphys/reasoner/internal/domain/errors"
	"github.com/qualphys/reasoner/internal/graph"
	"github.com/qualphys/reasoner/internal/pack"
	"github.com/qualphys/reasoner/internal/rules"
)

// Merge combines every document's nodes, edges and rules into one
// Graph. Fatal diagnostics (missing endpoints, incompatible duplicate
// nodes, alias collisions, malformed enums) abort the merge and are
// returned wrapped in a *domainerrors.LoadError; non-fatal diagnostics
// (a rule referencing an unknown node) are reported alongside a graph
// that was still built, the dropped rule simply omitted.
func Merge(docs []pack.Document) (*graph.Graph, []domainerrors.Diagnostic, error) {
	m := &merger{
		nodes:      make(map[string]*domain.Node),
		nodeDoc:    make(map[string]int),
		aliasOwner: make(map[string]string),
	}

	for docIdx, doc := range docs {
		m.mergeNodes(docIdx, doc.Nodes)
	}
	if m.hasFatal() {
		return nil, m.diags, domainerrors.NewLoadError(m.diags)
	}

	for docIdx, doc := range docs {
		m.mergeEdges(docIdx, doc.Edges)
	}
	if m.hasFatal() {
		return nil, m.diags, domainerrors.NewLoadError(m.diags)
	}

	for docIdx, doc := range docs {
		m.mergeRules(docIdx, doc.Rules)
	}
	if m.hasFatal() {
		return nil, m.diags, domainerrors.NewLoadError(m.diags)
	}

	g := graph.New()
	for _, id := range m.sortedNodeIDs() {
		g.AddNode(m.nodes[id])
	}
	for _, key := range m.sortedEdgeKeys() {
		g.AddEdge(m.edges[key])
	}
	g.SetRules(m.ruleList)
	g.Finalize()

	return g, m.diags, nil
}

type merger struct {
	diags []domainerrors.Diagnostic

	nodes      map[string]*domain.Node
	nodeDoc    map[string]int
	aliasOwner map[string]string // normalized alias -> owning node id

	edgeOrder []domain.MergeKey
	edges     map[domain.MergeKey]*domain.Edge

	ruleList []*domain.Rule
}

func (m *merger) hasFatal() bool {
	for _, d := range m.diags {
		if d.Fatal {
			return true
		}
	}
	return false
}

func (m *merger) fatal(doc int, record, field, message string) {
	m.diags = append(m.diags, domainerrors.Diagnostic{Document: doc, Record: record, Field: field, Message: message, Fatal: true})
}

func (m *merger) warn(doc int, record, field, message string) {
	m.diags = append(m.diags, domainerrors.Diagnostic{Document: doc, Record: record, Field: field, Message: message, Fatal: false})
}

func (m *merger) mergeNodes(docIdx int, records []pack.Node) {
	for _, rec := range records {
		n := &domain.Node{
			ID:          rec.ID,
			Label:       rec.Label,
			Domain:      domain.Domain(rec.Domain),
			Subdomain:   rec.Subdomain,
			Type:        domain.NodeType(rec.Type),
			StateType:   domain.StateType(rec.StateType),
			Unit:        rec.Unit,
			Aliases:     append([]string(nil), rec.Aliases...),
			Description: rec.Description,
		}
		if rec.NormalRange != nil {
			n.NormalRange = &domain.NormalRange{Min: rec.NormalRange.Min, Max: rec.NormalRange.Max}
		}
		if err := n.Validate(); err != nil {
			m.fatal(docIdx, "node", "", fmt.Sprintf("%s: %v", rec.ID, err))
			continue
		}

		if existing, ok := m.nodes[n.ID]; ok {
			if !existing.CompatibleWith(n) {
				m.fatal(docIdx, "node", n.ID, "redeclared with a different domain, type or state_type than its first declaration")
				continue
			}
			existing.Aliases = mergeAliases(existing.Aliases, n.Aliases)
			if existing.Label == "" {
				existing.Label = n.Label
			}
			if existing.Description == "" {
				existing.Description = n.Description
			}
			if existing.NormalRange == nil {
				existing.NormalRange = n.NormalRange
			}
			n = existing
		} else {
			m.nodes[n.ID] = n
			m.nodeDoc[n.ID] = docIdx
		}

		if !m.claimAlias(docIdx, n.ID, n.ID) {
			continue
		}
		for _, alias := range n.Aliases {
			m.claimAlias(docIdx, n.ID, alias)
		}
	}
}

// claimAlias registers a normalized alias as belonging to nodeID,
// reporting a fatal collision if it already belongs to a different node.
func (m *merger) claimAlias(docIdx int, nodeID, alias string) bool {
	key := domain.NormalizeAlias(alias)
	if owner, ok := m.aliasOwner[key]; ok && owner != nodeID {
		m.fatal(docIdx, "node", "aliases", fmt.Sprintf("alias %q is claimed by both %q and %q", alias, owner, nodeID))
		return false
	}
	m.aliasOwner[key] = nodeID
	return true
}

func mergeAliases(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string(nil), existing...)
	for _, a := range existing {
		seen[domain.NormalizeAlias(a)] = true
	}
	for _, a := range added {
		key := domain.NormalizeAlias(a)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

func (m *merger) resolve(idOrAlias string) (string, bool) {
	id, ok := m.aliasOwner[domain.NormalizeAlias(idOrAlias)]
	return id, ok
}

func (m *merger) mergeEdges(docIdx int, records []pack.Edge) {
	if m.edges == nil {
		m.edges = make(map[domain.MergeKey]*domain.Edge)
	}
	for _, rec := range records {
		source, ok := m.resolve(rec.Source)
		if !ok {
			m.fatal(docIdx, "edge", "source", fmt.Sprintf("%s -> %s: unknown source node %q", rec.Source, rec.Target, rec.Source))
			continue
		}
		target, ok := m.resolve(rec.Target)
		if !ok {
			m.fatal(docIdx, "edge", "target", fmt.Sprintf("%s -> %s: unknown target node %q", rec.Source, rec.Target, rec.Target))
			continue
		}

		e := &domain.Edge{
			Source:      source,
			Target:      target,
			Rel:         domain.RelationKind(rec.Rel),
			Weight:      rec.Weight,
			Delay:       domain.Delay(rec.Delay),
			Context:     rec.Context,
			Priority:    rec.Priority,
			Description: rec.Description,
		}
		if err := e.Validate(); err != nil {
			m.fatal(docIdx, "edge", "", fmt.Sprintf("%s -> %s: %v", source, target, err))
			continue
		}

		key := domain.MergeKey{Source: source, Target: target, Rel: e.Rel, Context: canonicalContext(e.Context)}
		if existing, ok := m.edges[key]; ok {
			existing.Weight = e.Weight
			existing.Delay = e.Delay
			if e.Priority != "" {
				existing.Priority = e.Priority
			}
			if e.Description != "" {
				if existing.Description != "" {
					existing.Description += "; " + e.Description
				} else {
					existing.Description = e.Description
				}
			}
			continue
		}
		m.edges[key] = e
		m.edgeOrder = append(m.edgeOrder, key)
	}
}

func canonicalContext(context map[string]bool) string {
	if len(context) == 0 {
		return ""
	}
	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%t", k, context[k]))
	}
	return strings.Join(parts, ";")
}

func (m *merger) mergeRules(docIdx int, records []pack.Rule) {
	for _, rec := range records {
		then := make(map[string]domain.ThenClause, len(rec.Then))
		badThen := false
		for nodeID, raw := range rec.Then {
			if _, ok := m.resolve(nodeID); !ok {
				m.warn(docIdx, "rule", rec.ID, fmt.Sprintf("references unknown node %q in then clause, rule dropped", nodeID))
				badThen = true
				continue
			}
			clause, err := parseThenValue(raw)
			if err != nil {
				m.warn(docIdx, "rule", rec.ID, fmt.Sprintf("malformed then clause for %q: %v, rule dropped", nodeID, err))
				badThen = true
				continue
			}
			then[nodeID] = clause
		}
		if badThen {
			continue
		}

		expr, err := rules.Parse(rec.When)
		if err != nil {
			m.warn(docIdx, "rule", rec.ID, fmt.Sprintf("unparseable when clause %q: %v, rule dropped", rec.When, err))
			continue
		}
		unknown := false
		for _, ref := range expr.NodeRefs() {
			if _, ok := m.resolve(ref); !ok {
				m.warn(docIdx, "rule", rec.ID, fmt.Sprintf("when clause references unknown node %q, rule dropped", ref))
				unknown = true
			}
		}
		if unknown {
			continue
		}

		r := &domain.Rule{ID: rec.ID, When: rec.When, Then: then, Description: rec.Description}
		if err := r.Validate(); err != nil {
			m.warn(docIdx, "rule", rec.ID, fmt.Sprintf("invalid rule: %v, rule dropped", err))
			continue
		}
		m.ruleList = append(m.ruleList, r)
	}
}

// parseThenValue decodes a then-clause string: "increase", "decrease",
// "block", or "set <value>" (spec §6).
func parseThenValue(raw string) (domain.ThenClause, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return domain.ThenClause{}, fmt.Errorf("empty then clause")
	}
	switch strings.ToLower(fields[0]) {
	case "increase":
		return domain.ThenClause{Op: domain.OpIncrease}, nil
	case "decrease":
		return domain.ThenClause{Op: domain.OpDecrease}, nil
	case "block":
		return domain.ThenClause{Op: domain.OpBlock}, nil
	case "set":
		if len(fields) != 2 {
			return domain.ThenClause{}, fmt.Errorf("expected \"set <value>\", got %q", raw)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return domain.ThenClause{}, fmt.Errorf("invalid set value %q: %w", fields[1], err)
		}
		return domain.ThenClause{Op: domain.OpSet, Value: v, HasValue: true}, nil
	default:
		return domain.ThenClause{}, fmt.Errorf("unrecognized then clause %q", raw)
	}
}

func (m *merger) sortedNodeIDs() []string {
	ids := make([]string, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *merger) sortedEdgeKeys() []domain.MergeKey {
	keys := append([]domain.MergeKey(nil), m.edgeOrder...)
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].Source != keys[j].Source {
			return keys[i].Source < keys[j].Source
		}
		if keys[i].Target != keys[j].Target {
			return keys[i].Target < keys[j].Target
		}
		return keys[i].Rel < keys[j].Rel
	})
	return keys
}
