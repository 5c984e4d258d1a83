// Package graph holds the canonical, immutable Graph value produced by
// the loader: nodes, edges and rules indexed for the propagation
// engine's traversal (spec §3, §4.1). A Graph is built once and never
// mutated; reloads build a new Graph and swap the reference atomically
// (spec §5).
package graph

import (
	"sort"

	"github.com/qualphys/reasoner/internal/domain"
)

// Graph is the canonical knowledge graph: every edge endpoint refers to
// an existing node, every alias resolves to exactly one node id.
type Graph struct {
	nodes      map[string]*domain.Node
	aliasIndex map[string]string
	outEdges   map[string][]*domain.Edge
	inEdges    map[string][]*domain.Edge
	rules      []*domain.Rule
}

// New builds an empty Graph. Used by the loader, which is the only
// place a Graph is constructed.
func New() *Graph {
	return &Graph{
		nodes:      make(map[string]*domain.Node),
		aliasIndex: make(map[string]string),
		outEdges:   make(map[string][]*domain.Edge),
		inEdges:    make(map[string][]*domain.Edge),
	}
}

// AddNode registers a node and indexes its aliases. Callers (the
// loader) are responsible for rejecting id/alias collisions before
// calling this.
func (g *Graph) AddNode(n *domain.Node) {
	g.nodes[n.ID] = n
	g.aliasIndex[domain.NormalizeAlias(n.ID)] = n.ID
	for _, alias := range n.Aliases {
		g.aliasIndex[domain.NormalizeAlias(alias)] = n.ID
	}
}

// AddEdge registers an edge in both the forward and reverse adjacency.
func (g *Graph) AddEdge(e *domain.Edge) {
	g.outEdges[e.Source] = append(g.outEdges[e.Source], e)
	g.inEdges[e.Target] = append(g.inEdges[e.Target], e)
}

// SetRules replaces the rule set.
func (g *Graph) SetRules(rules []*domain.Rule) {
	g.rules = rules
}

// Node returns the node for a canonical id.
func (g *Graph) Node(id string) (*domain.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Resolve maps an id or alias (case-insensitive, whitespace-collapsed)
// to its canonical node id (spec §4.1, §8 round-trip property).
func (g *Graph) Resolve(idOrAlias string) (string, bool) {
	id, ok := g.aliasIndex[domain.NormalizeAlias(idOrAlias)]
	return id, ok
}

// OutEdges returns the live-candidate outgoing edges of a node, in a
// deterministic order (by target id, then relation) so traversal is
// reproducible regardless of load order.
func (g *Graph) OutEdges(id string) []*domain.Edge {
	return g.outEdges[id]
}

// InEdges returns the incoming edges of a node.
func (g *Graph) InEdges(id string) []*domain.Edge {
	return g.inEdges[id]
}

// Rules returns the loaded rule set.
func (g *Graph) Rules() []*domain.Rule {
	return g.rules
}

// NodeIDs returns every node id in lexicographic order, the iteration
// order the propagation engine uses within a tick (spec §4.4, §5).
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Finalize sorts adjacency lists for deterministic traversal. Called
// once by the loader after all nodes/edges are added.
func (g *Graph) Finalize() {
	for id, edges := range g.outEdges {
		sorted := append([]*domain.Edge(nil), edges...)
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].Target != sorted[j].Target {
				return sorted[i].Target < sorted[j].Target
			}
			return sorted[i].Rel < sorted[j].Rel
		})
		g.outEdges[id] = sorted
	}
}

// Stats summarizes the graph for the GET /graph endpoint.
type Stats struct {
	NodeCount  int            `json:"node_count"`
	EdgeCount  int            `json:"edge_count"`
	RuleCount  int            `json:"rule_count"`
	ByDomain   map[string]int `json:"by_domain"`
}

// Stats computes per-domain node counts and totals.
func (g *Graph) Stats() Stats {
	s := Stats{RuleCount: len(g.rules), ByDomain: make(map[string]int)}
	for _, n := range g.nodes {
		s.NodeCount++
		s.ByDomain[string(n.Domain)]++
	}
	for _, edges := range g.outEdges {
		s.EdgeCount += len(edges)
	}
	return s
}

// AllNodes returns every node, for endpoints that need the full list.
func (g *Graph) AllNodes() []*domain.Node {
	out := make([]*domain.Node, 0, len(g.nodes))
	for _, id := range g.NodeIDs() {
		out = append(out, g.nodes[id])
	}
	return out
}

// AllEdges returns every edge, for endpoints that need the full list.
func (g *Graph) AllEdges() []*domain.Edge {
	var out []*domain.Edge
	for _, id := range g.NodeIDs() {
		out = append(out, g.outEdges[id]...)
	}
	return out
}
