package trace

import (
	"fmt"
	"sort"
	"strings"

	"github.com/qualphys/reasoner/internal/domain"
	"github.com/qualphys/reasoner/internal/graph"
	"github.com/qualphys/reasoner/internal/propagation"
)

// DefaultTopK is the number of paths retained per affected node
// (spec §4.5).
const DefaultTopK = 5

// beamWidth bounds how many partial paths are carried through each
// level of back-pointer recursion. The spec only requires the top K
// paths in the final output; without a beam the path count can grow
// combinatorially in a densely cyclic graph. This is an implementation
// bound, not a spec requirement, so it is documented here rather than
// surfaced as an option.
const beamWidth = 20

type candidate struct {
	nodes      []string
	steps      []string
	confidence float64
}

// Build reconstructs traces for every affected node in result,
// returning at most topK paths per node ordered by descending
// confidence, shorter length, then lexicographic node sequence
// (spec §4.5). topK <= 0 selects DefaultTopK.
func Build(g *graph.Graph, result *propagation.Result, topK int) map[string][]domain.TraceStep {
	if topK <= 0 {
		topK = DefaultTopK
	}

	traces := make(map[string][]domain.TraceStep, len(result.AffectedNodes))
	for _, affected := range result.AffectedNodes {
		if result.Seeds[affected.NodeID] && len(result.Contributions[affected.NodeID]) == 0 {
			// A pure seed with no incoming contributions has no causal
			// path to report; its own perturbation is the whole story.
			continue
		}
		candidates := enumerate(g, result, affected.NodeID, map[string]bool{affected.NodeID: true})
		sortCandidates(candidates)
		if len(candidates) > topK {
			candidates = candidates[:topK]
		}
		steps := make([]domain.TraceStep, 0, len(candidates))
		for _, c := range candidates {
			steps = append(steps, domain.TraceStep{
				Path:       c.nodes,
				Steps:      c.steps,
				Confidence: c.confidence,
				Macro:      match(DefaultTemplates, Facts{Nodes: c.nodes}),
			})
		}
		if len(steps) > 0 {
			traces[affected.NodeID] = steps
		}
	}
	return traces
}

// enumerate walks the contribution arena backward from nodeID to every
// reachable seed, returning one candidate per distinct path. visited
// guards against cycles within a single path under construction.
func enumerate(g *graph.Graph, result *propagation.Result, nodeID string, visited map[string]bool) []candidate {
	if result.Seeds[nodeID] {
		return []candidate{{nodes: []string{nodeID}, confidence: 1.0}}
	}

	var out []candidate
	for _, c := range result.Contributions[nodeID] {
		if visited[c.FromNode] {
			continue
		}
		visited[c.FromNode] = true
		prefixes := enumerate(g, result, c.FromNode, visited)
		delete(visited, c.FromNode)

		for _, prefix := range prefixes {
			out = append(out, candidate{
				nodes:      append(append([]string(nil), prefix.nodes...), nodeID),
				steps:      append(append([]string(nil), prefix.steps...), stepString(g, c.Edge)),
				confidence: prefix.confidence * c.Edge.Weight,
			})
		}
	}

	sortCandidates(out)
	if len(out) > beamWidth {
		out = out[:beamWidth]
	}
	return out
}

// stepString renders one traversed edge as a human-readable step
// (spec §4.5): "<src_label> <arrow> <tgt_label>", with the edge's
// description appended in parentheses when present.
func stepString(g *graph.Graph, e *domain.Edge) string {
	arrow := "↑"
	if e.Rel == domain.RelDecreases {
		arrow = "↓"
	}
	srcLabel := label(g, e.Source)
	tgtLabel := label(g, e.Target)
	step := fmt.Sprintf("%s %s %s", srcLabel, arrow, tgtLabel)
	if e.Description != "" {
		step += fmt.Sprintf(" (%s)", e.Description)
	}
	return step
}

func label(g *graph.Graph, nodeID string) string {
	if n, ok := g.Node(nodeID); ok && n.Label != "" {
		return n.Label
	}
	return nodeID
}

// sortCandidates orders by descending confidence, then shorter length,
// then lexicographic node sequence (spec §4.5).
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.confidence != b.confidence {
			return a.confidence > b.confidence
		}
		if len(a.nodes) != len(b.nodes) {
			return len(a.nodes) < len(b.nodes)
		}
		return strings.Join(a.nodes, ",") < strings.Join(b.nodes, ",")
	})
}
