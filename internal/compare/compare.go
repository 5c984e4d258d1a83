// Package compare implements the Comparator: runs the Propagation
// Engine twice (baseline vs intervention) and classifies the per-node
// delta (spec §4.6).
package compare

import (
	"sort"

	"github.com/qualphys/reasoner/internal/domain"
	"github.com/qualphys/reasoner/internal/graph"
	"github.com/qualphys/reasoner/internal/propagation"
)

// DefaultEpsilon is the confidence-delta margin below which a node is
// classified `unchanged` (spec §4.6).
const DefaultEpsilon = 0.05

// Request pairs a baseline and intervention simulation request
// (spec §6: ComparisonRequest).
type Request struct {
	Baseline     propagation.Request
	Intervention propagation.Request
}

// Result pairs both simulation results with the classified deltas
// (spec §6: ComparisonResponse).
type Result struct {
	Baseline     *propagation.Result
	Intervention *propagation.Result
	ChangedNodes []domain.ComparedNode
}

// Run executes both simulations with identical options and diffs the
// affected-node sets (spec §4.6).
func Run(g *graph.Graph, req Request) (*Result, error) {
	baseline, err := propagation.Simulate(g, req.Baseline)
	if err != nil {
		return nil, err
	}
	intervention, err := propagation.Simulate(g, req.Intervention)
	if err != nil {
		return nil, err
	}

	baselineByNode := indexAffected(baseline.AffectedNodes)
	interventionByNode := indexAffected(intervention.AffectedNodes)

	nodeSet := make(map[string]bool, len(baselineByNode)+len(interventionByNode))
	for id := range baselineByNode {
		nodeSet[id] = true
	}
	for id := range interventionByNode {
		nodeSet[id] = true
	}

	ids := make([]string, 0, len(nodeSet))
	for id := range nodeSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	changed := make([]domain.ComparedNode, 0, len(ids))
	for _, id := range ids {
		b, inBaseline := baselineByNode[id]
		i, inIntervention := interventionByNode[id]
		changed = append(changed, classify(id, b, inBaseline, i, inIntervention))
	}

	return &Result{Baseline: baseline, Intervention: intervention, ChangedNodes: changed}, nil
}

func indexAffected(nodes []domain.AffectedNode) map[string]domain.AffectedNode {
	out := make(map[string]domain.AffectedNode, len(nodes))
	for _, n := range nodes {
		out[n.NodeID] = n
	}
	return out
}

func classify(nodeID string, b domain.AffectedNode, inBaseline bool, i domain.AffectedNode, inIntervention bool) domain.ComparedNode {
	result := domain.ComparedNode{NodeID: nodeID}

	switch {
	case inIntervention && !inBaseline:
		result.Class = domain.ChangeNew
		result.InterventionDirection = i.Direction
		result.ConfidenceDelta = i.Confidence
	case inBaseline && !inIntervention:
		result.Class = domain.ChangeResolved
		result.BaselineDirection = b.Direction
		result.ConfidenceDelta = -b.Confidence
	default:
		result.BaselineDirection = b.Direction
		result.InterventionDirection = i.Direction
		delta := i.Confidence - b.Confidence
		result.ConfidenceDelta = delta

		switch {
		case b.Direction != i.Direction && isOpposite(b.Direction, i.Direction):
			result.Class = domain.ChangeDirectionFlip
		case delta >= DefaultEpsilon:
			result.Class = domain.ChangeStrengthened
		case -delta >= DefaultEpsilon:
			result.Class = domain.ChangeWeakened
		default:
			result.Class = domain.ChangeUnchanged
		}
	}
	return result
}

func isOpposite(a, b domain.Direction) bool {
	return (a == domain.Up && b == domain.Down) || (a == domain.Down && b == domain.Up)
}
