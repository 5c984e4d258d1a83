package propagation

import (
	"sort"

	"github.com/qualphys/reasoner/internal/domain"
	domainerrors "github.com/qualphys/reasoner/internal/domain/errors"
	"github.com/qualphys/reasoner/internal/graph"
	"github.com/qualphys/reasoner/internal/rules"
)

// ruleEvalContext adapts a simulation's context and user-seed
// directions to the rules.EvalContext the Rule Engine evaluates
// `when` clauses against (spec §4.3).
type ruleEvalContext struct {
	context map[string]bool
	seeds   map[string]domain.Direction
}

func (c ruleEvalContext) Flag(name string) bool { return c.context[name] }

func (c ruleEvalContext) SeedDirection(nodeID string) (domain.Direction, bool) {
	d, ok := c.seeds[nodeID]
	return d, ok
}

// effectivePerturbations evaluates every rule once against the user's
// context and seed directions, then folds in rule-contributed
// perturbations for any node the user did not already perturb (spec
// §4.3: "User perturbations take precedence on conflict"). Rules are
// evaluated in ascending id order so that rule-vs-rule conflicts on the
// same node are resolved deterministically: first match wins.
func effectivePerturbations(g *graph.Graph, userPerturbations []domain.Perturbation, context map[string]bool) ([]domain.Perturbation, error) {
	byNode := make(map[string]domain.Perturbation, len(userPerturbations))
	seedDirections := make(map[string]domain.Direction, len(userPerturbations))

	for _, p := range userPerturbations {
		canonical, ok := g.Resolve(p.NodeID)
		if !ok {
			return nil, &domainerrors.UnknownNodeError{NodeID: p.NodeID}
		}
		p.NodeID = canonical
		node, _ := g.Node(canonical)
		dir, _ := p.SeedDirection(node)
		byNode[canonical] = p
		seedDirections[canonical] = dir
	}

	evalCtx := ruleEvalContext{context: context, seeds: seedDirections}

	rulesSorted := append([]*domain.Rule(nil), g.Rules()...)
	sort.Slice(rulesSorted, func(i, j int) bool { return rulesSorted[i].ID < rulesSorted[j].ID })

	for _, r := range rulesSorted {
		expr, err := rules.Parse(r.When)
		if err != nil {
			// The loader already rejects unparseable rules; a rule
			// reaching here with a bad clause indicates a logic bug,
			// not an authoring mistake.
			return nil, domainerrors.NewInternalError("rule-reparse-failed", err)
		}
		if !expr.Eval(evalCtx) {
			continue
		}
		nodeIDs := make([]string, 0, len(r.Then))
		for nodeID := range r.Then {
			nodeIDs = append(nodeIDs, nodeID)
		}
		sort.Strings(nodeIDs)
		for _, nodeID := range nodeIDs {
			if _, claimed := byNode[nodeID]; claimed {
				continue
			}
			clause := r.Then[nodeID]
			byNode[nodeID] = domain.Perturbation{NodeID: nodeID, Op: clause.Op, Value: clause.Value, HasValue: clause.HasValue}
		}
	}

	out := make([]domain.Perturbation, 0, len(byNode))
	for _, p := range byNode {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out, nil
}

type frontierEntry struct {
	nodeID string
	tick   int
}

// Simulate is the Propagation Engine's pure entry point:
// simulate(graph, request) -> result (spec §5). It never mutates the
// graph and performs no I/O.
func Simulate(g *graph.Graph, req Request) (*Result, error) {
	if err := req.Options.Validate(); err != nil {
		return nil, err
	}

	perturbations, err := effectivePerturbations(g, req.Perturbations, req.Context)
	if err != nil {
		return nil, err
	}

	states := make(map[string]*nodeState)
	stateFor := func(nodeID string) *nodeState {
		s, ok := states[nodeID]
		if !ok {
			s = newNodeState()
			states[nodeID] = s
		}
		return s
	}

	var queue []frontierEntry
	epsilon := req.epsilon()

	for _, p := range perturbations {
		node, ok := g.Node(p.NodeID)
		if !ok {
			return nil, &domainerrors.UnknownNodeError{NodeID: p.NodeID}
		}
		dir, blocked := p.SeedDirection(node)
		s := stateFor(p.NodeID)
		s.isSeed = true
		s.blocked = blocked
		s.addContribution(dir, 1.0, 0, epsilon)
		queue = append(queue, frontierEntry{nodeID: p.NodeID, tick: 0})
	}

	// Process strictly in ascending (tick, node-id) order for
	// determinism (spec §4.4, §5, §8).
	for len(queue) > 0 {
		sort.SliceStable(queue, func(i, j int) bool {
			if queue[i].tick != queue[j].tick {
				return queue[i].tick < queue[j].tick
			}
			return queue[i].nodeID < queue[j].nodeID
		})
		entry := queue[0]
		queue = queue[1:]

		s := states[entry.nodeID]
		if s == nil || s.blocked {
			continue
		}
		if entry.tick+1 > req.Options.MaxHops {
			continue
		}

		if req.OnTick != nil {
			req.OnTick(TickEvent{
				Tick:       entry.tick,
				NodeID:     entry.nodeID,
				Direction:  s.adoptedDirection,
				Confidence: s.adoptedConfidence,
			})
		}

		for _, e := range g.OutEdges(entry.nodeID) {
			if !e.Rel.Propagates() {
				continue
			}
			if !e.Live(req.Context) {
				continue
			}
			if !req.Options.TimeWindow.Allows(e.Delay) {
				continue
			}
			if e.Rel == domain.RelIncreases && !requiresSatisfied(g, states, e.Target) {
				continue
			}

			propagatedDirection := s.adoptedDirection
			if e.Rel == domain.RelDecreases {
				propagatedDirection = propagatedDirection.Flip()
			}
			propagatedConfidence := s.adoptedConfidence * e.Weight
			if propagatedConfidence < req.Options.MinConfidence {
				continue
			}

			target := stateFor(e.Target)
			target.incoming = append(target.incoming, Contribution{
				Edge:             e,
				FromNode:         entry.nodeID,
				SourceConfidence: s.adoptedConfidence,
				SourceDirection:  s.adoptedDirection,
				Tick:             entry.tick,
			})
			target.addContribution(propagatedDirection, propagatedConfidence, entry.tick+1, epsilon)

			if !target.everPropagated || target.adoptedConfidence > target.lastPropagatedConfidence {
				target.everPropagated = true
				target.lastPropagatedConfidence = target.adoptedConfidence
				queue = append(queue, frontierEntry{nodeID: e.Target, tick: entry.tick + 1})
			}
		}
	}

	result := &Result{
		Seeds:         make(map[string]bool, len(perturbations)),
		Contributions: make(map[string][]Contribution),
	}
	for _, p := range perturbations {
		result.Seeds[p.NodeID] = true
	}

	// max_ticks is the highest adopted first_tick observed (spec §6),
	// not the highest frontier tick processed: a cyclic re-enqueue can
	// dequeue at a higher tick without ever lowering or raising any
	// node's adopted first_tick (state.go's addContribution only ever
	// lowers it), so the processed tick is not the same quantity.
	maxTicks := 0
	for _, nodeID := range g.NodeIDs() {
		s, ok := states[nodeID]
		if !ok || s.adoptedDirection == "" {
			continue
		}
		firstTick := s.adoptedFirstTick()
		if firstTick > maxTicks {
			maxTicks = firstTick
		}
		result.AffectedNodes = append(result.AffectedNodes, domain.AffectedNode{
			NodeID:     nodeID,
			Direction:  s.adoptedDirection,
			Magnitude:  domain.BucketConfidence(s.adoptedConfidence),
			Confidence: s.adoptedConfidence,
			Timescale:  dominantTimescale(s),
			FirstTick:  firstTick,
		})
		if len(s.incoming) > 0 {
			result.Contributions[nodeID] = s.incoming
		}
	}
	result.MaxTicks = maxTicks

	return result, nil
}

// requiresSatisfied implements the `requires` gate: a node may accept
// an incoming `increases` edge only if every node that `requires` it is
// currently adopted `up` (spec §4.4: "`requires` prevents the target
// from activating unless the source is up").
func requiresSatisfied(g *graph.Graph, states map[string]*nodeState, target string) bool {
	for _, e := range g.InEdges(target) {
		if e.Rel != domain.RelRequires {
			continue
		}
		s, ok := states[e.Source]
		if !ok || s.adoptedDirection != domain.Up {
			return false
		}
	}
	return true
}

// dominantTimescale reports the delay bucket of the contribution that
// established the adopted direction, or DelayImmediate for seeds.
func dominantTimescale(s *nodeState) domain.Delay {
	if s.isSeed {
		return domain.DelayImmediate
	}
	var chosen *Contribution
	for i := range s.incoming {
		c := &s.incoming[i]
		if c.Tick+1 != s.adoptedFirstTick() {
			continue
		}
		if chosen == nil || c.Edge.Delay.Rank() > chosen.Edge.Delay.Rank() {
			chosen = c
		}
	}
	if chosen == nil {
		return domain.DelayImmediate
	}
	return chosen.Edge.Delay
}
