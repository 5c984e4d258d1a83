package propagation

import "github.com/qualphys/reasoner/internal/domain"

// Contribution is one predecessor arriving at a node: the edge it
// arrived over, the node it came from, and the state that node had at
// the moment of traversal (spec §4.4 State: "incoming_paths"). The
// Trace Builder walks these back-pointers, arena-style, to reconstruct
// concrete paths (spec §9 Design Notes).
type Contribution struct {
	Edge             *domain.Edge
	FromNode         string
	SourceConfidence float64
	SourceDirection  domain.Direction
	Tick             int
}

// nodeState is the per-node running record the frontier pass builds up.
// group holds the probabilistic-OR confidence accumulated so far for
// each direction that has any support; it is recomputed incrementally
// as contributions arrive (spec §4.4 "Merging at a target").
type nodeState struct {
	isSeed   bool
	blocked  bool
	group    map[domain.Direction]float64
	incoming []Contribution

	adoptedDirection domain.Direction
	adoptedConfidence float64
	firstTick        map[domain.Direction]int

	// lastPropagatedConfidence tracks the adopted confidence the last
	// time this node was enqueued for forward propagation, so a cycle
	// revisit is only re-enqueued when it strictly improves on that
	// (spec §4.4 Termination / §9 cycles).
	lastPropagatedConfidence float64
	everPropagated           bool
}

func newNodeState() *nodeState {
	return &nodeState{
		group:     make(map[domain.Direction]float64),
		firstTick: make(map[domain.Direction]int),
	}
}

// addContribution folds one more propagated (direction, confidence)
// pair into the node's group via probabilistic OR, then re-runs the
// conflict rule (spec §4.4 steps 1-4). Returns whether the adopted
// state changed as a result.
func (s *nodeState) addContribution(dir domain.Direction, confidence float64, tick int, epsilon float64) (changed bool) {
	prevGroup, ok := s.group[dir]
	if !ok {
		prevGroup = 0
		s.firstTick[dir] = tick
	} else if tick < s.firstTick[dir] {
		s.firstTick[dir] = tick
	}
	s.group[dir] = 1 - (1-prevGroup)*(1-confidence)

	prevDirection, prevConfidence := s.adoptedDirection, s.adoptedConfidence
	s.resolve(epsilon)
	return s.adoptedDirection != prevDirection || s.adoptedConfidence != prevConfidence
}

// resolve applies the conflict rule across the up/down groups (spec §4.4
// steps 3-4). unknown is produced ONLY when both directions have
// support within epsilon of each other.
func (s *nodeState) resolve(epsilon float64) {
	up, hasUp := s.group[domain.Up]
	down, hasDown := s.group[domain.Down]

	switch {
	case hasUp && hasDown:
		diff := up - down
		if diff < 0 {
			diff = -diff
		}
		if diff <= epsilon {
			s.adoptedDirection = domain.Unknown
			s.adoptedConfidence = maxFloat(up, down)
		} else if up > down {
			s.adoptedDirection = domain.Up
			s.adoptedConfidence = up
		} else {
			s.adoptedDirection = domain.Down
			s.adoptedConfidence = down
		}
	case hasUp:
		s.adoptedDirection = domain.Up
		s.adoptedConfidence = up
	case hasDown:
		s.adoptedDirection = domain.Down
		s.adoptedConfidence = down
	}
}

// adoptedFirstTick returns the first tick that contributed to the
// currently adopted direction (spec §4.4 step 5). For `unknown` it is
// the earlier of the two competing directions' first ticks.
func (s *nodeState) adoptedFirstTick() int {
	switch s.adoptedDirection {
	case domain.Unknown:
		up, hasUp := s.firstTick[domain.Up]
		down, hasDown := s.firstTick[domain.Down]
		switch {
		case hasUp && hasDown:
			return minInt(up, down)
		case hasUp:
			return up
		default:
			return down
		}
	default:
		return s.firstTick[s.adoptedDirection]
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Result is the Propagation Engine's raw output: the adopted state of
// every node that was seeded or reached, plus the contribution arena
// the Trace Builder needs to reconstruct paths (spec §4.4, §4.5).
type Result struct {
	AffectedNodes []domain.AffectedNode
	Seeds         map[string]bool
	Contributions map[string][]Contribution
	MaxTicks      int
}
