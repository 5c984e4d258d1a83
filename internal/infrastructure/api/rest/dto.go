package rest

import (
	"time"

	"github.com/qualphys/reasoner/internal/compare"
	"github.com/qualphys/reasoner/internal/domain"
	"github.com/qualphys/reasoner/internal/graph"
	"github.com/qualphys/reasoner/internal/propagation"
)

// NormalRangeResponse is the wire shape of a domain.NormalRange.
type NormalRangeResponse struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// NodeResponse is the wire shape of a domain.Node (spec §6: GraphResponse.nodes).
type NodeResponse struct {
	ID          string               `json:"id"`
	Label       string               `json:"label"`
	Domain      string               `json:"domain"`
	Subdomain   string               `json:"subdomain,omitempty"`
	Type        string               `json:"type"`
	StateType   string               `json:"state_type"`
	Unit        string               `json:"unit,omitempty"`
	NormalRange *NormalRangeResponse `json:"normal_range,omitempty"`
	Aliases     []string             `json:"aliases,omitempty"`
	Description string               `json:"description,omitempty"`
}

func nodeToResponse(n *domain.Node) NodeResponse {
	resp := NodeResponse{
		ID:          n.ID,
		Label:       n.Label,
		Domain:      string(n.Domain),
		Subdomain:   n.Subdomain,
		Type:        string(n.Type),
		StateType:   string(n.StateType),
		Unit:        n.Unit,
		Aliases:     n.Aliases,
		Description: n.Description,
	}
	if n.NormalRange != nil {
		resp.NormalRange = &NormalRangeResponse{Min: n.NormalRange.Min, Max: n.NormalRange.Max}
	}
	return resp
}

// EdgeResponse is the wire shape of a domain.Edge (spec §6: GraphResponse.edges).
type EdgeResponse struct {
	Source      string          `json:"source"`
	Target      string          `json:"target"`
	Rel         string          `json:"rel"`
	Weight      float64         `json:"weight"`
	Delay       string          `json:"delay"`
	Context     map[string]bool `json:"context,omitempty"`
	Priority    string          `json:"priority,omitempty"`
	Description string          `json:"description,omitempty"`
}

func edgeToResponse(e *domain.Edge) EdgeResponse {
	return EdgeResponse{
		Source:      e.Source,
		Target:      e.Target,
		Rel:         string(e.Rel),
		Weight:      e.Weight,
		Delay:       string(e.Delay),
		Context:     e.Context,
		Priority:    e.Priority,
		Description: e.Description,
	}
}

// RuleResponse is the wire shape of a domain.Rule (spec §6: GraphResponse.rules).
type RuleResponse struct {
	ID          string                       `json:"id"`
	When        string                       `json:"when"`
	Then        map[string]ThenClauseResponse `json:"then"`
	Description string                       `json:"description,omitempty"`
}

// ThenClauseResponse is the wire shape of a domain.ThenClause.
type ThenClauseResponse struct {
	Op    string   `json:"op"`
	Value *float64 `json:"value,omitempty"`
}

func ruleToResponse(r *domain.Rule) RuleResponse {
	then := make(map[string]ThenClauseResponse, len(r.Then))
	for nodeID, clause := range r.Then {
		tc := ThenClauseResponse{Op: string(clause.Op)}
		if clause.HasValue {
			v := clause.Value
			tc.Value = &v
		}
		then[nodeID] = tc
	}
	return RuleResponse{ID: r.ID, When: r.When, Then: then, Description: r.Description}
}

// GraphResponse is the full payload for GET /graph (spec §6).
type GraphResponse struct {
	Nodes        []NodeResponse `json:"nodes"`
	Edges        []EdgeResponse `json:"edges"`
	Rules        []RuleResponse `json:"rules"`
	Stats        graph.Stats    `json:"stats"`
	LastReloadAt time.Time      `json:"last_reload_at"`
}

func graphToResponse(g *graph.Graph, lastReloadAt time.Time) GraphResponse {
	nodes := g.AllNodes()
	nodeResponses := make([]NodeResponse, len(nodes))
	for i, n := range nodes {
		nodeResponses[i] = nodeToResponse(n)
	}
	edges := g.AllEdges()
	edgeResponses := make([]EdgeResponse, len(edges))
	for i, e := range edges {
		edgeResponses[i] = edgeToResponse(e)
	}
	rules := g.Rules()
	ruleResponses := make([]RuleResponse, len(rules))
	for i, r := range rules {
		ruleResponses[i] = ruleToResponse(r)
	}
	return GraphResponse{
		Nodes:        nodeResponses,
		Edges:        edgeResponses,
		Rules:        ruleResponses,
		Stats:        g.Stats(),
		LastReloadAt: lastReloadAt,
	}
}

// SimulateRequest is the decoded body of POST /simulate (spec §6).
type SimulateRequest struct {
	Perturbations   []domain.Perturbation `json:"perturbations"`
	Context         map[string]bool       `json:"context"`
	Options         propagation.Options   `json:"options"`
	ConflictEpsilon float64               `json:"conflict_epsilon,omitempty"`
	IncludeTraces   bool                  `json:"include_traces,omitempty"`
	TraceTopK       int                   `json:"trace_top_k,omitempty"`
}

func (r SimulateRequest) toEngineRequest() propagation.Request {
	return propagation.Request{
		Perturbations:   r.Perturbations,
		Context:         r.Context,
		Options:         r.Options,
		ConflictEpsilon: r.ConflictEpsilon,
	}
}

// SimulateResponse is the payload for POST /simulate (spec §6).
type SimulateResponse struct {
	AffectedNodes []domain.AffectedNode        `json:"affected_nodes"`
	Traces        map[string][]domain.TraceStep `json:"traces,omitempty"`
	MaxTicks      int                          `json:"max_ticks"`
}

// CompareRequest is the decoded body of POST /simulate/compare (spec §6).
type CompareRequest struct {
	Baseline     SimulateRequest `json:"baseline"`
	Intervention SimulateRequest `json:"intervention"`
}

func (r CompareRequest) toEngineRequest() compare.Request {
	return compare.Request{
		Baseline:     r.Baseline.toEngineRequest(),
		Intervention: r.Intervention.toEngineRequest(),
	}
}

// CompareResponse is the payload for POST /simulate/compare (spec §6).
type CompareResponse struct {
	Baseline     SimulateResponse      `json:"baseline"`
	Intervention SimulateResponse      `json:"intervention"`
	ChangedNodes []domain.ComparedNode `json:"changed_nodes"`
}

// NarrateRequest is the decoded body of POST /simulate/narrate.
type NarrateRequest struct {
	SimulateRequest
	Labels map[string]string `json:"labels,omitempty"`
}

// NarrateResponse is the payload for POST /simulate/narrate.
type NarrateResponse struct {
	Narrative string `json:"narrative"`
}

// ReloadRequest is the decoded body of POST /reload; an empty
// PackPaths list means "reload the paths already configured".
type ReloadRequest struct {
	PackPaths []string `json:"pack_paths,omitempty"`
}

// ReloadResponse is the payload for POST /reload (spec §5, §6).
type ReloadResponse struct {
	Success     bool     `json:"success"`
	Stats       graph.Stats `json:"stats"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// ScenarioRequest is the decoded body of POST /scenarios.
type ScenarioRequest struct {
	Name            string                `json:"name"`
	Description     string                `json:"description,omitempty"`
	Perturbations   []domain.Perturbation `json:"perturbations"`
	Context         map[string]bool       `json:"context,omitempty"`
	Options         propagation.Options   `json:"options"`
	ConflictEpsilon float64               `json:"conflict_epsilon,omitempty"`
}

// ScenarioResponse is the wire shape of a stored scenario.
type ScenarioResponse struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	Description     string                `json:"description,omitempty"`
	Perturbations   []domain.Perturbation `json:"perturbations"`
	Context         map[string]bool       `json:"context,omitempty"`
	Options         propagation.Options   `json:"options"`
	ConflictEpsilon float64               `json:"conflict_epsilon,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}
