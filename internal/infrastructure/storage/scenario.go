package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/qualphys/reasoner/internal/domain"
	"github.com/qualphys/reasoner/internal/propagation"
)

// Scenario is a named, reusable simulation input. Saving one never
// touches the propagation engine — it is pure data until a caller
// re-runs it against the currently loaded graph.
type Scenario struct {
	ID              uuid.UUID
	Name            string
	Description     string
	Perturbations   []domain.Perturbation
	Context         map[string]bool
	Options         propagation.Options
	ConflictEpsilon float64
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Request builds the propagation.Request this scenario represents.
func (s Scenario) Request() propagation.Request {
	return propagation.Request{
		Perturbations:   s.Perturbations,
		Context:         s.Context,
		Options:         s.Options,
		ConflictEpsilon: s.ConflictEpsilon,
	}
}

// scenarioOptions is the JSON shape stored in ScenarioModel.OptionsJ,
// split out from propagation.Options because TimeWindow marshals as
// its string form, not its internal representation.
type scenarioOptions struct {
	MaxHops         int     `json:"max_hops"`
	MinConfidence   float64 `json:"min_confidence"`
	TimeWindow      string  `json:"time_window"`
	DimUnaffected   bool    `json:"dim_unaffected"`
	ConflictEpsilon float64 `json:"conflict_epsilon"`
}

func marshalOptions(o propagation.Options, epsilon float64) string {
	b, _ := json.Marshal(scenarioOptions{
		MaxHops:         o.MaxHops,
		MinConfidence:   o.MinConfidence,
		TimeWindow:      string(o.TimeWindow),
		DimUnaffected:   o.DimUnaffected,
		ConflictEpsilon: epsilon,
	})
	return string(b)
}

func unmarshalOptions(raw string) (propagation.Options, float64, error) {
	if raw == "" {
		return propagation.DefaultOptions(), 0, nil
	}
	var so scenarioOptions
	if err := json.Unmarshal([]byte(raw), &so); err != nil {
		return propagation.Options{}, 0, err
	}
	return propagation.Options{
		MaxHops:       so.MaxHops,
		MinConfidence: so.MinConfidence,
		TimeWindow:    domain.TimeWindow(so.TimeWindow),
		DimUnaffected: so.DimUnaffected,
	}, so.ConflictEpsilon, nil
}

func marshalPerturbations(p []domain.Perturbation) string {
	b, _ := json.Marshal(p)
	return string(b)
}

func unmarshalPerturbations(raw string) ([]domain.Perturbation, error) {
	if raw == "" {
		return nil, nil
	}
	var p []domain.Perturbation
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, err
	}
	return p, nil
}

func marshalContext(ctx map[string]bool) string {
	if ctx == nil {
		ctx = map[string]bool{}
	}
	b, _ := json.Marshal(ctx)
	return string(b)
}

func unmarshalContext(raw string) (map[string]bool, error) {
	if raw == "" {
		return map[string]bool{}, nil
	}
	ctx := map[string]bool{}
	if err := json.Unmarshal([]byte(raw), &ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}
