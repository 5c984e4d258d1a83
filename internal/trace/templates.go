package trace

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Template is one macro-summary rule: if Predicate evaluates true over
// a path's Facts, Summary is attached to the trace (spec §4.5: "a
// single clinical-phrase sentence ... produced by templated
// pattern-matching over the path"). Implementers may ship an empty
// template set; this one is a small, representative starter set.
type Template struct {
	Name      string
	Predicate string
	Summary   string

	program *vm.Program
}

// DefaultTemplates is compiled once at package init. A template whose
// predicate fails to compile is skipped rather than panicking — a
// broken macro-summary template degrades to "no summary", never to a
// failed simulation.
var DefaultTemplates = compileTemplates([]Template{
	{
		Name:      "raas_activation",
		Predicate: `Has("renal.raas.renin") && Has("renal.raas.angiotensin_ii")`,
		Summary:   "RAAS activation",
	},
	{
		Name:      "baroreflex",
		Predicate: `Has("cardio.hemodynamics.map") && Has("neuro.ans.sympathetic_tone")`,
		Summary:   "baroreflex response",
	},
	{
		Name:      "respiratory_acidosis",
		Predicate: `HasAll("pulm.gasexchange.paco2", "acidbase.blood.ph")`,
		Summary:   "respiratory acidosis",
	},
	{
		Name:      "sympathetic_chronotropy",
		Predicate: `Has("neuro.ans.sympathetic_tone") && Has("cardio.hemodynamics.heart_rate")`,
		Summary:   "sympathetically-driven tachycardia",
	},
	{
		Name:      "hypoxic_drive",
		Predicate: `Has("pulm.gasexchange.pao2") && HasDomain("neuro")`,
		Summary:   "hypoxic sympathetic drive",
	},
})

func compileTemplates(templates []Template) []Template {
	compiled := make([]Template, 0, len(templates))
	for _, t := range templates {
		program, err := expr.Compile(t.Predicate, expr.Env(Facts{}), expr.AsBool())
		if err != nil {
			continue
		}
		t.program = program
		compiled = append(compiled, t)
	}
	return compiled
}

// match returns the summary of the first template (in list order)
// whose predicate is satisfied, or "" if none match.
func match(templates []Template, facts Facts) string {
	for _, t := range templates {
		if t.program == nil {
			continue
		}
		out, err := expr.Run(t.program, facts)
		if err != nil {
			continue
		}
		if satisfied, ok := out.(bool); ok && satisfied {
			return t.Summary
		}
	}
	return ""
}
