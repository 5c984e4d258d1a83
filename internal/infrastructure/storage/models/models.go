// Package models holds the bun row types persisted by the storage
// package (grounded on the teacher's
// internal/infrastructure/storage/models package layout and tag
// conventions).
//
// Scope is deliberately narrow: spec.md's Non-goals exclude persisting
// simulation results, so only two things are durable — the audit trail
// of knowledge-pack (re)loads, and named scenarios a caller wants to
// re-run later (perturbations, context and options; never the
// propagation output those inputs produce).
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PackLoadModel records one attempt to (re)load the knowledge pack,
// successful or not (spec §5: "reload must be observable/auditable").
type PackLoadModel struct {
	bun.BaseModel `bun:"table:reasoner_pack_loads,alias:pl"`

	ID            uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Paths         []string  `bun:"paths,array,notnull"`
	NodeCount     int       `bun:"node_count,notnull,default:0"`
	EdgeCount     int       `bun:"edge_count,notnull,default:0"`
	RuleCount     int       `bun:"rule_count,notnull,default:0"`
	Success       bool      `bun:"success,notnull"`
	Diagnostics   string    `bun:"diagnostics"`
	ErrorMessage  string    `bun:"error_message"`
	LoadedBy      string    `bun:"loaded_by,notnull,default:''"`
	LoadedAt      time.Time `bun:"loaded_at,notnull,default:current_timestamp"`
}

// ScenarioModel is a saved simulation input: enough to reissue the
// same request against whatever pack is currently loaded. It never
// stores the propagation result — re-running is the only way to see
// one, so a saved scenario always reflects the live pack.
type ScenarioModel struct {
	bun.BaseModel `bun:"table:reasoner_scenarios,alias:sc"`

	ID             uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name           string    `bun:"name,notnull,unique"`
	Description    string    `bun:"description"`
	PerturbationsJ string    `bun:"perturbations_json,notnull,type:jsonb"`
	ContextJ       string    `bun:"context_json,notnull,type:jsonb,default:'{}'"`
	OptionsJ       string    `bun:"options_json,notnull,type:jsonb,default:'{}'"`
	CreatedBy      string    `bun:"created_by,notnull,default:''"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
