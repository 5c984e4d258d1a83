package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/qualphys/reasoner/internal/infrastructure/storage/models"
)

// BunStore is the Postgres-backed Store, grounded on the teacher's
// bun.DB + models package pairing.
type BunStore struct {
	db *bun.DB
}

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

func (s *BunStore) RecordPackLoad(ctx context.Context, load PackLoad) error {
	row := &models.PackLoadModel{
		ID:           uuid.New(),
		Paths:        load.Paths,
		NodeCount:    load.NodeCount,
		EdgeCount:    load.EdgeCount,
		RuleCount:    load.RuleCount,
		Success:      load.Success,
		Diagnostics:  load.Diagnostics,
		ErrorMessage: load.ErrorMessage,
		LoadedBy:     load.LoadedBy,
		LoadedAt:     time.Now(),
	}
	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	return err
}

func (s *BunStore) ListPackLoads(ctx context.Context, limit int) ([]PackLoad, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.PackLoadModel
	if err := s.db.NewSelect().Model(&rows).OrderExpr("loaded_at DESC").Limit(limit).Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]PackLoad, len(rows))
	for i, r := range rows {
		out[i] = PackLoad{
			ID:           r.ID,
			Paths:        r.Paths,
			NodeCount:    r.NodeCount,
			EdgeCount:    r.EdgeCount,
			RuleCount:    r.RuleCount,
			Success:      r.Success,
			Diagnostics:  r.Diagnostics,
			ErrorMessage: r.ErrorMessage,
			LoadedBy:     r.LoadedBy,
			LoadedAt:     r.LoadedAt,
		}
	}
	return out, nil
}

func (s *BunStore) SaveScenario(ctx context.Context, sc Scenario) (Scenario, error) {
	now := time.Now()
	row := &models.ScenarioModel{
		Name:           sc.Name,
		Description:    sc.Description,
		PerturbationsJ: marshalPerturbations(sc.Perturbations),
		ContextJ:       marshalContext(sc.Context),
		OptionsJ:       marshalOptions(sc.Options, sc.ConflictEpsilon),
		CreatedBy:      sc.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (name) DO UPDATE").
		Set("description = EXCLUDED.description").
		Set("perturbations_json = EXCLUDED.perturbations_json").
		Set("context_json = EXCLUDED.context_json").
		Set("options_json = EXCLUDED.options_json").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return Scenario{}, err
	}
	return s.GetScenario(ctx, sc.Name)
}

func (s *BunStore) GetScenario(ctx context.Context, name string) (Scenario, error) {
	var row models.ScenarioModel
	err := s.db.NewSelect().Model(&row).Where("name = ?", name).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Scenario{}, ErrNotFound
	}
	if err != nil {
		return Scenario{}, err
	}
	return rowToScenario(row)
}

func (s *BunStore) ListScenarios(ctx context.Context) ([]Scenario, error) {
	var rows []models.ScenarioModel
	if err := s.db.NewSelect().Model(&rows).OrderExpr("name ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]Scenario, 0, len(rows))
	for _, r := range rows {
		sc, err := rowToScenario(r)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func (s *BunStore) DeleteScenario(ctx context.Context, name string) error {
	res, err := s.db.NewDelete().Model((*models.ScenarioModel)(nil)).Where("name = ?", name).Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *BunStore) Ping(ctx context.Context) error {
	return Ping(ctx, s.db)
}

func (s *BunStore) Close() error {
	return Close(s.db)
}

func rowToScenario(row models.ScenarioModel) (Scenario, error) {
	perturbations, err := unmarshalPerturbations(row.PerturbationsJ)
	if err != nil {
		return Scenario{}, err
	}
	ctxMap, err := unmarshalContext(row.ContextJ)
	if err != nil {
		return Scenario{}, err
	}
	opts, epsilon, err := unmarshalOptions(row.OptionsJ)
	if err != nil {
		return Scenario{}, err
	}
	return Scenario{
		ID:              row.ID,
		Name:            row.Name,
		Description:     row.Description,
		Perturbations:   perturbations,
		Context:         ctxMap,
		Options:         opts,
		ConflictEpsilon: epsilon,
		CreatedBy:       row.CreatedBy,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}, nil
}
