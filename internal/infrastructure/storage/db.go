package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/qualphys/reasoner/internal/infrastructure/storage/models"
)

// Config holds database connection configuration.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// NewDB opens a pooled Postgres connection and registers the reasoner's
// bun models on it.
func NewDB(cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithTimeout(30*time.Second),
		pgdriver.WithDialTimeout(10*time.Second),
		pgdriver.WithReadTimeout(10*time.Second),
		pgdriver.WithWriteTimeout(10*time.Second),
	)

	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	db := bun.NewDB(sqldb, pgdialect.New())
	registerModels(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Int("max_open_conns", cfg.MaxOpenConns).
		Int("max_idle_conns", cfg.MaxIdleConns).
		Msg("database connection established")

	return db, nil
}

func registerModels(db *bun.DB) {
	db.RegisterModel(
		(*models.PackLoadModel)(nil),
		(*models.ScenarioModel)(nil),
	)
}

// InitSchema creates the reasoner's tables if they do not already
// exist. There is no migration tool in this module's dependency set;
// schema evolution beyond additive columns is out of scope.
func InitSchema(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*models.PackLoadModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create reasoner_pack_loads: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*models.ScenarioModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create reasoner_scenarios: %w", err)
	}
	return nil
}

// Close releases the pooled connection, called once during graceful
// shutdown (cmd/server/main.go).
func Close(db *bun.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// Ping reports whether the database is currently reachable, consulted
// by GET /ready.
func Ping(ctx context.Context, db *bun.DB) error {
	return db.PingContext(ctx)
}
