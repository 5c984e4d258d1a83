package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	domainerrors "github.com/qualphys/reasoner/internal/domain/errors"
	"github.com/qualphys/reasoner/internal/graph"
	"github.com/qualphys/reasoner/internal/infrastructure/api/rest"
	"github.com/qualphys/reasoner/internal/infrastructure/auth"
	"github.com/qualphys/reasoner/internal/infrastructure/config"
	"github.com/qualphys/reasoner/internal/infrastructure/logger"
	"github.com/qualphys/reasoner/internal/infrastructure/narrator"
	"github.com/qualphys/reasoner/internal/infrastructure/storage"
	"github.com/qualphys/reasoner/internal/loader"
	"github.com/qualphys/reasoner/internal/pack"
)

func main() {
	var (
		port     = flag.String("port", "", "server port (overrides config)")
		inMemory = flag.Bool("in-memory", false, "use an in-memory store instead of Postgres")
	)
	flag.Parse()

	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}

	logger.Setup(cfg.LogLevel)
	log.Info().Str("port", cfg.Port).Strs("pack_paths", cfg.PackPaths).Msg("starting reasoner server")

	store, err := buildStore(cfg, *inMemory)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	g, diagnostics, err := loadPackPaths(cfg.PackPaths)
	if err != nil {
		log.Fatal().Err(err).Strs("diagnostics", diagnostics).Msg("failed to load knowledge pack at startup")
	}
	for _, d := range diagnostics {
		log.Warn().Str("diagnostic", d).Msg("pack load warning")
	}
	log.Info().Interface("stats", g.Stats()).Msg("knowledge pack loaded")

	authenticator := buildAuthenticator(cfg)
	narrate := buildNarrator(cfg)

	srv := rest.NewServer(g, store, authenticator, narrate, reloader, cfg.PackPaths)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", httpServer.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close store cleanly")
	}
	log.Info().Msg("server exited gracefully")
}

func buildStore(cfg *config.Config, inMemory bool) (storage.Store, error) {
	if inMemory {
		return storage.NewMemStore(), nil
	}

	dbCfg := storage.DefaultConfig()
	dbCfg.DSN = cfg.DatabaseDSN
	db, err := storage.NewDB(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := storage.InitSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return storage.NewBunStore(db), nil
}

func buildAuthenticator(cfg *config.Config) auth.Authenticator {
	if !cfg.AuthEnabled {
		return auth.NewNoAuth()
	}
	return auth.NewJWTAuth(cfg.JWTSecret)
}

func buildNarrator(cfg *config.Config) narrator.Narrator {
	if !cfg.NarratorEnabled || cfg.OpenAIAPIKey == "" {
		return narrator.Noop{}
	}
	return narrator.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
}

// reloader is the rest.Reloader passed to the server; it is a plain
// function rather than a method so a reload never depends on server
// state beyond the paths it is given (spec §5).
func reloader(paths []string) (*graph.Graph, []string, error) {
	return loadPackPaths(paths)
}

// loadPackPaths reads every YAML file named or contained under paths
// and merges them into one graph, in path order (spec §4.1): a
// duplicate edge takes the later declaration's weight, while a
// duplicate node keeps its first declaration's label and description.
func loadPackPaths(paths []string) (*graph.Graph, []string, error) {
	var docs []pack.Document
	for _, p := range paths {
		files, err := expandPath(p)
		if err != nil {
			return nil, nil, fmt.Errorf("expand pack path %s: %w", p, err)
		}
		for _, f := range files {
			data, err := os.ReadFile(f)
			if err != nil {
				return nil, nil, fmt.Errorf("read pack file %s: %w", f, err)
			}
			fileDocs, err := pack.DecodeAll(data)
			if err != nil {
				return nil, nil, fmt.Errorf("decode pack file %s: %w", f, err)
			}
			docs = append(docs, fileDocs...)
		}
	}

	g, diags, err := loader.Merge(docs)
	diagStrings := make([]string, len(diags))
	for i, d := range diags {
		diagStrings[i] = d.String()
	}
	if err != nil {
		return nil, diagStrings, err
	}
	if g == nil {
		return nil, diagStrings, domainerrors.NewLoadError(diags)
	}
	return g, diagStrings, nil
}

// expandPath resolves a single configured path to the list of YAML
// files it names: the file itself, or every .yaml/.yml file directly
// under it if it is a directory.
func expandPath(p string) ([]string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{p}, nil
	}

	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(p, e.Name()))
		}
	}
	return files, nil
}
