// Package app assembles the generation service from configuration.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"compforge/internal/cache/pattern"
	"compforge/internal/executor"
	"compforge/internal/gateway/config"
	"compforge/internal/gateway/handler"
	"compforge/internal/gateway/repository/artifact"
	"compforge/internal/gateway/server"
	"compforge/internal/history"
	"compforge/internal/llm"
	"compforge/internal/llmclient"
	"compforge/internal/pipeline"
	"compforge/internal/progress"
	"compforge/internal/selector"
)

type App struct {
	server   *server.Server
	registry *llmclient.Registry
	closers  []func() error
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	catalog := selector.DefaultCatalog()
	if cfg.CatalogPath != "" {
		catalog, err = selector.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load backend catalog: %w", err)
		}
	}
	sel, err := selector.New(catalog, selector.Options{
		Objective: selector.ParseObjective(cfg.Objective),
		Override:  cfg.BackendOverride,
	})
	if err != nil {
		// An unusable backend table is fatal at startup, not at request time.
		return nil, fmt.Errorf("backend selection: %w", err)
	}

	registry := newRegistry(cfg)

	exec := executor.New(registry, cfg.StageTimeout)
	patterns := pattern.NewStore(pattern.WithDefaultTTL(cfg.CacheTTL))
	tracker := progress.NewTracker()
	hist := history.NewMemoryStore(40)

	pipe := pipeline.NewService(sel, exec, patterns, tracker, hist, pipeline.Options{
		CacheEnabled:       cfg.CacheEnabled,
		ParallelismEnabled: cfg.ParallelismEnabled,
	})

	a := &App{registry: registry}

	artifacts, err := a.openArtifactStore(cfg.Artifact)
	if err != nil {
		return nil, err
	}

	svc := handler.NewService(pipe, artifacts, patterns)
	a.server = server.New(cfg.Port, server.NewMux(svc))
	return a, nil
}

func newRegistry(cfg *config.Config) *llmclient.Registry {
	registry := llmclient.NewRegistry()

	if cfg.GeminiAPIKey != "" {
		key := cfg.GeminiAPIKey
		registry.Register("gemini", func(ctx context.Context, model string) (llmclient.Client, error) {
			return llmclient.NewGeminiClient(ctx, key, model)
		})
	}
	if cfg.GroqAPIKey != "" {
		key := cfg.GroqAPIKey
		registry.Register("groq", func(_ context.Context, model string) (llmclient.Client, error) {
			return llmclient.NewGroqClient(key, model)
		})
	}
	// The fake provider keeps the service usable without any credentials.
	registry.Register("fake", func(context.Context, string) (llmclient.Client, error) {
		return llmclient.NewFakeClient(llmclient.ShapeText), nil
	})

	logger := log.New(os.Stderr, "llm ", log.LstdFlags)
	rps := cfg.RateLimitRPS
	registry.SetWrapper(func(c llmclient.Client) llmclient.Client {
		mws := []llm.Middleware{llm.WithLogging(logger)}
		if rps > 0 {
			mws = append(mws, llm.RateLimit(rps, 1))
		}
		return llm.Wrap(c, mws...)
	})
	return registry
}

func (a *App) openArtifactStore(cfg config.ArtifactConfig) (artifact.Store, error) {
	var backend artifact.Store
	switch cfg.Backend {
	case "", "memory":
		backend = artifact.NewMemoryStore()
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pg, err := artifact.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("artifact store: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		backend = pg
	case "s3":
		s3, err := artifact.NewS3Store(artifact.S3Config{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			UseSSL:    cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("artifact store: %w", err)
		}
		backend = s3
	default:
		return nil, fmt.Errorf("artifact store: unknown backend %q", cfg.Backend)
	}
	return artifact.NewCachedStore(backend, 0)
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.registry.Close(); err == nil {
		err = cerr
	}
	for _, c := range a.closers {
		if cerr := c(); err == nil {
			err = cerr
		}
	}
	return err
}
