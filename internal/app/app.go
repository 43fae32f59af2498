// Package app wires configuration into the long-lived services of one analysis
// target: the checkpoint store, the archive fetcher, the LLM collaborators and
// the pipeline orchestrator.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/wayback-journey/internal/api"
	"github.com/JakeFAU/wayback-journey/internal/checkpoint"
	"github.com/JakeFAU/wayback-journey/internal/checkpoint/gcs"
	"github.com/JakeFAU/wayback-journey/internal/checkpoint/local"
	"github.com/JakeFAU/wayback-journey/internal/checkpoint/memory"
	"github.com/JakeFAU/wayback-journey/internal/checkpoint/postgres"
	"github.com/JakeFAU/wayback-journey/internal/config"
	"github.com/JakeFAU/wayback-journey/internal/content"
	"github.com/JakeFAU/wayback-journey/internal/discovery"
	collyfetcher "github.com/JakeFAU/wayback-journey/internal/fetcher/colly"
	"github.com/JakeFAU/wayback-journey/internal/hash/sha256"
	"github.com/JakeFAU/wayback-journey/internal/llm"
	"github.com/JakeFAU/wayback-journey/internal/pipeline"
	"github.com/JakeFAU/wayback-journey/internal/policy/ratelimit"
	"github.com/JakeFAU/wayback-journey/internal/publisher/pubsub"
	"github.com/JakeFAU/wayback-journey/internal/scenario"
)

// LLMFactory builds the model client used by the taxonomy generator and the
// selector.
type LLMFactory func(ctx context.Context, cfg *llm.Config, apiKey string) (llm.Client, error)

// App holds the services shared by the commands of one target.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	store  *checkpoint.JSONStore

	newLLM  LLMFactory
	closers []func() error
}

// Option customizes New.
type Option func(*App)

// WithLLMFactory replaces the model client constructor.
func WithLLMFactory(f LLMFactory) Option {
	return func(a *App) { a.newLLM = f }
}

// New validates cfg and opens the checkpoint store of target.
func New(ctx context.Context, cfg config.Config, target string, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &App{cfg: cfg, logger: logger, newLLM: llm.NewClient}
	for _, opt := range opts {
		opt(a)
	}

	backend, closeBackend, err := newBackend(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	if closeBackend != nil {
		a.closers = append(a.closers, closeBackend)
	}
	store, err := checkpoint.NewJSONStore(backend, target, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	a.store = store
	logger.Info("checkpoint store ready",
		zap.String("provider", cfg.Storage.Provider),
		zap.String("target", target),
	)
	return a, nil
}

// Store returns the checkpoint store of the target.
func (a *App) Store() *checkpoint.JSONStore {
	return a.store
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

func newBackend(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (checkpoint.Backend, func() error, error) {
	switch cfg.Provider {
	case config.StorageLocal:
		b, err := local.New(local.Config{BaseDir: cfg.LocalDir})
		if err != nil {
			return nil, nil, fmt.Errorf("init local storage: %w", err)
		}
		return b, nil, nil
	case config.StorageGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create gcs client: %w", err)
		}
		b, err := gcs.New(client, gcs.Config{Bucket: cfg.GCSBucket, Prefix: cfg.Prefix})
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("init gcs storage: %w", err)
		}
		logger.Info("using gcs checkpoints", zap.String("bucket", cfg.GCSBucket))
		return b, client.Close, nil
	case config.StoragePostgres:
		b, err := postgres.New(ctx, postgres.Config{DSN: cfg.PostgresDSN, Table: cfg.PostgresTable})
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres storage: %w", err)
		}
		if err := b.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, nil, fmt.Errorf("init postgres storage: %w", err)
		}
		return b, func() error { b.Close(); return nil }, nil
	case config.StorageMemory:
		logger.Warn("using in-memory checkpoints; nothing survives the process")
		return memory.New(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}

// Orchestrator builds the pipeline and every collaborator it drives.
func (a *App) Orchestrator(ctx context.Context) (*pipeline.Orchestrator, error) {
	catalog, err := scenario.LoadFile(a.cfg.Scenarios.DefinitionsPath)
	if err != nil {
		return nil, fmt.Errorf("load scenarios: %w", err)
	}

	limiter := ratelimit.New(ratelimit.Config{RPS: a.cfg.Fetch.RPS, Burst: a.cfg.Fetch.Burst})
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     a.cfg.Fetch.UserAgent,
		RespectRobots: a.cfg.Fetch.RespectRobots,
		Timeout:       a.cfg.FetchTimeout(),
		MaxBodyBytes:  a.cfg.Fetch.MaxBodyBytes,
	}, limiter, a.logger)

	discoverer, err := discovery.New(fetcher, discovery.Config{MaxLinks: a.cfg.Fetch.MaxLinks}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("init discovery: %w", err)
	}

	client, err := a.newLLM(ctx, a.llmConfig(), a.cfg.LLM.APIKey)
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}
	a.closers = append(a.closers, client.Close)

	deps := pipeline.Deps{
		Store:      a.store,
		Discoverer: discoverer,
		Taxonomy:   llm.NewTaxonomyGenerator(client, a.cfg.Pipeline.ExpectedTypes, a.logger),
		Selector:   llm.NewSelector(client, a.logger),
		Pages:      content.NewFetcher(fetcher, a.cfg.Fetch.MaxTextBytes, a.logger),
		Tagger:     catalog,
		Archiver:   content.NewArchiver(a.store, sha256.New()),
		Logger:     a.logger,
	}
	if a.cfg.PubSub.Topic != "" {
		pub, err := pubsub.NewFromProject(ctx, a.cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		deps.Publisher = pub
	}

	return pipeline.New(pipeline.Config{
		Target:            a.store.Target(),
		Concurrency:       a.cfg.Pipeline.Concurrency,
		DesiredCount:      a.cfg.Pipeline.DesiredCount,
		EnforceMembership: a.cfg.Pipeline.EnforceMembership,
		SampleLimit:       a.cfg.Pipeline.SampleLimit,
		Topic:             a.cfg.PubSub.Topic,
	}, deps)
}

func (a *App) llmConfig() *llm.Config {
	cfg := llm.DefaultConfig()
	if a.cfg.LLM.Provider != "" {
		cfg.Provider = llm.Provider(a.cfg.LLM.Provider)
	}
	overrides := map[llm.ModelTier]string{
		llm.TierLite:     a.cfg.LLM.Models.Lite,
		llm.TierStandard: a.cfg.LLM.Models.Standard,
		llm.TierAdvanced: a.cfg.LLM.Models.Advanced,
	}
	for tier, model := range overrides {
		if model != "" {
			cfg = cfg.WithModel(tier, model)
		}
	}
	return cfg
}

// StatusServer returns the read-only status server over the store.
func (a *App) StatusServer() *api.Server {
	return api.NewServer(a.store, api.Options{APIKey: a.cfg.Server.APIKey}, a.logger)
}

// Close releases every client opened by the App, newest first.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("error closing services", zap.Error(err))
	}
}

// TargetFromInput derives a target name from an input file path: the base
// name without its extension.
func TargetFromInput(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
