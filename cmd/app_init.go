package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturesight/dealdesk/internal/assistant"
	"github.com/venturesight/dealdesk/internal/council"
	"github.com/venturesight/dealdesk/internal/extract"
	"github.com/venturesight/dealdesk/internal/pipeline"
	"github.com/venturesight/dealdesk/internal/research"
	"github.com/venturesight/dealdesk/internal/resilience"
	"github.com/venturesight/dealdesk/internal/retrieval"
	"github.com/venturesight/dealdesk/internal/store"
	"github.com/venturesight/dealdesk/internal/textex"
	"github.com/venturesight/dealdesk/internal/thesis"
	"github.com/venturesight/dealdesk/pkg/anthropic"
	"github.com/venturesight/dealdesk/pkg/brave"
	"github.com/venturesight/dealdesk/pkg/gemini"
)

// drainTimeout bounds how long Close waits for in-flight background
// processing and analysis tasks before giving up.
const drainTimeout = 5 * time.Minute

// appEnv holds the wired application services. Construct once per process
// via initApp; callers own Close.
type appEnv struct {
	Store     store.Store
	Embedder  gemini.Embedder
	Breakers  *resilience.ServiceBreakers
	Runner    *pipeline.Runner
	Pipeline  *pipeline.Service
	Assistant *assistant.Service
	Thesis    *thesis.Service
	Retrieval *retrieval.Service
}

// Close drains background tasks, then releases clients and the store.
func (e *appEnv) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := e.Runner.Shutdown(ctx); err != nil {
		zap.L().Warn("background tasks did not drain", zap.Error(err))
	}
	if err := e.Embedder.Close(); err != nil {
		zap.L().Warn("embedder close", zap.Error(err))
	}
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close", zap.Error(err))
	}
}

// initApp wires config, store, model providers and services. mode selects
// which config fields Validate requires.
func initApp(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	embedder, err := gemini.NewEmbedder(ctx, cfg.Gemini.Key, cfg.Gemini.EmbeddingModel)
	if err != nil {
		st.Close()
		return nil, err
	}

	tx, err := textex.New(cfg.Extract)
	if err != nil {
		embedder.Close()
		st.Close()
		return nil, err
	}

	// Every model-provider call goes through the shared retry and circuit
	// breaker policy; one breaker per provider.
	breakers := resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig())
	ai := anthropic.NewResilientClient(anthropic.NewClient(cfg.Anthropic.Key), breakers.Get("anthropic"))
	wrapped := gemini.NewResilientEmbedder(embedder, breakers.Get("gemini"))
	search := brave.NewClient(cfg.Brave.Key,
		brave.WithBaseURL(cfg.Brave.BaseURL),
		brave.WithRateLimit(cfg.Brave.RPS),
	)

	extractor := extract.New(ai, cfg.Anthropic, cfg.Extract)
	researcher := research.New(ai, search, cfg.Anthropic, cfg.Research)
	retrievalSvc := retrieval.New(st, wrapped, cfg.Retrieval)
	orchestrator := council.New(ai, st, extractor, researcher, cfg.Anthropic)
	thesisSvc := thesis.New(st)

	runner := pipeline.NewRunner()
	pipe := pipeline.New(st, tx, extractor, retrievalSvc, orchestrator, runner, cfg.Upload)
	asst := assistant.New(ai, st, pipe, researcher, retrievalSvc, thesisSvc, search, cfg.Anthropic, cfg.Assistant)

	return &appEnv{
		Store:     st,
		Embedder:  embedder,
		Breakers:  breakers,
		Runner:    runner,
		Pipeline:  pipe,
		Assistant: asst,
		Thesis:    thesisSvc,
		Retrieval: retrievalSvc,
	}, nil
}

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "dealdesk.db"
		}
		return store.NewSQLite(dsn)
	case "postgres", "":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
