package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/taxdesk/answer-engine/internal/answer"
	"github.com/taxdesk/answer-engine/internal/cache"
	"github.com/taxdesk/answer-engine/internal/conflict"
	"github.com/taxdesk/answer-engine/internal/evidence"
	"github.com/taxdesk/answer-engine/internal/extract"
	"github.com/taxdesk/answer-engine/internal/llm"
	"github.com/taxdesk/answer-engine/internal/metrics"
	"github.com/taxdesk/answer-engine/internal/policy"
	"github.com/taxdesk/answer-engine/internal/ranker"
	"github.com/taxdesk/answer-engine/internal/retriever"
	anthropicpkg "github.com/taxdesk/answer-engine/pkg/anthropic"
	"github.com/taxdesk/answer-engine/pkg/googlecse"
	"github.com/taxdesk/answer-engine/pkg/openai"
)

// pipelineEnv holds all initialized clients and pipeline stages needed
// by the evidence/answer/conflict/serve commands.
type pipelineEnv struct {
	Policy   *policy.Policy
	Cache    *cache.StatsCache
	Builder  *evidence.Builder
	Resolver *conflict.Resolver
	Answer   *answer.Service
	Metrics  metrics.Sink
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Cache != nil {
		_ = pe.Cache.Close()
	}
	if pe.Metrics != nil {
		_ = pe.Metrics.Close()
	}
}

// initPipeline validates config, opens the cache and metrics stores,
// builds all API clients, and wires the pipeline. Callers should defer
// env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	pol, err := loadPolicy()
	if err != nil {
		return nil, err
	}

	store, err := initCache(ctx)
	if err != nil {
		return nil, err
	}
	statsCache := cache.WithStats(store)

	sink, err := initMetrics(ctx)
	if err != nil {
		_ = statsCache.Close()
		return nil, err
	}

	searchClient := googlecse.NewClient(cfg.Google.Key, cfg.Google.CX,
		googlecse.WithBaseURL(cfg.Google.BaseURL),
		googlecse.WithRateLimit(cfg.Google.QPS, cfg.Google.MaxBurst))

	openaiClient := openai.NewClient(cfg.OpenAI.Key, openai.WithBaseURL(cfg.OpenAI.BaseURL))
	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	embedder := llm.NewOpenAIEmbedder(openaiClient, cfg.OpenAI.EmbeddingModel)
	draftGen := llm.NewAnthropicGenerator(anthropicClient, cfg.Anthropic.SonnetModel)
	nliGen := llm.NewAnthropicGenerator(anthropicClient, cfg.Anthropic.HaikuModel)

	extractor := extract.NewExtractor(
		time.Duration(cfg.Extract.TimeoutSecs)*time.Second,
		extract.WithMaxBodyBytes(int64(cfg.Extract.MaxBodyBytes)))

	builder := evidence.NewBuilder(
		retriever.New(searchClient, pol),
		extractor,
		ranker.New(pol, embedder),
		statsCache,
		pol,
		evidence.WithMaxConcurrent(cfg.Extract.MaxConcurrent))

	resolver := conflict.NewResolver(nliGen, pol)
	svc := answer.NewService(
		answer.NewDraftGenerator(draftGen),
		resolver,
		answer.NewAssembler(draftGen),
		sink,
		answer.WithCache(statsCache, pol.Cache.Answer))

	return &pipelineEnv{
		Policy:   pol,
		Cache:    statsCache,
		Builder:  builder,
		Resolver: resolver,
		Answer:   svc,
		Metrics:  sink,
	}, nil
}

func loadPolicy() (*policy.Policy, error) {
	if cfg.Policy.Path == "" {
		return policy.Default(), nil
	}
	pol, err := policy.Load(cfg.Policy.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load search policy")
	}
	zap.L().Info("search policy loaded", zap.String("path", cfg.Policy.Path))
	return pol, nil
}

func initCache(ctx context.Context) (cache.Cache, error) {
	switch cfg.Cache.Driver {
	case "sqlite":
		c, err := cache.NewSQLite(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		if err := c.Migrate(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
		return c, nil
	case "postgres":
		return cache.NewPostgres(ctx, cfg.Cache.DatabaseURL)
	case "redis":
		return cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
	default:
		return nil, eris.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}

func initMetrics(ctx context.Context) (metrics.Sink, error) {
	if cfg.Metrics.Driver != "sqlite" {
		return metrics.NopSink{}, nil
	}
	sink, err := metrics.NewSQLite(cfg.Metrics.Path)
	if err != nil {
		return nil, err
	}
	if err := sink.Migrate(ctx); err != nil {
		_ = sink.Close()
		return nil, err
	}
	return sink, nil
}
