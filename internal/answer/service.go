package answer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/taxdesk/answer-engine/internal/cache"
	"github.com/taxdesk/answer-engine/internal/conflict"
	"github.com/taxdesk/answer-engine/internal/metrics"
	"github.com/taxdesk/answer-engine/internal/model"
)

// Service runs the full answer stage: dual drafts, conflict
// resolution, assembly, and metrics recording.
type Service struct {
	drafts    *DraftGenerator
	resolver  *conflict.Resolver
	assembler *Assembler
	sink      metrics.Sink
	cache     cache.Cache
	cacheTTL  time.Duration
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache serves repeat queries from cached assembled answers.
func WithCache(c cache.Cache, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// NewService wires the answer stage together.
func NewService(drafts *DraftGenerator, resolver *conflict.Resolver, assembler *Assembler, sink metrics.Sink, opts ...ServiceOption) *Service {
	s := &Service{
		drafts:    drafts,
		resolver:  resolver,
		assembler: assembler,
		sink:      sink,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is the final answer plus the conflict analysis that produced
// it.
type Result struct {
	Answer    *model.FinalAnswer      `json:"answer"`
	Conflict  *model.ConflictAnalysis `json:"conflict"`
	LatencyMS int64                   `json:"latency_ms"`
}

// Answer produces the final structured answer for a query and its
// evidence pack. Metrics recording is best-effort.
func (s *Service) Answer(ctx context.Context, query, sessionID string, pack *model.EvidencePack) (*Result, error) {
	key := cache.Key("answer", query)
	if s.cache != nil {
		if res := s.cachedResult(ctx, key); res != nil {
			return res, nil
		}
	}

	start := s.now()

	drafts, err := s.drafts.Generate(ctx, query, pack)
	if err != nil {
		return nil, eris.Wrap(err, "answer: draft generation")
	}

	analysis, err := s.resolver.Resolve(ctx, drafts.WithEvidence.Content, drafts.WithoutEvidence.Content, pack)
	if err != nil {
		return nil, eris.Wrap(err, "answer: conflict resolution")
	}

	final, err := s.assembler.Assemble(ctx, drafts, pack, analysis.DecisionMode)
	if err != nil {
		return nil, eris.Wrap(err, "answer: assembly")
	}

	latency := s.now().Sub(start).Milliseconds()
	s.record(ctx, query, sessionID, latency, drafts, final, analysis, pack)

	res := &Result{Answer: final, Conflict: analysis, LatencyMS: latency}
	if s.cache != nil {
		s.store(ctx, key, res)
	}
	return res, nil
}

// Invalidate drops the cached answer for a query.
func (s *Service) Invalidate(ctx context.Context, query string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, cache.Key("answer", query))
}

func (s *Service) cachedResult(ctx context.Context, key string) *Result {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		zap.L().Warn("answer cache read failed", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		zap.L().Warn("answer cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &res
}

func (s *Service) store(ctx context.Context, key string, res *Result) {
	raw, err := json.Marshal(res)
	if err != nil {
		zap.L().Warn("answer marshal failed", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		zap.L().Warn("answer cache write failed", zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, query, sessionID string, latency int64, drafts *Drafts, final *model.FinalAnswer, analysis *model.ConflictAnalysis, pack *model.EvidencePack) {
	tokens := drafts.WithEvidence.TokensUsed + drafts.WithoutEvidence.TokensUsed
	if analysis.DecisionMode == model.DecisionWebOverride {
		tokens += final.TokensUsed
	}

	m := model.SearchMetrics{
		SessionID:     sessionID,
		Query:         query,
		LatencyMS:     latency,
		TokensUsed:    tokens,
		DecisionMode:  analysis.DecisionMode,
		ConflictScore: analysis.ConflictScore,
	}
	if pack != nil {
		m.EvidenceCount = len(pack.Evidence)
		m.WhitelistCoverage = pack.Metadata.WhitelistCoverage
		m.CacheHitRate = pack.Metadata.CacheHitRate
		if len(pack.Evidence) > 0 {
			m.TopDomain = pack.Evidence[0].Domain
		}
	}
	if err := s.sink.Record(ctx, m); err != nil {
		zap.L().Warn("metrics recording failed", zap.Error(err))
	}
}
