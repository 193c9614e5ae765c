// Package evidence assembles ranked evidence packs: search, extract,
// rank, trim, and cache.
package evidence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/taxdesk/answer-engine/internal/cache"
	"github.com/taxdesk/answer-engine/internal/extract"
	"github.com/taxdesk/answer-engine/internal/model"
	"github.com/taxdesk/answer-engine/internal/policy"
	"github.com/taxdesk/answer-engine/internal/ranker"
	"github.com/taxdesk/answer-engine/internal/retriever"
)

// coverage at or above this threshold earns the day-long pack TTL;
// full whitelist coverage earns the week-long one
const highCoverageThreshold = 0.8

// fast mode only extracts the top few hits
const fastExtractLimit = 3

// Builder produces evidence packs for tax queries.
type Builder struct {
	retriever     *retriever.Retriever
	extractor     *extract.Extractor
	ranker        *ranker.Ranker
	cache         cache.Cache
	stats         *cache.StatsCache
	policy        *policy.Policy
	maxConcurrent int
	now           func() time.Time
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithMaxConcurrent bounds parallel content extraction.
func WithMaxConcurrent(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.maxConcurrent = n
		}
	}
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// NewBuilder wires the pipeline stages together. When c is a StatsCache
// its hit rate is reported in pack metadata.
func NewBuilder(r *retriever.Retriever, e *extract.Extractor, rk *ranker.Ranker, c cache.Cache, p *policy.Policy, opts ...BuilderOption) *Builder {
	b := &Builder{
		retriever:     r,
		extractor:     e,
		ranker:        rk,
		cache:         c,
		policy:        p,
		maxConcurrent: 5,
		now:           time.Now,
	}
	if sc, ok := c.(*cache.StatsCache); ok {
		b.stats = sc
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildOptions controls a single pack build.
type BuildOptions struct {
	// ForceRefresh bypasses the cached pack and rebuilds.
	ForceRefresh bool
	// Fast skips auxiliary searches and semantic ranking for latency.
	Fast bool
}

// Build returns the evidence pack for a query, from cache when fresh.
func (b *Builder) Build(ctx context.Context, query string, opts BuildOptions) (*model.EvidencePack, error) {
	key := cache.Key("pack", query)
	if !opts.ForceRefresh {
		if pack := b.cachedPack(ctx, key); pack != nil {
			return pack, nil
		}
	}

	start := b.now()

	candidates, err := b.searchCandidates(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	cands := b.extractAll(ctx, candidates, opts.Fast)

	var ranked []model.RankedResult
	if opts.Fast {
		ranked = b.ranker.FastRank(query, cands)
	} else {
		ranked, err = b.ranker.Rank(ctx, query, cands)
		if err != nil {
			return nil, eris.Wrap(err, "evidence: rank")
		}
	}

	pack := b.assemble(query, ranked, start)
	b.storePack(ctx, key, pack)
	return pack, nil
}

// Invalidate drops the cached pack for a query.
func (b *Builder) Invalidate(ctx context.Context, query string) error {
	return b.cache.Delete(ctx, cache.Key("pack", query))
}

func (b *Builder) cachedPack(ctx context.Context, key string) *model.EvidencePack {
	raw, ok, err := b.cache.Get(ctx, key)
	if err != nil {
		zap.L().Warn("pack cache read failed", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var pack model.EvidencePack
	if err := json.Unmarshal(raw, &pack); err != nil {
		zap.L().Warn("pack cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &pack
}

// searchCandidates returns the candidate pool for a query, serving it
// from the search cache when fresh. Fast and full pools are cached
// separately because auxiliary searches only run in full mode.
func (b *Builder) searchCandidates(ctx context.Context, query string, opts BuildOptions) ([]model.SearchCandidate, error) {
	variant := "full"
	if opts.Fast {
		variant = "fast"
	}
	key := cache.Key("search", query, variant)
	if !opts.ForceRefresh {
		if cands, ok := b.cachedCandidates(ctx, key); ok {
			return cands, nil
		}
	}

	candidates, err := b.retriever.Search(ctx, query, false)
	if err != nil {
		return nil, eris.Wrap(err, "evidence: search")
	}
	if !opts.Fast {
		candidates = b.withAuxiliary(ctx, query, candidates)
	}

	if raw, err := json.Marshal(candidates); err == nil {
		if err := b.cache.Set(ctx, key, raw, b.policy.Cache.Search); err != nil {
			zap.L().Warn("search cache write failed", zap.Error(err))
		}
	}
	return candidates, nil
}

func (b *Builder) cachedCandidates(ctx context.Context, key string) ([]model.SearchCandidate, bool) {
	raw, ok, err := b.cache.Get(ctx, key)
	if err != nil {
		zap.L().Warn("search cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var cands []model.SearchCandidate
	if err := json.Unmarshal(raw, &cands); err != nil {
		zap.L().Warn("search cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return cands, true
}

// withAuxiliary merges precedent, calculator, and amendment searches
// into the candidate pool. Auxiliary failures degrade, never abort.
func (b *Builder) withAuxiliary(ctx context.Context, query string, candidates []model.SearchCandidate) []model.SearchCandidate {
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		seen[c.URL] = true
	}
	for _, aux := range b.retriever.ExpandQueries(query) {
		hits, err := b.retriever.SearchDomains(ctx, aux.Query, aux.Domains)
		if err != nil {
			zap.L().Warn("auxiliary search failed",
				zap.String("query", aux.Query),
				zap.Error(err))
			continue
		}
		for _, c := range hits {
			if seen[c.URL] {
				continue
			}
			seen[c.URL] = true
			candidates = append(candidates, c)
		}
	}
	return candidates
}

// extractAll fetches page content for candidates with bounded
// concurrency. Extraction failure leaves a candidate snippet-only.
func (b *Builder) extractAll(ctx context.Context, candidates []model.SearchCandidate, fast bool) []model.Candidate {
	cands := make([]model.Candidate, len(candidates))
	for i, c := range candidates {
		cands[i] = model.Candidate{SearchCandidate: c}
	}

	limit := len(cands)
	if fast && limit > fastExtractLimit {
		limit = fastExtractLimit
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.maxConcurrent)
	for i := 0; i < limit; i++ {
		i := i
		g.Go(func() error {
			content, err := b.fetchContent(ctx, cands[i].URL, cands[i].Domain)
			if err != nil {
				zap.L().Debug("extraction failed, keeping snippet only",
					zap.String("url", cands[i].URL),
					zap.Error(err))
				return nil
			}
			cands[i].Content = content
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
	return cands
}

// fetchContent extracts page content, serving repeat URLs from the
// content cache. Whitelisted domains cache for a week, the general
// web for a day.
func (b *Builder) fetchContent(ctx context.Context, rawURL, domain string) (*model.ExtractedContent, error) {
	key := cache.Key("content", rawURL)
	raw, ok, err := b.cache.Get(ctx, key)
	if err != nil {
		zap.L().Warn("content cache read failed", zap.Error(err))
	} else if ok {
		var content model.ExtractedContent
		if err := json.Unmarshal(raw, &content); err == nil {
			return &content, nil
		}
		zap.L().Warn("content cache entry corrupt", zap.String("key", key))
	}

	content, err := b.extractor.Extract(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	ttl := b.policy.Cache.Content
	if b.policy.IsWhitelisted(domain) {
		ttl = b.policy.Cache.WhitelistContent
	}
	if raw, err := json.Marshal(content); err == nil {
		if err := b.cache.Set(ctx, key, raw, ttl); err != nil {
			zap.L().Warn("content cache write failed", zap.Error(err))
		}
	}
	return content, nil
}

func (b *Builder) assemble(query string, ranked []model.RankedResult, start time.Time) *model.EvidencePack {
	now := b.now()
	items := make([]model.EvidenceItem, 0, len(ranked))
	for _, res := range ranked {
		items = append(items, model.EvidenceItem{
			Domain:      res.Domain,
			Title:       res.Title,
			Snippet:     res.Snippet,
			URL:         res.URL,
			PublishedAt: itemPublishedAt(res.Candidate),
			Priority:    res.Priority,
			Score:       res.Score,
			Type:        classify(res.Candidate),
			Relevance:   relevance(now, res),
		})
	}

	meta := model.PackMetadata{
		Query:     query,
		LatencyMS: now.Sub(start).Milliseconds(),
	}
	if len(items) > 0 {
		whitelisted := 0
		domains := make(map[string]bool, len(items))
		var totalRel float64
		for _, it := range items {
			if b.policy.IsWhitelisted(it.Domain) {
				whitelisted++
			}
			domains[it.Domain] = true
			totalRel += it.Relevance
		}
		meta.WhitelistCoverage = float64(whitelisted) / float64(len(items))
		meta.DomainDiversity = float64(len(domains)) / float64(len(items))
		meta.AverageRelevance = totalRel / float64(len(items))
	}
	if b.stats != nil {
		meta.CacheHitRate = b.stats.HitRate()
	}

	return &model.EvidencePack{Evidence: items, Metadata: meta}
}

func (b *Builder) storePack(ctx context.Context, key string, pack *model.EvidencePack) {
	raw, err := json.Marshal(pack)
	if err != nil {
		zap.L().Warn("pack marshal failed", zap.Error(err))
		return
	}
	ttl := b.policy.Cache.PackLowCoverage
	switch {
	case pack.Metadata.WhitelistCoverage >= 1:
		ttl = b.policy.Cache.PackWhitelistOnly
	case pack.Metadata.WhitelistCoverage >= highCoverageThreshold:
		ttl = b.policy.Cache.PackHighCoverage
	}
	if err := b.cache.Set(ctx, key, raw, ttl); err != nil {
		zap.L().Warn("pack cache write failed", zap.Error(err))
	}
}
