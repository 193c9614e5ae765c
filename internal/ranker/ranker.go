// Package ranker scores search candidates along lexical, semantic,
// domain, recency, and whitelist axes and selects a domain-diverse
// top set.
package ranker

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taxdesk/answer-engine/internal/llm"
	"github.com/taxdesk/answer-engine/internal/model"
	"github.com/taxdesk/answer-engine/internal/policy"
)

// Ranker combines per-axis scores under the policy's weights.
type Ranker struct {
	policy   *policy.Policy
	embedder llm.Embedder
	now      func() time.Time
}

// New creates a Ranker. The embedder may fail at runtime; ranking then
// degrades to a neutral semantic axis instead of erroring.
func New(p *policy.Policy, embedder llm.Embedder) *Ranker {
	return &Ranker{policy: p, embedder: embedder, now: time.Now}
}

// SetClock overrides the time source used for recency scoring. For tests.
func (r *Ranker) SetClock(now func() time.Time) {
	r.now = now
}

// Rank scores candidates and returns at most finalK results ordered by
// descending score, at most one per domain unless a same-domain result
// beats the kept one by more than 20%.
func (r *Ranker) Rank(ctx context.Context, query string, candidates []model.Candidate) ([]model.RankedResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = strings.TrimSpace(c.Title + " " + c.Snippet)
	}

	cosine := r.cosineScores(ctx, query, documents)
	lexical := bm25Scores(query, documents)
	domain := domainScores(candidates)
	recency := r.recencyScores(candidates)
	whitelist := r.whitelistScores(candidates)

	results := make([]model.RankedResult, len(candidates))
	for i, c := range candidates {
		combined := cosine[i]*r.policy.Rerank.Cosine +
			lexical[i]*r.policy.Rerank.Lexical +
			domain[i]*0.1 +
			recency[i]*0.1 +
			whitelist[i]*0.1

		results[i] = model.RankedResult{
			Candidate:      c,
			CosineScore:    cosine[i],
			LexicalScore:   lexical[i],
			DomainScore:    domain[i],
			RecencyScore:   recency[i],
			WhitelistScore: whitelist[i],
			Score:          r.applyTaxWeights(c, query, combined),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return diversify(results, r.policy.FinalK), nil
}

// cosineScores embeds the query and each document and returns their
// cosine similarities. Any embedding failure degrades the whole batch to
// a neutral 0.5 rather than failing the request.
func (r *Ranker) cosineScores(ctx context.Context, query string, documents []string) []float64 {
	neutral := func() []float64 {
		scores := make([]float64, len(documents))
		for i := range scores {
			scores[i] = 0.5
		}
		return scores
	}

	texts := make([]string, 0, len(documents)+1)
	texts = append(texts, query)
	texts = append(texts, documents...)

	vectors, err := r.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		zap.L().Warn("embedding failed, using neutral semantic scores", zap.Error(err))
		return neutral()
	}

	queryVec := vectors[0]
	scores := make([]float64, len(documents))
	for i, vec := range vectors[1:] {
		scores[i] = cosineSimilarity(queryVec, vec)
	}
	return scores
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// domainScores rewards cross-domain diversity: each candidate scores the
// inverse of how many candidates share its domain.
func domainScores(candidates []model.Candidate) []float64 {
	counts := make(map[string]int, len(candidates))
	for _, c := range candidates {
		counts[c.Domain]++
	}
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = 1 / float64(counts[c.Domain])
	}
	return scores
}

func (r *Ranker) recencyScores(candidates []model.Candidate) []float64 {
	now := r.now()
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = recencyScore(now, publishedAt(c))
	}
	return scores
}

func recencyScore(now time.Time, publishedAt *time.Time) float64 {
	if publishedAt == nil {
		return 0.5
	}
	age := now.Sub(*publishedAt)
	switch {
	case age <= 56*24*time.Hour:
		return 1.0
	case age <= 365*24*time.Hour:
		return 0.8
	default:
		return 0.6
	}
}

func publishedAt(c model.Candidate) *time.Time {
	if c.Content == nil {
		return nil
	}
	return c.Content.PublishedAt
}

func (r *Ranker) whitelistScores(candidates []model.Candidate) []float64 {
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		tier := r.policy.TierOf(c.Domain)
		if tier == policy.GeneralWebTier {
			scores[i] = 0.1
			continue
		}
		scores[i] = r.policy.Rerank.WhitelistBoost / float64(tier)
	}
	return scores
}

// taxKeywords trigger the domain-specific score boost.
var taxKeywords = []string{"양도소득세", "양도세", "장기보유특별공제", "1주택", "다주택"}

// officialDomains get an extra multiplier over their whitelist tier.
var officialDomains = map[string]bool{"hometax.go.kr": true, "nts.go.kr": true}

// applyTaxWeights layers capital-gains-tax multipliers on top of the base
// combined score.
func (r *Ranker) applyTaxWeights(c model.Candidate, query string, score float64) float64 {
	for _, kw := range taxKeywords {
		if strings.Contains(query, kw) || strings.Contains(c.Title, kw) || strings.Contains(c.Snippet, kw) {
			score *= 1.2
			break
		}
	}

	if officialDomains[c.Domain] {
		score *= 1.3
	}

	// Recent supreme-court precedents.
	if c.Domain == "scourt.go.kr" {
		if ts := publishedAt(c); ts != nil && r.now().Sub(*ts) <= 365*24*time.Hour {
			score *= 1.2
		}
	}

	if strings.Contains(c.Title, "계산기") || strings.Contains(c.Title, "자동계산") {
		score *= 1.1
	}

	return score
}

// diversify walks the score-sorted list keeping at most one result per
// domain; a same-domain result replaces the kept one only when its score
// exceeds it by more than 20%.
func diversify(sorted []model.RankedResult, finalK int) []model.RankedResult {
	selected := make([]model.RankedResult, 0, finalK)
	byDomain := make(map[string]int, finalK)

	for _, result := range sorted {
		if len(selected) >= finalK {
			break
		}
		if idx, ok := byDomain[result.Domain]; ok {
			if result.Score > selected[idx].Score*1.2 {
				selected[idx] = result
			}
			continue
		}
		byDomain[result.Domain] = len(selected)
		selected = append(selected, result)
	}

	if len(selected) > finalK {
		selected = selected[:finalK]
	}
	return selected
}
