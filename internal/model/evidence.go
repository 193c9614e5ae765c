package model

import (
	"net/url"
	"strings"
	"time"
)

// SearchCandidate is a single raw search hit before extraction and ranking.
// URL is the natural key for deduplication.
type SearchCandidate struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet"`
	Domain   string `json:"domain"`
	Priority int    `json:"priority"` // 1-4 whitelist tier, 5 = general web
}

// ExtractedContent holds the normalized article text fetched for a candidate.
// Extraction is best-effort: a candidate without content is still rankable.
type ExtractedContent struct {
	Title       string          `json:"title"`
	TextContent string          `json:"text_content"`
	Excerpt     string          `json:"excerpt"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
	Domain      string          `json:"domain"`
	URL         string          `json:"url"`
	Metadata    ContentMetadata `json:"metadata"`
}

// ContentMetadata carries optional page-level metadata.
type ContentMetadata struct {
	Author   string   `json:"author,omitempty"`
	SiteName string   `json:"site_name,omitempty"`
	Type     string   `json:"type,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// Candidate pairs a search hit with its (optional) extracted content.
type Candidate struct {
	SearchCandidate
	Content *ExtractedContent `json:"content,omitempty"`
}

// RankedResult is a candidate with its per-axis scores and combined score.
// Score is a deterministic function of the axis scores and policy weights.
type RankedResult struct {
	Candidate
	CosineScore    float64 `json:"cosine_score"`
	LexicalScore   float64 `json:"lexical_score"`
	DomainScore    float64 `json:"domain_score"`
	RecencyScore   float64 `json:"recency_score"`
	WhitelistScore float64 `json:"whitelist_score"`
	Score          float64 `json:"score"`
}

// EvidenceType classifies an evidence item by its likely content.
type EvidenceType string

const (
	EvidenceTypeLaw         EvidenceType = "law"
	EvidenceTypePrecedent   EvidenceType = "precedent"
	EvidenceTypeGuide       EvidenceType = "guide"
	EvidenceTypeCalculation EvidenceType = "calculation"
	EvidenceTypeGeneral     EvidenceType = "general"
)

// EvidenceItem is the externally visible, trimmed form of a RankedResult.
type EvidenceItem struct {
	Domain      string       `json:"domain"`
	Title       string       `json:"title"`
	Snippet     string       `json:"snippet"`
	URL         string       `json:"url"`
	PublishedAt *time.Time   `json:"published_at,omitempty"`
	Priority    int          `json:"priority"`
	Score       float64      `json:"score"`
	Type        EvidenceType `json:"type"`
	Relevance   float64      `json:"relevance"`
}

// PackMetadata summarizes how an evidence pack was produced.
type PackMetadata struct {
	Query             string  `json:"query"`
	LatencyMS         int64   `json:"latency_ms"`
	WhitelistCoverage float64 `json:"whitelist_coverage"`
	DomainDiversity   float64 `json:"domain_diversity"`
	AverageRelevance  float64 `json:"average_relevance"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
}

// EvidencePack is the ranked, deduplicated evidence set for one query.
type EvidencePack struct {
	Evidence []EvidenceItem `json:"evidence"`
	Metadata PackMetadata   `json:"metadata"`
}

// Domains returns the distinct domains among the pack's evidence, in order
// of first appearance.
func (p *EvidencePack) Domains() []string {
	seen := make(map[string]bool, len(p.Evidence))
	var out []string
	for _, e := range p.Evidence {
		if !seen[e.Domain] {
			seen[e.Domain] = true
			out = append(out, e.Domain)
		}
	}
	return out
}

// ExtractDomain pulls the hostname out of a URL, stripping a leading "www.".
// Falls back to the raw input when it does not parse.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return rawURL
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
