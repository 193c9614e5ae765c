package model

import "time"

// SearchMetrics records one completed query through the pipeline.
type SearchMetrics struct {
	ID                string       `json:"id"`
	SessionID         string       `json:"session_id,omitempty"`
	Query             string       `json:"query"`
	LatencyMS         int64        `json:"latency_ms"`
	TokensUsed        int          `json:"tokens_used"`
	DecisionMode      DecisionMode `json:"decision_mode"`
	ConflictScore     float64      `json:"conflict_score"`
	TopDomain         string       `json:"top_domain"`
	EvidenceCount     int          `json:"evidence_count"`
	WhitelistCoverage float64      `json:"whitelist_coverage"`
	CacheHitRate      float64      `json:"cache_hit_rate"`
	CreatedAt         time.Time    `json:"created_at"`
}

// PerformanceSnapshot aggregates recorded metrics over a lookback window.
type PerformanceSnapshot struct {
	Total           int       `json:"total"`
	AvgLatencyMS    float64   `json:"avg_latency_ms"`
	AvgTokens       float64   `json:"avg_tokens"`
	ConflictRate    float64   `json:"conflict_rate"`
	WebOverrideRate float64   `json:"web_override_rate"`
	CacheHitRate    float64   `json:"cache_hit_rate"`
	LookbackHours   int       `json:"lookback_hours"`
	CollectedAt     time.Time `json:"collected_at"`
}
