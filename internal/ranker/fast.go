package ranker

import (
	"sort"
	"strings"

	"github.com/taxdesk/answer-engine/internal/model"
)

// FastRank is the cheap single-axis variant: whitelist tier plus a title
// substring match, no embeddings, no BM25. Used by fast mode where
// latency matters more than ranking quality.
func (r *Ranker) FastRank(query string, candidates []model.Candidate) []model.RankedResult {
	if len(candidates) == 0 {
		return nil
	}

	results := make([]model.RankedResult, len(candidates))
	for i, c := range candidates {
		score := float64(6-r.policy.TierOf(c.Domain)) * 0.5
		if strings.Contains(c.Title, query) {
			score += 0.3
		}
		results[i] = model.RankedResult{
			Candidate:      c,
			WhitelistScore: score,
			Score:          score,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return diversify(results, r.policy.FinalK)
}
