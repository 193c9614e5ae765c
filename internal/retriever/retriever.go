// Package retriever issues whitelist-first searches with
// expand-on-insufficient-coverage and tax-specific query expansion.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/taxdesk/answer-engine/internal/model"
	"github.com/taxdesk/answer-engine/internal/policy"
	"github.com/taxdesk/answer-engine/internal/resilience"
	"github.com/taxdesk/answer-engine/pkg/googlecse"
)

// Retriever turns a user query into deduplicated search candidates.
type Retriever struct {
	client googlecse.Client
	policy *policy.Policy
	retry  resilience.RetryConfig
}

// New creates a Retriever over the given search client and policy.
func New(client googlecse.Client, p *policy.Policy) *Retriever {
	cfg := resilience.DefaultRetryConfig()
	cfg.ShouldRetry = func(err error) bool {
		var apiErr *googlecse.APIError
		if errors.As(err, &apiErr) {
			return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
		}
		return resilience.IsTransient(err)
	}
	return &Retriever{client: client, policy: p, retry: cfg}
}

// Search issues a whitelist-restricted search, expanding to the open web
// when whitelist coverage is insufficient. Zero results is valid; a
// search API failure propagates after retries.
func (r *Retriever) Search(ctx context.Context, query string, expand bool) ([]model.SearchCandidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, eris.New("retriever: empty query")
	}

	whitelisted, err := r.searchOnce(ctx, googlecse.SearchRequest{
		Query:        query + " " + siteFilter(r.policy.AllWhitelistDomains()),
		Num:          capNum(r.policy.InitialSearchCount),
		DateRestrict: fmt.Sprintf("d%d", r.policy.FreshnessDays),
		Language:     "lang_ko",
	})
	if err != nil {
		return nil, eris.Wrap(err, "retriever: whitelist search")
	}

	if len(whitelisted) < r.policy.MinWhitelistResults && !expand {
		zap.L().Debug("whitelist coverage below minimum, expanding",
			zap.String("query", query),
			zap.Int("hits", len(whitelisted)))
		return r.Search(ctx, query, true)
	}

	if !expand {
		return dedupeByURL(whitelisted), nil
	}

	// Open-web pass: no date restriction, two pages.
	var open []model.SearchCandidate
	for _, start := range []int{1, 11} {
		page, err := r.searchOnce(ctx, googlecse.SearchRequest{
			Query:    query,
			Num:      capNum(r.policy.InitialSearchCount),
			Start:    start,
			Language: "lang_ko",
		})
		if err != nil {
			return nil, eris.Wrap(err, "retriever: open web search")
		}
		open = append(open, page...)
	}

	merged := dedupeByURL(append(whitelisted, open...))
	if len(merged) > r.policy.FinalK {
		merged = merged[:r.policy.FinalK]
	}
	return merged, nil
}

// AuxQuery is one expansion search: a derived query over a narrowed
// domain set.
type AuxQuery struct {
	Query   string
	Domains []string
}

// ExpandQueries derives the precedent, calculator, and amendment
// auxiliary searches for a base query.
func (r *Retriever) ExpandQueries(query string) []AuxQuery {
	return []AuxQuery{
		{Query: query + " 판례 2025", Domains: []string{"scourt.go.kr", "taxnet.co.kr"}},
		{Query: query + " 계산기 자동계산", Domains: []string{"hometax.go.kr", "nts.go.kr"}},
		{Query: query + " 2025년 개정", Domains: []string{"easylaw.go.kr", "korea.kr"}},
	}
}

// SearchDomains searches a query restricted to the given domains. Used
// by the auxiliary expansion searches.
func (r *Retriever) SearchDomains(ctx context.Context, query string, domains []string) ([]model.SearchCandidate, error) {
	candidates, err := r.searchOnce(ctx, googlecse.SearchRequest{
		Query:    query + " " + siteFilter(domains),
		Num:      capNum(r.policy.InitialSearchCount),
		Language: "lang_ko",
	})
	if err != nil {
		return nil, eris.Wrapf(err, "retriever: domain search %s", strings.Join(domains, ","))
	}
	return dedupeByURL(candidates), nil
}

func (r *Retriever) searchOnce(ctx context.Context, req googlecse.SearchRequest) ([]model.SearchCandidate, error) {
	resp, err := resilience.Do(ctx, r.retry, "googlecse.search", func(ctx context.Context) (*googlecse.SearchResponse, error) {
		return r.client.Search(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]model.SearchCandidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Link == "" {
			continue
		}
		domain := model.ExtractDomain(item.Link)
		candidates = append(candidates, model.SearchCandidate{
			Title:    item.Title,
			URL:      item.Link,
			Snippet:  item.Snippet,
			Domain:   domain,
			Priority: r.policy.TierOf(domain),
		})
	}
	return candidates, nil
}

// siteFilter builds an OR-joined site restriction clause.
func siteFilter(domains []string) string {
	parts := make([]string, len(domains))
	for i, d := range domains {
		parts[i] = "site:" + d
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// dedupeByURL keeps the first occurrence of each URL.
func dedupeByURL(candidates []model.SearchCandidate) []model.SearchCandidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]model.SearchCandidate, 0, len(candidates))
	for _, c := range candidates {
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		out = append(out, c)
	}
	return out
}

// capNum clamps to the API's 1..10 results-per-page bound.
func capNum(n int) int {
	if n > 10 {
		return 10
	}
	if n < 1 {
		return 1
	}
	return n
}
