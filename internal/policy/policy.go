// Package policy holds the domain whitelist, tier priorities, scoring
// weights, and cache TTLs that steer retrieval and ranking.
package policy

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// GeneralWebTier is the priority assigned to any domain not on the whitelist.
const GeneralWebTier = 5

// RerankWeights are the combination weights for the ranker's score axes.
type RerankWeights struct {
	Cosine         float64 `yaml:"cosine"`
	Lexical        float64 `yaml:"lexical"`
	WhitelistBoost float64 `yaml:"whitelist_boost"`
}

// CacheTTLs control how long each cache class lives.
type CacheTTLs struct {
	PackHighCoverage  time.Duration `yaml:"pack_high_coverage"`
	PackLowCoverage   time.Duration `yaml:"pack_low_coverage"`
	PackWhitelistOnly time.Duration `yaml:"pack_whitelist_only"`
	Answer            time.Duration `yaml:"answer"`
	WhitelistContent  time.Duration `yaml:"whitelist_content"`
	Content           time.Duration `yaml:"content"`
	Search            time.Duration `yaml:"search"`
}

// Policy is the full retrieval and ranking policy. The zero value is not
// usable; construct via Default or Load.
type Policy struct {
	Tier1 []string `yaml:"priority_1"`
	Tier2 []string `yaml:"priority_2"`
	Tier3 []string `yaml:"priority_3"`
	Tier4 []string `yaml:"priority_4"`

	ConflictThreshold   float64 `yaml:"conflict_threshold"`
	FinalK              int     `yaml:"final_k"`
	InitialSearchCount  int     `yaml:"initial_search_count"`
	MinWhitelistResults int     `yaml:"min_whitelist_results"`
	FreshnessDays       int     `yaml:"freshness_days"`

	Rerank RerankWeights `yaml:"rerank"`
	Cache  CacheTTLs     `yaml:"cache"`

	tierByDomain map[string]int
}

// Default returns the built-in Korean capital-gains-tax policy.
func Default() *Policy {
	p := &Policy{
		Tier1: []string{"hometax.go.kr", "nts.go.kr", "law.go.kr"},
		Tier2: []string{"taxlaw.nts.go.kr", "scourt.go.kr", "easylaw.go.kr"},
		Tier3: []string{"korea.kr", "moef.go.kr"},
		Tier4: []string{"taxnet.co.kr", "samili.com"},

		ConflictThreshold:   0.35,
		FinalK:              5,
		InitialSearchCount:  10,
		MinWhitelistResults: 3,
		FreshnessDays:       56,

		Rerank: RerankWeights{Cosine: 0.35, Lexical: 0.35, WhitelistBoost: 0.5},
		Cache: CacheTTLs{
			PackHighCoverage:  24 * time.Hour,
			PackLowCoverage:   6 * time.Hour,
			PackWhitelistOnly: 168 * time.Hour,
			Answer:            24 * time.Hour,
			WhitelistContent:  168 * time.Hour,
			Content:           24 * time.Hour,
			Search:            6 * time.Hour,
		},
	}
	p.index()
	return p
}

// Load reads a YAML policy file and overlays it on the defaults.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reading policy file %s", path)
	}
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, eris.Wrapf(err, "parsing policy file %s", path)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	p.index()
	return p, nil
}

func (p *Policy) validate() error {
	if p.ConflictThreshold < 0 || p.ConflictThreshold > 1 {
		return eris.New(fmt.Sprintf("conflict_threshold %.2f out of range [0,1]", p.ConflictThreshold))
	}
	if p.FinalK < 1 {
		return eris.New("final_k must be at least 1")
	}
	if p.InitialSearchCount < p.FinalK {
		return eris.New("initial_search_count must be >= final_k")
	}
	if p.FreshnessDays < 1 {
		return eris.New("freshness_days must be positive")
	}
	return nil
}

func (p *Policy) index() {
	p.tierByDomain = make(map[string]int)
	for _, d := range p.Tier1 {
		p.tierByDomain[d] = 1
	}
	for _, d := range p.Tier2 {
		p.tierByDomain[d] = 2
	}
	for _, d := range p.Tier3 {
		p.tierByDomain[d] = 3
	}
	for _, d := range p.Tier4 {
		p.tierByDomain[d] = 4
	}
}

// TierOf returns the whitelist tier for a domain, or GeneralWebTier when the
// domain is not whitelisted.
func (p *Policy) TierOf(domain string) int {
	if tier, ok := p.tierByDomain[domain]; ok {
		return tier
	}
	return GeneralWebTier
}

// IsWhitelisted reports whether the domain appears in any tier.
func (p *Policy) IsWhitelisted(domain string) bool {
	_, ok := p.tierByDomain[domain]
	return ok
}

// IsAuthoritative reports whether the domain is tier 1 or 2. Only these
// tiers may force a web override during conflict resolution.
func (p *Policy) IsAuthoritative(domain string) bool {
	tier := p.TierOf(domain)
	return tier == 1 || tier == 2
}

// AllWhitelistDomains returns every whitelisted domain, tier 1 first.
func (p *Policy) AllWhitelistDomains() []string {
	out := make([]string, 0, len(p.Tier1)+len(p.Tier2)+len(p.Tier3)+len(p.Tier4))
	out = append(out, p.Tier1...)
	out = append(out, p.Tier2...)
	out = append(out, p.Tier3...)
	out = append(out, p.Tier4...)
	return out
}

// FreshnessWindow returns the recency window as a duration.
func (p *Policy) FreshnessWindow() time.Duration {
	return time.Duration(p.FreshnessDays) * 24 * time.Hour
}
