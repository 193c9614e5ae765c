package evidence

import (
	"strings"
	"time"

	"github.com/taxdesk/answer-engine/internal/model"
)

// classify guesses the evidence type from the domain and title.
func classify(c model.Candidate) model.EvidenceType {
	title := c.Title
	switch {
	case c.Domain == "easylaw.go.kr" || containsAny(title, "법령", "고시"):
		return model.EvidenceTypeLaw
	case c.Domain == "scourt.go.kr" || containsAny(title, "판례", "판결"):
		return model.EvidenceTypePrecedent
	case c.Domain == "hometax.go.kr" || containsAny(title, "계산기", "자동계산"):
		return model.EvidenceTypeCalculation
	case c.Domain == "nts.go.kr" || containsAny(title, "가이드", "안내"):
		return model.EvidenceTypeGuide
	default:
		return model.EvidenceTypeGeneral
	}
}

// relevance maps a ranked score into [0,1], weighting authoritative tiers
// and recent publications up.
func relevance(now time.Time, res model.RankedResult) float64 {
	tierWeight := float64(6-res.Priority) * 0.2

	mult := 1.0
	if ts := itemPublishedAt(res.Candidate); ts != nil {
		age := now.Sub(*ts)
		switch {
		case age <= 56*24*time.Hour:
			mult = 1.2
		case age <= 365*24*time.Hour:
			mult = 1.1
		}
	}

	r := res.Score * tierWeight * mult
	if r > 1.0 {
		return 1.0
	}
	if r < 0 {
		return 0
	}
	return r
}

func itemPublishedAt(c model.Candidate) *time.Time {
	if c.Content == nil {
		return nil
	}
	return c.Content.PublishedAt
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
