// Package conflict scores disagreement between two answer drafts and
// the web evidence, and picks the final decision mode.
package conflict

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/taxdesk/answer-engine/internal/model"
)

// fixed contribution of each heuristic conflict category
const (
	numericWeight  = 0.3
	citationWeight = 0.2
	omissionWeight = 0.4
)

var (
	// rates keep their unit attached so "12%" never equals a bare "12"
	rateTokenRe   = regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:%|퍼센트)`)
	periodTokenRe = regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:년|개월)`)

	articleTokenRe       = regexp.MustCompile(`제\s*\d+조(?:의\s*\d+)?`)
	effectiveDateTokenRe = regexp.MustCompile(`\d{4}년\s*\d{1,2}월\s*\d{1,2}일`)
)

// taxConcepts are the concepts whose omission from a draft, while present
// in the evidence, counts as a conflict.
var taxConcepts = []string{
	"양도소득세", "양도세", "장기보유특별공제", "1주택", "다주택",
	"비과세", "과세", "세율", "공제", "면제",
}

// ruleAnalysis is the outcome of the heuristic pass.
type ruleAnalysis struct {
	Score     float64
	Conflicts []model.Conflict
}

// analyzeRules runs the pattern-matching pass over both drafts and the
// evidence pack. The score is an unweighted sum of category weights,
// clipped to 1.0.
func analyzeRules(draftA, draftB string, pack *model.EvidencePack) ruleAnalysis {
	var out ruleAnalysis

	numeric := detectNumericConflicts(draftA, draftB)
	out.Conflicts = append(out.Conflicts, numeric...)
	out.Score += float64(len(numeric)) * numericWeight

	legal := detectCitationConflicts(draftA, draftB)
	out.Conflicts = append(out.Conflicts, legal...)
	out.Score += float64(len(legal)) * citationWeight

	omissions := detectOmissions(draftA, draftB, pack)
	out.Conflicts = append(out.Conflicts, omissions...)
	out.Score += float64(len(omissions)) * omissionWeight

	if out.Score > 1.0 {
		out.Score = 1.0
	}
	return out
}

// detectNumericConflicts flags mismatched tax rates and holding
// periods. A unit stays attached to its number so that a rate and a
// period never compare equal.
func detectNumericConflicts(draftA, draftB string) []model.Conflict {
	var conflicts []model.Conflict
	if desc := tokenMismatch("세율", rateTokenRe, draftA, draftB); desc != "" {
		conflicts = append(conflicts, model.Conflict{
			Category:    "numeric",
			Description: desc,
			Severity:    numericWeight,
		})
	}
	if desc := tokenMismatch("기간", periodTokenRe, draftA, draftB); desc != "" {
		conflicts = append(conflicts, model.Conflict{
			Category:    "numeric",
			Description: desc,
			Severity:    numericWeight,
		})
	}
	return conflicts
}

// detectCitationConflicts flags mismatched statute articles and
// effective dates.
func detectCitationConflicts(draftA, draftB string) []model.Conflict {
	var conflicts []model.Conflict
	if desc := tokenMismatch("조문", articleTokenRe, draftA, draftB); desc != "" {
		conflicts = append(conflicts, model.Conflict{
			Category:    "citation",
			Description: desc,
			Severity:    citationWeight,
		})
	}
	if desc := tokenMismatch("효력일", effectiveDateTokenRe, draftA, draftB); desc != "" {
		conflicts = append(conflicts, model.Conflict{
			Category:    "citation",
			Description: desc,
			Severity:    citationWeight,
		})
	}
	return conflicts
}

// detectOmissions flags a draft that never mentions any tax concept an
// evidence item covers.
func detectOmissions(draftA, draftB string, pack *model.EvidencePack) []model.Conflict {
	if pack == nil || len(pack.Evidence) == 0 {
		return nil
	}
	var conflicts []model.Conflict
	for label, draft := range map[string]string{"초안A": draftA, "초안B": draftB} {
		missed := missedDomains(draft, pack)
		if len(missed) == 0 {
			continue
		}
		conflicts = append(conflicts, model.Conflict{
			Category:    "omission",
			Description: fmt.Sprintf("%s 웹증거 불일치: %s", label, strings.Join(missed, ", ")),
			Severity:    omissionWeight,
		})
	}
	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].Description < conflicts[j].Description
	})
	return conflicts
}

func missedDomains(draft string, pack *model.EvidencePack) []string {
	draftConcepts := conceptSet(draft)
	var missed []string
	seen := make(map[string]bool)
	for _, item := range pack.Evidence {
		webConcepts := conceptSet(item.Title + " " + item.Snippet)
		if len(webConcepts) == 0 {
			continue
		}
		overlap := false
		for c := range webConcepts {
			if draftConcepts[c] {
				overlap = true
				break
			}
		}
		if !overlap && !seen[item.Domain] {
			seen[item.Domain] = true
			missed = append(missed, item.Domain+"의 핵심 정보 누락")
		}
	}
	return missed
}

func conceptSet(text string) map[string]bool {
	out := make(map[string]bool)
	for _, c := range taxConcepts {
		if strings.Contains(text, c) {
			out[c] = true
		}
	}
	return out
}

// tokenMismatch reports a conflict description when both drafts carry
// tokens of this kind and the sets differ. Empty string means no
// conflict.
func tokenMismatch(kind string, re *regexp.Regexp, draftA, draftB string) string {
	tokensA := normalizedTokens(re, draftA)
	tokensB := normalizedTokens(re, draftB)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return ""
	}
	if equalTokenSets(tokensA, tokensB) {
		return ""
	}
	return fmt.Sprintf("%s 불일치: 초안A(%s) vs 초안B(%s)",
		kind, strings.Join(tokensA, ", "), strings.Join(tokensB, ", "))
}

// normalizedTokens extracts, despaces, dedupes, and sorts matches so
// comparison is order-insensitive.
func normalizedTokens(re *regexp.Regexp, text string) []string {
	matches := re.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		m = strings.Join(strings.Fields(m), "")
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

func equalTokenSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
