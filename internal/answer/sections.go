package answer

import (
	"strings"

	"github.com/taxdesk/answer-engine/internal/model"
)

// section heading markers, matched by substring so numbering variants
// like "1. 개요/기본 원칙" still hit
var sectionMarkers = []struct {
	marker  string
	section string
}{
	{"1. 개요", "overview"},
	{"2. 보유·거주기간", "taxRates"},
	{"3. 실무상 유의사항", "considerations"},
	{"4. 관련 법령", "legalBasis"},
	{"5. 결론", "conclusion"},
}

// SplitSections cuts an assembled answer into its five canonical
// sections. Heading lines switch the active section and are dropped
// from the output. Content before the first recognized heading falls
// into the overview.
func SplitSections(text string) model.AnswerSections {
	buf := map[string]*strings.Builder{
		"overview":       {},
		"taxRates":       {},
		"considerations": {},
		"legalBasis":     {},
		"conclusion":     {},
	}

	current := "overview"
	for _, line := range strings.Split(text, "\n") {
		if section, ok := matchHeading(line); ok {
			current = section
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		buf[current].WriteString(line)
		buf[current].WriteString("\n")
	}

	return model.AnswerSections{
		Overview:       strings.TrimSpace(buf["overview"].String()),
		TaxRates:       strings.TrimSpace(buf["taxRates"].String()),
		Considerations: strings.TrimSpace(buf["considerations"].String()),
		LegalBasis:     strings.TrimSpace(buf["legalBasis"].String()),
		Conclusion:     strings.TrimSpace(buf["conclusion"].String()),
	}
}

func matchHeading(line string) (string, bool) {
	for _, m := range sectionMarkers {
		if strings.Contains(line, m.marker) {
			return m.section, true
		}
	}
	return "", false
}
