package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var (
	spaceRe   = regexp.MustCompile(`[ \t\x{00a0}]+`)
	newlineRe = regexp.MustCompile(`\n{3,}`)
)

// Normalize canonicalizes extracted text: NFC composition, fullwidth
// digits and punctuation folded to halfwidth, whitespace collapsed.
// Folding matters because Korean sites mix ２년 and 2년, which must
// compare equal during conflict detection.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = width.Fold.String(s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRe.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = newlineRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
