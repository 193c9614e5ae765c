package ranker

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var nonTokenRe = regexp.MustCompile(`[^\w\s가-힣]`)

// Tokenize lowercases, folds fullwidth forms, strips punctuation, and
// splits on whitespace. Hangul syllables pass through intact, so Korean
// text tokenizes on word boundaries rather than degrading to nothing.
func Tokenize(text string) []string {
	text = norm.NFKC.String(text)
	text = width.Fold.String(text)
	text = strings.ToLower(text)
	text = nonTokenRe.ReplaceAllString(text, " ")
	return strings.Fields(text)
}
