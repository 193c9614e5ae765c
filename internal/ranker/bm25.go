package ranker

import (
	"math"
	"unicode/utf8"
)

// BM25 free parameters.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// bm25Scores computes a BM25 score for each document against the query
// terms. Document length is measured in runes; the score is lower-bounded
// at 0 but has no upper bound.
func bm25Scores(query string, documents []string) []float64 {
	if len(documents) == 0 {
		return nil
	}

	queryTerms := Tokenize(query)
	docTokens := make([][]string, len(documents))
	var totalLen float64
	for i, doc := range documents {
		docTokens[i] = Tokenize(doc)
		totalLen += float64(utf8.RuneCountInString(doc))
	}
	avgDocLen := totalLen / float64(len(documents))

	scores := make([]float64, len(documents))
	for i, doc := range documents {
		docLen := float64(utf8.RuneCountInString(doc))
		var score float64
		for _, term := range queryTerms {
			tf := termFrequency(term, docTokens[i])
			idf := inverseDocFrequency(term, docTokens)
			score += idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*(1-bm25B+bm25B*(docLen/avgDocLen)))
		}
		scores[i] = math.Max(0, score)
	}
	return scores
}

func termFrequency(term string, tokens []string) float64 {
	var n float64
	for _, t := range tokens {
		if t == term {
			n++
		}
	}
	return n
}

func inverseDocFrequency(term string, docTokens [][]string) float64 {
	var docFreq float64
	for _, tokens := range docTokens {
		for _, t := range tokens {
			if t == term {
				docFreq++
				break
			}
		}
	}
	if docFreq == 0 {
		return 0
	}
	n := float64(len(docTokens))
	return math.Log((n - docFreq + 0.5) / (docFreq + 0.5))
}
