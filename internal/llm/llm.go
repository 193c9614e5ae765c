// Package llm abstracts text generation and embedding behind small
// interfaces so the pipeline can mix providers and be tested offline.
package llm

import (
	"context"
	"strings"
)

// GenerateRequest is a single-turn generation request.
type GenerateRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature *float64
}

// GenerateResult is the generated text plus token accounting.
type GenerateResult struct {
	Text       string
	TokensUsed int
	Model      string
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// Embedder turns texts into embedding vectors, one per input, in order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// CleanJSON strips markdown code fences and any surrounding prose from a
// model response, leaving the outermost JSON object.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
