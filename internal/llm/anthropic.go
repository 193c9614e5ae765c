package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/taxdesk/answer-engine/internal/resilience"
	"github.com/taxdesk/answer-engine/pkg/anthropic"
)

// AnthropicGenerator adapts the Anthropic client to the Generator
// interface with retry on transient failures.
type AnthropicGenerator struct {
	client anthropic.Client
	model  string
	retry  resilience.RetryConfig
}

// NewAnthropicGenerator builds a Generator on the given client and model.
func NewAnthropicGenerator(client anthropic.Client, model string) *AnthropicGenerator {
	return &AnthropicGenerator{
		client: client,
		model:  model,
		retry:  resilience.DefaultRetryConfig(),
	}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 2048
	}

	msgReq := anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	}
	if req.System != "" {
		msgReq.System = []anthropic.SystemBlock{{Text: req.System}}
	}

	resp, err := resilience.Do(ctx, g.retry, "anthropic.generate", func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return g.client.CreateMessage(ctx, msgReq)
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic generate")
	}

	resp.Usage.LogUsage(g.model, "generate")
	return &GenerateResult{
		Text:       resp.Text(),
		TokensUsed: int(resp.Usage.Total()),
		Model:      resp.Model,
	}, nil
}
