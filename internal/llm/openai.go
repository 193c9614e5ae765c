package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/taxdesk/answer-engine/internal/resilience"
	"github.com/taxdesk/answer-engine/pkg/openai"
)

// OpenAIGenerator adapts the OpenAI chat API to the Generator interface.
type OpenAIGenerator struct {
	client openai.Client
	model  string
	retry  resilience.RetryConfig
}

// NewOpenAIGenerator builds a Generator on the given client and model.
func NewOpenAIGenerator(client openai.Client, model string) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: client,
		model:  model,
		retry:  resilience.DefaultRetryConfig(),
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	var messages []openai.Message
	if req.System != "" {
		messages = append(messages, openai.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, openai.Message{Role: "user", Content: req.Prompt})

	chatReq := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = &req.MaxTokens
	}

	resp, err := resilience.Do(ctx, g.retry, "openai.generate", func(ctx context.Context) (*openai.ChatCompletionResponse, error) {
		return g.client.ChatCompletion(ctx, chatReq)
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: openai generate")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("llm: openai returned no choices")
	}

	return &GenerateResult{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
		Model:      resp.Model,
	}, nil
}

// OpenAIEmbedder adapts the OpenAI embeddings API to the Embedder
// interface.
type OpenAIEmbedder struct {
	client openai.Client
	model  string
	retry  resilience.RetryConfig
}

// NewOpenAIEmbedder builds an Embedder on the given client and model.
func NewOpenAIEmbedder(client openai.Client, model string) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: client,
		model:  model,
		retry:  resilience.DefaultRetryConfig(),
	}
}

func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := resilience.Do(ctx, e.retry, "openai.embed", func(ctx context.Context) (*openai.EmbeddingResponse, error) {
		return e.client.Embed(ctx, openai.EmbeddingRequest{Model: e.model, Input: texts})
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: openai embed")
	}
	if len(resp.Data) != len(texts) {
		return nil, eris.Errorf("llm: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, eris.Errorf("llm: embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
