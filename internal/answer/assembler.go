package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/taxdesk/answer-engine/internal/llm"
	"github.com/taxdesk/answer-engine/internal/model"
)

// Assembler turns drafts plus a decision mode into the final answer.
type Assembler struct {
	generator llm.Generator
}

// NewAssembler builds an Assembler over the given text generator. The
// generator is only invoked for web-override regeneration.
func NewAssembler(g llm.Generator) *Assembler {
	return &Assembler{generator: g}
}

// Assemble produces the final structured answer. For gpt_draft and
// hybrid the evidence-conditioned draft is kept verbatim; web_override
// discards both drafts and regenerates from the evidence text alone.
func (a *Assembler) Assemble(ctx context.Context, drafts *Drafts, pack *model.EvidencePack, decision model.DecisionMode) (*model.FinalAnswer, error) {
	switch decision {
	case model.DecisionWebOverride:
		return a.composeFromEvidence(ctx, pack)
	case model.DecisionGPTDraft, model.DecisionHybrid:
		d := drafts.WithEvidence
		return &model.FinalAnswer{
			Text:       d.Content,
			Sections:   SplitSections(d.Content),
			Decision:   decision,
			TokensUsed: d.TokensUsed,
			Model:      d.Model,
		}, nil
	default:
		return nil, eris.Errorf("answer: unknown decision mode %q", decision)
	}
}

func (a *Assembler) composeFromEvidence(ctx context.Context, pack *model.EvidencePack) (*model.FinalAnswer, error) {
	var web strings.Builder
	if pack != nil {
		for _, item := range pack.Evidence {
			fmt.Fprintf(&web, "[%s] %s\n%s\n\n", item.Domain, item.Title, item.Snippet)
		}
	}
	if web.Len() == 0 {
		return nil, eris.New("answer: web override requested without evidence")
	}

	temp := 0.1
	result, err := a.generator.Generate(ctx, llm.GenerateRequest{
		System:      taxSystemPrompt,
		Prompt:      "다음 웹 증거만을 사용하여 구조화된 답변을 작성하세요:\n\n" + strings.TrimSpace(web.String()),
		MaxTokens:   draftMaxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "answer: web override generation")
	}

	return &model.FinalAnswer{
		Text:       result.Text,
		Sections:   SplitSections(result.Text),
		Decision:   model.DecisionWebOverride,
		TokensUsed: result.TokensUsed,
		Model:      result.Model,
	}, nil
}
