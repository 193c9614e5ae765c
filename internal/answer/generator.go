// Package answer generates the dual drafts and assembles the final
// structured answer from the chosen decision mode.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/taxdesk/answer-engine/internal/llm"
	"github.com/taxdesk/answer-engine/internal/model"
)

const draftMaxTokens = 600

const taxSystemPrompt = `당신은 한국 양도소득세 전문 AI 세무사입니다. 다음 규칙을 엄격히 준수하세요:

1. **정확성**: 조문, 효력일, 출처를 반드시 명시하세요. 추정 금지.
2. **구조**: 다음 섹션으로 구성하세요:
   - 1. 개요/기본 원칙
   - 2. 보유·거주기간/세율 표
   - 3. 실무상 유의사항
   - 4. 관련 법령 및 근거
   - 5. 결론

3. **인용**: 각 단락에 문장수준 근거를 연결하고, 하단에 출처 목록을 제공하세요.
4. **최신성**: 2025년 기준 최신 법령을 반영하세요.
5. **법적 고지**: 마지막에 "본 답변은 참고용이며, 구체적인 세무상담은 전문가와 상담하시기 바랍니다."를 포함하세요.

양도소득세 관련 질문에 대해 정확하고 실용적인 답변을 제공하세요.`

// DraftGenerator produces the evidence-conditioned and unconditioned
// drafts for a query.
type DraftGenerator struct {
	generator llm.Generator
}

// NewDraftGenerator builds a DraftGenerator over the given text
// generator.
func NewDraftGenerator(g llm.Generator) *DraftGenerator {
	return &DraftGenerator{generator: g}
}

// Drafts holds both passes of the dual generation.
type Drafts struct {
	WithEvidence    model.Draft
	WithoutEvidence model.Draft
}

// Generate runs both draft generations concurrently. Both must
// succeed; there is no partial-draft mode.
func (g *DraftGenerator) Generate(ctx context.Context, query string, pack *model.EvidencePack) (*Drafts, error) {
	if strings.TrimSpace(query) == "" {
		return nil, eris.New("answer: empty query")
	}

	var drafts Drafts
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		d, err := g.generate(ctx, evidencePrompt(query, pack))
		if err != nil {
			return eris.Wrap(err, "draft with evidence")
		}
		drafts.WithEvidence = *d
		return nil
	})
	eg.Go(func() error {
		d, err := g.generate(ctx, "질문: "+query)
		if err != nil {
			return eris.Wrap(err, "draft without evidence")
		}
		drafts.WithoutEvidence = *d
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &drafts, nil
}

func (g *DraftGenerator) generate(ctx context.Context, prompt string) (*model.Draft, error) {
	temp := 0.1
	result, err := g.generator.Generate(ctx, llm.GenerateRequest{
		System:      taxSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   draftMaxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return nil, err
	}
	return &model.Draft{
		Content:    result.Text,
		TokensUsed: result.TokensUsed,
		Model:      result.Model,
	}, nil
}

func evidencePrompt(query string, pack *model.EvidencePack) string {
	var ctx strings.Builder
	if pack != nil {
		for i, item := range pack.Evidence {
			fmt.Fprintf(&ctx, "[%d] %s\n%s\n\n", i+1, item.Title, item.Snippet)
		}
	}
	body := strings.TrimSpace(ctx.String())
	if body == "" {
		body = "(증거 없음)"
	}
	return fmt.Sprintf("질문: %s\n\nCONTEXT:\n%s", query, body)
}
