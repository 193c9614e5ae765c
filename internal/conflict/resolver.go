package conflict

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/taxdesk/answer-engine/internal/llm"
	"github.com/taxdesk/answer-engine/internal/model"
	"github.com/taxdesk/answer-engine/internal/policy"
)

// weighting of the two passes in the combined conflict score
const (
	nliWeight  = 0.7
	ruleWeight = 0.3
)

const nliSystemPrompt = "당신은 엄격한 NLI(자연어 추론) 판정자입니다. JSON 형식으로만 응답하세요."

// Resolver compares two drafts and the evidence, producing a conflict
// score and a decision mode.
type Resolver struct {
	generator llm.Generator
	policy    *policy.Policy
}

// NewResolver builds a Resolver over the given inference generator.
func NewResolver(g llm.Generator, p *policy.Policy) *Resolver {
	return &Resolver{generator: g, policy: p}
}

// nliResult is the JSON shape the inference pass must return.
type nliResult struct {
	ConflictScore      float64  `json:"conflict_score"`
	Conflicts          []string `json:"conflicts"`
	DecisiveWebSources []string `json:"decisive_web_sources"`
	Reasoning          string   `json:"reasoning"`
	Confidence         float64  `json:"confidence"`
}

// Resolve combines the heuristic and inference passes into a single
// conflict analysis. Inference failures degrade to a zero-conflict
// neutral result; they never fail the request.
func (r *Resolver) Resolve(ctx context.Context, draftWithEvidence, draftWithoutEvidence string, pack *model.EvidencePack) (*model.ConflictAnalysis, error) {
	if strings.TrimSpace(draftWithEvidence) == "" || strings.TrimSpace(draftWithoutEvidence) == "" {
		return nil, eris.New("conflict: both drafts are required")
	}

	nli := r.inferencePass(ctx, draftWithEvidence, draftWithoutEvidence, pack)
	rule := analyzeRules(draftWithEvidence, draftWithoutEvidence, pack)

	score := nli.ConflictScore*nliWeight + rule.Score*ruleWeight

	conflicts := rule.Conflicts
	for _, c := range nli.Conflicts {
		conflicts = append(conflicts, model.Conflict{
			Category:    "inference",
			Description: c,
			Severity:    nli.ConflictScore,
		})
	}

	return &model.ConflictAnalysis{
		ConflictScore:      score,
		RuleScore:          rule.Score,
		NLIScore:           nli.ConflictScore,
		Conflicts:          conflicts,
		DecisiveWebSources: nli.DecisiveWebSources,
		DecisionMode:       r.decide(score, pack),
	}, nil
}

// decide maps a conflict score to a decision mode. Above the threshold,
// authoritative evidence wins outright; without it the drafts and
// evidence are blended.
func (r *Resolver) decide(score float64, pack *model.EvidencePack) model.DecisionMode {
	if score < r.policy.ConflictThreshold {
		return model.DecisionGPTDraft
	}
	if pack != nil {
		for _, item := range pack.Evidence {
			if r.policy.IsAuthoritative(item.Domain) {
				return model.DecisionWebOverride
			}
		}
	}
	return model.DecisionHybrid
}

func (r *Resolver) inferencePass(ctx context.Context, draftA, draftB string, pack *model.EvidencePack) nliResult {
	temp := 0.0
	result, err := r.generator.Generate(ctx, llm.GenerateRequest{
		System:      nliSystemPrompt,
		Prompt:      nliPrompt(draftA, draftB, pack),
		MaxTokens:   800,
		Temperature: &temp,
	})
	if err != nil {
		zap.L().Warn("nli analysis failed, treating as no conflict", zap.Error(err))
		return nliResult{}
	}

	var parsed nliResult
	if err := json.Unmarshal([]byte(llm.CleanJSON(result.Text)), &parsed); err != nil {
		zap.L().Warn("nli response was not valid json, treating as no conflict",
			zap.Error(err))
		return nliResult{}
	}
	if parsed.ConflictScore < 0 {
		parsed.ConflictScore = 0
	}
	if parsed.ConflictScore > 1 {
		parsed.ConflictScore = 1
	}
	return parsed
}

func nliPrompt(draftA, draftB string, pack *model.EvidencePack) string {
	var evidence strings.Builder
	if pack != nil {
		for _, item := range pack.Evidence {
			fmt.Fprintf(&evidence, "[%s] %s: %s\n", item.Domain, item.Title, item.Snippet)
		}
	}

	return fmt.Sprintf(`다음 두 개의 답변과 웹 증거를 비교하여 충돌을 분석하세요:

**Draft A (증거팩 포함):**
%s

**Draft B (증거팩 미포함):**
%s

**웹 증거:**
%s

다음 JSON 형식으로 응답하세요:
{
  "conflict_score": 0.0-1.0,
  "conflicts": ["충돌 내용 1", "충돌 내용 2"],
  "decisive_web_sources": ["결정적 웹 출처 1", "결정적 웹 출처 2"],
  "reasoning": "충돌 판정 근거",
  "confidence": 0.0-1.0
}

충돌 판정 기준:
- 수치/기간/세율 불일치: 0.8-1.0
- 조문/효력일 불일치: 0.6-0.8
- 해석 차이: 0.3-0.6
- 무충돌: 0.0-0.2`, draftA, draftB, evidence.String())
}
