package answer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taxdesk/answer-engine/internal/cache"
	"github.com/taxdesk/answer-engine/internal/conflict"
	"github.com/taxdesk/answer-engine/internal/llm"
	"github.com/taxdesk/answer-engine/internal/metrics"
	"github.com/taxdesk/answer-engine/internal/model"
	"github.com/taxdesk/answer-engine/internal/policy"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.GenerateResult), args.Error(1)
}

func isDraftRequest(req llm.GenerateRequest) bool {
	return req.MaxTokens == draftMaxTokens && !strings.HasPrefix(req.Prompt, "다음 웹 증거만을")
}

func isNLIRequest(req llm.GenerateRequest) bool {
	return req.MaxTokens == 800
}

func isOverrideRequest(req llm.GenerateRequest) bool {
	return strings.HasPrefix(req.Prompt, "다음 웹 증거만을")
}

func authoritativePack() *model.EvidencePack {
	return &model.EvidencePack{
		Evidence: []model.EvidenceItem{
			{Domain: "hometax.go.kr", Title: "양도소득세 비과세", Snippet: "보유 2년 요건", Priority: 1},
		},
		Metadata: model.PackMetadata{WhitelistCoverage: 1.0},
	}
}

func newService(t *testing.T, gen llm.Generator, opts ...ServiceOption) (*Service, *metrics.SQLiteSink) {
	t.Helper()
	sink, err := metrics.NewSQLite(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	require.NoError(t, sink.Migrate(context.Background()))
	t.Cleanup(func() { sink.Close() })

	p := policy.Default()
	svc := NewService(
		NewDraftGenerator(gen),
		conflict.NewResolver(gen, p),
		NewAssembler(gen),
		sink,
		opts...,
	)
	return svc, sink
}

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	require.NoError(t, c.Migrate(context.Background()))
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGenerateDraftsBothPasses(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.GenerateRequest) bool {
		return isDraftRequest(req) && strings.Contains(req.Prompt, "CONTEXT:")
	})).Return(&llm.GenerateResult{Text: "증거 기반 초안", TokensUsed: 300, Model: "gpt-4o-mini"}, nil).Once()
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.GenerateRequest) bool {
		return isDraftRequest(req) && !strings.Contains(req.Prompt, "CONTEXT:")
	})).Return(&llm.GenerateResult{Text: "순수 초안", TokensUsed: 280, Model: "gpt-4o-mini"}, nil).Once()

	g := NewDraftGenerator(gen)
	drafts, err := g.Generate(context.Background(), "1세대 1주택 비과세 요건", authoritativePack())
	require.NoError(t, err)
	assert.Equal(t, "증거 기반 초안", drafts.WithEvidence.Content)
	assert.Equal(t, "순수 초안", drafts.WithoutEvidence.Content)
	gen.AssertExpectations(t)
}

func TestGenerateDraftsFailsWhenEitherFails(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.GenerateRequest) bool {
		return strings.Contains(req.Prompt, "CONTEXT:")
	})).Return(&llm.GenerateResult{Text: "증거 기반 초안"}, nil).Maybe()
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.GenerateRequest) bool {
		return !strings.Contains(req.Prompt, "CONTEXT:")
	})).Return(nil, errors.New("api down")).Maybe()

	g := NewDraftGenerator(gen)
	_, err := g.Generate(context.Background(), "양도세 세율", authoritativePack())
	assert.Error(t, err)
}

func TestGenerateDraftsEmptyQuery(t *testing.T) {
	g := NewDraftGenerator(&mockGenerator{})
	_, err := g.Generate(context.Background(), " ", nil)
	assert.Error(t, err)
}

func TestAssembleKeepsDraftForGPTDraftAndHybrid(t *testing.T) {
	a := NewAssembler(&mockGenerator{})
	drafts := &Drafts{WithEvidence: model.Draft{Content: structuredAnswer, TokensUsed: 500, Model: "gpt-4o-mini"}}

	for _, mode := range []model.DecisionMode{model.DecisionGPTDraft, model.DecisionHybrid} {
		final, err := a.Assemble(context.Background(), drafts, authoritativePack(), mode)
		require.NoError(t, err)
		assert.Equal(t, structuredAnswer, final.Text)
		assert.Equal(t, mode, final.Decision)
		assert.Equal(t, 500, final.TokensUsed)
		assert.Contains(t, final.Sections.Conclusion, "비과세됩니다")
	}
}

func TestAssembleWebOverrideRegenerates(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(isOverrideRequest)).
		Return(&llm.GenerateResult{Text: structuredAnswer, TokensUsed: 450, Model: "gpt-4o-mini"}, nil).Once()

	a := NewAssembler(gen)
	drafts := &Drafts{WithEvidence: model.Draft{Content: "버려질 초안"}}
	final, err := a.Assemble(context.Background(), drafts, authoritativePack(), model.DecisionWebOverride)
	require.NoError(t, err)

	assert.NotContains(t, final.Text, "버려질 초안")
	assert.Equal(t, model.DecisionWebOverride, final.Decision)
	assert.Equal(t, 450, final.TokensUsed)
	gen.AssertExpectations(t)
}

func TestAssembleWebOverrideWithoutEvidence(t *testing.T) {
	a := NewAssembler(&mockGenerator{})
	_, err := a.Assemble(context.Background(), &Drafts{}, &model.EvidencePack{}, model.DecisionWebOverride)
	assert.Error(t, err)
}

func TestServiceAnswerNoConflict(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(isDraftRequest)).
		Return(&llm.GenerateResult{Text: structuredAnswer, TokensUsed: 400, Model: "gpt-4o-mini"}, nil).Twice()
	gen.On("Generate", mock.Anything, mock.MatchedBy(isNLIRequest)).
		Return(&llm.GenerateResult{Text: `{"conflict_score": 0.1, "conflicts": [], "decisive_web_sources": []}`}, nil).Once()

	svc, sink := newService(t, gen)
	result, err := svc.Answer(context.Background(), "1세대 1주택 비과세 요건", "session-1", authoritativePack())
	require.NoError(t, err)

	assert.Equal(t, model.DecisionGPTDraft, result.Answer.Decision)
	assert.Equal(t, structuredAnswer, result.Answer.Text)
	assert.Less(t, result.Conflict.ConflictScore, 0.35)

	snap, err := sink.Snapshot(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Total)
	assert.InDelta(t, 800.0, snap.AvgTokens, 1e-9)
	gen.AssertExpectations(t)
}

func TestServiceAnswerWebOverride(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(isDraftRequest)).
		Return(&llm.GenerateResult{Text: structuredAnswer, TokensUsed: 400}, nil).Twice()
	gen.On("Generate", mock.Anything, mock.MatchedBy(isNLIRequest)).
		Return(&llm.GenerateResult{Text: `{"conflict_score": 0.9, "conflicts": ["수치 불일치"], "decisive_web_sources": ["hometax.go.kr"]}`}, nil).Once()
	gen.On("Generate", mock.Anything, mock.MatchedBy(isOverrideRequest)).
		Return(&llm.GenerateResult{Text: structuredAnswer, TokensUsed: 450}, nil).Once()

	svc, sink := newService(t, gen)
	result, err := svc.Answer(context.Background(), "다주택자 중과세", "session-2", authoritativePack())
	require.NoError(t, err)

	assert.Equal(t, model.DecisionWebOverride, result.Answer.Decision)

	snap, err := sink.Snapshot(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Total)
	assert.InDelta(t, 1250.0, snap.AvgTokens, 1e-9)
	assert.InDelta(t, 1.0, snap.WebOverrideRate, 1e-9)
	gen.AssertExpectations(t)
}

func TestServiceAnswerServedFromCache(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(isDraftRequest)).
		Return(&llm.GenerateResult{Text: structuredAnswer, TokensUsed: 400}, nil).Twice()
	gen.On("Generate", mock.Anything, mock.MatchedBy(isNLIRequest)).
		Return(&llm.GenerateResult{Text: `{"conflict_score": 0.1, "conflicts": []}`}, nil).Once()

	svc, sink := newService(t, gen, WithCache(newTestCache(t), time.Hour))

	first, err := svc.Answer(context.Background(), "부담부증여 양도세", "s-1", authoritativePack())
	require.NoError(t, err)

	second, err := svc.Answer(context.Background(), "부담부증여 양도세", "s-1", authoritativePack())
	require.NoError(t, err)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, first.Conflict, second.Conflict)

	// Only the first call reached the models or the metrics sink.
	snap, err := sink.Snapshot(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Total)
	gen.AssertExpectations(t)
}

func TestServiceInvalidateForcesRegeneration(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(isDraftRequest)).
		Return(&llm.GenerateResult{Text: structuredAnswer, TokensUsed: 400}, nil).Times(4)
	gen.On("Generate", mock.Anything, mock.MatchedBy(isNLIRequest)).
		Return(&llm.GenerateResult{Text: `{"conflict_score": 0.1, "conflicts": []}`}, nil).Twice()

	svc, _ := newService(t, gen, WithCache(newTestCache(t), time.Hour))

	_, err := svc.Answer(context.Background(), "분양권 양도세", "s-1", authoritativePack())
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(context.Background(), "분양권 양도세"))

	_, err = svc.Answer(context.Background(), "분양권 양도세", "s-1", authoritativePack())
	require.NoError(t, err)
	gen.AssertExpectations(t)
}
