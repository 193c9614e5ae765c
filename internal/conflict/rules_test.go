package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxdesk/answer-engine/internal/model"
)

func TestNormalizedTokens(t *testing.T) {
	got := normalizedTokens(periodTokenRe, "2년 이상 보유하고 2 년 거주, 10개월 경과")
	assert.Equal(t, []string{"10개월", "2년"}, got)

	assert.Empty(t, normalizedTokens(rateTokenRe, "세율 언급 없음"))
	assert.Equal(t, []string{"6.6%"}, normalizedTokens(rateTokenRe, "지방세 포함 6.6% 적용"))
}

func TestArticleTokens(t *testing.T) {
	got := normalizedTokens(articleTokenRe, "소득세법 제89조와 시행령 제154조의 3 참조")
	assert.Equal(t, []string{"제154조의3", "제89조"}, got)
}

func TestTokenMismatchRequiresBothSides(t *testing.T) {
	// one side silent on rates is not a conflict
	assert.Empty(t, tokenMismatch("세율", rateTokenRe, "세율은 45%입니다", "세율은 별도 확인 필요"))
	assert.NotEmpty(t, tokenMismatch("세율", rateTokenRe, "세율은 45%입니다", "세율은 42%입니다"))
	// same tokens in different order compare equal
	assert.Empty(t, tokenMismatch("기간", periodTokenRe, "2년 보유, 3년 거주", "3년 거주와 2년 보유"))
}

func TestAnalyzeRulesCategories(t *testing.T) {
	pack := &model.EvidencePack{Evidence: []model.EvidenceItem{
		{Domain: "nts.go.kr", Title: "장기보유특별공제 안내", Snippet: "공제율 표"},
	}}

	// numeric (period) + citation (article) + draft A omits the
	// evidence concepts entirely
	out := analyzeRules(
		"제89조에 따라 3년 보유 시 혜택",
		"제91조에 따라 5년 보유 시 공제 혜택",
		pack)

	require.Len(t, out.Conflicts, 3)
	assert.InDelta(t, 0.3+0.2+0.4, out.Score, 1e-9)
}

func TestAnalyzeRulesClipsAtOne(t *testing.T) {
	pack := &model.EvidencePack{Evidence: []model.EvidenceItem{
		{Domain: "nts.go.kr", Title: "양도소득세 세율", Snippet: "세율 안내"},
		{Domain: "hometax.go.kr", Title: "장기보유특별공제", Snippet: "공제"},
	}}
	out := analyzeRules(
		"세율 45%, 3년 보유, 제89조, 2024년 1월 1일 시행",
		"세율 42%, 5년 보유, 제91조, 2025년 1월 1일 시행",
		pack)
	assert.Equal(t, 1.0, out.Score)
}

func TestDetectOmissionsNilPack(t *testing.T) {
	assert.Empty(t, detectOmissions("초안", "초안", nil))
	assert.Empty(t, detectOmissions("초안", "초안", &model.EvidencePack{}))
}
