package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html lang="ko">
<head>
<title>1세대 1주택 비과세 요건 | 국세청</title>
<meta property="og:title" content="1세대 1주택 비과세 요건">
<meta name="description" content="보유기간 2년 이상인 1세대 1주택의 양도소득세 비과세 안내">
<meta property="og:site_name" content="국세청">
<meta property="article:published_time" content="2026-02-10T09:00:00+09:00">
<meta name="keywords" content="양도소득세, 비과세, 1세대 1주택">
</head>
<body>
<nav>메뉴 홈 로그인</nav>
<article>
<h1>1세대 1주택 비과세 요건</h1>
<p>1세대가 양도일 현재 국내에 1주택을 보유하고 있는 경우로서 보유기간이 2년 이상인 주택의 양도는
양도소득세가 비과세됩니다. 조정대상지역 내 주택은 거주기간 2년 요건이 추가됩니다.</p>
<p>소득세법 제89조 제1항 제3호 및 같은 법 시행령 제154조 제1항에 따라 적용됩니다.
고가주택(실지거래가액 12억원 초과)은 초과분에 대하여 과세됩니다.</p>
</article>
<footer>저작권 안내</footer>
<script>console.log("tracking")</script>
</body>
</html>`

func TestParseSamplePage(t *testing.T) {
	content, err := Parse([]byte(samplePage), "https://www.nts.go.kr/guide/1")
	require.NoError(t, err)

	assert.Equal(t, "1세대 1주택 비과세 요건", content.Title)
	assert.Equal(t, "nts.go.kr", content.Domain)
	assert.Contains(t, content.TextContent, "보유기간이 2년 이상")
	assert.Contains(t, content.TextContent, "소득세법 제89조")
	assert.NotContains(t, content.TextContent, "tracking")
	assert.NotContains(t, content.TextContent, "메뉴 홈 로그인")
	assert.Contains(t, content.Excerpt, "비과세 안내")
	assert.Equal(t, "국세청", content.Metadata.SiteName)
	assert.Equal(t, []string{"양도소득세", "비과세", "1세대 1주택"}, content.Metadata.Keywords)

	require.NotNil(t, content.PublishedAt)
	assert.Equal(t, 2026, content.PublishedAt.Year())
	assert.Equal(t, time.February, content.PublishedAt.Month())
}

func TestParseDateFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"iso", "작성일 2025-11-20 조회수 1234", "2025-11-20"},
		{"dotted", "등록일: 2025. 11. 20.", "2025-11-20"},
		{"korean", "2025년 11월 20일 개정", "2025-11-20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := parseDateText(tt.input)
			require.NotNil(t, ts)
			assert.Equal(t, tt.want, ts.Format("2006-01-02"))
		})
	}

	assert.Nil(t, parseDateText("날짜 없음"))
}

func TestNormalize(t *testing.T) {
	in := "보유기간 ２년   이상\n\n\n\n거주기간　２년"
	out := Normalize(in)
	assert.Equal(t, "보유기간 2년 이상\n\n거주기간 2년", out)
}

func TestExtractFetches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "TaxQABot")
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	e := NewExtractor(5 * time.Second)
	content, err := e.Extract(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "1세대 1주택 비과세 요건", content.Title)
}

func TestExtractBlockedPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>Please complete the reCAPTCHA to continue</body></html>` +
			`<!-- padding to clear the empty-page floor ------------------------------>`))
	}))
	defer server.Close()

	e := NewExtractor(5 * time.Second)
	_, err := e.Extract(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestExtractErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write(make([]byte, 200))
	}))
	defer server.Close()

	e := NewExtractor(5 * time.Second)
	_, err := e.Extract(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestDetectBlockCloudflare(t *testing.T) {
	resp := &http.Response{StatusCode: 403, Header: http.Header{"Cf-Ray": []string{"abc"}}}
	blocked, blockType := DetectBlock(resp, nil)
	assert.True(t, blocked)
	assert.Equal(t, BlockCloudflare, blockType)
}

func TestDetectBlockClean(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	blocked, _ := DetectBlock(resp, []byte(samplePage))
	assert.False(t, blocked)
}
