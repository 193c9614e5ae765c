// Package extract fetches whitelisted pages and pulls out normalized
// article content for ranking and evidence building.
package extract

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/taxdesk/answer-engine/internal/model"
)

const defaultMaxBodyBytes = 2 << 20

// Extractor fetches a URL and extracts title, text, and metadata.
type Extractor struct {
	client       *http.Client
	maxBodyBytes int64
}

// Option configures the extractor.
type Option func(*Extractor)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(e *Extractor) {
		e.client = hc
	}
}

// WithMaxBodyBytes caps how much of the response body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(e *Extractor) {
		e.maxBodyBytes = n
	}
}

// NewExtractor creates an Extractor with the given fetch timeout.
func NewExtractor(timeout time.Duration, opts ...Option) *Extractor {
	e := &Extractor{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract fetches targetURL, detects blocks, and parses the page.
func (e *Extractor) Extract(ctx context.Context, targetURL string) (*model.ExtractedContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "extract: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; TaxQABot/1.0)")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "extract: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "extract: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("extract: blocked (%s)", blockType)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("extract: status %d", resp.StatusCode)
	}
	if len(body) < 100 {
		return nil, eris.New("extract: empty page")
	}

	content, err := Parse(body, targetURL)
	if err != nil {
		return nil, err
	}
	return content, nil
}

// Parse extracts structured content from raw HTML.
func Parse(body []byte, targetURL string) (*model.ExtractedContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse html")
	}

	// Drop non-content elements before collecting text.
	doc.Find("script, style, nav, footer, header, aside, iframe, form, noscript").Remove()

	title := extractTitle(doc)
	text := extractText(doc)
	if text == "" {
		return nil, eris.New("extract: no text content")
	}

	content := &model.ExtractedContent{
		Title:       title,
		TextContent: text,
		Excerpt:     extractExcerpt(doc, text),
		PublishedAt: extractPublishedAt(doc, text),
		Domain:      model.ExtractDomain(targetURL),
		URL:         targetURL,
		Metadata: model.ContentMetadata{
			Author:   doc.Find(`meta[name="author"]`).AttrOr("content", ""),
			SiteName: doc.Find(`meta[property="og:site_name"]`).AttrOr("content", ""),
			Type:     doc.Find(`meta[property="og:type"]`).AttrOr("content", ""),
			Keywords: splitKeywords(doc.Find(`meta[name="keywords"]`).AttrOr("content", "")),
		},
	}
	return content, nil
}

func extractTitle(doc *goquery.Document) string {
	if og := doc.Find(`meta[property="og:title"]`).AttrOr("content", ""); og != "" {
		return Normalize(og)
	}
	if t := doc.Find("title").First().Text(); t != "" {
		return Normalize(t)
	}
	return Normalize(doc.Find("h1").First().Text())
}

// contentSelectors are tried in order; the first non-trivial match wins.
var contentSelectors = []string{"article", "main", "#content", ".content", "#container"}

func extractText(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		if text := Normalize(doc.Find(sel).First().Text()); len(text) > 200 {
			return text
		}
	}
	return Normalize(doc.Find("body").Text())
}

func extractExcerpt(doc *goquery.Document, text string) string {
	if d := doc.Find(`meta[name="description"]`).AttrOr("content", ""); d != "" {
		return Normalize(d)
	}
	if d := doc.Find(`meta[property="og:description"]`).AttrOr("content", ""); d != "" {
		return Normalize(d)
	}
	runes := []rune(text)
	if len(runes) > 200 {
		return string(runes[:200])
	}
	return text
}

func splitKeywords(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var (
	isoDateRe    = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	dottedDateRe = regexp.MustCompile(`(\d{4})\.\s?(\d{1,2})\.\s?(\d{1,2})`)
	koreanDateRe = regexp.MustCompile(`(\d{4})년\s?(\d{1,2})월\s?(\d{1,2})일`)
)

// extractPublishedAt looks for a publication date in meta tags, <time>
// elements, and finally the leading body text.
func extractPublishedAt(doc *goquery.Document, text string) *time.Time {
	metaSelectors := []string{
		`meta[property="article:published_time"]`,
		`meta[property="og:published_time"]`,
		`meta[name="date"]`,
	}
	for _, sel := range metaSelectors {
		if v := doc.Find(sel).AttrOr("content", ""); v != "" {
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				return &ts
			}
			if ts := parseDateText(v); ts != nil {
				return ts
			}
		}
	}

	if v := doc.Find("time[datetime]").First().AttrOr("datetime", ""); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return &ts
		}
		if ts := parseDateText(v); ts != nil {
			return ts
		}
	}

	// Dates usually sit near the top of Korean government pages.
	head := text
	if runes := []rune(head); len(runes) > 500 {
		head = string(runes[:500])
	}
	return parseDateText(head)
}

// parseDateText parses the first date in ISO, dotted, or Korean format.
func parseDateText(s string) *time.Time {
	for _, re := range []*regexp.Regexp{isoDateRe, dottedDateRe, koreanDateRe} {
		if m := re.FindStringSubmatch(s); m != nil {
			ts, err := time.Parse("2006-1-2", m[1]+"-"+m[2]+"-"+m[3])
			if err == nil {
				return &ts
			}
		}
	}
	return nil
}
