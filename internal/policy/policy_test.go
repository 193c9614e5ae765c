package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTiers(t *testing.T) {
	p := Default()

	tests := []struct {
		domain string
		tier   int
	}{
		{"hometax.go.kr", 1},
		{"nts.go.kr", 1},
		{"law.go.kr", 1},
		{"taxlaw.nts.go.kr", 2},
		{"scourt.go.kr", 2},
		{"korea.kr", 3},
		{"taxnet.co.kr", 4},
		{"blog.example.com", GeneralWebTier},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.tier, p.TierOf(tt.domain), tt.domain)
	}
}

func TestWhitelistChecks(t *testing.T) {
	p := Default()

	assert.True(t, p.IsWhitelisted("samili.com"))
	assert.False(t, p.IsWhitelisted("naver.com"))

	assert.True(t, p.IsAuthoritative("law.go.kr"))
	assert.True(t, p.IsAuthoritative("scourt.go.kr"))
	assert.False(t, p.IsAuthoritative("korea.kr"))
	assert.False(t, p.IsAuthoritative("naver.com"))
}

func TestAllWhitelistDomainsOrder(t *testing.T) {
	p := Default()

	domains := p.AllWhitelistDomains()
	require.Len(t, domains, 10)
	assert.Equal(t, "hometax.go.kr", domains[0])
	assert.Equal(t, "samili.com", domains[len(domains)-1])
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := []byte(`
priority_1:
  - example.go.kr
conflict_threshold: 0.5
final_k: 3
initial_search_count: 8
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1, p.TierOf("example.go.kr"))
	assert.Equal(t, GeneralWebTier, p.TierOf("hometax.go.kr"))
	assert.Equal(t, 0.5, p.ConflictThreshold)
	assert.Equal(t, 3, p.FinalK)
	// untouched fields keep defaults
	assert.Equal(t, 2, p.TierOf("scourt.go.kr"))
	assert.Equal(t, 56, p.FreshnessDays)
}

func TestLoadRejectsInvalidThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("conflict_threshold: 1.5\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflict_threshold")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/policy.yaml")
	require.Error(t, err)
}
