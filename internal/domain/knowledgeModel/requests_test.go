package knowledgeModel

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualifiedCollection(t *testing.T) {
	tests := []struct {
		name       string
		tenant     string
		collection string
		want       string
	}{
		{"no tenant", "", "docs", "docs"},
		{"tenant prefix", "acme", "docs", "acme__docs"},
		{"tenant sanitised", "ac me/../x", "docs", "acme..x__docs"},
		{"short name padded", "", "a", "a__"},
		{"unsafe collection chars", "", "my docs!", "my-docs-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QualifiedCollection(tt.tenant, tt.collection)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQualifiedCollection_TooLong(t *testing.T) {
	_, err := QualifiedCollection("", strings.Repeat("x", 513))
	require.Error(t, err)

	var ce *ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestNormalizeExts(t *testing.T) {
	assert.Equal(t, []string{".md", ".py", ".txt"}, NormalizeExts([]string{"MD", " .py", "", "txt"}))
	assert.Equal(t, []string{".md", ".mdx"}, SplitExtList(".md, mdx"))
}

func TestErrorTaxonomy(t *testing.T) {
	base := errors.New("boom")

	fetch := &SourceFetchError{Source: "/x", Kind: KindLocal, Err: ErrPathNotFound}
	assert.ErrorIs(t, fetch, ErrPathNotFound)
	assert.Contains(t, fetch.Error(), "/x")

	assert.True(t, IsAuthError(&ProviderAuthError{Provider: "openai", Err: base}))
	assert.True(t, IsRateLimitError(&ProviderRateLimitError{Provider: "google", Err: base}))
	assert.True(t, IsConfigError(NewConfigError("chunk_size", "must be positive")))
	assert.False(t, IsConfigError(base))
}
