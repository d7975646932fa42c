package source

import (
	"context"
	"testing"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeGitURL(t *testing.T) {
	for _, ok := range []string{
		"https://github.com/acme/docs.git",
		"http://git.local/acme/docs",
		"git@github.com:acme/docs.git",
	} {
		got, err := SafeGitURL("  " + ok + " ")
		require.NoError(t, err, ok)
		assert.Equal(t, ok, got)
	}

	for _, bad := range []string{
		"file:///etc",
		"ssh://github.com/acme/docs",
		"https://github.com/acme/docs;rm -rf /",
		"https://github.com/acme/docs && echo",
		"https://github.com/acme/$(whoami)",
		"https://github.com/acme/`id`",
		"https://github.com/acme/docs | cat",
	} {
		_, err := SafeGitURL(bad)
		assert.ErrorIs(t, err, knowledgeModel.ErrUnsafeGitURL, bad)
	}
}

func TestSlugifyRepo(t *testing.T) {
	assert.Equal(t, "docs", SlugifyRepo("https://github.com/acme/Docs.git"))
	assert.Equal(t, "my-repo", SlugifyRepo("git@github.com:acme/my repo.git"))
	assert.Equal(t, "site", SlugifyRepo("https://github.com/acme/site/"))
}

func TestGitCommit_NotARepo(t *testing.T) {
	assert.Equal(t, unknownCommit, gitCommit(context.Background(), t.TempDir()))
}
