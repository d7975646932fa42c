package docmap

import (
	"testing"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(path, body string) knowledgeModel.RawDocument {
	return knowledgeModel.RawDocument{
		Path:        path,
		Bytes:       []byte(body),
		Text:        body + "\n",
		SizeBytes:   int64(len(body)),
		Title:       path,
		ContentType: "text/markdown",
	}
}

func TestEntry_HashesExactBytes(t *testing.T) {
	e := Entry(doc("a.md", "hello"))
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", e.ContentHash)
	assert.Equal(t, int64(5), e.Size)
	assert.Equal(t, "text/markdown", e.MediaType)
}

func TestBuild_IdenticalContentSharesHash(t *testing.T) {
	b := NewBuilder(knowledgeModel.Origin{Root: "/docs", Commit: "abc"})
	b.Add(doc("a.md", "same"))
	b.Add(doc("copy/a.md", "same"))
	b.Add(doc("b.md", "other"))
	b.Add(doc("a.md", "same"))

	dm := b.DocMap()
	assert.Equal(t, "/docs", dm.Root)
	assert.Equal(t, "abc", dm.Commit)
	require.Len(t, dm.Files, 3)
	assert.Equal(t, []string{"a.md", "copy/a.md", "b.md"}, []string{dm.Files[0].Path, dm.Files[1].Path, dm.Files[2].Path})
	assert.Equal(t, dm.Files[0].ContentHash, dm.Files[1].ContentHash)
	assert.NotEqual(t, dm.Files[0].ContentHash, dm.Files[2].ContentHash)
}

func TestDocMap_JSONRoundTrip(t *testing.T) {
	dm := Build(knowledgeModel.Origin{Root: "https://github.com/acme/docs", Commit: "deadbeef"}, []knowledgeModel.FileManifestEntry{
		Entry(doc("README.md", "# Readme")),
		{Path: "notes.txt", Size: 0, ContentHash: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
	})

	data, err := Marshal(dm)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"repo":"https://github.com/acme/docs"`)
	assert.Contains(t, string(data), `"sha256":`)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, dm, back)
}

func TestUnmarshal_EmptyFilesAndGarbage(t *testing.T) {
	dm, err := Unmarshal([]byte(`{"repo":"local-file"}`))
	require.NoError(t, err)
	assert.Equal(t, "local-file", dm.Root)
	assert.NotNil(t, dm.Files)

	_, err = Unmarshal([]byte(`{`))
	assert.Error(t, err)
}
