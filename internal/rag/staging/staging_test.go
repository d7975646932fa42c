package staging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBindMap(t *testing.T) {
	b, err := ParseBindMap(" /host/root:/container/root/ ")
	require.NoError(t, err)
	assert.Equal(t, BindMap{Host: "/host/root", Container: "/container/root"}, b)

	b, err = ParseBindMap("")
	require.NoError(t, err)
	assert.True(t, b.IsZero())

	for _, bad := range []string{"/only-host", "/a:/b:/c", ":/b", "/a:", "rel:/b", "/a:rel"} {
		_, err := ParseBindMap(bad)
		assert.True(t, knowledgeModel.IsConfigError(err), bad)
	}
}

func TestRewriteForContainer(t *testing.T) {
	bind := BindMap{Host: "/host/root", Container: "/data"}

	got, ok := RewriteForContainer("/host/root/docs/a.md", bind)
	require.True(t, ok)
	assert.Equal(t, "/data/docs/a.md", got)

	got, ok = RewriteForContainer("/host/root", bind)
	require.True(t, ok)
	assert.Equal(t, "/data", got)

	_, ok = RewriteForContainer("/elsewhere/a.md", bind)
	assert.False(t, ok)
	_, ok = RewriteForContainer("/host/rootless/a.md", bind)
	assert.False(t, ok)
}

func TestStage_SymlinksUnderHostRoot(t *testing.T) {
	host := t.TempDir()
	src := filepath.Join(t.TempDir(), "guide")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.md"), []byte("# A"), 0o644))

	bind := BindMap{Host: host, Container: "/data"}
	st, err := Stage(src, bind, "")
	require.NoError(t, err)

	abs, err := filepath.Abs(src)
	require.NoError(t, err)
	slot := stageSlot(abs)
	assert.Equal(t, filepath.Join(host, config.StageDirName, slot, "guide"), st.HostPath)
	assert.Equal(t, "/data/"+config.StageDirName+"/"+slot+"/guide", st.ContainerPath)

	data, err := os.ReadFile(filepath.Join(st.HostPath, "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "# A", string(data))

	// staging again replaces the previous entry
	_, err = Stage(src, bind, "")
	require.NoError(t, err)
}

func TestStage_MissingSource(t *testing.T) {
	_, err := Stage(filepath.Join(t.TempDir(), "nope"), BindMap{Host: t.TempDir(), Container: "/data"}, "")
	assert.ErrorIs(t, err, knowledgeModel.ErrPathNotFound)
}

func TestCopyPath(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("b"), 0o644))

	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, copyPath(src, dst))
	data, err := os.ReadFile(filepath.Join(dst, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))

	single := filepath.Join(t.TempDir(), "one.txt")
	require.NoError(t, copyPath(filepath.Join(src, "sub", "b.txt"), single))
	data, err = os.ReadFile(single)
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
}

func TestManager(t *testing.T) {
	_, err := NewManager(config.IngestSettings{}, "broken", false)
	assert.True(t, knowledgeModel.IsConfigError(err))

	_, err = NewManager(config.IngestSettings{}, "", true)
	assert.True(t, knowledgeModel.IsConfigError(err))

	// no mapping leaves specs untouched
	m, err := NewManager(config.IngestSettings{}, "", false)
	require.NoError(t, err)
	in := []knowledgeModel.SourceSpec{knowledgeModel.LocalPath{Path: "/x"}}
	out, staged, err := m.Prepare(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Empty(t, staged)
}

func TestManager_StagesLocalSources(t *testing.T) {
	host := t.TempDir()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.md"), []byte("a"), 0o644))

	m, err := NewManager(config.IngestSettings{}, host+":/data", true)
	require.NoError(t, err)

	specs := []knowledgeModel.SourceSpec{
		knowledgeModel.LocalPath{Path: src},
		knowledgeModel.WebURL{URL: "https://example.com"},
	}
	out, staged, err := m.Prepare(specs)
	require.NoError(t, err)
	require.Len(t, staged, 1)

	local := out[0].(knowledgeModel.LocalPath)
	assert.Equal(t, staged[0].HostPath, local.Path)
	assert.Equal(t, src, local.Root)
	assert.Equal(t, specs[1], out[1])
}

func TestManager_SameBaseNameStagesSeparately(t *testing.T) {
	host := t.TempDir()
	parent := t.TempDir()
	a := filepath.Join(parent, "a", "docs")
	b := filepath.Join(parent, "b", "docs")
	require.NoError(t, os.MkdirAll(a, 0o755))
	require.NoError(t, os.MkdirAll(b, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(a, "x.md"), []byte("from A"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(b, "x.md"), []byte("from B"), 0o644))

	m, err := NewManager(config.IngestSettings{}, host+":/data", true)
	require.NoError(t, err)
	out, staged, err := m.Prepare([]knowledgeModel.SourceSpec{
		knowledgeModel.LocalPath{Path: a},
		knowledgeModel.LocalPath{Path: b},
	})
	require.NoError(t, err)
	require.Len(t, staged, 2)
	assert.NotEqual(t, staged[0].HostPath, staged[1].HostPath)
	assert.Equal(t, "docs", filepath.Base(staged[0].HostPath))

	for i, want := range []string{"from A", "from B"} {
		data, err := os.ReadFile(filepath.Join(out[i].(knowledgeModel.LocalPath).Path, "x.md"))
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}
}

func TestManager_ReadViaContainerRewrites(t *testing.T) {
	m, err := NewManager(config.IngestSettings{BindMap: "/host:/data", ReadViaContainer: true}, "", false)
	require.NoError(t, err)

	out, _, err := m.Prepare([]knowledgeModel.SourceSpec{
		knowledgeModel.PDFPath{Path: "/host/papers/x.pdf"},
		knowledgeModel.TXTPath{Path: "/other/y.txt"},
	})
	require.NoError(t, err)
	assert.Equal(t, knowledgeModel.PDFPath{Path: "/data/papers/x.pdf"}, out[0])
	assert.Equal(t, knowledgeModel.TXTPath{Path: "/other/y.txt"}, out[1])
}
