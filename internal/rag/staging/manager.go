package staging

import (
	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
)

// Manager rewrites path-based sources before they are read. It does nothing
// unless a bind mapping is configured.
type Manager struct {
	bind             BindMap
	stage            bool
	stageRoot        string
	readViaContainer bool
}

// NewManager validates the bind mapping up front so a malformed one fails
// the call before any fetch.
func NewManager(settings config.IngestSettings, rawBind string, stage bool) (*Manager, error) {
	if rawBind == "" {
		rawBind = settings.BindMap
	}
	bind, err := ParseBindMap(rawBind)
	if err != nil {
		return nil, err
	}
	if stage && bind.IsZero() {
		return nil, knowledgeModel.NewConfigError("stage_into_bind", "requires bind_map")
	}
	return &Manager{
		bind:             bind,
		stage:            stage,
		stageRoot:        settings.StageRoot,
		readViaContainer: settings.ReadViaContainer,
	}, nil
}

// Prepare returns specs pointing at the location the reader should use.
// Directory specs keep their original path as Root so document keys do not
// change between staged and direct calls.
func (m *Manager) Prepare(specs []knowledgeModel.SourceSpec) ([]knowledgeModel.SourceSpec, []Staged, error) {
	if m.bind.IsZero() {
		return specs, nil, nil
	}

	out := make([]knowledgeModel.SourceSpec, 0, len(specs))
	var staged []Staged
	for _, spec := range specs {
		path, ok := localPath(spec)
		if !ok {
			out = append(out, spec)
			continue
		}

		target := path
		if m.stage {
			st, err := Stage(path, m.bind, m.stageRoot)
			if err != nil {
				// the reader reports the missing path as a per-source failure
				out = append(out, spec)
				continue
			}
			staged = append(staged, st)
			target = st.HostPath
			if m.readViaContainer {
				target = st.ContainerPath
			}
		} else if m.readViaContainer {
			if cp, ok := RewriteForContainer(path, m.bind); ok {
				target = cp
			}
		}
		out = append(out, withPath(spec, target))
	}
	return out, staged, nil
}

func localPath(spec knowledgeModel.SourceSpec) (string, bool) {
	switch s := spec.(type) {
	case knowledgeModel.LocalPath:
		return s.Path, true
	case knowledgeModel.PDFPath:
		return s.Path, true
	case knowledgeModel.TXTPath:
		return s.Path, true
	case knowledgeModel.DOCXPath:
		return s.Path, true
	case knowledgeModel.HTMLDoc:
		return s.Path, s.Path != ""
	}
	return "", false
}

func withPath(spec knowledgeModel.SourceSpec, path string) knowledgeModel.SourceSpec {
	switch s := spec.(type) {
	case knowledgeModel.LocalPath:
		if s.Root == "" {
			s.Root = s.Path
		}
		s.Path = path
		return s
	case knowledgeModel.PDFPath:
		s.Path = path
		return s
	case knowledgeModel.TXTPath:
		s.Path = path
		return s
	case knowledgeModel.DOCXPath:
		s.Path = path
		return s
	case knowledgeModel.HTMLDoc:
		s.Path = path
		return s
	}
	return spec
}
