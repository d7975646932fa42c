package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
)

// Plan turns a resolved ingest request into source specs. Missing fields for
// the chosen source are configuration errors.
func Plan(req knowledgeModel.IngestRequest) ([]knowledgeModel.SourceSpec, error) {
	filter := knowledgeModel.ExtFilter{
		Include: knowledgeModel.NormalizeExts(req.IncludeExt),
		Exclude: knowledgeModel.NormalizeExts(req.ExcludeExt),
	}

	var specs []knowledgeModel.SourceSpec
	switch req.Source {
	case knowledgeModel.KindGit:
		if strings.TrimSpace(req.GithubURL) == "" {
			return nil, knowledgeModel.NewConfigError("github_url", "required when source is github")
		}
		specs = append(specs, knowledgeModel.GitURL{URL: strings.TrimSpace(req.GithubURL), Filter: filter})
	case knowledgeModel.KindLocal:
		if req.LocalPath != "" {
			specs = append(specs, knowledgeModel.LocalPath{Path: req.LocalPath, Filter: filter})
		}
	case knowledgeModel.KindWeb:
		if req.URL != "" {
			specs = append(specs, knowledgeModel.WebURL{URL: req.URL})
		}
	case knowledgeModel.KindInline, knowledgeModel.KindPDF, knowledgeModel.KindTXT,
		knowledgeModel.KindHTML, knowledgeModel.KindDOCX, "":
	default:
		return nil, knowledgeModel.NewConfigError("source", fmt.Sprintf("unknown source %q", req.Source))
	}

	names := make(map[string]int)
	for i, item := range req.Items {
		kind := knowledgeModel.SourceKind(strings.ToLower(strings.TrimSpace(item.Source)))
		if kind == "" {
			kind = req.Source
		}
		spec, err := planItem(item, kind, filter, names)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		specs = append(specs, spec)
	}

	if len(specs) == 0 {
		return nil, knowledgeModel.NewConfigError("source", fmt.Sprintf("nothing to ingest for source %q", req.Source))
	}
	return specs, nil
}

// planItem plans one item. names tracks the inline document names already
// taken in this request; a repeated name gets a -2, -3... suffix so two
// items never share a document key.
func planItem(item knowledgeModel.IngestItem, kind knowledgeModel.SourceKind, filter knowledgeModel.ExtFilter, names map[string]int) (knowledgeModel.SourceSpec, error) {
	switch {
	case item.Content != "":
		if kind == knowledgeModel.KindHTML {
			name := SafeFilename(item.Name, "page.html")
			ext := filepath.Ext(name)
			doc := uniqueName(strings.TrimSuffix(name, ext)+".md", names)
			return knowledgeModel.HTMLDoc{Name: strings.TrimSuffix(doc, ".md") + ext, Content: item.Content}, nil
		}
		return knowledgeModel.InlineText{Name: uniqueName(InlineName(item.Name), names), Text: item.Content}, nil
	case item.URL != "":
		return knowledgeModel.WebURL{URL: item.URL}, nil
	case item.Path != "":
		return pathSpec(item.Path, kind, filter), nil
	}
	return nil, knowledgeModel.NewConfigError("items", "each item needs content, path or url")
}

// InlineName is the document name an inline snippet is stored under.
func InlineName(name string) string {
	name = SafeFilename(name, "snippet.md")
	if !strings.HasSuffix(strings.ToLower(name), ".md") {
		name += ".md"
	}
	return name
}

func uniqueName(name string, taken map[string]int) string {
	taken[name]++
	if taken[name] == 1 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := taken[name]; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
		if taken[candidate] == 0 {
			taken[candidate]++
			return candidate
		}
	}
}

func pathSpec(path string, kind knowledgeModel.SourceKind, filter knowledgeModel.ExtFilter) knowledgeModel.SourceSpec {
	switch kind {
	case knowledgeModel.KindPDF:
		return knowledgeModel.PDFPath{Path: path}
	case knowledgeModel.KindTXT:
		return knowledgeModel.TXTPath{Path: path}
	case knowledgeModel.KindHTML:
		return knowledgeModel.HTMLDoc{Path: path}
	case knowledgeModel.KindDOCX:
		return knowledgeModel.DOCXPath{Path: path}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return knowledgeModel.PDFPath{Path: path}
	case ".txt":
		return knowledgeModel.TXTPath{Path: path}
	case ".html", ".htm":
		return knowledgeModel.HTMLDoc{Path: path}
	case ".docx":
		return knowledgeModel.DOCXPath{Path: path}
	}
	return knowledgeModel.LocalPath{Path: path, Filter: filter}
}
