package knowledgeModel

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/akolanti/knowledgecore/internal/config"
)

// IngestItem is one entry of an items list: inline content, a local path or a url.
type IngestItem struct {
	Source  string `json:"source,omitempty"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content,omitempty"`
	Path    string `json:"path,omitempty"`
	URL     string `json:"url,omitempty"`
}

// IngestRequest is the resolved form of an ingest call. Defaults are applied
// before it reaches the pipeline, and it is stored as-is in queued jobs.
type IngestRequest struct {
	Source        SourceKind   `json:"source"`
	Collection    string       `json:"collection"`
	ChunkSize     int          `json:"chunk_size"`
	ChunkOverlap  int          `json:"chunk_overlap"`
	IncludeExt    []string     `json:"include_ext,omitempty"`
	ExcludeExt    []string     `json:"exclude_ext,omitempty"`
	GithubURL     string       `json:"github_url,omitempty"`
	LocalPath     string       `json:"local_path,omitempty"`
	URL           string       `json:"url,omitempty"`
	Items         []IngestItem `json:"items,omitempty"`
	BindMap       string       `json:"bind_map,omitempty"`
	StageIntoBind bool         `json:"stage_into_bind,omitempty"`
}

type SourceFailure struct {
	Source  string `json:"source"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type IngestStats struct {
	Collection     string `json:"collection"`
	Provider       string `json:"provider"`
	SourcesTotal   int    `json:"sources_total"`
	SourcesFailed  int    `json:"sources_failed"`
	Files          int    `json:"files"`
	ChunksTotal    int    `json:"chunks_total"`
	ChunksEmbedded int    `json:"chunks_embedded"`
	ChunksSkipped  int    `json:"chunks_skipped"`
	ChunksPruned   int    `json:"chunks_pruned"`
	PointsCount    uint64 `json:"points_count"`
	DurationMs     int64  `json:"duration_ms"`
	StagedHostPath string `json:"staged_host_path,omitempty"`
	StagedPath     string `json:"staged_container_path,omitempty"`
}

type IngestResult struct {
	Indexed []string        `json:"indexed"`
	Errors  []SourceFailure `json:"errors"`
	Stats   IngestStats     `json:"post_stats"`
	DocMaps []DocMap        `json:"docmaps,omitempty"`
}

type AnalyzeRequest struct {
	GithubURL  string   `json:"github_url,omitempty"`
	LocalPath  string   `json:"local_path,omitempty"`
	IncludeExt []string `json:"include_ext,omitempty"`
	ExcludeExt []string `json:"exclude_ext,omitempty"`
}

// DocMapStore keeps the history of manifests per source root.
type DocMapStore interface {
	SaveDocMap(ctx context.Context, docMap DocMap) error
	LatestDocMap(ctx context.Context, root string) (DocMap, bool)
}

var unsafeTenantChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func SanitizeTenant(raw string) string {
	return unsafeTenantChars.ReplaceAllString(strings.TrimSpace(raw), "")
}

// QualifiedCollection returns the physical collection name for a tenant.
func QualifiedCollection(tenant, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = config.DefaultCollection
	}
	name = unsafeTenantChars.ReplaceAllString(name, "-")
	if t := SanitizeTenant(tenant); t != "" {
		name = t + config.TenantSeparator + name
	}
	for len(name) < config.MinCollectionNameLength {
		name += "_"
	}
	if len(name) > config.MaxCollectionNameLength {
		return "", NewConfigError("collection", "name longer than 512 characters")
	}
	return name, nil
}

// NormalizeExts lowercases extensions and adds the leading dot.
func NormalizeExts(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func SplitExtList(s string) []string {
	return NormalizeExts(strings.Split(s, ","))
}

// UnmarshalJSON lets an items entry be a bare string of inline content.
func (i *IngestItem) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*i = IngestItem{Source: string(KindInline), Content: text}
		return nil
	}
	type plain IngestItem
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = IngestItem(p)
	return nil
}
