// Package docmap builds the manifest of files discovered under one source root.
package docmap

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
)

// Entry describes one raw document. The hash covers the exact file bytes.
func Entry(doc knowledgeModel.RawDocument) knowledgeModel.FileManifestEntry {
	data := doc.Bytes
	if data == nil {
		data = []byte(doc.Text)
	}
	sum := sha256.Sum256(data)
	return knowledgeModel.FileManifestEntry{
		Path:        doc.Path,
		Title:       doc.Title,
		Size:        doc.SizeBytes,
		ContentHash: hex.EncodeToString(sum[:]),
		MediaType:   doc.ContentType,
	}
}

// Build keeps entries in discovery order and drops repeated paths.
func Build(origin knowledgeModel.Origin, entries []knowledgeModel.FileManifestEntry) knowledgeModel.DocMap {
	seen := make(map[string]struct{}, len(entries))
	files := make([]knowledgeModel.FileManifestEntry, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.Path]; dup {
			continue
		}
		seen[e.Path] = struct{}{}
		files = append(files, e)
	}
	return knowledgeModel.DocMap{Root: origin.Root, Commit: origin.Commit, Files: files}
}

// Builder accumulates entries while a source is being read.
type Builder struct {
	origin  knowledgeModel.Origin
	entries []knowledgeModel.FileManifestEntry
}

func NewBuilder(origin knowledgeModel.Origin) *Builder {
	return &Builder{origin: origin}
}

// Add records doc and returns its entry.
func (b *Builder) Add(doc knowledgeModel.RawDocument) knowledgeModel.FileManifestEntry {
	e := Entry(doc)
	b.entries = append(b.entries, e)
	return e
}

func (b *Builder) Len() int { return len(b.entries) }

func (b *Builder) DocMap() knowledgeModel.DocMap {
	return Build(b.origin, b.entries)
}

func Marshal(dm knowledgeModel.DocMap) ([]byte, error) {
	return json.Marshal(dm)
}

func Unmarshal(data []byte) (knowledgeModel.DocMap, error) {
	var dm knowledgeModel.DocMap
	if err := json.Unmarshal(data, &dm); err != nil {
		return knowledgeModel.DocMap{}, fmt.Errorf("decode docmap: %w", err)
	}
	if dm.Files == nil {
		dm.Files = []knowledgeModel.FileManifestEntry{}
	}
	return dm, nil
}
