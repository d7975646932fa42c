package ingest

import (
	"context"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/rag/docmap"
)

// Scan reads a source and returns its DocMap without chunking or embedding.
func Scan(ctx context.Context, reader SourceReader, spec knowledgeModel.SourceSpec) (knowledgeModel.DocMap, error) {
	batch, err := reader.Open(ctx, spec)
	if err != nil {
		return knowledgeModel.DocMap{}, err
	}
	builder := docmap.NewBuilder(batch.Origin)
	for doc, err := range batch.Docs {
		if err != nil {
			return knowledgeModel.DocMap{}, err
		}
		builder.Add(doc)
	}
	return builder.DocMap(), nil
}
