package vectorDB

import (
	"context"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
)

// Store persists chunk vectors under named collections.
//
// Upsert is last-write-wins per chunk id. Query returns at most k results with
// score >= threshold, ordered by score and then by upsert recency. An unknown
// collection queries as empty.
type Store interface {
	// EnsureCollection creates c when missing. An existing collection with a
	// different dimension fails with ErrDimensionMismatch.
	EnsureCollection(ctx context.Context, c knowledgeModel.Collection) (knowledgeModel.Collection, error)
	GetCollection(ctx context.Context, name string) (knowledgeModel.Collection, bool, error)

	Upsert(ctx context.Context, collection string, chunks []knowledgeModel.Chunk) error
	Query(ctx context.Context, collection string, vector []float32, k int, threshold float64) ([]knowledgeModel.QueryResult, error)

	// ChunkHashes returns ordinal -> content hash for every stored chunk of a document.
	ChunkHashes(ctx context.Context, collection, sourceKey string) (map[int]string, error)
	// Prune removes a document's chunks with ordinal >= fromOrdinal.
	Prune(ctx context.Context, collection, sourceKey string, fromOrdinal int) (int, error)

	Stats(ctx context.Context, collection string) (knowledgeModel.CollectionStats, error)
	Drop(ctx context.Context, collection string) (bool, error)
	Close() error
}
