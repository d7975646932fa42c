// Package memoryDB keeps collections in process memory. It backs tests and
// the CLI when no vector service is configured.
package memoryDB

import (
	"context"
	"fmt"
	"sync"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/rag/vectorDB"
)

type point struct {
	chunk    knowledgeModel.Chunk
	vector   []float32
	upserted int64
}

type collection struct {
	meta   knowledgeModel.Collection
	points map[string]point
}

type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) EnsureCollection(_ context.Context, c knowledgeModel.Collection) (knowledgeModel.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.collections[c.Name]; ok {
		if err := vectorDB.CheckDimension(existing.meta, c); err != nil {
			return existing.meta, err
		}
		return existing.meta, nil
	}
	s.collections[c.Name] = &collection{meta: c, points: make(map[string]point)}
	return c, nil
}

func (s *Store) GetCollection(_ context.Context, name string) (knowledgeModel.Collection, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return knowledgeModel.Collection{}, false, nil
	}
	return c.meta, true, nil
}

func (s *Store) Upsert(_ context.Context, name string, chunks []knowledgeModel.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", knowledgeModel.ErrCollectionNotFound, name)
	}
	for _, ch := range chunks {
		if len(ch.Embedding) != c.meta.EmbeddingDim {
			return fmt.Errorf("chunk %s has %d values, collection %s wants %d: %w",
				ch.ChunkID, len(ch.Embedding), name, c.meta.EmbeddingDim, knowledgeModel.ErrDimensionMismatch)
		}
	}
	for _, ch := range chunks {
		vec := make([]float32, len(ch.Embedding))
		copy(vec, ch.Embedding)
		stored := ch
		stored.Embedding = nil
		c.points[ch.ChunkID] = point{chunk: stored, vector: vec, upserted: vectorDB.UpsertStamp(ch)}
	}
	return nil
}

func (s *Store) Query(_ context.Context, name string, vector []float32, k int, threshold float64) ([]knowledgeModel.QueryResult, error) {
	if err := vectorDB.ValidateQuery(k); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	hits := make([]vectorDB.Scored, 0, len(c.points))
	for _, p := range c.points {
		meta := vectorDB.ChunkMetadata(name, p.chunk)
		meta[knowledgeModel.MetaUpsertedAt] = p.upserted
		hits = append(hits, vectorDB.Scored{
			Result: knowledgeModel.QueryResult{
				Text:     p.chunk.Text,
				Score:    vectorDB.ClampScore(vectorDB.Cosine(vector, p.vector)),
				Metadata: meta,
			},
			UpsertedAt: p.upserted,
		})
	}
	return vectorDB.Rank(hits, k, threshold), nil
}

func (s *Store) ChunkHashes(_ context.Context, name, sourceKey string) (map[int]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]string)
	c, ok := s.collections[name]
	if !ok {
		return out, nil
	}
	for _, p := range c.points {
		if p.chunk.SourceKey == sourceKey {
			out[p.chunk.Ordinal] = p.chunk.ContentHash
		}
	}
	return out, nil
}

func (s *Store) Prune(_ context.Context, name, sourceKey string, fromOrdinal int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return 0, nil
	}
	removed := 0
	for id, p := range c.points {
		if p.chunk.SourceKey == sourceKey && p.chunk.Ordinal >= fromOrdinal {
			delete(c.points, id)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) Stats(_ context.Context, name string) (knowledgeModel.CollectionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return knowledgeModel.CollectionStats{Collection: name}, nil
	}
	return knowledgeModel.CollectionStats{
		Collection:   name,
		Exists:       true,
		PointsCount:  uint64(len(c.points)),
		EmbeddingDim: c.meta.EmbeddingDim,
		ProviderID:   c.meta.ProviderID,
	}, nil
}

func (s *Store) Drop(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.collections[name]
	delete(s.collections, name)
	return ok, nil
}

func (s *Store) Close() error { return nil }
