// Package storetest holds behaviour checks every vectorDB.Store backend must pass.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/rag/vectorDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(key string, ordinal int, text string, vec []float32, at time.Time) knowledgeModel.Chunk {
	return knowledgeModel.Chunk{
		ChunkID:     fmt.Sprintf("%s-%d", key, ordinal),
		SourceRef:   "src",
		SourceKey:   key,
		SourcePath:  key + ".md",
		Ordinal:     ordinal,
		Text:        text,
		ContentHash: "h-" + text,
		Embedding:   vec,
		UpsertedAt:  at,
	}
}

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) vectorDB.Store) {
	ctx := context.Background()
	coll := knowledgeModel.Collection{Name: "docs", EmbeddingDim: 2, ProviderID: "mock:2"}
	t0 := time.Unix(1_700_000_000, 0)

	t.Run("unknown collection is empty", func(t *testing.T) {
		s := newStore(t)
		res, err := s.Query(ctx, "ghost", []float32{1, 0}, 3, 0)
		require.NoError(t, err)
		assert.Empty(t, res)

		stats, err := s.Stats(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, stats.Exists)
	})

	t.Run("k must be positive", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Query(ctx, "docs", []float32{1, 0}, 0, 0)
		assert.True(t, knowledgeModel.IsConfigError(err))
	})

	t.Run("dimension is fixed at creation", func(t *testing.T) {
		s := newStore(t)
		_, err := s.EnsureCollection(ctx, coll)
		require.NoError(t, err)

		got, err := s.EnsureCollection(ctx, coll)
		require.NoError(t, err)
		assert.Equal(t, coll, got)

		_, err = s.EnsureCollection(ctx, knowledgeModel.Collection{Name: "docs", EmbeddingDim: 3, ProviderID: "other"})
		assert.ErrorIs(t, err, knowledgeModel.ErrDimensionMismatch)

		err = s.Upsert(ctx, "docs", []knowledgeModel.Chunk{chunk("a", 0, "x", []float32{1, 2, 3}, t0)})
		assert.ErrorIs(t, err, knowledgeModel.ErrDimensionMismatch)
	})

	t.Run("upsert is idempotent and overwrites by id", func(t *testing.T) {
		s := newStore(t)
		_, err := s.EnsureCollection(ctx, coll)
		require.NoError(t, err)

		c := chunk("a", 0, "first", []float32{1, 0}, t0)
		require.NoError(t, s.Upsert(ctx, "docs", []knowledgeModel.Chunk{c}))
		require.NoError(t, s.Upsert(ctx, "docs", []knowledgeModel.Chunk{c}))

		stats, err := s.Stats(ctx, "docs")
		require.NoError(t, err)
		assert.EqualValues(t, 1, stats.PointsCount)
		assert.Equal(t, 2, stats.EmbeddingDim)
		assert.Equal(t, "mock:2", stats.ProviderID)

		c.Text = "second"
		c.ContentHash = "h-second"
		require.NoError(t, s.Upsert(ctx, "docs", []knowledgeModel.Chunk{c}))
		res, err := s.Query(ctx, "docs", []float32{1, 0}, 5, 0)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "second", res[0].Text)

		hashes, err := s.ChunkHashes(ctx, "docs", "a")
		require.NoError(t, err)
		assert.Equal(t, map[int]string{0: "h-second"}, hashes)
	})

	t.Run("query filters, orders and limits", func(t *testing.T) {
		s := newStore(t)
		_, err := s.EnsureCollection(ctx, coll)
		require.NoError(t, err)
		require.NoError(t, s.Upsert(ctx, "docs", []knowledgeModel.Chunk{
			chunk("a", 0, "exact", []float32{1, 0}, t0),
			chunk("a", 1, "close", []float32{1, 1}, t0),
			chunk("a", 2, "opposite", []float32{-1, 0}, t0),
			chunk("a", 3, "orthogonal", []float32{0, 1}, t0),
		}))

		res, err := s.Query(ctx, "docs", []float32{1, 0}, 10, 0.5)
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, "exact", res[0].Text)
		assert.Equal(t, "close", res[1].Text)
		for _, r := range res {
			assert.GreaterOrEqual(t, r.Score, 0.5)
			assert.LessOrEqual(t, r.Score, 1.0)
		}

		res, err = s.Query(ctx, "docs", []float32{1, 0}, 1, 0)
		require.NoError(t, err)
		assert.Len(t, res, 1)
	})

	t.Run("ties go to the most recent upsert", func(t *testing.T) {
		s := newStore(t)
		_, err := s.EnsureCollection(ctx, coll)
		require.NoError(t, err)
		require.NoError(t, s.Upsert(ctx, "docs", []knowledgeModel.Chunk{
			chunk("old", 0, "older", []float32{1, 0}, t0),
			chunk("new", 0, "newer", []float32{2, 0}, t0.Add(time.Minute)),
		}))

		res, err := s.Query(ctx, "docs", []float32{1, 0}, 1, 0)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "newer", res[0].Text)
	})

	t.Run("prune and drop", func(t *testing.T) {
		s := newStore(t)
		_, err := s.EnsureCollection(ctx, coll)
		require.NoError(t, err)
		var chunks []knowledgeModel.Chunk
		for i := 0; i < 4; i++ {
			chunks = append(chunks, chunk("a", i, fmt.Sprint(i), []float32{1, float32(i)}, t0))
		}
		chunks = append(chunks, chunk("b", 3, "b3", []float32{0, 1}, t0))
		require.NoError(t, s.Upsert(ctx, "docs", chunks))

		n, err := s.Prune(ctx, "docs", "a", 2)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		hashes, err := s.ChunkHashes(ctx, "docs", "a")
		require.NoError(t, err)
		assert.Len(t, hashes, 2)
		hashes, err = s.ChunkHashes(ctx, "docs", "b")
		require.NoError(t, err)
		assert.Len(t, hashes, 1)

		dropped, err := s.Drop(ctx, "docs")
		require.NoError(t, err)
		assert.True(t, dropped)
		_, found, err := s.GetCollection(ctx, "docs")
		require.NoError(t, err)
		assert.False(t, found)

		dropped, err = s.Drop(ctx, "docs")
		require.NoError(t, err)
		assert.False(t, dropped)
	})
}
