package vectorDB

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
)

// Cosine returns the cosine similarity of a and b, 0 when either is a zero
// vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ClampScore maps a similarity onto [0,1].
func ClampScore(s float64) float64 {
	switch {
	case math.IsNaN(s) || s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}

// Scored is a candidate hit before it is cut down to k.
type Scored struct {
	Result     knowledgeModel.QueryResult
	UpsertedAt int64
}

// Rank filters by threshold, orders by score desc then recency desc, and keeps k.
func Rank(hits []Scored, k int, threshold float64) []knowledgeModel.QueryResult {
	kept := hits[:0]
	for _, h := range hits {
		if h.Result.Score >= threshold {
			kept = append(kept, h)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Result.Score != kept[j].Result.Score {
			return kept[i].Result.Score > kept[j].Result.Score
		}
		return kept[i].UpsertedAt > kept[j].UpsertedAt
	})
	if len(kept) > k {
		kept = kept[:k]
	}
	out := make([]knowledgeModel.QueryResult, len(kept))
	for i, h := range kept {
		out[i] = h.Result
	}
	return out
}

// ValidateQuery rejects k <= 0.
func ValidateQuery(k int) error {
	if k <= 0 {
		return knowledgeModel.NewConfigError("k", fmt.Sprintf("must be positive, got %d", k))
	}
	return nil
}

// CheckDimension compares a requested collection against the stored one. A
// mismatch is a configuration error wrapping ErrDimensionMismatch.
func CheckDimension(existing, wanted knowledgeModel.Collection) error {
	if wanted.EmbeddingDim > 0 && existing.EmbeddingDim != wanted.EmbeddingDim {
		return &knowledgeModel.ConfigurationError{
			Field: "collection",
			Reason: fmt.Sprintf("%q stores %d-dim vectors, provider %q produces %d",
				existing.Name, existing.EmbeddingDim, wanted.ProviderID, wanted.EmbeddingDim),
			Err: knowledgeModel.ErrDimensionMismatch,
		}
	}
	return nil
}

// ChunkMetadata is the payload stored next to every vector.
func ChunkMetadata(collection string, c knowledgeModel.Chunk) map[string]any {
	return map[string]any{
		knowledgeModel.MetaCollection:  collection,
		knowledgeModel.MetaChunkID:     c.ChunkID,
		knowledgeModel.MetaSourceRef:   c.SourceRef,
		knowledgeModel.MetaSourceKey:   c.SourceKey,
		knowledgeModel.MetaSourcePath:  c.SourcePath,
		knowledgeModel.MetaOrdinal:     c.Ordinal,
		knowledgeModel.MetaContentHash: c.ContentHash,
		knowledgeModel.MetaTitle:       c.Title,
		knowledgeModel.MetaUpsertedAt:  UpsertStamp(c),
	}
}

// UpsertStamp is the chunk's upsert time in unix nanoseconds, now when unset.
func UpsertStamp(c knowledgeModel.Chunk) int64 {
	if c.UpsertedAt.IsZero() {
		return time.Now().UnixNano()
	}
	return c.UpsertedAt.UnixNano()
}

// EncodeVector packs v as little-endian float32s.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
