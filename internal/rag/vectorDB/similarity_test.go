package vectorDB

import (
	"testing"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 1}))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, ClampScore(-0.3))
	assert.Equal(t, 1.0, ClampScore(1.0000001))
	assert.Equal(t, 0.4, ClampScore(0.4))
}

func TestEncodeDecode(t *testing.T) {
	v := []float32{0.25, -1, 3.5}
	got, err := DecodeVector(EncodeVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = DecodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestRank(t *testing.T) {
	hit := func(text string, score float64, at int64) Scored {
		return Scored{Result: knowledgeModel.QueryResult{Text: text, Score: score}, UpsertedAt: at}
	}
	out := Rank([]Scored{
		hit("low", 0.1, 5),
		hit("tie-old", 0.8, 1),
		hit("tie-new", 0.8, 2),
		hit("top", 0.9, 0),
	}, 3, 0.2)

	require.Len(t, out, 3)
	assert.Equal(t, []string{"top", "tie-new", "tie-old"}, []string{out[0].Text, out[1].Text, out[2].Text})
}
