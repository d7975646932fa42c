// Package localEmbedding is an offline provider that hashes word features
// into a fixed number of buckets. It needs no network and is deterministic,
// which makes it the provider of choice for tests and air-gapped runs.
package localEmbedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/rag/embedding"
)

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with",
		"as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these", "those", "from",
		"into", "about", "so", "such", "than", "too", "very", "can", "will", "just", "do", "does", "did",
		"how", "what", "why", "when", "where", "which", "who", "i", "you", "we", "they",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

type client struct {
	dim int
}

func New(dim int) embedding.Provider {
	if dim <= 0 {
		dim = config.LocalEmbeddingDimension
	}
	return &client{dim: dim}
}

func (c *client) ID() string         { return "local:hash-" + strconv.Itoa(c.dim) }
func (c *client) Dimension() int     { return c.dim }
func (c *client) MaxBatch() int      { return 0 }
func (c *client) MaxInputChars() int { return 0 }

func (c *client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = c.vector(text)
	}
	return out, nil
}

func (c *client) vector(text string) []float32 {
	counts := make(map[string]int)
	for _, tok := range tokenize(text) {
		counts[tok]++
	}

	vec := make([]float64, c.dim)
	for tok, n := range counts {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(c.dim))
		// sublinear tf keeps a repeated word from dominating a chunk
		w := 1 + math.Log(float64(n))
		// the top bit picks the sign so collisions partly cancel out
		if sum>>63 == 1 {
			vec[idx] -= w
		} else {
			vec[idx] += w
		}
	}

	// L2 normalize
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	res := make([]float32, c.dim)
	for i, v := range vec {
		if norm > 0 {
			res[i] = float32(v / norm)
		}
	}
	return res
}

// tokenize lowercases, drops stopwords and folds common English suffixes so
// "stores", "stored" and "storing" share a feature.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, isStop := stopwords[tok]; isStop {
			continue
		}
		out = append(out, stem(tok))
	}
	return out
}

func stem(tok string) string {
	for _, suffix := range []string{"ing", "ed", "s"} {
		if strings.HasSuffix(tok, suffix) && len(tok)-len(suffix) >= 3 {
			if suffix == "s" && strings.HasSuffix(tok, "ss") {
				break
			}
			tok = strings.TrimSuffix(tok, suffix)
			break
		}
	}
	if len(tok) > 3 && strings.HasSuffix(tok, "e") {
		tok = strings.TrimSuffix(tok, "e")
	}
	return tok
}
