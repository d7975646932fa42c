package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
)

// Separators ordered from "best" to "worst" for semantic meaning
var separators = []string{"\n\n", "\n", ". ", " "}

// Chunker splits text into overlapping chunks of at most size characters.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, knowledgeModel.NewConfigError("chunk_size", "must be greater than zero")
	}
	if overlap < 0 {
		return nil, knowledgeModel.NewConfigError("chunk_overlap", "must not be negative")
	}
	if overlap >= size {
		return nil, knowledgeModel.NewConfigError("chunk_overlap", "must be smaller than chunk_size")
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split is pure: the same text always gives the same chunks. Concatenating
// chunk[0] with every later chunk minus its first overlap characters gives
// back the input.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= c.size {
		return []string{text}
	}

	// every unit must leave room for the overlap carried into its chunk
	units := splitUnits(text, c.size-c.overlap, separators)

	var chunks []string
	var current strings.Builder
	currentLen := 0
	hasNew := false

	for _, unit := range units {
		unitLen := utf8.RuneCountInString(unit)
		if hasNew && currentLen+unitLen > c.size {
			chunks = append(chunks, current.String())

			tail := lastRunes(current.String(), c.overlap)
			current.Reset()
			current.WriteString(tail)
			currentLen = utf8.RuneCountInString(tail)
			hasNew = false
		}
		current.WriteString(unit)
		currentLen += unitLen
		hasNew = true
	}
	if hasNew {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitUnits cuts text into pieces of at most limit characters, preferring
// the earliest separator in seps and keeping separators attached to the
// piece they end.
func splitUnits(text string, limit int, seps []string) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	for i, sep := range seps {
		if !strings.Contains(text, sep) {
			continue
		}
		var out []string
		for _, piece := range splitKeep(text, sep) {
			out = append(out, splitUnits(piece, limit, seps[i+1:])...)
		}
		return out
	}
	return hardCut(text, limit)
}

func splitKeep(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func hardCut(text string, limit int) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/limit+1)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
