package knowledgeModel

import "time"

// RawDocument is one fetched file or page, before chunking.
type RawDocument struct {
	SourceRef   string // identifier of the source that produced it (url, repo, root path)
	Key         string // stable identity of this document across calls, used to address its chunks
	Path        string // path relative to the source root, or a synthetic name
	Bytes       []byte // exact bytes used for the file content hash
	Text        string // normalised text handed to the chunker
	ContentType string
	SizeBytes   int64
	Title       string
}

// FileManifestEntry describes one distinct source file in a DocMap.
type FileManifestEntry struct {
	Path        string `json:"path"`
	Title       string `json:"title,omitempty"`
	Size        int64  `json:"size"`
	ContentHash string `json:"sha256"`
	MediaType   string `json:"media_type,omitempty"`
}

type DocMap struct {
	Root   string              `json:"repo"`
	Commit string              `json:"commit,omitempty"`
	Files  []FileManifestEntry `json:"files"`
}

type Chunk struct {
	ChunkID     string
	SourceRef   string
	SourceKey   string // RawDocument.Key of the owning document
	SourcePath  string
	Ordinal     int
	Text        string
	ContentHash string
	Title       string
	Embedding   []float32
	UpsertedAt  time.Time
}

// Collection is a dimension-fixed namespace of chunks.
type Collection struct {
	Name         string `json:"name"`
	EmbeddingDim int    `json:"embedding_dim"`
	ProviderID   string `json:"provider"`
}

type QueryResult struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type CollectionStats struct {
	Collection   string `json:"collection"`
	Exists       bool   `json:"exists"`
	PointsCount  uint64 `json:"points_count"`
	EmbeddingDim int    `json:"embedding_dim,omitempty"`
	ProviderID   string `json:"provider,omitempty"`
}

// Origin is what a source adapter learned about the root it read from.
type Origin struct {
	Root   string
	Commit string
}

// metadata keys stored next to every vector
const (
	MetaSourceRef   = "source_ref"
	MetaSourceKey   = "source_key"
	MetaSourcePath  = "source_path"
	MetaOrdinal     = "ordinal"
	MetaContentHash = "content_hash"
	MetaText        = "text"
	MetaTitle       = "title"
	MetaChunkID     = "chunk_id"
	MetaUpsertedAt  = "upserted_at"
	MetaCollection  = "collection"
)
