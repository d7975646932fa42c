// Package sqliteDB stores collections in a single SQLite file. Similarity is
// computed by brute force over the collection's vectors, which is fine for
// the workshop-sized corpora it is meant for.
package sqliteDB

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/rag/vectorDB"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
    name          TEXT PRIMARY KEY,
    embedding_dim INTEGER NOT NULL,
    provider_id   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
    collection   TEXT NOT NULL,
    chunk_id     TEXT NOT NULL,
    source_ref   TEXT NOT NULL,
    source_key   TEXT NOT NULL,
    source_path  TEXT NOT NULL,
    ordinal      INTEGER NOT NULL,
    title        TEXT,
    content      TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    embedding    BLOB NOT NULL,
    upserted_at  INTEGER NOT NULL,
    PRIMARY KEY (collection, chunk_id)
);
CREATE INDEX IF NOT EXISTS chunks_by_source ON chunks(collection, source_key, ordinal);
`

type Store struct {
	db     *sql.DB
	logger *logger_i.Logger
}

// Open opens (or creates) the database at path. ":memory:" is accepted.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer keeps upserts serialised per key
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	s := &Store{db: db, logger: logger_i.NewLogger("sqlite_vector")}
	s.logger.Info("SQLite vector store ready", "path", path)
	return s, nil
}

// EnsureCollection inserts the collection if missing, then checks whatever
// row won against the requested dimension.
func (s *Store) EnsureCollection(ctx context.Context, c knowledgeModel.Collection) (knowledgeModel.Collection, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections(name, embedding_dim, provider_id) VALUES(?, ?, ?) ON CONFLICT(name) DO NOTHING`,
		c.Name, c.EmbeddingDim, c.ProviderID)
	if err != nil {
		return c, fmt.Errorf("create collection %s: %w", c.Name, err)
	}
	existing, found, err := s.GetCollection(ctx, c.Name)
	if err != nil {
		return c, err
	}
	if !found {
		return c, fmt.Errorf("%w: %s", knowledgeModel.ErrCollectionNotFound, c.Name)
	}
	return existing, vectorDB.CheckDimension(existing, c)
}

func (s *Store) GetCollection(ctx context.Context, name string) (knowledgeModel.Collection, bool, error) {
	c := knowledgeModel.Collection{Name: name}
	err := s.db.QueryRowContext(ctx,
		`SELECT embedding_dim, provider_id FROM collections WHERE name = ?`, name).
		Scan(&c.EmbeddingDim, &c.ProviderID)
	if errors.Is(err, sql.ErrNoRows) {
		return c, false, nil
	}
	if err != nil {
		return c, false, err
	}
	return c, true, nil
}

func (s *Store) Upsert(ctx context.Context, collection string, chunks []knowledgeModel.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	meta, found, err := s.GetCollection(ctx, collection)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", knowledgeModel.ErrCollectionNotFound, collection)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks(collection, chunk_id, source_ref, source_key, source_path, ordinal, title, content, content_hash, embedding, upserted_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(collection, chunk_id) DO UPDATE SET
    source_ref = excluded.source_ref,
    source_key = excluded.source_key,
    source_path = excluded.source_path,
    ordinal = excluded.ordinal,
    title = excluded.title,
    content = excluded.content,
    content_hash = excluded.content_hash,
    embedding = excluded.embedding,
    upserted_at = excluded.upserted_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		if len(c.Embedding) != meta.EmbeddingDim {
			return fmt.Errorf("chunk %s has %d values, collection %s wants %d: %w",
				c.ChunkID, len(c.Embedding), collection, meta.EmbeddingDim, knowledgeModel.ErrDimensionMismatch)
		}
		if _, err := stmt.ExecContext(ctx, collection, c.ChunkID, c.SourceRef, c.SourceKey, c.SourcePath,
			c.Ordinal, c.Title, c.Text, c.ContentHash, vectorDB.EncodeVector(c.Embedding), vectorDB.UpsertStamp(c)); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", c.ChunkID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Query(ctx context.Context, collection string, vector []float32, k int, threshold float64) ([]knowledgeModel.QueryResult, error) {
	if err := vectorDB.ValidateQuery(k); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT chunk_id, source_ref, source_key, source_path, ordinal, title, content, content_hash, embedding, upserted_at
FROM chunks WHERE collection = ?`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []vectorDB.Scored
	for rows.Next() {
		var (
			c        knowledgeModel.Chunk
			title    sql.NullString
			blob     []byte
			upserted int64
		)
		if err := rows.Scan(&c.ChunkID, &c.SourceRef, &c.SourceKey, &c.SourcePath, &c.Ordinal,
			&title, &c.Text, &c.ContentHash, &blob, &upserted); err != nil {
			return nil, err
		}
		c.Title = title.String
		vec, err := vectorDB.DecodeVector(blob)
		if err != nil {
			s.logger.Warn("Skipping corrupt vector", "chunk", c.ChunkID, "error", err)
			continue
		}
		meta := vectorDB.ChunkMetadata(collection, c)
		meta[knowledgeModel.MetaUpsertedAt] = upserted
		hits = append(hits, vectorDB.Scored{
			Result: knowledgeModel.QueryResult{
				Text:     c.Text,
				Score:    vectorDB.ClampScore(vectorDB.Cosine(vector, vec)),
				Metadata: meta,
			},
			UpsertedAt: upserted,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vectorDB.Rank(hits, k, threshold), nil
}

func (s *Store) ChunkHashes(ctx context.Context, collection, sourceKey string) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ordinal, content_hash FROM chunks WHERE collection = ? AND source_key = ?`, collection, sourceKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var (
			ordinal int
			hash    string
		)
		if err := rows.Scan(&ordinal, &hash); err != nil {
			return nil, err
		}
		out[ordinal] = hash
	}
	return out, rows.Err()
}

func (s *Store) Prune(ctx context.Context, collection, sourceKey string, fromOrdinal int) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE collection = ? AND source_key = ? AND ordinal >= ?`, collection, sourceKey, fromOrdinal)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) Stats(ctx context.Context, collection string) (knowledgeModel.CollectionStats, error) {
	stats := knowledgeModel.CollectionStats{Collection: collection}
	meta, found, err := s.GetCollection(ctx, collection)
	if err != nil || !found {
		return stats, err
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE collection = ?`, collection).Scan(&count); err != nil {
		return stats, err
	}
	stats.Exists = true
	stats.PointsCount = uint64(count)
	stats.EmbeddingDim = meta.EmbeddingDim
	stats.ProviderID = meta.ProviderID
	return stats, nil
}

func (s *Store) Drop(ctx context.Context, collection string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, collection); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, collection)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, tx.Commit()
}

func (s *Store) Close() error {
	return s.db.Close()
}
