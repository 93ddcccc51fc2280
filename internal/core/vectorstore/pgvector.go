// Package vectorstore implements the retrieval index on Postgres/pgvector.
// Upsert embeds chunk texts through the configured embedding provider and
// writes rows; Search runs a cosine nearest-neighbor query and re-ranks the
// candidates with MMR.
package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/docqa/server/internal/core"
)

type PgVectorStore struct {
	db       *sql.DB
	embedder core.EmbeddingProvider
}

var _ core.VectorStore = (*PgVectorStore)(nil)

func NewPgVectorStore(db *sql.DB, embedder core.EmbeddingProvider) *PgVectorStore {
	return &PgVectorStore{db: db, embedder: embedder}
}

// Upsert embeds the chunk texts in one batch and inserts them in a single
// transaction. Chunks are append-only rows keyed by fresh UUIDs; a full
// rebuild goes through DeleteAll first.
func (s *PgVectorStore) Upsert(ctx context.Context, chunks []core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vecs, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(chunks))
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_chunks (id, source, start_offset, text, embedding)
		VALUES ($1, $2, $3, $4, $5)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		if _, err := stmt.ExecContext(ctx,
			uuid.New(), ch.Source, ch.StartOffset, ch.Text, pgvector.NewVector(vecs[i]),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	return tx.Commit()
}

// DeleteAll clears the whole collection so an ingestion run rebuilds the
// index from scratch.
func (s *PgVectorStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE document_chunks`)
	return err
}

func (s *PgVectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM document_chunks`).Scan(&n)
	return n, err
}

// Search embeds the query, pulls the fetchK nearest chunks by cosine distance
// and picks k of them by maximal marginal relevance.
func (s *PgVectorStore) Search(ctx context.Context, query string, k, fetchK int, lambda float64) ([]core.ScoredChunk, error) {
	if k <= 0 || fetchK < k {
		return nil, errors.New("invalid k/fetchK")
	}
	vecs, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, errors.New("embedder returned no vector for query")
	}
	queryVec := vecs[0]

	const q = `
		SELECT source, start_offset, text, embedding, 1 - (embedding <=> $1) AS score
		FROM document_chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, q, pgvector.NewVector(queryVec), fetchK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		cands []core.ScoredChunk
		embs  [][]float32
	)
	for rows.Next() {
		var (
			sc  core.ScoredChunk
			emb pgvector.Vector
		)
		if err := rows.Scan(&sc.Source, &sc.StartOffset, &sc.Text, &emb, &sc.Score); err != nil {
			return nil, err
		}
		cands = append(cands, sc)
		embs = append(embs, emb.Slice())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	picked := maximalMarginalRelevance(queryVec, embs, lambda, k)
	out := make([]core.ScoredChunk, 0, len(picked))
	for _, idx := range picked {
		out = append(out, cands[idx])
	}
	return out, nil
}
