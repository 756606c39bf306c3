// Package pgx implements the chunk index on PostgreSQL with pgvector.
package pgx

import (
	"context"
	"fmt"

	"atlas/pkg/model"
	"atlas/pkg/vector"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgvector "github.com/pgvector/pgvector-go"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

// Provider stores course chunks with their embeddings and serves
// cosine-distance similarity search.
type Provider struct {
	conn     pgxIConn
	embedder vector.Embedder
	dim      int
}

// NewProviderParams configures a Provider. Dim must match the embedder's
// output dimension; it sizes the vector column.
type NewProviderParams struct {
	Conn     pgxIConn
	Embedder vector.Embedder
	Dim      int
}

// NewProvider creates the chunk index over an existing connection pool and
// ensures its table exists.
func NewProvider(ctx context.Context, params NewProviderParams) (*Provider, error) {
	if params.Dim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}
	p := &Provider{
		conn:     params.Conn,
		embedder: params.Embedder,
		dim:      params.Dim,
	}
	if err := p.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("preparing chunk table: %w", err)
	}
	return p, nil
}

func (p *Provider) ensureSchema(ctx context.Context) error {
	if _, err := p.conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return err
	}
	_, err := p.conn.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS course_chunks (
			chunk_id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			course_title TEXT NOT NULL,
			lesson_number INT,
			chunk_index INT NOT NULL,
			embedding vector(%d) NOT NULL
		)
	`, p.dim))
	return err
}

// AddChunks embeds and upserts a batch of chunks. Re-ingesting a course
// overwrites its chunks in place because chunk ids are stable.
func (p *Provider) AddChunks(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: got %d want %d", len(embeddings), len(chunks))
	}

	for i, chunk := range chunks {
		_, err := p.conn.Exec(ctx, `
			INSERT INTO course_chunks (chunk_id, content, course_title, lesson_number, chunk_index, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (chunk_id) DO UPDATE SET
				content = EXCLUDED.content,
				course_title = EXCLUDED.course_title,
				lesson_number = EXCLUDED.lesson_number,
				chunk_index = EXCLUDED.chunk_index,
				embedding = EXCLUDED.embedding
		`, chunk.ID(), chunk.Content, chunk.CourseTitle, chunk.LessonNumber, chunk.ChunkIndex,
			pgvector.NewVector(embeddings[i]))
		if err != nil {
			return fmt.Errorf("storing chunk %s: %w", chunk.ID(), err)
		}
	}
	return nil
}

// AllChunks returns every stored chunk, for full graph rebuilds.
func (p *Provider) AllChunks(ctx context.Context) ([]model.Chunk, error) {
	rows, err := p.conn.Query(ctx, `
		SELECT content, course_title, lesson_number, chunk_index
		FROM course_chunks
		ORDER BY course_title, chunk_index
	`)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var chunks []model.Chunk
	for rows.Next() {
		var chunk model.Chunk
		if err := rows.Scan(&chunk.Content, &chunk.CourseTitle, &chunk.LessonNumber, &chunk.ChunkIndex); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// Search embeds the query and returns the closest chunks by cosine
// distance, scored as 1 - distance.
func (p *Provider) Search(ctx context.Context, query string, limit int) ([]model.ChunkHit, error) {
	if limit <= 0 {
		return nil, nil
	}

	embeddings, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := p.conn.Query(ctx, `
		SELECT chunk_id, content, course_title, lesson_number,
			1 - (embedding <=> $1) AS score
		FROM course_chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pgvector.NewVector(embeddings[0]), limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	return scanHits(rows)
}

// FetchChunks resolves chunk content by id, preserving the requested order.
func (p *Provider) FetchChunks(ctx context.Context, chunkIDs []string) ([]model.ChunkHit, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}

	rows, err := p.conn.Query(ctx, `
		SELECT chunk_id, content, course_title, lesson_number, 0::float8 AS score
		FROM course_chunks
		WHERE chunk_id = ANY($1)
	`, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("fetching chunks: %w", err)
	}
	defer rows.Close()

	hits, err := scanHits(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.ChunkHit, len(hits))
	for _, hit := range hits {
		byID[hit.ChunkID] = hit
	}
	ordered := make([]model.ChunkHit, 0, len(hits))
	for _, id := range chunkIDs {
		if hit, ok := byID[id]; ok {
			ordered = append(ordered, hit)
		}
	}
	return ordered, nil
}

// Clear removes all stored chunks.
func (p *Provider) Clear(ctx context.Context) error {
	if _, err := p.conn.Exec(ctx, `DELETE FROM course_chunks`); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}
	return nil
}

func scanHits(rows pgxv5.Rows) ([]model.ChunkHit, error) {
	var hits []model.ChunkHit
	for rows.Next() {
		var hit model.ChunkHit
		if err := rows.Scan(&hit.ChunkID, &hit.Content, &hit.CourseTitle, &hit.LessonNumber, &hit.Score); err != nil {
			return nil, fmt.Errorf("scanning chunk hit: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}
