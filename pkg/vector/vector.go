// Package vector defines the vector-index boundary: embedding generation
// and chunk storage with similarity search.
package vector

import (
	"context"

	"atlas/pkg/model"
)

// Embedder turns texts into embedding vectors, one vector per input in
// input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider is the chunk index: it stores chunk content with embeddings and
// serves similarity search over it. Search and FetchChunks make a Provider
// usable as the search layer's vector backend.
type Provider interface {
	AddChunks(ctx context.Context, chunks []model.Chunk) error
	AllChunks(ctx context.Context) ([]model.Chunk, error)
	Search(ctx context.Context, query string, limit int) ([]model.ChunkHit, error)
	FetchChunks(ctx context.Context, chunkIDs []string) ([]model.ChunkHit, error)
	Clear(ctx context.Context) error
}
