// Package config assembles the typed process configuration from the
// environment. util.LoadEnv must run before Load.
package config

import (
	"atlas/internal/util"
)

// Config is the full configuration surface of the server and worker.
type Config struct {
	Debug bool

	// Graph enhancement knobs. MaxDepth and MaxRelated bound the graph work
	// done per query; there is no other cancellation inside traversal.
	GraphEnabled    bool
	GraphMaxDepth   int
	GraphMaxRelated int

	// Full-rebuild extraction parallelism.
	BuildParallelism int

	// Chunking.
	ChunkMaxTokens int
	ChunkEncoding  string

	// Vector search.
	SearchLimit     int
	EmbeddingsURL   string
	EmbeddingsModel string
	EmbeddingsDim   int

	DatabaseURL string
	QueueURL    string
	Port        string
}

// Load reads the configuration from the environment, applying defaults for
// everything but the external endpoints.
func Load() Config {
	return Config{
		Debug: util.GetEnvBool("DEBUG", false),

		GraphEnabled:    util.GetEnvBool("GRAPH_ENABLED", true),
		GraphMaxDepth:   util.GetEnvInt("GRAPH_MAX_DEPTH", 2),
		GraphMaxRelated: util.GetEnvInt("GRAPH_MAX_RELATED", 3),

		BuildParallelism: util.GetEnvInt("GRAPH_BUILD_PARALLELISM", 4),

		ChunkMaxTokens: util.GetEnvInt("CHUNK_MAX_TOKENS", 800),
		ChunkEncoding:  util.GetEnvString("CHUNK_ENCODING", "cl100k_base"),

		SearchLimit:     util.GetEnvInt("SEARCH_LIMIT", 5),
		EmbeddingsURL:   util.GetEnv("EMBEDDINGS_URL"),
		EmbeddingsModel: util.GetEnvString("EMBEDDINGS_MODEL", "nomic-embed-text"),
		EmbeddingsDim:   util.GetEnvInt("EMBEDDINGS_DIM", 768),

		DatabaseURL: util.GetEnv("DATABASE_URL"),
		QueueURL:    util.GetEnv("QUEUE_URL"),
		Port:        util.GetEnvString("PORT", "8080"),
	}
}
