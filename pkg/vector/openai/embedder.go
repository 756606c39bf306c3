// Package openai provides an Embedder backed by any OpenAI-compatible
// embeddings endpoint.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Embedder calls an OpenAI-compatible /embeddings endpoint. Vectors are
// truncated or zero-padded to the configured dimension so the database
// column size never varies with the model.
type Embedder struct {
	client *openai.Client
	model  string
	dim    int
}

// NewEmbedderParams configures an Embedder. BaseURL may point at any
// OpenAI-compatible server; Key may be empty for local servers.
type NewEmbedderParams struct {
	BaseURL string
	Key     string
	Model   string
	Dim     int
}

// NewEmbedder creates an Embedder for the given endpoint and model.
func NewEmbedder(params NewEmbedderParams) (*Embedder, error) {
	if params.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if params.Dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive")
	}

	options := []option.RequestOption{}
	if params.Key != "" {
		options = append(options, option.WithAPIKey(params.Key))
	}
	if params.BaseURL != "" {
		options = append(options, option.WithBaseURL(params.BaseURL))
	}
	client := openai.NewClient(options...)

	return &Embedder{
		client: &client,
		model:  params.Model,
		dim:    params.Dim,
	}, nil
}

// Embed generates one vector per input text, in input order. Blank inputs
// get a zero vector without a round trip.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var requestTexts []string
	var requestIdx []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = make([]float32, e.dim)
			continue
		}
		requestTexts = append(requestTexts, text)
		requestIdx = append(requestIdx, i)
	}
	if len(requestTexts) == 0 {
		return out, nil
	}

	response, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: requestTexts},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	if len(response.Data) != len(requestTexts) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(response.Data), len(requestTexts))
	}

	for _, embedding := range response.Data {
		idx := int(embedding.Index)
		if idx < 0 || idx >= len(requestTexts) {
			return nil, fmt.Errorf("embedding index out of range: %d", embedding.Index)
		}
		vec := make([]float32, e.dim)
		for i, v := range embedding.Embedding {
			if i >= e.dim {
				break
			}
			vec[i] = float32(v)
		}
		out[requestIdx[idx]] = vec
	}
	for i := range out {
		if out[i] == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return out, nil
}
