package search

import (
	"context"
	"sort"

	"atlas/pkg/graph"
	"atlas/pkg/logger"
	"atlas/pkg/model"
)

// VectorSearcher is the vector-similarity provider the enhancer builds on.
// Search supplies the primary hits for a query; FetchChunks resolves the
// content of graph-discovered chunk ids.
type VectorSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]model.ChunkHit, error)
	FetchChunks(ctx context.Context, chunkIDs []string) ([]model.ChunkHit, error)
}

// RelatedHit is a chunk discovered through the knowledge graph rather than
// vector similarity. Distance, Confidence, and Path carry the provenance of
// the discovery: how many hops away it was found and through which entities.
type RelatedHit struct {
	model.ChunkHit
	Distance   int      `json:"distance"`
	Confidence float64  `json:"confidence"`
	Path       []string `json:"path"`
}

// Results is a merged result set: vector hits first, graph-discovered hits
// after, each group in its own rank order.
type Results struct {
	Primary []model.ChunkHit `json:"primary"`
	Related []RelatedHit     `json:"related"`
}

// Enhancer merges vector-search results with knowledge-graph discovery.
//
// The graph side is strictly best-effort: an unavailable or empty graph, a
// failed content fetch, anything at all on the graph path degrades the
// response to vector-only results. Only the primary vector search itself can
// fail a query.
type Enhancer struct {
	vector     VectorSearcher
	builder    *graph.Builder
	maxDepth   int
	maxRelated int
}

// NewEnhancerParams configures an Enhancer. MaxDepth and MaxRelated default
// to 2 and 3; they are the sole bound on graph work per query, so keep them
// small. A nil Builder disables graph enhancement entirely.
type NewEnhancerParams struct {
	Vector     VectorSearcher
	Builder    *graph.Builder
	MaxDepth   int
	MaxRelated int
}

// NewEnhancer creates an Enhancer over a vector provider and a graph builder.
func NewEnhancer(params NewEnhancerParams) *Enhancer {
	maxDepth := params.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 2
	}
	maxRelated := params.MaxRelated
	if maxRelated <= 0 {
		maxRelated = 3
	}
	return &Enhancer{
		vector:     params.Vector,
		builder:    params.Builder,
		maxDepth:   maxDepth,
		maxRelated: maxRelated,
	}
}

// Search runs the primary vector search and expands it through the graph.
// An error is only ever the vector provider's; the graph path degrades.
func (e *Enhancer) Search(ctx context.Context, query string, limit int) (Results, error) {
	primary, err := e.vector.Search(ctx, query, limit)
	if err != nil {
		return Results{}, err
	}
	return Results{
		Primary: primary,
		Related: e.Enhance(ctx, primary),
	}, nil
}

// Enhance discovers chunks related to the primary hits through the knowledge
// graph, resolves their content, and returns them ranked. It never fails:
// any problem on the graph path yields an empty related set.
func (e *Enhancer) Enhance(ctx context.Context, primary []model.ChunkHit) []RelatedHit {
	if e.builder == nil || len(primary) == 0 {
		return nil
	}

	primarySet := make(map[string]struct{}, len(primary))
	for _, hit := range primary {
		primarySet[hit.ChunkID] = struct{}{}
	}

	// Aggregate candidates across all primary chunks, keeping the best
	// discovery (minimum distance, ties by confidence) per chunk id.
	best := make(map[string]graph.RelatedChunk)
	discovered := make(map[string]int)
	for _, hit := range primary {
		for _, rc := range e.builder.FindRelatedChunks(hit.ChunkID, e.maxDepth, e.maxRelated) {
			if _, isPrimary := primarySet[rc.ChunkID]; isPrimary {
				continue
			}
			current, seen := best[rc.ChunkID]
			if !seen {
				discovered[rc.ChunkID] = len(discovered)
				best[rc.ChunkID] = rc
				continue
			}
			if rc.Distance < current.Distance ||
				(rc.Distance == current.Distance && rc.Confidence > current.Confidence) {
				best[rc.ChunkID] = rc
			}
		}
	}
	if len(best) == 0 {
		return nil
	}

	candidates := make([]graph.RelatedChunk, 0, len(best))
	for _, rc := range best {
		candidates = append(candidates, rc)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return discovered[candidates[i].ChunkID] < discovered[candidates[j].ChunkID]
	})
	if len(candidates) > e.maxRelated {
		candidates = candidates[:e.maxRelated]
	}

	chunkIDs := make([]string, len(candidates))
	for i, rc := range candidates {
		chunkIDs[i] = rc.ChunkID
	}
	hits, err := e.vector.FetchChunks(ctx, chunkIDs)
	if err != nil {
		logger.Warn("[Search] Fetching related chunk content failed, degrading to vector-only results", "error", err)
		return nil
	}
	byID := make(map[string]model.ChunkHit, len(hits))
	for _, hit := range hits {
		byID[hit.ChunkID] = hit
	}

	related := make([]RelatedHit, 0, len(candidates))
	for _, rc := range candidates {
		hit, ok := byID[rc.ChunkID]
		if !ok {
			// Graph knows a chunk the content store no longer has.
			logger.Debug("[Search] Related chunk has no stored content", "chunk_id", rc.ChunkID)
			continue
		}
		related = append(related, RelatedHit{
			ChunkHit:   hit,
			Distance:   rc.Distance,
			Confidence: rc.Confidence,
			Path:       rc.Path,
		})
	}
	return related
}
