package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"atlas/pkg/extract"
	"atlas/pkg/logger"
	"atlas/pkg/model"

	"golang.org/x/sync/errgroup"
)

// Builder orchestrates entity extraction and graph store updates. It owns
// the full-rebuild and incremental ingestion paths and exposes the
// chunk-discovery and analytics queries built on top of the store.
//
// A Builder should be created with NewBuilder.
type Builder struct {
	extractor   *extract.Extractor
	store       *Store
	parallelism int
}

// NewBuilderParams configures a Builder. Parallelism bounds how many chunks
// are extracted concurrently during a full rebuild; extraction is pure, so
// only merging needs serialization.
type NewBuilderParams struct {
	Store       *Store
	Parallelism int
}

// NewBuilder creates a Builder over the given store.
func NewBuilder(params NewBuilderParams) *Builder {
	parallelism := params.Parallelism
	if parallelism <= 0 {
		parallelism = 4
	}
	store := params.Store
	if store == nil {
		store = NewStore()
	}
	return &Builder{
		extractor:   extract.NewExtractor(),
		store:       store,
		parallelism: parallelism,
	}
}

// Store returns the graph store the builder operates on.
func (b *Builder) Store() *Store {
	return b.store
}

// BuildFromChunks rebuilds the graph from scratch. Extraction runs over all
// chunks first, the merged result is staged off to the side, and the live
// store adopts the staged graph in one atomic swap: readers see either the
// previous graph or the complete new one, never a partial state.
//
// A chunk that fails extraction is logged and skipped; one bad chunk never
// aborts the rebuild.
func (b *Builder) BuildFromChunks(ctx context.Context, chunks []model.Chunk) error {
	logger.Info("[Graph] Building knowledge graph", "chunks", len(chunks))

	entityLists := make([][]model.Entity, len(chunks))
	relationshipLists := make([][]model.Relationship, len(chunks))
	var mu sync.Mutex

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.parallelism)
	for i, chunk := range chunks {
		idx, c := i, chunk
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
				entities, relationships := b.extractor.Extract(c)
				mu.Lock()
				entityLists[idx] = entities
				relationshipLists[idx] = relationships
				mu.Unlock()
				return nil
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("graph rebuild canceled: %w", err)
	}

	mergedEntities := extract.MergeEntities(entityLists)
	mergedRelationships := extract.MergeRelationships(relationshipLists)

	staging := NewStore()
	for _, e := range mergedEntities {
		staging.addEntityLocked(e)
	}
	dropped := 0
	for _, r := range mergedRelationships {
		if err := staging.addRelationshipLocked(r); err != nil {
			dropped++
		}
	}
	if dropped > 0 {
		logger.Warn("[Graph] Skipped relationships with missing endpoints", "count", dropped)
	}

	b.store.adopt(staging)

	stats := b.store.Statistics()
	logger.Info("[Graph] Knowledge graph built",
		"entities", stats.TotalEntities,
		"relationships", stats.TotalRelationships,
		"components", stats.ConnectedComponents)
	return nil
}

// UpdateWithChunk merges one new chunk into the existing graph without
// clearing it. The whole chunk is applied under a single store lock so a
// concurrent reader never observes the chunk's entities without its
// relationships.
func (b *Builder) UpdateWithChunk(chunk model.Chunk) {
	entities, relationships := b.extractor.Extract(chunk)
	if len(entities) == 0 {
		logger.Debug("[Graph] Chunk produced no entities", "chunk_id", chunk.ID())
		return
	}

	dropped := b.store.AddBatch(entities, relationships)
	if dropped > 0 {
		logger.Warn("[Graph] Skipped relationships with missing endpoints",
			"chunk_id", chunk.ID(), "count", dropped)
	}
}

// RelatedChunk is a chunk discovered through graph traversal, with the hop
// distance at which it was found, the summed relationship confidence along
// the discovery path, and the entity names on that path.
type RelatedChunk struct {
	ChunkID    string   `json:"chunk_id"`
	Distance   int      `json:"distance"`
	Confidence float64  `json:"confidence"`
	Path       []string `json:"path"`
}

// FindRelatedChunks discovers chunks connected to the given chunk through
// the knowledge graph. Every entity of the source chunk is expanded up to
// maxDepth hops; each chunk observed on a reached entity becomes a
// candidate. Candidates rank by traversal distance (closer first), ties by
// summed confidence (higher first), and the result is truncated to
// maxRelated. The source chunk itself is never returned.
func (b *Builder) FindRelatedChunks(chunkID string, maxDepth, maxRelated int) []RelatedChunk {
	if maxRelated <= 0 {
		return nil
	}

	s := b.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := make(map[string]RelatedChunk)
	discovered := make(map[string]int)

	for _, entityID := range s.chunkEntities[chunkID] {
		visits, order := s.traverseLocked(entityID, maxDepth, nil)
		for _, reachedID := range order {
			v := visits[reachedID]
			entity, ok := s.entities[reachedID]
			if !ok {
				continue
			}
			for _, candidateID := range entity.ChunkIDs {
				if candidateID == chunkID {
					continue
				}
				candidate := RelatedChunk{
					ChunkID:    candidateID,
					Distance:   v.depth,
					Confidence: v.confidence,
					Path:       s.entityNamesLocked(v.path),
				}
				current, seen := best[candidateID]
				if !seen {
					discovered[candidateID] = len(discovered)
					best[candidateID] = candidate
					continue
				}
				if candidate.Distance < current.Distance ||
					(candidate.Distance == current.Distance && candidate.Confidence > current.Confidence) {
					best[candidateID] = candidate
				}
			}
		}
	}

	out := make([]RelatedChunk, 0, len(best))
	for _, rc := range best {
		out = append(out, rc)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return discovered[out[i].ChunkID] < discovered[out[j].ChunkID]
	})

	if len(out) > maxRelated {
		out = out[:maxRelated]
	}
	return out
}

func (s *Store) entityNamesLocked(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.entities[id]; ok {
			names = append(names, e.Name)
		}
	}
	return names
}

// CentralEntity is one row of the summary's importance ranking.
type CentralEntity struct {
	Name  string           `json:"name"`
	Type  model.EntityType `json:"type"`
	Score float64          `json:"score"`
}

// Summary is an operational view of the graph: basic stats, the entity-type
// histogram, and the most connected entities by degree centrality.
type Summary struct {
	Stats              Stats                    `json:"basic_stats"`
	EntityTypes        map[model.EntityType]int `json:"entity_type_distribution"`
	TopCentralEntities []CentralEntity          `json:"top_central_entities"`
}

const summaryTopEntities = 10

// Summary computes the graph summary. Centrality is recomputed on each
// call; this is a diagnostics endpoint, not part of the query path.
func (b *Builder) Summary() Summary {
	stats := b.store.Statistics()

	histogram := make(map[model.EntityType]int)
	data := b.store.Snapshot()
	for _, e := range data.Entities {
		histogram[e.Type]++
	}

	scores, err := b.store.Centrality(CentralityDegree)
	if err != nil {
		scores = map[string]float64{}
	}

	top := make([]CentralEntity, 0, len(scores))
	for id, score := range scores {
		e, ok := data.Entities[id]
		if !ok {
			continue
		}
		top = append(top, CentralEntity{Name: e.Name, Type: e.Type, Score: score})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Score != top[j].Score {
			return top[i].Score > top[j].Score
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > summaryTopEntities {
		top = top[:summaryTopEntities]
	}

	return Summary{
		Stats:              stats,
		EntityTypes:        histogram,
		TopCentralEntities: top,
	}
}

// Connections describes a single entity's surroundings: its one-to-N hop
// neighbors grouped by type and the raw traversal paths that reached them.
type Connections struct {
	Entity          string                        `json:"entity"`
	Type            model.EntityType              `json:"type"`
	AppearsInChunks int                           `json:"appears_in_chunks"`
	Neighbors       map[model.EntityType][]string `json:"connections"`
	Paths           [][]string                    `json:"paths"`
}

// Connections looks an entity up by name (case-insensitive) and returns its
// traversal neighborhood up to maxDepth hops.
func (b *Builder) Connections(entityName string, maxDepth int) (Connections, error) {
	entity, ok := b.store.EntityByName(entityName, "")
	if !ok {
		return Connections{}, fmt.Errorf("entity %q not found", entityName)
	}

	s := b.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	visits, order := s.traverseLocked(entity.ID, maxDepth, nil)

	neighbors := make(map[model.EntityType][]string)
	var paths [][]string
	for _, id := range order {
		if id == entity.ID {
			continue
		}
		e, found := s.entities[id]
		if !found {
			continue
		}
		neighbors[e.Type] = append(neighbors[e.Type], e.Name)
		paths = append(paths, s.entityNamesLocked(visits[id].path))
	}

	return Connections{
		Entity:          entity.Name,
		Type:            entity.Type,
		AppearsInChunks: len(entity.ChunkIDs),
		Neighbors:       neighbors,
		Paths:           paths,
	}, nil
}

// FindChunksByEntity returns the chunks in which a named entity appears,
// optionally restricted to an entity type (empty matches any).
func (b *Builder) FindChunksByEntity(entityName string, entityType model.EntityType) []string {
	entity, ok := b.store.EntityByName(entityName, entityType)
	if !ok {
		return nil
	}
	return append([]string(nil), entity.ChunkIDs...)
}
