package graph

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"atlas/pkg/model"
)

// Store is an in-memory directed multigraph over course entities. Multiple
// relationships may connect the same ordered entity pair as long as their
// relation types differ; observations of the same (source, target, type)
// triple are merged into one edge.
//
// The graph is a single logical resource: mutations take the write lock,
// lookups and traversals take the read lock, and a full replace (rebuild or
// deserialization) swaps the entire state under one write lock so readers
// never observe a half-built graph.
type Store struct {
	mu sync.RWMutex

	entities      map[string]*model.Entity
	relationships []*model.Relationship
	relIndex      map[string]*model.Relationship
	outgoing      map[string][]*model.Relationship
	incoming      map[string][]*model.Relationship
	chunkEntities map[string][]string
}

// NewStore creates an empty graph store.
func NewStore() *Store {
	s := &Store{}
	s.reset()
	return s
}

// reset reinitializes all state. Callers hold the write lock (or own the
// store exclusively, as in NewStore).
func (s *Store) reset() {
	s.entities = make(map[string]*model.Entity)
	s.relationships = nil
	s.relIndex = make(map[string]*model.Relationship)
	s.outgoing = make(map[string][]*model.Relationship)
	s.incoming = make(map[string][]*model.Relationship)
	s.chunkEntities = make(map[string][]string)
}

// AddEntity inserts an entity or merges it into an existing one with the
// same id: chunk ids are union-ed and the richer description is kept.
func (s *Store) AddEntity(e model.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addEntityLocked(e)
}

func (s *Store) addEntityLocked(e model.Entity) {
	existing, ok := s.entities[e.ID]
	if !ok {
		clone := e
		clone.ChunkIDs = append([]string(nil), e.ChunkIDs...)
		s.entities[e.ID] = &clone
		for _, chunkID := range clone.ChunkIDs {
			s.indexChunkEntityLocked(chunkID, clone.ID)
		}
		return
	}

	for _, chunkID := range e.ChunkIDs {
		if !containsString(existing.ChunkIDs, chunkID) {
			existing.ChunkIDs = append(existing.ChunkIDs, chunkID)
		}
		s.indexChunkEntityLocked(chunkID, existing.ID)
	}
	if len(e.Description) > len(existing.Description) {
		existing.Description = e.Description
	}
}

func (s *Store) indexChunkEntityLocked(chunkID, entityID string) {
	if containsString(s.chunkEntities[chunkID], entityID) {
		return
	}
	s.chunkEntities[chunkID] = append(s.chunkEntities[chunkID], entityID)
}

// AddRelationship inserts a directed edge or merges it into an existing
// edge with the same (source, target, type): chunk ids are union-ed and the
// maximum confidence wins. Both endpoints must already be present.
func (s *Store) AddRelationship(r model.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addRelationshipLocked(r)
}

func (s *Store) addRelationshipLocked(r model.Relationship) error {
	if _, ok := s.entities[r.SourceEntityID]; !ok {
		return fmt.Errorf("relationship source entity %q not in graph", r.SourceEntityID)
	}
	if _, ok := s.entities[r.TargetEntityID]; !ok {
		return fmt.Errorf("relationship target entity %q not in graph", r.TargetEntityID)
	}

	key := r.Key()
	if existing, ok := s.relIndex[key]; ok {
		for _, chunkID := range r.ChunkIDs {
			if !containsString(existing.ChunkIDs, chunkID) {
				existing.ChunkIDs = append(existing.ChunkIDs, chunkID)
			}
		}
		if r.Confidence > existing.Confidence {
			existing.Confidence = r.Confidence
		}
		return nil
	}

	clone := r
	clone.ChunkIDs = append([]string(nil), r.ChunkIDs...)
	s.relationships = append(s.relationships, &clone)
	s.relIndex[key] = &clone
	s.outgoing[clone.SourceEntityID] = append(s.outgoing[clone.SourceEntityID], &clone)
	s.incoming[clone.TargetEntityID] = append(s.incoming[clone.TargetEntityID], &clone)
	return nil
}

// AddBatch applies one chunk's worth of extraction output under a single
// write lock, so a concurrent reader sees either none or all of it.
// Relationships with missing endpoints are counted and skipped, not fatal.
func (s *Store) AddBatch(entities []model.Entity, relationships []model.Relationship) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entities {
		s.addEntityLocked(e)
	}
	dropped := 0
	for _, r := range relationships {
		if err := s.addRelationshipLocked(r); err != nil {
			dropped++
		}
	}
	return dropped
}

// Entity returns a copy of the entity with the given id.
func (s *Store) Entity(id string) (model.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return model.Entity{}, false
	}
	return copyEntity(e), true
}

// EntityByName returns the first entity whose name matches case-insensitively,
// optionally restricted to a type (empty type matches any).
func (s *Store) EntityByName(name string, entityType model.EntityType) (model.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id := range s.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		e := s.entities[id]
		if !strings.EqualFold(e.Name, name) {
			continue
		}
		if entityType != "" && e.Type != entityType {
			continue
		}
		return copyEntity(e), true
	}
	return model.Entity{}, false
}

// EntitiesByType returns all entities of the given type, sorted by name.
func (s *Store) EntitiesByType(entityType model.EntityType) []model.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Entity
	for _, e := range s.entities {
		if e.Type == entityType {
			out = append(out, copyEntity(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// EntitiesForChunk returns the entities observed in a chunk, in the order
// they were first indexed for it.
func (s *Store) EntitiesForChunk(chunkID string) []model.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entitiesForChunkLocked(chunkID)
}

func (s *Store) entitiesForChunkLocked(chunkID string) []model.Entity {
	ids := s.chunkEntities[chunkID]
	out := make([]model.Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.entities[id]; ok {
			out = append(out, copyEntity(e))
		}
	}
	return out
}

// Stats summarizes the current graph state.
type Stats struct {
	TotalEntities       int `json:"total_entities"`
	TotalRelationships  int `json:"total_relationships"`
	ChunksWithEntities  int `json:"total_chunks_with_entities"`
	ConnectedComponents int `json:"connected_components"`
}

// Statistics returns entity, relationship, and chunk counts plus the number
// of weakly connected components.
func (s *Store) Statistics() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		TotalEntities:       len(s.entities),
		TotalRelationships:  len(s.relationships),
		ChunksWithEntities:  len(s.chunkEntities),
		ConnectedComponents: s.weaklyConnectedComponentsLocked(),
	}
}

func (s *Store) weaklyConnectedComponentsLocked() int {
	visited := make(map[string]struct{}, len(s.entities))
	components := 0
	for id := range s.entities {
		if _, ok := visited[id]; ok {
			continue
		}
		components++
		stack := []string{id}
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, ok := visited[current]; ok {
				continue
			}
			visited[current] = struct{}{}
			for _, r := range s.outgoing[current] {
				stack = append(stack, r.TargetEntityID)
			}
			for _, r := range s.incoming[current] {
				stack = append(stack, r.SourceEntityID)
			}
		}
	}
	return components
}

// Clear empties all graph state.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// adopt takes over the state of a staging store under one write lock. The
// staging store must not be used afterwards.
func (s *Store) adopt(staging *Store) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entities = staging.entities
	s.relationships = staging.relationships
	s.relIndex = staging.relIndex
	s.outgoing = staging.outgoing
	s.incoming = staging.incoming
	s.chunkEntities = staging.chunkEntities
}

func copyEntity(e *model.Entity) model.Entity {
	clone := *e
	clone.ChunkIDs = append([]string(nil), e.ChunkIDs...)
	return clone
}

func copyRelationship(r *model.Relationship) model.Relationship {
	clone := *r
	clone.ChunkIDs = append([]string(nil), r.ChunkIDs...)
	return clone
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
