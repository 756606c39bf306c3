package graph

import (
	"atlas/pkg/model"
)

// Direction selects which edges a one-hop neighbor lookup follows.
type Direction int

const (
	DirectionBoth Direction = iota
	DirectionOutgoing
	DirectionIncoming
)

// Neighbors returns the entities one hop away from the given entity,
// optionally filtered by edge direction and relation types (nil means all
// types). Order follows relationship insertion order, outgoing before
// incoming, which keeps traversal results reproducible.
func (s *Store) Neighbors(entityID string, direction Direction, relationTypes []model.RelationType) []model.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.entities[entityID]; !ok {
		return nil
	}

	typeFilter := relationTypeSet(relationTypes)
	seen := map[string]struct{}{entityID: {}}
	var out []model.Entity

	appendNeighbor := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		if e, ok := s.entities[id]; ok {
			out = append(out, copyEntity(e))
		}
	}

	if direction == DirectionBoth || direction == DirectionOutgoing {
		for _, r := range s.outgoing[entityID] {
			if typeFilter.allows(r.Type) {
				appendNeighbor(r.TargetEntityID)
			}
		}
	}
	if direction == DirectionBoth || direction == DirectionIncoming {
		for _, r := range s.incoming[entityID] {
			if typeFilter.allows(r.Type) {
				appendNeighbor(r.SourceEntityID)
			}
		}
	}

	return out
}

// visit records how a BFS reached an entity: the hop count from the start
// and the sum of relationship confidences along the discovered path.
type visit struct {
	depth      int
	confidence float64
	path       []string
}

// Traverse expands breadth-first from the start entity up to maxDepth hops,
// following edges in both directions and optionally restricted to the given
// relation types. The result includes the start entity; maxDepth 0 returns
// only the start. A visited set bounds the work to O(V+E) within the
// explored radius.
func (s *Store) Traverse(startID string, maxDepth int, relationTypes []model.RelationType) []model.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visits, order := s.traverseLocked(startID, maxDepth, relationTypeSet(relationTypes))
	if visits == nil {
		return nil
	}

	out := make([]model.Entity, 0, len(order))
	for _, id := range order {
		if e, ok := s.entities[id]; ok {
			out = append(out, copyEntity(e))
		}
	}
	return out
}

// traverseLocked is the shared BFS core. It returns the visit record per
// reached entity id plus the deterministic visitation order, or nil if the
// start entity does not exist. Ties at equal depth resolve by relationship
// insertion order.
func (s *Store) traverseLocked(startID string, maxDepth int, typeFilter relTypeSet) (map[string]visit, []string) {
	if _, ok := s.entities[startID]; !ok {
		return nil, nil
	}

	visits := map[string]visit{startID: {depth: 0, confidence: 0, path: []string{startID}}}
	order := []string{startID}
	frontier := []string{startID}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, currentID := range frontier {
			current := visits[currentID]

			expand := func(neighborID string, confidence float64) {
				if _, ok := visits[neighborID]; ok {
					return
				}
				path := make([]string, len(current.path), len(current.path)+1)
				copy(path, current.path)
				visits[neighborID] = visit{
					depth:      depth + 1,
					confidence: current.confidence + confidence,
					path:       append(path, neighborID),
				}
				order = append(order, neighborID)
				next = append(next, neighborID)
			}

			for _, r := range s.outgoing[currentID] {
				if typeFilter.allows(r.Type) {
					expand(r.TargetEntityID, r.Confidence)
				}
			}
			for _, r := range s.incoming[currentID] {
				if typeFilter.allows(r.Type) {
					expand(r.SourceEntityID, r.Confidence)
				}
			}
		}
		frontier = next
	}

	return visits, order
}

// ShortestPath returns the entities along an unweighted shortest path
// between two entities, treating edges as undirected. The boolean is false
// when either entity is missing or no path exists.
func (s *Store) ShortestPath(sourceID, targetID string) ([]model.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.entities[sourceID]; !ok {
		return nil, false
	}
	if _, ok := s.entities[targetID]; !ok {
		return nil, false
	}

	visits, _ := s.traverseLocked(sourceID, len(s.entities), relTypeSet(nil))
	v, ok := visits[targetID]
	if !ok {
		return nil, false
	}

	out := make([]model.Entity, 0, len(v.path))
	for _, id := range v.path {
		if e, found := s.entities[id]; found {
			out = append(out, copyEntity(e))
		}
	}
	return out, true
}

// ChunksForEntities returns all chunk ids observed on any of the given
// entities, in entity order then chunk observation order.
func (s *Store) ChunksForEntities(entityIDs []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, id := range entityIDs {
		e, ok := s.entities[id]
		if !ok {
			continue
		}
		for _, chunkID := range e.ChunkIDs {
			if _, dup := seen[chunkID]; dup {
				continue
			}
			seen[chunkID] = struct{}{}
			out = append(out, chunkID)
		}
	}
	return out
}

type relTypeSet map[model.RelationType]struct{}

func relationTypeSet(types []model.RelationType) relTypeSet {
	if len(types) == 0 {
		return nil
	}
	set := make(relTypeSet, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}

// allows reports whether the relation type passes the filter; a nil set
// allows everything.
func (f relTypeSet) allows(t model.RelationType) bool {
	if f == nil {
		return true
	}
	_, ok := f[t]
	return ok
}
