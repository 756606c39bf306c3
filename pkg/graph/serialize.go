package graph

import (
	"sort"

	"atlas/pkg/logger"
	"atlas/pkg/model"
)

// Snapshot returns the full graph state as a GraphData document.
// Relationship order matches insertion order so repeated snapshots of the
// same graph serialize identically; chunk entity lists are sorted for the
// same reason.
func (s *Store) Snapshot() model.GraphData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := model.GraphData{
		Entities:      make(map[string]model.Entity, len(s.entities)),
		Relationships: make([]model.Relationship, 0, len(s.relationships)),
		ChunkEntities: make(map[string][]string, len(s.chunkEntities)),
	}

	for id, e := range s.entities {
		data.Entities[id] = copyEntity(e)
	}
	for _, r := range s.relationships {
		data.Relationships = append(data.Relationships, copyRelationship(r))
	}
	for chunkID, entityIDs := range s.chunkEntities {
		ids := append([]string(nil), entityIDs...)
		sort.Strings(ids)
		data.ChunkEntities[chunkID] = ids
	}

	return data
}

// Load replaces the entire store state with the given graph data in one
// atomic swap. Relationships referencing entities missing from the document
// violate the integrity invariant; they are dropped and reported through
// the returned count rather than failing the load.
func (s *Store) Load(data model.GraphData) int {
	staging := NewStore()

	// Entity ids are map keys in the wire format; iterate sorted so the
	// reconstructed chunk index is deterministic.
	ids := make([]string, 0, len(data.Entities))
	for id := range data.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		staging.addEntityLocked(data.Entities[id])
	}

	dropped := 0
	for _, r := range data.Relationships {
		if err := staging.addRelationshipLocked(r); err != nil {
			dropped++
			logger.Warn("[Graph] Dropping relationship with missing endpoint",
				"source", r.SourceEntityID, "target", r.TargetEntityID, "type", r.Type)
		}
	}

	// The serialized chunk index may carry chunks whose entities were
	// pruned; rebuild it from entity chunk ids and ignore stale leftovers.
	s.adopt(staging)
	return dropped
}
