package extract

import (
	"atlas/pkg/model"
)

// MergeEntities combines per-chunk entity lists into one entity per id,
// union-ing chunk ids in observation order and keeping the richer
// description. The returned slice preserves first-observation order.
func MergeEntities(entityLists [][]model.Entity) []model.Entity {
	index := make(map[string]int)
	var merged []model.Entity

	for _, entities := range entityLists {
		for _, e := range entities {
			i, ok := index[e.ID]
			if !ok {
				index[e.ID] = len(merged)
				merged = append(merged, e)
				continue
			}
			merged[i].ChunkIDs = unionChunkIDs(merged[i].ChunkIDs, e.ChunkIDs)
			if len(e.Description) > len(merged[i].Description) {
				merged[i].Description = e.Description
			}
		}
	}

	return merged
}

// MergeRelationships combines per-chunk relationship lists, merging
// observations of the same (source, target, type) triple: chunk ids are
// union-ed and the highest observed confidence wins. First-observation
// order is preserved.
func MergeRelationships(relationshipLists [][]model.Relationship) []model.Relationship {
	index := make(map[string]int)
	var merged []model.Relationship

	for _, relationships := range relationshipLists {
		for _, r := range relationships {
			key := r.Key()
			i, ok := index[key]
			if !ok {
				index[key] = len(merged)
				merged = append(merged, r)
				continue
			}
			merged[i].ChunkIDs = unionChunkIDs(merged[i].ChunkIDs, r.ChunkIDs)
			if r.Confidence > merged[i].Confidence {
				merged[i].Confidence = r.Confidence
			}
		}
	}

	return merged
}

func unionChunkIDs(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}
	for _, id := range incoming {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		existing = append(existing, id)
	}
	return existing
}
