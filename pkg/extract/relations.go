package extract

import (
	"atlas/pkg/model"
)

// synthesizeRelationships applies the deterministic relationship rules to
// the entities extracted from a single chunk:
//
//   - COURSE -> LESSON: PART_OF, structural confidence.
//   - COURSE/LESSON -> TECHNOLOGY/TOOL/METHOD: TEACHES, confidence of the
//     match that produced the taught entity.
//   - TECHNOLOGY -> TOOL: USES, the weaker of the two match confidences.
//   - CONCEPT -> TECHNOLOGY/TOOL/METHOD: RELATES_TO, co-occurrence
//     confidence.
//   - vocabulary-matched entity -> owning LESSON (COURSE when the chunk has
//     no lesson): MENTIONED_IN, confidence of the vocabulary match.
func synthesizeRelationships(entities []model.Entity, confidences map[string]float64, chunkID string) []model.Relationship {
	byType := make(map[model.EntityType][]model.Entity)
	for _, e := range entities {
		byType[e.Type] = append(byType[e.Type], e)
	}

	contentTypes := []model.EntityType{
		model.EntityTypeTechnology,
		model.EntityTypeTool,
		model.EntityTypeMethod,
	}

	var out []model.Relationship
	add := func(source, target model.Entity, relType model.RelationType, confidence float64) {
		out = append(out, model.Relationship{
			SourceEntityID: source.ID,
			TargetEntityID: target.ID,
			Type:           relType,
			Confidence:     confidence,
			ChunkIDs:       []string{chunkID},
		})
	}

	for _, course := range byType[model.EntityTypeCourse] {
		for _, lesson := range byType[model.EntityTypeLesson] {
			add(course, lesson, model.RelationPartOf, confidenceStructural)
		}
	}

	for _, ownerType := range []model.EntityType{model.EntityTypeCourse, model.EntityTypeLesson} {
		for _, owner := range byType[ownerType] {
			for _, contentType := range contentTypes {
				for _, taught := range byType[contentType] {
					add(owner, taught, model.RelationTeaches, confidences[taught.ID])
				}
			}
		}
	}

	for _, tech := range byType[model.EntityTypeTechnology] {
		for _, tool := range byType[model.EntityTypeTool] {
			add(tech, tool, model.RelationUses, min(confidences[tech.ID], confidences[tool.ID]))
		}
	}

	for _, concept := range byType[model.EntityTypeConcept] {
		for _, contentType := range contentTypes {
			for _, content := range byType[contentType] {
				add(concept, content, model.RelationRelatesTo, confidenceCooccurrence)
			}
		}
	}

	// MENTIONED_IN anchors every vocabulary match to the chunk's structural
	// entity. Lessons are more specific than courses, so prefer them.
	owner, hasOwner := structuralOwner(byType)
	if hasOwner {
		mentionTypes := append(contentTypes, model.EntityTypeOrganization)
		for _, mentionType := range mentionTypes {
			for _, mentioned := range byType[mentionType] {
				if confidences[mentioned.ID] < confidenceVocabulary {
					continue
				}
				add(mentioned, owner, model.RelationMentionedIn, confidences[mentioned.ID])
			}
		}
	}

	return out
}

func structuralOwner(byType map[model.EntityType][]model.Entity) (model.Entity, bool) {
	if lessons := byType[model.EntityTypeLesson]; len(lessons) > 0 {
		return lessons[0], true
	}
	if courses := byType[model.EntityTypeCourse]; len(courses) > 0 {
		return courses[0], true
	}
	return model.Entity{}, false
}
