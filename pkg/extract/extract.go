package extract

import (
	"strings"

	"atlas/pkg/model"
)

// Match-method reliability. Structural entities come straight from chunk
// metadata, vocabulary matches from curated keyword lists, code-shape
// matches from lexical heuristics, and co-occurrence is the weakest
// evidence of all.
const (
	confidenceStructural   = 1.0
	confidenceVocabulary   = 0.9
	confidenceCode         = 0.6
	confidenceCooccurrence = 0.5
)

// Extractor recognizes entities and relationships in course chunks using an
// ordered list of matcher strategies. It keeps no state between chunks;
// Extract is a pure function of the chunk's text and metadata.
//
// An Extractor should be created with NewExtractor and is safe for
// concurrent use.
type Extractor struct {
	matchers []matcher
}

// NewExtractor creates an Extractor with the default matcher pipeline:
// structural course/lesson entities first, then the technology, tool,
// method, and organization vocabularies, then code-shape identifiers.
func NewExtractor() *Extractor {
	return &Extractor{
		matchers: []matcher{
			structuralMatcher{},
			vocabMatcher{vocab: technologyVocab, entityType: model.EntityTypeTechnology},
			vocabMatcher{vocab: toolVocab, entityType: model.EntityTypeTool},
			vocabMatcher{vocab: methodVocab, entityType: model.EntityTypeMethod},
			vocabMatcher{vocab: organizationVocab, entityType: model.EntityTypeOrganization},
			codeMatcher{},
		},
	}
}

// Extract scans one chunk and returns the entities found in it plus the
// relationships synthesized between them. Extraction fails open: a chunk
// with no usable text or metadata yields empty results, never an error.
func (x *Extractor) Extract(chunk model.Chunk) ([]model.Entity, []model.Relationship) {
	if strings.TrimSpace(chunk.Content) == "" && strings.TrimSpace(chunk.CourseTitle) == "" {
		return nil, nil
	}

	chunkID := chunk.ID()
	claimed := &spanSet{}

	var candidates []candidate
	for _, m := range x.matchers {
		candidates = append(candidates, m.match(chunk, chunkID, claimed)...)
	}

	// The same (name, type) can be produced once per matcher run at most,
	// but different matchers could collide on an id; keep the first, which
	// is the higher-priority match.
	entities := make([]model.Entity, 0, len(candidates))
	confidences := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		if _, ok := confidences[c.entity.ID]; ok {
			continue
		}
		confidences[c.entity.ID] = c.confidence
		entities = append(entities, c.entity)
	}

	relationships := synthesizeRelationships(entities, confidences, chunkID)
	return entities, relationships
}
