package model

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// EntityType classifies a node in the knowledge graph.
type EntityType string

const (
	EntityTypeConcept      EntityType = "concept"
	EntityTypePerson       EntityType = "person"
	EntityTypeTechnology   EntityType = "technology"
	EntityTypeTool         EntityType = "tool"
	EntityTypeMethod       EntityType = "method"
	EntityTypeOrganization EntityType = "organization"
	EntityTypeCourse       EntityType = "course"
	EntityTypeLesson       EntityType = "lesson"
)

// RelationType classifies a directed edge in the knowledge graph.
type RelationType string

const (
	RelationTeaches      RelationType = "teaches"
	RelationUses         RelationType = "uses"
	RelationImplements   RelationType = "implements"
	RelationPartOf       RelationType = "part_of"
	RelationRelatesTo    RelationType = "relates_to"
	RelationPrerequisite RelationType = "prerequisite"
	RelationExampleOf    RelationType = "example_of"
	RelationMentionedIn  RelationType = "mentioned_in"
)

// Entity represents a node in the knowledge graph: a technology, tool,
// method, organization, concept, or a structural course/lesson unit.
//
// ChunkIDs records every chunk in which the entity was observed. It only
// grows during incremental updates; a full rebuild replaces it.
type Entity struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        EntityType `json:"entity_type"`
	Description string     `json:"description"`
	ChunkIDs    []string   `json:"chunk_ids"`
}

// Relationship represents a typed, confidence-scored directed edge between
// two entities. ChunkIDs records the chunks that evidence the relationship.
type Relationship struct {
	SourceEntityID string       `json:"source_entity_id"`
	TargetEntityID string       `json:"target_entity_id"`
	Type           RelationType `json:"relation_type"`
	Confidence     float64      `json:"confidence"`
	ChunkIDs       []string     `json:"chunk_ids"`
}

// Key identifies a relationship up to merge semantics: two observations of
// the same (source, target, type) triple are the same edge.
func (r Relationship) Key() string {
	return fmt.Sprintf("%s|%s|%s", r.SourceEntityID, r.TargetEntityID, r.Type)
}

// GraphData is the full serialization unit for a knowledge graph. It is the
// exact JSON document stored in the metadata store.
type GraphData struct {
	Entities      map[string]Entity   `json:"entities"`
	Relationships []Relationship      `json:"relationships"`
	ChunkEntities map[string][]string `json:"chunk_entities"`
}

// EntityID derives the stable identifier for an entity from its name and
// type. Identical (name, type) pairs always yield the same id, which is what
// makes merge-on-reinsert and incremental updates work.
func EntityID(name string, entityType EntityType) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(strings.ToLower(name)), " ", "_")
	sum := md5.Sum([]byte(string(entityType) + "_" + normalized))
	return hex.EncodeToString(sum[:])[:12]
}

// Lesson is a single lesson within a course document.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"title"`
	Link   string `json:"lesson_link,omitempty"`
}

// Course is the parsed metadata of a course document. The title doubles as
// the course identifier.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"course_link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Chunk is a bounded span of course text plus the metadata both the vector
// index and the knowledge graph operate on.
type Chunk struct {
	Content      string `json:"content"`
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	ChunkIndex   int    `json:"chunk_index"`
}

// ID returns the chunk identifier shared between the vector index and the
// graph: the course title with spaces replaced by underscores, then the
// chunk index.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s_%d", strings.ReplaceAll(c.CourseTitle, " ", "_"), c.ChunkIndex)
}

// ChunkHit is a single chunk returned by the vector-search provider.
type ChunkHit struct {
	ChunkID      string  `json:"chunk_id"`
	Content      string  `json:"content"`
	CourseTitle  string  `json:"course_title"`
	LessonNumber *int    `json:"lesson_number,omitempty"`
	Score        float64 `json:"score"`
}
