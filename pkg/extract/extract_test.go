package extract

import (
	"reflect"
	"testing"

	"atlas/pkg/model"
)

func intPtr(n int) *int { return &n }

func findEntity(entities []model.Entity, name string, entityType model.EntityType) (model.Entity, bool) {
	for _, e := range entities {
		if e.Name == name && e.Type == entityType {
			return e, true
		}
	}
	return model.Entity{}, false
}

func findRelationship(relationships []model.Relationship, source, target string, relType model.RelationType) (model.Relationship, bool) {
	for _, r := range relationships {
		if r.SourceEntityID == source && r.TargetEntityID == target && r.Type == relType {
			return r, true
		}
	}
	return model.Relationship{}, false
}

func TestExtractEntities(t *testing.T) {
	x := NewExtractor()

	tests := []struct {
		name        string
		chunk       model.Chunk
		wantPresent []model.Entity
		wantAbsent  []model.Entity
	}{
		{
			name:  "empty chunk yields nothing",
			chunk: model.Chunk{},
		},
		{
			name: "metadata only yields structural entities",
			chunk: model.Chunk{
				CourseTitle:  "Web Development",
				LessonNumber: intPtr(3),
			},
			wantPresent: []model.Entity{
				{Name: "Web Development", Type: model.EntityTypeCourse},
				{Name: "Lesson 3", Type: model.EntityTypeLesson},
			},
		},
		{
			name: "vocabulary matches across all lists",
			chunk: model.Chunk{
				Content:     "Use python with pip, practice tdd, interview at google.",
				CourseTitle: "Interview Prep",
			},
			wantPresent: []model.Entity{
				{Name: "Python", Type: model.EntityTypeTechnology},
				{Name: "Pip", Type: model.EntityTypeTool},
				{Name: "Tdd", Type: model.EntityTypeMethod},
				{Name: "Google", Type: model.EntityTypeOrganization},
			},
		},
		{
			name: "keyword embedded in a larger word does not match",
			chunk: model.Chunk{
				Content:     "The gold standard of testing.",
				CourseTitle: "Testing",
			},
			wantAbsent: []model.Entity{
				{Name: "Go", Type: model.EntityTypeTechnology},
			},
		},
		{
			name: "higher-priority vocabulary claims a shared keyword",
			chunk: model.Chunk{
				Content:     "Host your code on github.",
				CourseTitle: "Version Control",
			},
			wantPresent: []model.Entity{
				{Name: "Github", Type: model.EntityTypeTechnology},
			},
			wantAbsent: []model.Entity{
				{Name: "Github", Type: model.EntityTypeOrganization},
			},
		},
		{
			name: "code identifiers inside code spans",
			chunk: model.Chunk{
				Content:     "Call `getElementById` and respect `MAX_RETRIES` in your code.",
				CourseTitle: "JavaScript Basics",
			},
			wantPresent: []model.Entity{
				{Name: "getElementById", Type: model.EntityTypeTool},
				{Name: "MAX_RETRIES", Type: model.EntityTypeConcept},
			},
		},
		{
			name: "underscore constants and plain all-caps both extract",
			chunk: model.Chunk{
				Content:     "Tune `MAX_RETRIES` and `TIMEOUT` before shipping.",
				CourseTitle: "Ops",
			},
			wantPresent: []model.Entity{
				{Name: "MAX_RETRIES", Type: model.EntityTypeConcept},
				{Name: "TIMEOUT", Type: model.EntityTypeConcept},
			},
		},
		{
			name: "identifiers outside code spans are ignored",
			chunk: model.Chunk{
				Content:     "The getElementById function and the HTML DOM.",
				CourseTitle: "JavaScript Basics",
			},
			wantAbsent: []model.Entity{
				{Name: "getElementById", Type: model.EntityTypeTool},
			},
		},
		{
			name: "common acronyms carry no signal",
			chunk: model.Chunk{
				Content:     "Send `JSON` over `HTTP` to the `BACKEND`.",
				CourseTitle: "APIs",
			},
			wantPresent: []model.Entity{
				{Name: "BACKEND", Type: model.EntityTypeConcept},
			},
			wantAbsent: []model.Entity{
				{Name: "JSON", Type: model.EntityTypeConcept},
				{Name: "HTTP", Type: model.EntityTypeConcept},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities, _ := x.Extract(tt.chunk)

			for _, want := range tt.wantPresent {
				if _, ok := findEntity(entities, want.Name, want.Type); !ok {
					t.Errorf("entity (%s, %s) missing from %v", want.Name, want.Type, entities)
				}
			}
			for _, absent := range tt.wantAbsent {
				if _, ok := findEntity(entities, absent.Name, absent.Type); ok {
					t.Errorf("entity (%s, %s) should not have been extracted", absent.Name, absent.Type)
				}
			}
		})
	}
}

func TestExtractRelationships(t *testing.T) {
	x := NewExtractor()

	chunk := model.Chunk{
		Content:      "Build a flask app, install it with pip, and follow tdd.",
		CourseTitle:  "Web Development",
		LessonNumber: intPtr(2),
		ChunkIndex:   0,
	}
	_, relationships := x.Extract(chunk)

	courseID := model.EntityID("Web Development", model.EntityTypeCourse)
	lessonID := model.EntityID("Web Development_Lesson 2", model.EntityTypeLesson)
	flaskID := model.EntityID("flask", model.EntityTypeTechnology)
	pipID := model.EntityID("pip", model.EntityTypeTool)
	tddID := model.EntityID("tdd", model.EntityTypeMethod)

	tests := []struct {
		name           string
		source, target string
		relType        model.RelationType
		wantConfidence float64
	}{
		{name: "course contains lesson", source: courseID, target: lessonID, relType: model.RelationPartOf, wantConfidence: 1.0},
		{name: "course teaches technology", source: courseID, target: flaskID, relType: model.RelationTeaches, wantConfidence: 0.9},
		{name: "lesson teaches technology", source: lessonID, target: flaskID, relType: model.RelationTeaches, wantConfidence: 0.9},
		{name: "lesson teaches method", source: lessonID, target: tddID, relType: model.RelationTeaches, wantConfidence: 0.9},
		{name: "technology uses tool", source: flaskID, target: pipID, relType: model.RelationUses, wantConfidence: 0.9},
		{name: "mention anchors to the lesson", source: flaskID, target: lessonID, relType: model.RelationMentionedIn, wantConfidence: 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := findRelationship(relationships, tt.source, tt.target, tt.relType)
			if !ok {
				t.Fatalf("relationship %s -%s-> %s missing", tt.source, tt.relType, tt.target)
			}
			if r.Confidence != tt.wantConfidence {
				t.Errorf("Confidence = %v, want %v", r.Confidence, tt.wantConfidence)
			}
			if !reflect.DeepEqual(r.ChunkIDs, []string{chunk.ID()}) {
				t.Errorf("ChunkIDs = %v, want [%s]", r.ChunkIDs, chunk.ID())
			}
		})
	}
}

func TestExtractMentionFallsBackToCourse(t *testing.T) {
	x := NewExtractor()

	_, relationships := x.Extract(model.Chunk{
		Content:     "An overview of docker.",
		CourseTitle: "DevOps 101",
	})

	courseID := model.EntityID("DevOps 101", model.EntityTypeCourse)
	dockerID := model.EntityID("docker", model.EntityTypeTechnology)
	if _, ok := findRelationship(relationships, dockerID, courseID, model.RelationMentionedIn); !ok {
		t.Error("mention did not anchor to the course when no lesson is present")
	}
}

func TestExtractLowConfidenceMatchesAreNotMentions(t *testing.T) {
	x := NewExtractor()

	_, relationships := x.Extract(model.Chunk{
		Content:     "Call `fetchData` to load the view.",
		CourseTitle: "Frontend",
	})

	courseID := model.EntityID("Frontend", model.EntityTypeCourse)
	toolID := model.EntityID("fetchData", model.EntityTypeTool)
	if _, ok := findRelationship(relationships, toolID, courseID, model.RelationMentionedIn); ok {
		t.Error("code-shape match produced a MENTIONED_IN edge")
	}
	// It is still taught by the course, at code-match confidence.
	r, ok := findRelationship(relationships, courseID, toolID, model.RelationTeaches)
	if !ok {
		t.Fatal("TEACHES edge for code-shape match missing")
	}
	if r.Confidence != confidenceCode {
		t.Errorf("TEACHES confidence = %v, want %v", r.Confidence, confidenceCode)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	x := NewExtractor()
	chunk := model.Chunk{
		Content:      "Use python with flask and docker. Run `buildImage` and mind `MAX_SIZE`.",
		CourseTitle:  "Web Development",
		LessonNumber: intPtr(1),
		ChunkIndex:   4,
	}

	firstEntities, firstRelationships := x.Extract(chunk)
	secondEntities, secondRelationships := x.Extract(chunk)

	if !reflect.DeepEqual(firstEntities, secondEntities) {
		t.Error("entity extraction is not deterministic")
	}
	if !reflect.DeepEqual(firstRelationships, secondRelationships) {
		t.Error("relationship extraction is not deterministic")
	}
}

func TestMergeEntities(t *testing.T) {
	flask0 := model.Entity{
		ID:       model.EntityID("flask", model.EntityTypeTechnology),
		Name:     "Flask",
		Type:     model.EntityTypeTechnology,
		ChunkIDs: []string{"chunk_0"},
	}
	flask1 := flask0
	flask1.ChunkIDs = []string{"chunk_1"}
	pip := model.Entity{
		ID:       model.EntityID("pip", model.EntityTypeTool),
		Name:     "Pip",
		Type:     model.EntityTypeTool,
		ChunkIDs: []string{"chunk_1"},
	}

	merged := MergeEntities([][]model.Entity{{flask0}, {flask1, pip}})
	if len(merged) != 2 {
		t.Fatalf("MergeEntities() returned %d entities, want 2", len(merged))
	}
	if merged[0].ID != flask0.ID {
		t.Errorf("first-observation order not preserved: got %s first", merged[0].Name)
	}
	if !reflect.DeepEqual(merged[0].ChunkIDs, []string{"chunk_0", "chunk_1"}) {
		t.Errorf("merged ChunkIDs = %v, want [chunk_0 chunk_1]", merged[0].ChunkIDs)
	}
}

func TestMergeRelationships(t *testing.T) {
	flaskID := model.EntityID("flask", model.EntityTypeTechnology)
	pipID := model.EntityID("pip", model.EntityTypeTool)

	first := model.Relationship{
		SourceEntityID: flaskID,
		TargetEntityID: pipID,
		Type:           model.RelationUses,
		Confidence:     0.6,
		ChunkIDs:       []string{"chunk_0"},
	}
	second := first
	second.Confidence = 0.9
	second.ChunkIDs = []string{"chunk_1"}

	merged := MergeRelationships([][]model.Relationship{{first}, {second}})
	if len(merged) != 1 {
		t.Fatalf("MergeRelationships() returned %d edges, want 1", len(merged))
	}
	if merged[0].Confidence != 0.9 {
		t.Errorf("merged Confidence = %v, want the maximum 0.9", merged[0].Confidence)
	}
	if !reflect.DeepEqual(merged[0].ChunkIDs, []string{"chunk_0", "chunk_1"}) {
		t.Errorf("merged ChunkIDs = %v, want [chunk_0 chunk_1]", merged[0].ChunkIDs)
	}
}
