package graph

import (
	"math"
	"reflect"
	"testing"

	"atlas/pkg/model"
)

func testEntity(name string, entityType model.EntityType, chunkIDs ...string) model.Entity {
	return model.Entity{
		ID:       model.EntityID(name, entityType),
		Name:     name,
		Type:     entityType,
		ChunkIDs: chunkIDs,
	}
}

func TestAddEntityMergesOnReinsert(t *testing.T) {
	s := NewStore()

	s.AddEntity(testEntity("Flask", model.EntityTypeTechnology, "chunk_0"))
	s.AddEntity(model.Entity{
		ID:          model.EntityID("Flask", model.EntityTypeTechnology),
		Name:        "Flask",
		Type:        model.EntityTypeTechnology,
		Description: "Technology: Flask",
		ChunkIDs:    []string{"chunk_0", "chunk_1"},
	})

	stats := s.Statistics()
	if stats.TotalEntities != 1 {
		t.Fatalf("Statistics().TotalEntities = %d, want 1", stats.TotalEntities)
	}

	e, ok := s.Entity(model.EntityID("Flask", model.EntityTypeTechnology))
	if !ok {
		t.Fatal("Entity() did not find merged entity")
	}
	if !reflect.DeepEqual(e.ChunkIDs, []string{"chunk_0", "chunk_1"}) {
		t.Errorf("merged ChunkIDs = %v, want [chunk_0 chunk_1]", e.ChunkIDs)
	}
	if e.Description != "Technology: Flask" {
		t.Errorf("merged Description = %q, want the richer one", e.Description)
	}
}

func TestAddRelationship(t *testing.T) {
	flaskID := model.EntityID("Flask", model.EntityTypeTechnology)
	pipID := model.EntityID("pip", model.EntityTypeTool)

	tests := []struct {
		name         string
		relationship model.Relationship
		wantErr      bool
		wantEdges    int
	}{
		{
			name: "valid edge",
			relationship: model.Relationship{
				SourceEntityID: flaskID,
				TargetEntityID: pipID,
				Type:           model.RelationUses,
				Confidence:     0.6,
				ChunkIDs:       []string{"chunk_0"},
			},
			wantEdges: 1,
		},
		{
			name: "same triple merges instead of duplicating",
			relationship: model.Relationship{
				SourceEntityID: flaskID,
				TargetEntityID: pipID,
				Type:           model.RelationUses,
				Confidence:     0.9,
				ChunkIDs:       []string{"chunk_1"},
			},
			wantEdges: 1,
		},
		{
			name: "different type is a parallel edge",
			relationship: model.Relationship{
				SourceEntityID: flaskID,
				TargetEntityID: pipID,
				Type:           model.RelationRelatesTo,
				Confidence:     0.5,
			},
			wantEdges: 2,
		},
		{
			name: "missing endpoint is rejected",
			relationship: model.Relationship{
				SourceEntityID: flaskID,
				TargetEntityID: "000000000000",
				Type:           model.RelationUses,
			},
			wantErr:   true,
			wantEdges: 2,
		},
	}

	s := NewStore()
	s.AddEntity(testEntity("Flask", model.EntityTypeTechnology, "chunk_0"))
	s.AddEntity(testEntity("pip", model.EntityTypeTool, "chunk_0"))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.AddRelationship(tt.relationship)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AddRelationship() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := s.Statistics().TotalRelationships; got != tt.wantEdges {
				t.Errorf("TotalRelationships = %d, want %d", got, tt.wantEdges)
			}
		})
	}

	// The merged edge keeps the higher confidence and the union of chunks.
	data := s.Snapshot()
	merged := data.Relationships[0]
	if merged.Confidence != 0.9 {
		t.Errorf("merged Confidence = %v, want 0.9", merged.Confidence)
	}
	if !reflect.DeepEqual(merged.ChunkIDs, []string{"chunk_0", "chunk_1"}) {
		t.Errorf("merged ChunkIDs = %v, want [chunk_0 chunk_1]", merged.ChunkIDs)
	}
}

func TestAddBatchDropsOnlyInvalidEdges(t *testing.T) {
	s := NewStore()

	entities := []model.Entity{
		testEntity("Flask", model.EntityTypeTechnology, "chunk_0"),
		testEntity("pip", model.EntityTypeTool, "chunk_0"),
	}
	relationships := []model.Relationship{
		{
			SourceEntityID: entities[0].ID,
			TargetEntityID: entities[1].ID,
			Type:           model.RelationUses,
			Confidence:     0.6,
		},
		{
			SourceEntityID: entities[0].ID,
			TargetEntityID: "000000000000",
			Type:           model.RelationRelatesTo,
			Confidence:     0.5,
		},
	}

	dropped := s.AddBatch(entities, relationships)
	if dropped != 1 {
		t.Errorf("AddBatch() dropped = %d, want 1", dropped)
	}

	stats := s.Statistics()
	if stats.TotalEntities != 2 || stats.TotalRelationships != 1 {
		t.Errorf("stats = %+v, want 2 entities and 1 relationship", stats)
	}
}

func TestEntityByName(t *testing.T) {
	s := NewStore()
	s.AddEntity(testEntity("Flask", model.EntityTypeTechnology, "chunk_0"))

	tests := []struct {
		name       string
		query      string
		entityType model.EntityType
		wantFound  bool
	}{
		{name: "exact match", query: "Flask", wantFound: true},
		{name: "case-insensitive match", query: "flask", wantFound: true},
		{name: "type restriction matches", query: "flask", entityType: model.EntityTypeTechnology, wantFound: true},
		{name: "type restriction excludes", query: "flask", entityType: model.EntityTypeTool, wantFound: false},
		{name: "unknown name", query: "django", wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, found := s.EntityByName(tt.query, tt.entityType)
			if found != tt.wantFound {
				t.Errorf("EntityByName(%q, %q) found = %v, want %v", tt.query, tt.entityType, found, tt.wantFound)
			}
		})
	}
}

func TestStatisticsConnectedComponents(t *testing.T) {
	s := NewStore()
	s.AddEntity(testEntity("Flask", model.EntityTypeTechnology))
	s.AddEntity(testEntity("pip", model.EntityTypeTool))
	s.AddEntity(testEntity("agile", model.EntityTypeMethod))

	if got := s.Statistics().ConnectedComponents; got != 3 {
		t.Fatalf("isolated nodes: ConnectedComponents = %d, want 3", got)
	}

	err := s.AddRelationship(model.Relationship{
		SourceEntityID: model.EntityID("Flask", model.EntityTypeTechnology),
		TargetEntityID: model.EntityID("pip", model.EntityTypeTool),
		Type:           model.RelationUses,
		Confidence:     0.6,
	})
	if err != nil {
		t.Fatalf("AddRelationship() error = %v", err)
	}

	if got := s.Statistics().ConnectedComponents; got != 2 {
		t.Errorf("after one edge: ConnectedComponents = %d, want 2", got)
	}
}

func TestSnapshotLoadRoundTrip(t *testing.T) {
	s := NewStore()
	s.AddEntity(testEntity("Flask", model.EntityTypeTechnology, "chunk_0"))
	s.AddEntity(testEntity("pip", model.EntityTypeTool, "chunk_0"))
	if err := s.AddRelationship(model.Relationship{
		SourceEntityID: model.EntityID("Flask", model.EntityTypeTechnology),
		TargetEntityID: model.EntityID("pip", model.EntityTypeTool),
		Type:           model.RelationUses,
		Confidence:     0.6,
		ChunkIDs:       []string{"chunk_0"},
	}); err != nil {
		t.Fatalf("AddRelationship() error = %v", err)
	}

	first := s.Snapshot()

	restored := NewStore()
	if dropped := restored.Load(first); dropped != 0 {
		t.Fatalf("Load() dropped = %d, want 0", dropped)
	}

	second := restored.Snapshot()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("round-trip snapshot differs:\n got %+v\nwant %+v", second, first)
	}
}

func TestLoadDropsDanglingRelationships(t *testing.T) {
	flaskID := model.EntityID("Flask", model.EntityTypeTechnology)
	data := model.GraphData{
		Entities: map[string]model.Entity{
			flaskID: testEntity("Flask", model.EntityTypeTechnology, "chunk_0"),
		},
		Relationships: []model.Relationship{
			{SourceEntityID: flaskID, TargetEntityID: "000000000000", Type: model.RelationUses},
			{SourceEntityID: "ffffffffffff", TargetEntityID: flaskID, Type: model.RelationTeaches},
		},
		ChunkEntities: map[string][]string{"chunk_0": {flaskID}},
	}

	s := NewStore()
	if dropped := s.Load(data); dropped != 2 {
		t.Errorf("Load() dropped = %d, want 2", dropped)
	}

	stats := s.Statistics()
	if stats.TotalEntities != 1 || stats.TotalRelationships != 0 {
		t.Errorf("stats after load = %+v, want 1 entity and 0 relationships", stats)
	}
}

func TestClear(t *testing.T) {
	s := NewStore()
	s.AddEntity(testEntity("Flask", model.EntityTypeTechnology, "chunk_0"))
	s.Clear()

	stats := s.Statistics()
	if stats.TotalEntities != 0 || stats.TotalRelationships != 0 || stats.ChunksWithEntities != 0 {
		t.Errorf("stats after Clear() = %+v, want all zero", stats)
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
