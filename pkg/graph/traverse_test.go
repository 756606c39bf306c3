package graph

import (
	"math"
	"testing"

	"atlas/pkg/model"
)

// chainStore builds a -> b -> c plus an isolated d.
func chainStore(t *testing.T) (*Store, map[string]string) {
	t.Helper()

	s := NewStore()
	ids := map[string]string{
		"a": model.EntityID("python", model.EntityTypeTechnology),
		"b": model.EntityID("flask", model.EntityTypeTechnology),
		"c": model.EntityID("pip", model.EntityTypeTool),
		"d": model.EntityID("agile", model.EntityTypeMethod),
	}
	s.AddEntity(testEntity("python", model.EntityTypeTechnology, "chunk_0"))
	s.AddEntity(testEntity("flask", model.EntityTypeTechnology, "chunk_0"))
	s.AddEntity(testEntity("pip", model.EntityTypeTool, "chunk_1"))
	s.AddEntity(testEntity("agile", model.EntityTypeMethod, "chunk_2"))

	edges := []model.Relationship{
		{SourceEntityID: ids["a"], TargetEntityID: ids["b"], Type: model.RelationRelatesTo, Confidence: 0.5},
		{SourceEntityID: ids["b"], TargetEntityID: ids["c"], Type: model.RelationUses, Confidence: 0.6},
	}
	for _, r := range edges {
		if err := s.AddRelationship(r); err != nil {
			t.Fatalf("AddRelationship() error = %v", err)
		}
	}
	return s, ids
}

func entityIDs(entities []model.Entity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.ID)
	}
	return out
}

func TestTraverse(t *testing.T) {
	s, ids := chainStore(t)

	tests := []struct {
		name          string
		start         string
		maxDepth      int
		relationTypes []model.RelationType
		want          []string
	}{
		{
			name:     "depth zero returns only the start",
			start:    ids["a"],
			maxDepth: 0,
			want:     []string{ids["a"]},
		},
		{
			name:     "depth one follows one hop",
			start:    ids["a"],
			maxDepth: 1,
			want:     []string{ids["a"], ids["b"]},
		},
		{
			name:     "depth two reaches the chain end",
			start:    ids["a"],
			maxDepth: 2,
			want:     []string{ids["a"], ids["b"], ids["c"]},
		},
		{
			name:     "traversal follows incoming edges too",
			start:    ids["c"],
			maxDepth: 2,
			want:     []string{ids["c"], ids["b"], ids["a"]},
		},
		{
			name:          "relation type filter prunes edges",
			start:         ids["a"],
			maxDepth:      2,
			relationTypes: []model.RelationType{model.RelationRelatesTo},
			want:          []string{ids["a"], ids["b"]},
		},
		{
			name:     "unknown start yields nothing",
			start:    "000000000000",
			maxDepth: 2,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := entityIDs(s.Traverse(tt.start, tt.maxDepth, tt.relationTypes))
			if len(got) != len(tt.want) {
				t.Fatalf("Traverse() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Traverse()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTraverseDepthIsMonotonic(t *testing.T) {
	s, ids := chainStore(t)

	prev := 0
	for depth := 0; depth <= 3; depth++ {
		got := len(s.Traverse(ids["a"], depth, nil))
		if got < prev {
			t.Fatalf("Traverse() at depth %d returned %d entities, fewer than depth %d", depth, got, depth-1)
		}
		prev = got
	}
}

func TestNeighbors(t *testing.T) {
	s, ids := chainStore(t)

	tests := []struct {
		name      string
		entity    string
		direction Direction
		want      []string
	}{
		{name: "both directions", entity: ids["b"], direction: DirectionBoth, want: []string{ids["c"], ids["a"]}},
		{name: "outgoing only", entity: ids["b"], direction: DirectionOutgoing, want: []string{ids["c"]}},
		{name: "incoming only", entity: ids["b"], direction: DirectionIncoming, want: []string{ids["a"]}},
		{name: "isolated node", entity: ids["d"], direction: DirectionBoth, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := entityIDs(s.Neighbors(tt.entity, tt.direction, nil))
			if len(got) != len(tt.want) {
				t.Fatalf("Neighbors() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Neighbors()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestShortestPath(t *testing.T) {
	s, ids := chainStore(t)

	path, found := s.ShortestPath(ids["a"], ids["c"])
	if !found {
		t.Fatal("ShortestPath() found = false, want true")
	}
	want := []string{ids["a"], ids["b"], ids["c"]}
	got := entityIDs(path)
	if len(got) != len(want) {
		t.Fatalf("ShortestPath() = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("ShortestPath()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if _, found := s.ShortestPath(ids["a"], ids["d"]); found {
		t.Error("ShortestPath() to isolated node found = true, want false")
	}
}

func TestCentralityDegree(t *testing.T) {
	// Star graph: hub with three leaves.
	s := NewStore()
	hub := testEntity("python", model.EntityTypeTechnology)
	leaves := []model.Entity{
		testEntity("flask", model.EntityTypeTechnology),
		testEntity("django", model.EntityTypeTechnology),
		testEntity("fastapi", model.EntityTypeTechnology),
	}
	s.AddEntity(hub)
	for _, leaf := range leaves {
		s.AddEntity(leaf)
		if err := s.AddRelationship(model.Relationship{
			SourceEntityID: hub.ID,
			TargetEntityID: leaf.ID,
			Type:           model.RelationRelatesTo,
			Confidence:     0.5,
		}); err != nil {
			t.Fatalf("AddRelationship() error = %v", err)
		}
	}

	scores, err := s.Centrality(CentralityDegree)
	if err != nil {
		t.Fatalf("Centrality() error = %v", err)
	}
	if !almostEqual(scores[hub.ID], 1.0) {
		t.Errorf("hub degree = %v, want 1.0", scores[hub.ID])
	}
	for _, leaf := range leaves {
		if !almostEqual(scores[leaf.ID], 1.0/3) {
			t.Errorf("leaf %s degree = %v, want 1/3", leaf.Name, scores[leaf.ID])
		}
	}
}

func TestCentralityBetweenness(t *testing.T) {
	s, ids := chainStore(t)

	scores, err := s.Centrality(CentralityBetweenness)
	if err != nil {
		t.Fatalf("Centrality() error = %v", err)
	}

	// In a -> b -> c (n=4 with the isolated d), only the a..c pair routes
	// through b: raw 1, normalized by (n-1)(n-2) = 6.
	if !almostEqual(scores[ids["b"]], 1.0/6) {
		t.Errorf("betweenness of middle node = %v, want 1/6", scores[ids["b"]])
	}
	for _, k := range []string{"a", "c", "d"} {
		if !almostEqual(scores[ids[k]], 0) {
			t.Errorf("betweenness of %s = %v, want 0", k, scores[ids[k]])
		}
	}
}

func TestCentralityCloseness(t *testing.T) {
	s, ids := chainStore(t)

	scores, err := s.Centrality(CentralityCloseness)
	if err != nil {
		t.Fatalf("Centrality() error = %v", err)
	}

	// Closeness runs over incoming distances with the reachable-fraction
	// scaling: in a -> b -> c (n=4 with the isolated d), b is reached only
	// by a (distance 1), c by b and a (distances 1 and 2).
	tests := []struct {
		name string
		node string
		want float64
	}{
		{name: "nothing reaches the chain head", node: "a", want: 0},
		{name: "middle node scaled by one reachable of three", node: "b", want: 1.0 / 3},
		{name: "chain end reached by two of three", node: "c", want: (2.0 / 3) * (2.0 / 3)},
		{name: "isolated node scores zero", node: "d", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scores[ids[tt.node]]; !almostEqual(got, tt.want) {
				t.Errorf("closeness of %s = %v, want %v", tt.node, got, tt.want)
			}
		})
	}
}

func TestCentralityPageRankMassConserved(t *testing.T) {
	s, ids := chainStore(t)

	scores, err := s.Centrality(CentralityPageRank)
	if err != nil {
		t.Fatalf("Centrality() error = %v", err)
	}

	total := 0.0
	for _, score := range scores {
		total += score
	}
	if math.Abs(total-1.0) > 1e-6 {
		t.Errorf("pagerank mass = %v, want 1.0", total)
	}

	// The chain end accumulates rank from upstream.
	if scores[ids["c"]] <= scores[ids["a"]] {
		t.Errorf("pagerank: sink %v should exceed source %v", scores[ids["c"]], scores[ids["a"]])
	}
}

func TestCentralityUnknownMeasure(t *testing.T) {
	s := NewStore()
	if _, err := s.Centrality("eigenvector"); err == nil {
		t.Error("Centrality() with unknown measure: error = nil, want error")
	}
}
