package graph

import (
	"fmt"
	"math"
	"sort"
)

// Centrality measures supported by the store.
const (
	CentralityDegree      = "degree"
	CentralityBetweenness = "betweenness"
	CentralityCloseness   = "closeness"
	CentralityPageRank    = "pagerank"
)

const (
	pageRankDamping    = 0.85
	pageRankIterations = 100
	pageRankTolerance  = 1e-6
)

// Centrality computes the requested centrality measure over the current
// graph snapshot and returns a score per entity id. Scores are recomputed
// from scratch on every call; betweenness in particular is O(V*E), so treat
// this as an analytics operation, not something for the query path.
func (s *Store) Centrality(measure string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch measure {
	case CentralityDegree:
		return s.degreeCentralityLocked(), nil
	case CentralityBetweenness:
		return s.betweennessCentralityLocked(), nil
	case CentralityCloseness:
		return s.closenessCentralityLocked(), nil
	case CentralityPageRank:
		return s.pageRankLocked(), nil
	default:
		return nil, fmt.Errorf("unknown centrality measure %q", measure)
	}
}

// nodeIDsLocked returns all entity ids in sorted order so that iteration
// dependent results (and floating point accumulation) are reproducible.
func (s *Store) nodeIDsLocked() []string {
	ids := make([]string, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// successorsLocked returns the unique outgoing neighbor ids of a node, in
// edge insertion order. Parallel edges of different relation types count
// once.
func (s *Store) successorsLocked(id string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, r := range s.outgoing[id] {
		if _, ok := seen[r.TargetEntityID]; ok {
			continue
		}
		seen[r.TargetEntityID] = struct{}{}
		out = append(out, r.TargetEntityID)
	}
	return out
}

func (s *Store) degreeCentralityLocked() map[string]float64 {
	out := make(map[string]float64, len(s.entities))
	n := len(s.entities)
	if n <= 1 {
		for id := range s.entities {
			out[id] = 0
		}
		return out
	}
	scale := 1 / float64(n-1)
	for id := range s.entities {
		out[id] = float64(len(s.outgoing[id])+len(s.incoming[id])) * scale
	}
	return out
}

// betweennessCentralityLocked implements Brandes' algorithm over the
// directed graph, normalized for directed graphs by 1/((n-1)(n-2)).
func (s *Store) betweennessCentralityLocked() map[string]float64 {
	ids := s.nodeIDsLocked()
	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		out[id] = 0
	}

	for _, source := range ids {
		// Single-source shortest paths (BFS, unweighted).
		var stack []string
		preds := make(map[string][]string)
		sigma := map[string]float64{source: 1}
		dist := map[string]int{source: 0}
		queue := []string{source}

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range s.successorsLocked(v) {
				if _, seen := dist[w]; !seen {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		// Back-propagate dependencies.
		delta := make(map[string]float64)
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != source {
				out[w] += delta[w]
			}
		}
	}

	n := len(ids)
	if n > 2 {
		scale := 1 / (float64(n-1) * float64(n-2))
		for id := range out {
			out[id] *= scale
		}
	}
	return out
}

// closenessCentralityLocked follows the convention of measuring closeness
// via incoming distances, scaled by the fraction of the graph that can
// reach the node.
func (s *Store) closenessCentralityLocked() map[string]float64 {
	ids := s.nodeIDsLocked()
	out := make(map[string]float64, len(ids))
	n := len(ids)

	// Reverse adjacency for incoming-distance BFS.
	predecessors := make(map[string][]string, n)
	for _, id := range ids {
		seen := make(map[string]struct{})
		for _, r := range s.incoming[id] {
			if _, ok := seen[r.SourceEntityID]; ok {
				continue
			}
			seen[r.SourceEntityID] = struct{}{}
			predecessors[id] = append(predecessors[id], r.SourceEntityID)
		}
	}

	for _, id := range ids {
		dist := map[string]int{id: 0}
		queue := []string{id}
		total := 0
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, p := range predecessors[v] {
				if _, seen := dist[p]; seen {
					continue
				}
				dist[p] = dist[v] + 1
				total += dist[p]
				queue = append(queue, p)
			}
		}

		reachable := len(dist) - 1
		if reachable <= 0 || total == 0 {
			out[id] = 0
			continue
		}
		closeness := float64(reachable) / float64(total)
		if n > 1 {
			closeness *= float64(reachable) / float64(n-1)
		}
		out[id] = closeness
	}
	return out
}

// pageRankLocked runs power iteration with the standard damping factor,
// distributing dangling-node mass uniformly.
func (s *Store) pageRankLocked() map[string]float64 {
	ids := s.nodeIDsLocked()
	n := len(ids)
	out := make(map[string]float64, n)
	if n == 0 {
		return out
	}

	rank := make(map[string]float64, n)
	for _, id := range ids {
		rank[id] = 1 / float64(n)
	}

	successors := make(map[string][]string, n)
	for _, id := range ids {
		successors[id] = s.successorsLocked(id)
	}

	base := (1 - pageRankDamping) / float64(n)
	for iter := 0; iter < pageRankIterations; iter++ {
		next := make(map[string]float64, n)
		dangling := 0.0
		for _, id := range ids {
			if len(successors[id]) == 0 {
				dangling += rank[id]
			}
		}
		danglingShare := pageRankDamping * dangling / float64(n)

		for _, id := range ids {
			next[id] = base + danglingShare
		}
		for _, id := range ids {
			if len(successors[id]) == 0 {
				continue
			}
			share := pageRankDamping * rank[id] / float64(len(successors[id]))
			for _, succ := range successors[id] {
				next[succ] += share
			}
		}

		diff := 0.0
		for _, id := range ids {
			diff += math.Abs(next[id] - rank[id])
		}
		rank = next
		if diff < pageRankTolerance {
			break
		}
	}

	for id, score := range rank {
		out[id] = score
	}
	return out
}
