// Package ingest wires the chunker, the vector index, the graph builder and
// the snapshot store into the operations the HTTP routes and the queue
// worker share: adding a course document, rebuilding the graph and loading
// the persisted snapshot at startup.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"atlas/internal/util"
	"atlas/pkg/chunker"
	"atlas/pkg/graph"
	"atlas/pkg/ingestlock"
	"atlas/pkg/logger"
	"atlas/pkg/model"
	"atlas/pkg/store"
	"atlas/pkg/vector"
)

// rebuildLockKey serializes full rebuilds across server and worker
// processes.
const rebuildLockKey = "graph_rebuild"

const persistTries = 3

// Service implements the ingestion pipeline. All methods are safe for
// concurrent use; full rebuilds are additionally serialized through the
// lock guard when one is configured.
type Service struct {
	chunker      *chunker.Chunker
	provider     vector.Provider
	builder      *graph.Builder
	storage      store.GraphStorage
	lock         *ingestlock.Guard
	graphEnabled bool
}

type NewServiceParams struct {
	Chunker  *chunker.Chunker
	Provider vector.Provider
	Builder  *graph.Builder
	Storage  store.GraphStorage
	// Lock is optional; without it rebuilds are only serialized within
	// the process.
	Lock *ingestlock.Guard
	// GraphEnabled toggles graph construction. When false the service
	// only maintains the vector index.
	GraphEnabled bool
}

func NewService(params NewServiceParams) *Service {
	return &Service{
		chunker:      params.Chunker,
		provider:     params.Provider,
		builder:      params.Builder,
		storage:      params.Storage,
		lock:         params.Lock,
		graphEnabled: params.GraphEnabled,
	}
}

// AddResult reports what a single document ingestion produced.
type AddResult struct {
	CourseTitle string `json:"course_title"`
	Chunks      int    `json:"chunks"`
	Lessons     int    `json:"lessons"`
}

// AddCourseDocument chunks a course document, indexes the chunks for vector
// search and folds them into the knowledge graph incrementally. The updated
// graph snapshot is persisted before returning.
func (s *Service) AddCourseDocument(ctx context.Context, text string) (AddResult, error) {
	course, chunks, err := s.chunker.ChunkCourseDocument(text)
	if err != nil {
		return AddResult{}, err
	}
	if len(chunks) == 0 {
		return AddResult{}, errors.New("document produced no chunks")
	}

	if err := s.provider.AddChunks(ctx, chunks); err != nil {
		return AddResult{}, fmt.Errorf("failed to index chunks: %w", err)
	}

	if s.graphEnabled && s.builder != nil {
		for _, chunk := range chunks {
			s.builder.UpdateWithChunk(chunk)
		}
		if err := s.persistGraph(ctx); err != nil {
			// The vector index is already current; the graph catches up
			// on the next rebuild.
			logger.Warn("[Ingest] Failed to persist graph snapshot", "course", course.Title, "err", err)
		}
	}

	logger.Info("[Ingest] Added course document", "course", course.Title, "chunks", len(chunks), "lessons", len(course.Lessons))
	return AddResult{
		CourseTitle: course.Title,
		Chunks:      len(chunks),
		Lessons:     len(course.Lessons),
	}, nil
}

// RebuildGraph rebuilds the knowledge graph from every chunk in the vector
// index and persists the new snapshot. Concurrent rebuild attempts from
// other processes return ingestlock.ErrBusy.
func (s *Service) RebuildGraph(ctx context.Context) (graph.Stats, error) {
	if !s.graphEnabled || s.builder == nil {
		return graph.Stats{}, errors.New("graph construction is disabled")
	}
	if s.lock == nil {
		return s.rebuildGraph(ctx)
	}

	var stats graph.Stats
	err := s.lock.WithLock(ctx, rebuildLockKey, ingestlock.Options{TTL: 10 * time.Minute}, func(ctx context.Context) error {
		var err error
		stats, err = s.rebuildGraph(ctx)
		return err
	})
	return stats, err
}

func (s *Service) rebuildGraph(ctx context.Context) (graph.Stats, error) {
	started := time.Now()

	chunks, err := util.RetryWithContext(ctx, persistTries, func(ctx context.Context) ([]model.Chunk, error) {
		return s.provider.AllChunks(ctx)
	})
	if err != nil {
		return graph.Stats{}, fmt.Errorf("failed to load chunks: %w", err)
	}

	if err := s.builder.BuildFromChunks(ctx, chunks); err != nil {
		return graph.Stats{}, err
	}
	if err := s.persistGraph(ctx); err != nil {
		return graph.Stats{}, fmt.Errorf("failed to persist graph snapshot: %w", err)
	}

	stats := s.builder.Store().Statistics()
	logger.Info("[Ingest] Graph rebuilt", "chunks", len(chunks), "entities", stats.TotalEntities, "relationships", stats.TotalRelationships, "duration", time.Since(started).Round(time.Millisecond))
	return stats, nil
}

// LoadGraph restores the persisted snapshot into the in-memory store. A
// missing snapshot is not an error; the graph simply starts empty.
func (s *Service) LoadGraph(ctx context.Context) error {
	if !s.graphEnabled || s.builder == nil {
		return nil
	}
	data, found, err := s.storage.LoadGraph(ctx)
	if err != nil {
		return err
	}
	if !found {
		logger.Info("[Ingest] No stored graph snapshot, starting empty")
		return nil
	}
	dropped := s.builder.Store().Load(data)
	if dropped > 0 {
		logger.Warn("[Ingest] Dropped dangling relationships from stored snapshot", "dropped", dropped)
	}
	stats := s.builder.Store().Statistics()
	logger.Info("[Ingest] Loaded graph snapshot", "entities", stats.TotalEntities, "relationships", stats.TotalRelationships)
	return nil
}

// ClearAll wipes the vector index, the in-memory graph and the persisted
// snapshot.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.provider.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear vector index: %w", err)
	}
	if s.builder != nil {
		s.builder.Store().Clear()
	}
	if s.storage != nil {
		if err := s.storage.ClearGraph(ctx); err != nil {
			return fmt.Errorf("failed to clear graph snapshot: %w", err)
		}
	}
	logger.Info("[Ingest] Cleared all indexed data")
	return nil
}

func (s *Service) persistGraph(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	data := s.builder.Store().Snapshot()
	return util.RetryErrWithContext(ctx, persistTries, func(ctx context.Context) error {
		return s.storage.SaveGraph(ctx, data)
	})
}
