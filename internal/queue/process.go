package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"atlas/internal/ingest"
	"atlas/pkg/ingestlock"
	"atlas/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rabbitmq/amqp091-go"
)

// IngestDocumentMsg asks the worker to chunk and index one course document.
type IngestDocumentMsg struct {
	CorrelationID string `json:"correlation_id"`
	Document      string `json:"document"`
}

// RebuildMsg asks the worker to rebuild the knowledge graph from the stored
// chunks.
type RebuildMsg struct {
	CorrelationID string `json:"correlation_id"`
}

// PublishIngestDocument enqueues a document for ingestion and returns the
// correlation id assigned to it.
func PublishIngestDocument(ch *amqp091.Channel, document string) (string, error) {
	correlationID, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(IngestDocumentMsg{
		CorrelationID: correlationID,
		Document:      document,
	})
	if err != nil {
		return "", err
	}

	if err := PublishFIFO(ch, IngestQueue, data); err != nil {
		return "", err
	}
	return correlationID, nil
}

// PublishRebuild enqueues a full graph rebuild and returns its correlation
// id.
func PublishRebuild(ch *amqp091.Channel) (string, error) {
	correlationID, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(RebuildMsg{CorrelationID: correlationID})
	if err != nil {
		return "", err
	}

	if err := PublishFIFO(ch, RebuildQueue, data); err != nil {
		return "", err
	}
	return correlationID, nil
}

// ProcessIngestMessage handles one ingest_queue delivery.
func ProcessIngestMessage(ctx context.Context, svc *ingest.Service, msg string) error {
	data := new(IngestDocumentMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("malformed ingest message: %w", err)
	}

	result, err := svc.AddCourseDocument(ctx, data.Document)
	if err != nil {
		return err
	}
	logger.Info("[Queue] Ingested document", "correlation_id", data.CorrelationID, "course", result.CourseTitle, "chunks", result.Chunks)
	return nil
}

// ProcessRebuildMessage handles one rebuild_queue delivery. A rebuild
// already running in another process is not an error; the other process
// covers the same work.
func ProcessRebuildMessage(ctx context.Context, svc *ingest.Service, msg string) error {
	data := new(RebuildMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("malformed rebuild message: %w", err)
	}

	stats, err := svc.RebuildGraph(ctx)
	if errors.Is(err, ingestlock.ErrBusy) {
		logger.Info("[Queue] Rebuild already in progress elsewhere, skipping", "correlation_id", data.CorrelationID)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("[Queue] Graph rebuilt", "correlation_id", data.CorrelationID, "entities", stats.TotalEntities, "relationships", stats.TotalRelationships)
	return nil
}
