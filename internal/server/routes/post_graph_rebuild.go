package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"atlas/internal/queue"
	"atlas/internal/server/middleware"
	"atlas/pkg/graph"
	"atlas/pkg/ingestlock"
	"atlas/pkg/logger"
)

// RebuildGraphHandler rebuilds the knowledge graph from all stored chunks.
// With a broker configured the rebuild is queued for the worker; otherwise
// it runs inline, which can take a while for large collections.
func RebuildGraphHandler(c echo.Context) error {
	type rebuildResponse struct {
		Message       string       `json:"message"`
		CorrelationID string       `json:"correlation_id,omitempty"`
		Stats         *graph.Stats `json:"stats,omitempty"`
	}

	app := c.(*middleware.AppContext).App
	if !app.Config.GraphEnabled {
		return c.JSON(http.StatusConflict, rebuildResponse{Message: "Graph construction is disabled"})
	}

	if app.Queue != nil {
		correlationID, err := queue.PublishRebuild(app.Queue)
		if err != nil {
			logger.Error("Failed to enqueue rebuild", "err", err)
			return c.JSON(http.StatusInternalServerError, rebuildResponse{Message: "Internal server error"})
		}
		return c.JSON(http.StatusAccepted, rebuildResponse{
			Message:       "Graph rebuild queued",
			CorrelationID: correlationID,
		})
	}

	stats, err := app.Ingest.RebuildGraph(c.Request().Context())
	if errors.Is(err, ingestlock.ErrBusy) {
		return c.JSON(http.StatusConflict, rebuildResponse{Message: "A rebuild is already running"})
	}
	if err != nil {
		logger.Error("Graph rebuild failed", "err", err)
		return c.JSON(http.StatusInternalServerError, rebuildResponse{Message: "Internal server error"})
	}
	return c.JSON(http.StatusOK, rebuildResponse{
		Message: "Graph rebuilt",
		Stats:   &stats,
	})
}
