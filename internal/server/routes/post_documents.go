package routes

import (
	"net/http"
	"strings"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"atlas/internal/ingest"
	"atlas/internal/queue"
	"atlas/internal/server/middleware"
	"atlas/pkg/logger"
)

// AddDocumentHandler ingests a course document. With a broker configured
// the document is queued for the worker and the handler returns 202;
// otherwise ingestion runs inline.
func AddDocumentHandler(c echo.Context) error {
	type addDocumentBody struct {
		Document string `json:"document" validate:"required"`
	}

	type addDocumentResponse struct {
		Message       string            `json:"message"`
		CorrelationID string            `json:"correlation_id,omitempty"`
		Result        *ingest.AddResult `json:"result,omitempty"`
	}

	data := new(addDocumentBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, addDocumentResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, addDocumentResponse{Message: "Invalid request body"})
	}
	if strings.TrimSpace(data.Document) == "" {
		return c.JSON(http.StatusBadRequest, addDocumentResponse{Message: "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App

	if app.Queue != nil {
		correlationID, err := queue.PublishIngestDocument(app.Queue, data.Document)
		if err != nil {
			logger.Error("Failed to enqueue document", "err", err)
			return c.JSON(http.StatusInternalServerError, addDocumentResponse{Message: "Internal server error"})
		}
		return c.JSON(http.StatusAccepted, addDocumentResponse{
			Message:       "Document queued for ingestion",
			CorrelationID: correlationID,
		})
	}

	result, err := app.Ingest.AddCourseDocument(c.Request().Context(), data.Document)
	if err != nil {
		logger.Error("Failed to ingest document", "err", err)
		return c.JSON(http.StatusUnprocessableEntity, addDocumentResponse{Message: err.Error()})
	}
	return c.JSON(http.StatusCreated, addDocumentResponse{
		Message: "Document ingested",
		Result:  &result,
	})
}
