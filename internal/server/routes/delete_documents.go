package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"atlas/internal/server/middleware"
	"atlas/pkg/logger"
)

// ClearDocumentsHandler wipes the chunk index, the in-memory graph and the
// persisted snapshot.
func ClearDocumentsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	if err := app.Ingest.ClearAll(c.Request().Context()); err != nil {
		logger.Error("Failed to clear documents", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "All documents cleared"})
}
