package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"atlas/internal/server/middleware"
)

// GetGraphSummaryHandler reports graph statistics, the entity-type
// histogram and the most connected entities.
func GetGraphSummaryHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	if app.Builder == nil {
		return c.JSON(http.StatusConflict, map[string]string{"message": "Graph construction is disabled"})
	}
	return c.JSON(http.StatusOK, app.Builder.Summary())
}
