package server

import (
	"atlas/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Query routes
	apiRoutes.POST("/query", routes.QueryHandler)

	// Document ingestion routes
	apiRoutes.POST("/documents", routes.AddDocumentHandler)
	apiRoutes.DELETE("/documents", routes.ClearDocumentsHandler)

	// Knowledge graph routes
	apiRoutes.POST("/graph/rebuild", routes.RebuildGraphHandler)
	apiRoutes.GET("/graph/summary", routes.GetGraphSummaryHandler)
	apiRoutes.GET("/graph/entities/:name", routes.GetEntityHandler)
}
