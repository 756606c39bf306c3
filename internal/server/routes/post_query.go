package routes

import (
	"net/http"
	"strings"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"atlas/internal/server/middleware"
	"atlas/pkg/logger"
	"atlas/pkg/search"
)

// QueryHandler answers a search query with vector hits plus the chunks the
// knowledge graph links to them.
func QueryHandler(c echo.Context) error {
	type queryBody struct {
		Query string `json:"query" validate:"required"`
		Limit int    `json:"limit" validate:"omitempty,min=1,max=50"`
	}

	type queryResponse struct {
		Message string          `json:"message,omitempty"`
		Results *search.Results `json:"results,omitempty"`
		Context string          `json:"context,omitempty"`
		Sources []string        `json:"sources,omitempty"`
	}

	data := new(queryBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{Message: "Invalid request body"})
	}

	data.Query = strings.TrimSpace(data.Query)
	if data.Query == "" {
		return c.JSON(http.StatusBadRequest, queryResponse{Message: "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	limit := data.Limit
	if limit == 0 {
		limit = app.Config.SearchLimit
	}

	ctx := c.Request().Context()
	results, err := app.Enhancer.Search(ctx, data.Query, limit)
	if err != nil {
		logger.Error("Search failed", "query", data.Query, "err", err)
		return c.JSON(http.StatusInternalServerError, queryResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, queryResponse{
		Results: &results,
		Context: search.FormatResults(results),
		Sources: search.Sources(results),
	})
}
