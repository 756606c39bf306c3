package routes

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"atlas/internal/server/middleware"
	"atlas/pkg/graph"
	"atlas/pkg/model"
)

// GetEntityHandler returns an entity's traversal neighborhood and the
// chunks it appears in. The name match is case-insensitive; ?type narrows
// it to one entity type and ?depth bounds the traversal.
func GetEntityHandler(c echo.Context) error {
	type entityResponse struct {
		Message     string             `json:"message,omitempty"`
		Connections *graph.Connections `json:"connections,omitempty"`
		ChunkIDs    []string           `json:"chunk_ids,omitempty"`
	}

	app := c.(*middleware.AppContext).App
	if app.Builder == nil {
		return c.JSON(http.StatusConflict, entityResponse{Message: "Graph construction is disabled"})
	}

	name := c.Param("name")
	if name == "" {
		return c.JSON(http.StatusBadRequest, entityResponse{Message: "Entity name is required"})
	}

	depth := app.Config.GraphMaxDepth
	if raw := c.QueryParam("depth"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 5 {
			return c.JSON(http.StatusBadRequest, entityResponse{Message: "depth must be between 1 and 5"})
		}
		depth = parsed
	}

	connections, err := app.Builder.Connections(name, depth)
	if err != nil {
		return c.JSON(http.StatusNotFound, entityResponse{Message: "Entity not found"})
	}

	entityType := model.EntityType(c.QueryParam("type"))
	chunkIDs := app.Builder.FindChunksByEntity(name, entityType)

	return c.JSON(http.StatusOK, entityResponse{
		Connections: &connections,
		ChunkIDs:    chunkIDs,
	})
}
