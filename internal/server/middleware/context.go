package middleware

import (
	"atlas/internal/config"
	"atlas/internal/ingest"
	"atlas/pkg/graph"
	"atlas/pkg/search"

	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"
)

// App bundles the shared dependencies every handler reaches through the
// request context. Queue is nil when no broker is configured; handlers then
// run ingestion inline.
type App struct {
	Ingest   *ingest.Service
	Enhancer *search.Enhancer
	Builder  *graph.Builder
	Queue    *amqp091.Channel
	Config   config.Config
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
