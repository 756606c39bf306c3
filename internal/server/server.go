package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atlas/internal/config"
	"atlas/internal/ingest"
	mid "atlas/internal/server/middleware"
	"atlas/pkg/chunker"
	"atlas/pkg/graph"
	"atlas/pkg/ingestlock"
	"atlas/pkg/logger"
	"atlas/pkg/search"
	graphstorage "atlas/pkg/store/pgx"
	oai "atlas/pkg/vector/openai"
	vecpgx "atlas/pkg/vector/pgx"

	"github.com/go-playground/validator"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"atlas/internal/queue"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	conn, err := vecpgx.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	embedder, err := oai.NewEmbedder(oai.NewEmbedderParams{
		BaseURL: cfg.EmbeddingsURL,
		Key:     os.Getenv("EMBEDDINGS_KEY"),
		Model:   cfg.EmbeddingsModel,
		Dim:     cfg.EmbeddingsDim,
	})
	if err != nil {
		logger.Fatal("Failed to create embedder", "err", err)
	}

	provider, err := vecpgx.NewProvider(ctx, vecpgx.NewProviderParams{
		Conn:     conn,
		Embedder: embedder,
		Dim:      cfg.EmbeddingsDim,
	})
	if err != nil {
		logger.Fatal("Failed to create chunk index", "err", err)
	}

	storage, err := graphstorage.NewGraphDBStorage(ctx, conn)
	if err != nil {
		logger.Fatal("Failed to create graph storage", "err", err)
	}

	lock, err := ingestlock.New(ctx, conn)
	if err != nil {
		logger.Fatal("Failed to create ingest lock", "err", err)
	}

	chk, err := chunker.NewChunker(chunker.NewChunkerParams{
		Encoding:  cfg.ChunkEncoding,
		MaxTokens: cfg.ChunkMaxTokens,
	})
	if err != nil {
		logger.Fatal("Failed to create chunker", "err", err)
	}

	builder := graph.NewBuilder(graph.NewBuilderParams{
		Parallelism: cfg.BuildParallelism,
	})

	svc := ingest.NewService(ingest.NewServiceParams{
		Chunker:      chk,
		Provider:     provider,
		Builder:      builder,
		Storage:      storage,
		Lock:         lock,
		GraphEnabled: cfg.GraphEnabled,
	})
	if err := svc.LoadGraph(ctx); err != nil {
		logger.Warn("Failed to load graph snapshot, starting empty", "err", err)
	}

	var graphBuilder *graph.Builder
	if cfg.GraphEnabled {
		graphBuilder = builder
	}
	enhancer := search.NewEnhancer(search.NewEnhancerParams{
		Vector:     provider,
		Builder:    graphBuilder,
		MaxDepth:   cfg.GraphMaxDepth,
		MaxRelated: cfg.GraphMaxRelated,
	})

	app := &mid.App{
		Ingest:   svc,
		Enhancer: enhancer,
		Builder:  graphBuilder,
		Config:   cfg,
	}
	if cfg.QueueURL != "" {
		que := queue.Init(cfg.QueueURL)
		defer que.Close()
		channel, err := que.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		if err := queue.SetupQueues(channel, queue.Queues); err != nil {
			logger.Fatal("Failed to declare queues", "err", err)
		}
		app.Queue = channel
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("16M"))

	RegisterRoutes(e)

	go func() {
		logger.Info("Starting server", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
