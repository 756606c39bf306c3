package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atlas/internal/config"
	"atlas/internal/ingest"
	"atlas/internal/queue"
	"atlas/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"

	"atlas/pkg/chunker"
	"atlas/pkg/graph"
	"atlas/pkg/ingestlock"
	"atlas/pkg/logger"
	"atlas/pkg/logger/console"
	graphstorage "atlas/pkg/store/pgx"
	oai "atlas/pkg/vector/openai"
	vecpgx "atlas/pkg/vector/pgx"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.New(console.Params{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	cfg := config.Load()

	// Init pgx client
	pgConn, err := vecpgx.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

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
		Conn:     pgConn,
		Embedder: embedder,
		Dim:      cfg.EmbeddingsDim,
	})
	if err != nil {
		logger.Fatal("Failed to create chunk index", "err", err)
	}

	storage, err := graphstorage.NewGraphDBStorage(ctx, pgConn)
	if err != nil {
		logger.Fatal("Failed to create graph storage", "err", err)
	}

	lock, err := ingestlock.New(ctx, pgConn)
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

	// Init rabbitmq
	conn := queue.Init(cfg.QueueURL)
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	logger.Info("Listening for messages")

	// Create a single consumer channel with prefetch=1
	// This ensures only ONE message is delivered at a time across all queues
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queue.Queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.IngestQueue:
					processingErr = queue.ProcessIngestMessage(ctx, svc, string(qm.msg.Body))
				case queue.RebuildQueue:
					processingErr = queue.ProcessRebuildMessage(ctx, svc, string(qm.msg.Body))
				}

				// If there was an error send to retry or dead-letter, otherwise ack the message
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					handleProcessingError(consumerCh, qm.msg, qm.queueName)
				} else {
					if err := qm.msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				logger.Info("Processing time", "duration", time.Since(startTime).Round(time.Millisecond))
				logger.Info("Waiting for next message")
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	// If message has been retried 10 times, send to dead-letter
	if retries >= 10 {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = retries + 1

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
