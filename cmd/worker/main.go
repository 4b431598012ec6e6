package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slidescribe/backend/internal/queue"
	"github.com/slidescribe/backend/internal/storage"
	"github.com/slidescribe/backend/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/slidescribe/backend/pkg/ai"
	oai "github.com/slidescribe/backend/pkg/ai/ollama"
	gai "github.com/slidescribe/backend/pkg/ai/openai"
	"github.com/slidescribe/backend/pkg/loader"
	ioloader "github.com/slidescribe/backend/pkg/loader/io"
	pptxloader "github.com/slidescribe/backend/pkg/loader/pptx"
	s3loader "github.com/slidescribe/backend/pkg/loader/s3"
	"github.com/slidescribe/backend/pkg/logger"
	"github.com/slidescribe/backend/pkg/logger/console"
	"github.com/slidescribe/backend/pkg/media"
	s3media "github.com/slidescribe/backend/pkg/media/s3"
	"github.com/slidescribe/backend/pkg/pptx"
	"github.com/slidescribe/backend/pkg/transcript"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
		JSON:  util.GetEnvBool("LOG_JSON", false),
	})
	logger.Init(consoleLogger)

	// storage
	var (
		files   loader.FileLoader
		images  media.Store
		uploads storage.Uploads
	)
	switch util.GetEnvString("STORAGE_BACKEND", "local") {
	case "s3":
		client, err := storage.NewS3Client(ctx)
		if err != nil {
			logger.Fatal("Could not create S3 client", "err", err)
		}
		files = s3loader.NewS3FileLoaderWithClient(storage.Bucket(), client)
		images = s3media.NewStore(s3media.NewStoreParams{
			Client: client,
			Bucket: storage.Bucket(),
			Prefix: util.GetEnvString("IMAGE_OUTPUT_DIR", "images"),
		})
		uploads = storage.NewS3Uploads(client)
	default:
		files = ioloader.NewIOFileLoader()
		images = media.NewFileStore(util.GetEnvString("IMAGE_OUTPUT_DIR", media.DefaultOutputDir))
		uploads = storage.NewLocalUploads(util.GetEnvString("UPLOAD_DIR", storage.UploadPrefix))
	}
	if !util.GetEnvBool("DELETE_UPLOADS", true) {
		uploads = nil
	}

	extractor := pptx.NewExtractor(pptx.Options{
		Concurrency:        int(util.GetEnvNumeric("EXTRACT_CONCURRENCY", pptx.DefaultConcurrency)),
		ElementConcurrency: int(util.GetEnvNumeric("EXTRACT_ELEMENT_CONCURRENCY", pptx.DefaultElementConcurrency)),
		Normalizer: media.NewNormalizer(
			images,
			media.WithQuality(int(util.GetEnvNumeric("JPEG_QUALITY", media.DefaultJPEGQuality))),
		),
	})

	// TranscriptClient
	adapter := util.GetEnv("AI_ADAPTER")
	var aiClient ai.TranscriptClient

	switch adapter {
	case "ollama":
		client, err := oai.NewTranscriptOllamaClient(oai.NewTranscriptOllamaClientParams{
			Model: util.GetEnv("AI_TRANSCRIPT_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 4)),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		aiClient = client
	default:
		aiClient = gai.NewTranscriptOpenAIClient(gai.NewTranscriptOpenAIClientParams{
			Model: util.GetEnv("AI_TRANSCRIPT_MODEL"),

			ChatURL: util.GetEnv("AI_CHAT_URL"),
			ChatKey: util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 4)),
		})
	}

	deps := queue.ExtractDeps{
		Slides: pptxloader.NewPPTXLoader(files, extractor),
		Client: aiClient,
		Store:  images,
		Options: transcript.Options{
			GroupSize:     int(util.GetEnvNumeric("TRANSCRIPT_GROUP_SIZE", transcript.DefaultGroupSize)),
			MaxTokens:     int(util.GetEnvNumeric("TRANSCRIPT_MAX_TOKENS", 0)),
			SkipFirst:     util.GetEnvBool("TRANSCRIPT_SKIP_FIRST", true),
			SkipMarkers:   util.GetEnvList("TRANSCRIPT_SKIP_MARKERS", []string{transcript.DefaultSkipMarker}),
			CleanupImages: util.GetEnvBool("TRANSCRIPT_CLEANUP_IMAGES", false),
		},
		Uploads: uploads,
	}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
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
				logger.Info("Received message", "queue", qm.queueName, "retries", queue.RetryCount(qm.msg.Headers))

				var processingErr error
				switch qm.queueName {
				case queue.ExtractQueue:
					processingErr = queue.ProcessExtractMessage(ctx, deps, ch, string(qm.msg.Body))
				default:
					processingErr = &queue.PermanentError{Err: fmt.Errorf("no handler for queue %s", qm.queueName)}
				}

				// If there was an error send to retry or dead-letter, otherwise ack the message
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					queue.HandleProcessingError(consumerCh, qm.msg, qm.queueName, processingErr)
				} else {
					err = qm.msg.Ack(false)
					if err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				metrics := aiClient.GetMetrics()
				logger.Info(
					"AI Metrics",
					"requests", metrics.Requests,
					"input_tokens", metrics.InputTokens,
					"output_tokens", metrics.OutputTokens,
					"total_tokens", metrics.TotalTokens,
					"tokens_per_second", metrics.TokenPerSecond,
					"duration", formatDuration(time.Duration(metrics.DurationMs)*time.Millisecond),
				)
				logger.Info(
					"Processing time",
					"duration", formatDuration(time.Since(startTime)),
				)
				logger.Info("Waiting for next message")
				aiClient.ResetMetrics()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
