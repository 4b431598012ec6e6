package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slidescribe/backend/internal/queue"
	"github.com/slidescribe/backend/internal/server/hub"
	mid "github.com/slidescribe/backend/internal/server/middleware"
	"github.com/slidescribe/backend/internal/storage"
	"github.com/slidescribe/backend/internal/util"
	"github.com/slidescribe/backend/pkg/logger"
	"github.com/slidescribe/backend/pkg/media"
	"github.com/slidescribe/backend/pkg/pptx"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rabbitmq/amqp091-go"
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

// New returns the echo app serving app.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(util.GetEnvString("MAX_UPLOAD_SIZE", "512M")))

	RegisterRoutes(e)
	return e
}

func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	var uploads storage.Uploads
	switch util.GetEnvString("STORAGE_BACKEND", "local") {
	case "s3":
		client, err := storage.NewS3Client(ctx)
		if err != nil {
			logger.Fatal("Failed to create S3 client", "err", err)
		}
		uploads = storage.NewS3Uploads(client)
	default:
		uploads = storage.NewLocalUploads(util.GetEnvString("UPLOAD_DIR", storage.UploadPrefix))
	}

	events := hub.New(amqpSubscriber(que), hub.DefaultRetention)
	defer events.Close()

	app := &mid.App{
		Queue:   ch,
		Uploads: uploads,
		Hub:     events,
		Extractor: pptx.NewExtractor(pptx.Options{
			Concurrency:        int(util.GetEnvNumeric("EXTRACT_CONCURRENCY", pptx.DefaultConcurrency)),
			ElementConcurrency: int(util.GetEnvNumeric("EXTRACT_ELEMENT_CONCURRENCY", pptx.DefaultElementConcurrency)),
			Normalizer: media.NewNormalizer(
				media.NewFileStore(util.GetEnvString("IMAGE_OUTPUT_DIR", media.DefaultOutputDir)),
				media.WithQuality(int(util.GetEnvNumeric("JPEG_QUALITY", media.DefaultJPEGQuality))),
			),
		}),
		MaxUploadBytes: int64(util.GetEnvNumeric("EXTRACT_MAX_BYTES", 256<<20)),
	}

	e := New(app)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
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

// amqpSubscriber subscribes to job topics, one channel per job.
func amqpSubscriber(conn *amqp091.Connection) hub.SubscribeFunc {
	return func(ctx context.Context, jobID string) (<-chan []byte, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		msgs, err := queue.Subscribe(ch, jobID)
		if err != nil {
			ch.Close()
			return nil, err
		}

		out := make(chan []byte)
		go func() {
			defer close(out)
			defer ch.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-msgs:
					if !ok {
						return
					}
					select {
					case out <- d.Body:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
		return out, nil
	}
}
