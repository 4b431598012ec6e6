package routes

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/slidescribe/backend/internal/queue"
	"github.com/slidescribe/backend/internal/server/middleware"
	"github.com/slidescribe/backend/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// UploadHandler stores an uploaded presentation and enqueues its transcript
// job. Progress is delivered on /api/jobs/:id/ws.
func UploadHandler(c echo.Context) error {
	type uploadBody struct {
		GroupSize int `form:"group_size" validate:"omitempty,min=1,max=20"`
	}

	type uploadResponse struct {
		Message string `json:"message"`
		JobID   string `json:"job_id,omitempty"`
	}

	data := new(uploadBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, uploadResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, uploadResponse{
			Message: "Invalid request body",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, uploadResponse{
			Message: "No file uploaded",
		})
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pptx") {
		return c.JSON(http.StatusBadRequest, uploadResponse{
			Message: "Only .pptx files are supported",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, uploadResponse{
			Message: "Invalid request body",
		})
	}
	defer src.Close()

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	jobID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}

	key, err := app.Uploads.Put(ctx, jobID, file.Filename, src)
	if err != nil {
		logger.Error("Failed to store upload", "job_id", jobID, "err", err)
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}

	if err := app.Hub.Track(jobID); err != nil {
		logger.Error("Failed to subscribe to job events", "job_id", jobID, "err", err)
		_ = app.Uploads.Delete(ctx, key)
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}

	msg, err := json.Marshal(queue.QueueExtractMsg{
		Message:   "Presentation uploaded",
		JobID:     jobID,
		FileName:  file.Filename,
		FileKey:   key,
		GroupSize: data.GroupSize,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}
	if err := queue.PublishFIFO(app.Queue, queue.ExtractQueue, msg); err != nil {
		logger.Error("Failed to enqueue job", "job_id", jobID, "err", err)
		app.Hub.Forget(jobID)
		_ = app.Uploads.Delete(ctx, key)
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}

	logger.Info("Job enqueued", "job_id", jobID, "file", file.Filename, "size", file.Size)
	return c.JSON(http.StatusAccepted, uploadResponse{
		Message: "Processing started",
		JobID:   jobID,
	})
}
