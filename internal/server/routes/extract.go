package routes

import (
	"errors"
	"io"
	"net/http"

	"github.com/slidescribe/backend/internal/server/middleware"
	"github.com/slidescribe/backend/pkg/logger"
	"github.com/slidescribe/backend/pkg/pptx"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ExtractHandler extracts the slides of an uploaded presentation and returns
// them directly, without generating a transcript. Every request writes its
// images to a directory of its own.
func ExtractHandler(c echo.Context) error {
	type extractResponse struct {
		Message string       `json:"message"`
		Slides  []pptx.Slide `json:"slides,omitempty"`
		Stats   *pptx.Stats  `json:"stats,omitempty"`
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, extractResponse{
			Message: "No file uploaded",
		})
	}

	app := c.(*middleware.AppContext).App
	if app.MaxUploadBytes > 0 && file.Size > app.MaxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, extractResponse{
			Message: "File too large",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, extractResponse{
			Message: "Invalid request body",
		})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return c.JSON(http.StatusBadRequest, extractResponse{
			Message: "Invalid request body",
		})
	}

	requestID, err := gonanoid.New()
	if err != nil {
		logger.Error("Failed to generate request ID", "err", err)
		return c.JSON(http.StatusInternalServerError, extractResponse{
			Message: "Internal server error",
		})
	}
	extractor, err := app.Extractor.Scope(requestID)
	if err != nil {
		logger.Error("Failed to scope extractor", "err", err)
		return c.JSON(http.StatusInternalServerError, extractResponse{
			Message: "Internal server error",
		})
	}

	res, err := extractor.RunBytes(c.Request().Context(), data)
	if err != nil {
		var corrupt *pptx.CorruptArchiveError
		if errors.As(err, &corrupt) {
			return c.JSON(http.StatusUnprocessableEntity, extractResponse{
				Message: "Not a valid presentation",
			})
		}
		logger.Error("Extraction failed", "file", file.Filename, "err", err)
		return c.JSON(http.StatusInternalServerError, extractResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, extractResponse{
		Message: "Extraction finished",
		Slides:  res.Slides,
		Stats:   &res.Stats,
	})
}
