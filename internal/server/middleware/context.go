package middleware

import (
	"github.com/slidescribe/backend/internal/queue"
	"github.com/slidescribe/backend/internal/server/hub"
	"github.com/slidescribe/backend/internal/storage"
	"github.com/slidescribe/backend/pkg/pptx"

	"github.com/labstack/echo/v4"
)

// App holds the dependencies shared by all handlers.
type App struct {
	Queue     queue.Channel
	Uploads   storage.Uploads
	Hub       *hub.Hub
	Extractor *pptx.Extractor
	// MaxUploadBytes bounds presentations read into memory by /api/extract.
	MaxUploadBytes int64
}

type AppContext struct {
	echo.Context
	App *App
}

// AppContextMiddleware makes app available to handlers through AppContext.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
