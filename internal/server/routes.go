package server

import (
	"github.com/slidescribe/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	apiRoutes.POST("/upload", routes.UploadHandler)
	apiRoutes.GET("/jobs/:id/ws", routes.JobSocketHandler)
	apiRoutes.POST("/extract", routes.ExtractHandler)
}
