package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/slidescribe/backend/internal/server/hub"
	"github.com/slidescribe/backend/internal/server/middleware"
	"github.com/slidescribe/backend/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// closeMessage tells the client why its stream ended. A subscriber that fell
// behind may reconnect and gets the buffered events replayed.
func closeMessage(reason error) []byte {
	if errors.Is(reason, hub.ErrSlowSubscriber) {
		return websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow, reconnect to resume")
	}
	return websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished")
}

// JobSocketHandler streams the events of a job over a WebSocket. Events that
// were published before the client connected are sent first. The socket is
// closed after the job's final event, or with CloseTryAgainLater when the
// client cannot keep up.
func JobSocketHandler(c echo.Context) error {
	jobID := c.Param("id")

	app := c.(*middleware.AppContext).App
	replay, sub, err := app.Hub.Attach(jobID)
	if err != nil {
		if errors.Is(err, hub.ErrUnknownJob) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"message": "Job not found",
			})
		}
		return err
	}
	defer sub.Detach()

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", "job_id", jobID, "err", err)
		return nil
	}
	defer ws.Close()

	// the client only ever sends control frames, reading detects disconnects
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(data []byte) error {
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		return ws.WriteMessage(websocket.TextMessage, data)
	}

	for _, data := range replay {
		if err := send(data); err != nil {
			return nil
		}
	}

	for {
		select {
		case <-gone:
			logger.Debug("WebSocket client disconnected", "job_id", jobID)
			return nil
		case data, ok := <-sub.C:
			if !ok {
				reason := sub.Err()
				if reason != nil {
					logger.Warn("WebSocket client dropped", "job_id", jobID, "err", reason)
				}
				ws.SetWriteDeadline(time.Now().Add(writeWait))
				ws.WriteMessage(websocket.CloseMessage, closeMessage(reason))
				return nil
			}
			if err := send(data); err != nil {
				return nil
			}
		}
	}
}
