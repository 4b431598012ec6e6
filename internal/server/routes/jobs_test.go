package routes

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/slidescribe/backend/internal/server/hub"

	"github.com/gorilla/websocket"
)

func TestCloseMessage(t *testing.T) {
	tests := []struct {
		name   string
		reason error
		code   int
	}{
		{"job finished", nil, websocket.CloseNormalClosure},
		{"slow subscriber", hub.ErrSlowSubscriber, websocket.CloseTryAgainLater},
		{"wrapped slow subscriber", errors.Join(errors.New("drop"), hub.ErrSlowSubscriber), websocket.CloseTryAgainLater},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := closeMessage(tt.reason)
			if len(msg) < 2 {
				t.Fatalf("close message too short: %q", msg)
			}
			if got := int(binary.BigEndian.Uint16(msg[:2])); got != tt.code {
				t.Fatalf("close code = %d, want %d", got, tt.code)
			}
		})
	}
}
