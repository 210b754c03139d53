package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/camera"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/sse"
)

const (
	defaultFrameInterval = 200 * time.Millisecond
	writeWait            = 5 * time.Second
)

// Previewer encodes the current camera frame for display.
type Previewer interface {
	Preview() (camera.Image, error)
}

type PreviewHandler interface {
	Stream(w http.ResponseWriter, r *http.Request)
}

type previewHandlerImpl struct {
	camera   Previewer
	hub      Subscriber
	topic    string
	interval time.Duration
	upgrader websocket.Upgrader
}

// NewPreviewHandler streams the live camera over a WebSocket. Binary
// messages carry JPEG frames; text messages carry face-count events.
// An empty origins list accepts same-origin and non-browser clients only.
func NewPreviewHandler(cam Previewer, hub Subscriber, topic string, interval time.Duration, origins []string) PreviewHandler {
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	upgrader := websocket.Upgrader{}
	if len(origins) > 0 {
		allowed := make(map[string]struct{}, len(origins))
		for _, o := range origins {
			allowed[o] = struct{}{}
		}
		upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		}
	}
	return &previewHandlerImpl{
		camera:   cam,
		hub:      hub,
		topic:    topic,
		interval: interval,
		upgrader: upgrader,
	}
}

type previewMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func (h *previewHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	events, cleanup := h.hub.Subscribe(h.topic)
	defer cleanup()

	// the reader only watches for the viewer going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Debug("Preview viewer disconnected")
				} else {
					slog.Debug("Preview viewer disconnected with error", "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return

		case <-r.Context().Done():
			return

		case <-ticker.C:
			frame, err := h.camera.Preview()
			if err != nil {
				if !errors.Is(err, camera.ErrNotLive) && !errors.Is(err, camera.ErrFrameNotReady) {
					slog.Debug("Preview frame failed", "error", err)
				}
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, frame.Data); err != nil {
				return
			}

		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Event != sse.EventFaceCount {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(previewMessage{Event: event.Event, Data: event.Data}); err != nil {
				return
			}
		}
	}
}
