package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/sse"
)

const defaultKeepalive = 30 * time.Second

// Subscriber is the event source of the stream handlers.
type Subscriber interface {
	Subscribe(topic string) (<-chan sse.Event, func())
}

type EventsHandler interface {
	Stream(w http.ResponseWriter, r *http.Request)
}

type eventsHandlerImpl struct {
	hub               Subscriber
	topic             string
	attendanceService attendance.AttendanceService
	keepalive         time.Duration
}

func NewEventsHandler(hub Subscriber, topic string, attendanceService attendance.AttendanceService, keepalive time.Duration) EventsHandler {
	if keepalive <= 0 {
		keepalive = defaultKeepalive
	}
	return &eventsHandlerImpl{
		hub:               hub,
		topic:             topic,
		attendanceService: attendanceService,
		keepalive:         keepalive,
	}
}

// Stream handles SSE connection for state, face count, verification,
// working-hours and error events.
func (h *eventsHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(h.topic)
	defer cleanup()

	// current snapshot first so a late subscriber starts consistent
	if err := writeEvent(w, sse.EventStatus, h.attendanceService.State()); err != nil {
		return
	}
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, event.Event, event.Data); err != nil {
				return
			}
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		// skip unencodable payloads, keep the stream open
		return nil
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	return err
}
