package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/kozaktomas/image-search/internal/constants"
	"github.com/kozaktomas/image-search/internal/metrics"
	"github.com/kozaktomas/image-search/internal/notify"
)

// EventsHandler streams notifications to the browser.
type EventsHandler struct {
	events    *notify.Broadcaster
	snapshot  func() any
	keepAlive time.Duration
}

// NewEventsHandler creates an events handler. snapshot provides the
// initial "status" event of every stream.
func NewEventsHandler(events *notify.Broadcaster, snapshot func() any) *EventsHandler {
	return &EventsHandler{
		events:    events,
		snapshot:  snapshot,
		keepAlive: constants.SSEKeepAlive,
	}
}

// setupSSEConnection sets the SSE headers. On failure it writes an error
// response and returns false.
func setupSSEConnection(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return flusher, true
}

// sendSSEEvent writes one event and flushes it.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}

// Stream sends the current state followed by every notification until the
// client disconnects.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	eventCh := h.events.AddListener()
	defer h.events.RemoveListener(eventCh)
	metrics.EventListeners.Inc()
	defer metrics.EventListeners.Dec()

	sendSSEEvent(w, flusher, "status", h.snapshot())

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": keep-alive\n\n")
			flusher.Flush()
		case n, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, "notification", n)
		}
	}
}
