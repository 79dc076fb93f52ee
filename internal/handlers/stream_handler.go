package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"littletoes/internal/stream"
)

// keepAliveInterval is how often an SSE comment is sent to hold the
// connection open through proxies.
const keepAliveInterval = 25 * time.Second

// StreamHandler serves the per-session server-sent event feed
type StreamHandler struct{}

// NewStreamHandler creates a new stream handler
func NewStreamHandler() *StreamHandler {
	return &StreamHandler{}
}

// Events handles GET /api/session/events. It subscribes the client to
// the session feed and relays events until the client disconnects.
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	ls := GetSessionFromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "Streaming unsupported", "", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id, events := ls.Feed.Subscribe()
	defer ls.Feed.Unsubscribe(id)

	rc := http.NewResponseController(w)

	// Tell the client it is connected before the first real event
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			_ = rc.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := writeEvent(w, ev); err != nil {
				log.Debug().Err(err).Msg("SSE client write failed")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev stream.Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("failed to encode event data: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
