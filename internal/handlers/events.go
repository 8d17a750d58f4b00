package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/anima-narrator/internal/middleware"
	"github.com/jwebster45206/anima-narrator/internal/services/events"
)

// EventsHandler handles Server-Sent Events (SSE) for real-time game updates
type EventsHandler struct {
	bus       events.Bus
	logger    *slog.Logger
	keepalive time.Duration
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(bus events.Bus, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		bus:       bus,
		logger:    logger,
		keepalive: 30 * time.Second,
	}
}

// ServeHTTP streams a game's events.
// GET /v1/games/{id}/events
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.logger)
	id, ok := gameID(w, r, log)
	if !ok {
		return
	}

	sub, err := h.bus.Subscribe(r.Context(), id.String())
	if err != nil {
		writeErr(w, log, err)
		return
	}
	defer func() {
		if err := sub.Close(); err != nil {
			log.Error("Failed to close subscription", "error", err)
		}
	}()

	log.Info("SSE connection established",
		"game_id", id.String(),
		"remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	h.sendSSE(w, log, "connected", map[string]string{
		"game_id": id.String(),
		"message": "Connected to event stream",
	})

	keepaliveTicker := time.NewTicker(h.keepalive)
	defer keepaliveTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Info("SSE client disconnected", "game_id", id.String())
			return

		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			h.sendSSE(w, log, string(ev.Type), ev)

		case <-keepaliveTicker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				log.Error("Failed to write keepalive", "error", err)
				return
			}
			flush(w)
		}
	}
}

// sendSSE sends a Server-Sent Event to the client
func (h *EventsHandler) sendSSE(w http.ResponseWriter, log *slog.Logger, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		log.Error("Failed to marshal SSE data", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		log.Error("Failed to write event", "error", err)
		return
	}
	flush(w)
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
