package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jwebster45206/anima-narrator/internal/journal"
	"github.com/jwebster45206/anima-narrator/internal/middleware"
	"github.com/jwebster45206/anima-narrator/internal/storage"
)

// JournalHandler exports a game as a PDF.
type JournalHandler struct {
	store  storage.Storage
	logger *slog.Logger
}

func NewJournalHandler(store storage.Storage, logger *slog.Logger) *JournalHandler {
	return &JournalHandler{store: store, logger: logger}
}

// ServeHTTP handles GET /v1/games/{id}/journal.pdf
func (h *JournalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.logger)
	id, ok := gameID(w, r, log)
	if !ok {
		return
	}

	gs, err := h.store.LoadGameState(r.Context(), id)
	if err != nil {
		writeErr(w, log, err)
		return
	}
	if gs == nil {
		writeErr(w, log, errGameNotFound)
		return
	}

	data, err := journal.Render(gs, r.URL.Query().Get("title"))
	if err != nil {
		writeErr(w, log, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="journal-%s.pdf"`, id.String()[:8]))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Error("Failed to write journal", "error", err)
	}
}
