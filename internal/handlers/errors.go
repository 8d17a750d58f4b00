package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/anima-narrator/internal/storage"
	"github.com/jwebster45206/anima-narrator/pkg/engine"
	"github.com/jwebster45206/anima-narrator/pkg/scenario"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

var errGameNotFound = errors.New("game not found")

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrEmptyCommand),
		errors.Is(err, scenario.ErrUnknownClass):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrBusy),
		errors.Is(err, engine.ErrRollPending),
		errors.Is(err, engine.ErrNoPendingRoll),
		errors.Is(err, engine.ErrNotInitialized),
		errors.Is(err, storage.ErrLocked):
		return http.StatusConflict
	case errors.Is(err, engine.ErrNarratorFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// writeErr reports err with the status statusFor picks. Server-side failures
// are logged and their details hidden from the client.
func writeErr(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		logger.Error("Request failed", "error", err)
		msg = "internal server error"
	case http.StatusBadGateway:
		logger.Warn("Narrator unavailable", "error", err)
		msg = "the narrator did not respond; try again"
	}
	writeError(w, logger, status, msg)
}
