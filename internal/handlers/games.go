package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/anima-narrator/internal/logger"
	"github.com/jwebster45206/anima-narrator/internal/middleware"
	"github.com/jwebster45206/anima-narrator/internal/services/events"
	"github.com/jwebster45206/anima-narrator/internal/storage"
	"github.com/jwebster45206/anima-narrator/pkg/chat"
	"github.com/jwebster45206/anima-narrator/pkg/engine"
	"github.com/jwebster45206/anima-narrator/pkg/scenario"
	"github.com/jwebster45206/anima-narrator/pkg/state"
)

// CreateGameRequest starts a new game. Empty fields are chosen at random.
type CreateGameRequest struct {
	PlayerName string `json:"player_name,omitempty"`
	Class      string `json:"class,omitempty"`
}

// GameResponse is the full state of one game.
type GameResponse struct {
	ID    string           `json:"id"`
	Phase string           `json:"phase"`
	State *state.GameState `json:"state"`
}

// GameHandler serves the game lifecycle. Every request that changes a game
// takes the game's storage lock, loads it, runs one session turn and saves
// the result.
type GameHandler struct {
	store    storage.Storage
	catalog  *scenario.Catalog
	reducer  *engine.Reducer
	narrator engine.Narrator
	bus      events.Bus
	lockTTL  time.Duration
	logger   *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// GameHandlerOption configures a GameHandler.
type GameHandlerOption func(*GameHandler)

// WithRand fixes the random source used to draw new games.
func WithRand(r *rand.Rand) GameHandlerOption {
	return func(h *GameHandler) { h.rng = r }
}

// WithLockTTL bounds how long one turn may hold a game.
func WithLockTTL(ttl time.Duration) GameHandlerOption {
	return func(h *GameHandler) { h.lockTTL = ttl }
}

func NewGameHandler(store storage.Storage, catalog *scenario.Catalog, reducer *engine.Reducer, narrator engine.Narrator, bus events.Bus, logger *slog.Logger, opts ...GameHandlerOption) *GameHandler {
	h := &GameHandler{
		store:    store,
		catalog:  catalog,
		reducer:  reducer,
		narrator: narrator,
		bus:      bus,
		lockTTL:  storage.DefaultLockTTL,
		logger:   logger,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds the game routes to mux.
func (h *GameHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/games", h.handleCreate)
	mux.HandleFunc("GET /v1/games/{id}", h.handleRead)
	mux.HandleFunc("DELETE /v1/games/{id}", h.handleDelete)
	mux.HandleFunc("POST /v1/games/{id}/commands", h.handleCommand)
	mux.HandleFunc("POST /v1/games/{id}/roll", h.handleRoll)
}

func (h *GameHandler) log(r *http.Request) *slog.Logger {
	return middleware.FromContext(r.Context(), h.logger)
}

func gameID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		logger.Warn("Invalid game ID", "id", r.PathValue("id"), "error", err)
		writeError(w, logger, http.StatusBadRequest, "Invalid game ID format")
		return uuid.Nil, false
	}
	return id, true
}

func (h *GameHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)

	var req CreateGameRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Warn("Invalid JSON in request body", "error", err)
			writeError(w, log, http.StatusBadRequest, "Invalid JSON in request body")
			return
		}
	}

	h.rngMu.Lock()
	gs, err := h.catalog.NewGame(h.rng, scenario.Options{PlayerName: req.PlayerName, Class: req.Class})
	h.rngMu.Unlock()
	if err != nil {
		writeErr(w, log, err)
		return
	}

	sess := engine.NewSession(nil, h.reducer, h.narrator, engine.WithLogger(log))
	if _, err := sess.Dispatch(r.Context(), engine.InitGame{State: gs}); err != nil {
		writeErr(w, log, err)
		return
	}
	gs = sess.State()
	if err := h.store.SaveGameState(r.Context(), gs.ID, gs); err != nil {
		writeErr(w, log, err)
		return
	}

	log.Info("Game created",
		"game_id", gs.ID.String(),
		"player", gs.Player.Name,
		"class", gs.Player.Class)
	writeJSON(w, log, http.StatusCreated, GameResponse{ID: gs.ID.String(), Phase: string(gs.Phase()), State: gs})
}

func (h *GameHandler) handleRead(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	id, ok := gameID(w, r, log)
	if !ok {
		return
	}
	gs, err := h.load(r.Context(), id)
	if err != nil {
		writeErr(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, GameResponse{ID: id.String(), Phase: string(gs.Phase()), State: gs})
}

func (h *GameHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	id, ok := gameID(w, r, log)
	if !ok {
		return
	}
	err := storage.WithLock(r.Context(), h.store, id, h.lockTTL, func(ctx context.Context) error {
		return h.store.DeleteGameState(ctx, id)
	})
	if err != nil {
		writeErr(w, log, err)
		return
	}
	log.Info("Game deleted", "game_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}

func (h *GameHandler) handleCommand(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	id, ok := gameID(w, r, log)
	if !ok {
		return
	}

	var req chat.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("Invalid JSON in request body", "error", err)
		writeError(w, log, http.StatusBadRequest, "Invalid request body. Expected JSON with 'message' field.")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, log, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	h.turn(w, r, id, func(ctx context.Context, sess *engine.Session) (*engine.Turn, error) {
		return sess.Submit(ctx, req.Message)
	})
}

func (h *GameHandler) handleRoll(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	id, ok := gameID(w, r, log)
	if !ok {
		return
	}

	var req chat.RollConfirmRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Warn("Invalid JSON in request body", "error", err)
			writeError(w, log, http.StatusBadRequest, "Invalid JSON in request body")
			return
		}
	}

	h.turn(w, r, id, func(ctx context.Context, sess *engine.Session) (*engine.Turn, error) {
		return sess.ResolveRoll(ctx, req.UseAlternative)
	})
}

// turn runs fn against the stored game under its lock and writes the result.
// A narrator failure still saves the state, since the command and any roll
// are already in the transcript.
func (h *GameHandler) turn(w http.ResponseWriter, r *http.Request, id uuid.UUID, fn func(context.Context, *engine.Session) (*engine.Turn, error)) {
	log := logger.WithGame(h.log(r), id)

	var turn *engine.Turn
	err := storage.WithLock(r.Context(), h.store, id, h.lockTTL, func(ctx context.Context) error {
		gs, err := h.load(ctx, id)
		if err != nil {
			return err
		}

		opts := []engine.SessionOption{engine.WithLogger(log)}
		if h.bus != nil {
			opts = append(opts, engine.WithPublisher(h.bus))
		}
		sess := engine.NewSession(gs, h.reducer, h.narrator, opts...)

		var turnErr error
		turn, turnErr = fn(ctx, sess)
		if turnErr != nil && !errors.Is(turnErr, engine.ErrNarratorFailed) {
			return turnErr
		}

		final := sess.State()
		final.Touch()
		// persist even if the caller went away mid-turn
		if err := h.store.SaveGameState(context.WithoutCancel(ctx), id, final); err != nil {
			return fmt.Errorf("failed to save game: %w", err)
		}
		if h.bus != nil {
			if err := h.bus.PublishStateUpdated(ctx, id.String(), string(final.Phase())); err != nil {
				log.Warn("Failed to publish phase", "error", err)
			}
		}
		return turnErr
	})
	if err != nil {
		writeErr(w, log, err)
		return
	}

	gs := turn.State
	writeJSON(w, log, http.StatusOK, chat.CommandResponse{
		SessionID:   id.String(),
		Messages:    turn.Messages,
		PendingRoll: gs.RollPrompt,
		Loading:     gs.Loading,
		Phase:       string(gs.Phase()),
	})
}

func (h *GameHandler) load(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	gs, err := h.store.LoadGameState(ctx, id)
	if err != nil {
		return nil, err
	}
	if gs == nil {
		return nil, errGameNotFound
	}
	return gs, nil
}
