package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/jwebster45206/anima-narrator/pkg/chat"
	"github.com/jwebster45206/anima-narrator/pkg/narrative"
	"github.com/jwebster45206/anima-narrator/pkg/prompts"
	"github.com/jwebster45206/anima-narrator/pkg/state"
)

//go:generate mockgen -destination=mock/mock_narrator.go -package=enginemock github.com/jwebster45206/anima-narrator/pkg/engine Narrator

var (
	// ErrBusy is returned when a command arrives while a narrator call is in flight.
	ErrBusy = errors.New("session is busy")
	// ErrRollPending is returned when a command arrives while a roll awaits confirmation.
	ErrRollPending = errors.New("a roll is pending")
	// ErrNoPendingRoll is returned when a roll is confirmed but none was requested.
	ErrNoPendingRoll = errors.New("no roll is pending")
	// ErrNotInitialized is returned for commands sent before the game is set up.
	ErrNotInitialized = errors.New("game is not initialized")
	// ErrEmptyCommand is returned for blank commands.
	ErrEmptyCommand = errors.New("command is empty")
	// ErrNarratorFailed wraps any error from the narrator. The command stays
	// in the transcript and the session accepts a retry.
	ErrNarratorFailed = errors.New("narrator failed")

	errEmptyReply = errors.New("narrator returned no response")
)

// Narrator produces the next narrative turn for a command.
type Narrator interface {
	Narrate(ctx context.Context, command string, ps *state.PromptState) (*narrative.Response, error)
}

// Publisher receives every transcript entry a session adds.
type Publisher interface {
	Publish(ctx context.Context, sessionID string, msg chat.ChatMessage) error
}

// Turn is the result of one Submit or ResolveRoll call.
type Turn struct {
	Messages []chat.ChatMessage // transcript entries added by the call, in order
	State    *state.GameState   // state after the call
}

// Session owns one GameState and serializes every transition on it.
// The narrator is called without holding the lock; the loading flag keeps a
// second command out while a call is in flight.
type Session struct {
	mu        sync.Mutex
	gs        *state.GameState
	reducer   *Reducer
	narrator  Narrator
	publisher Publisher
	logger    *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPublisher sets the transcript publisher.
func WithPublisher(p Publisher) SessionOption {
	return func(s *Session) { s.publisher = p }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession wraps gs. A nil gs starts an uninitialized session.
func NewSession(gs *state.GameState, reducer *Reducer, narrator Narrator, opts ...SessionOption) *Session {
	if gs == nil {
		gs = state.NewGameState()
	}
	if reducer == nil {
		reducer = NewReducer(nil, nil)
	}
	s := &Session{
		gs:       gs,
		reducer:  reducer,
		narrator: narrator,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the current state.
func (s *Session) State() *state.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gs.Clone()
}

// Dispatch applies a single action and publishes any new transcript entries.
func (s *Session) Dispatch(ctx context.Context, action Action) (Effect, error) {
	s.mu.Lock()
	before := len(s.gs.Transcript)
	effect, err := s.reduceLocked(action)
	added := s.addedSince(before)
	id := s.gs.ID.String()
	s.mu.Unlock()

	s.publish(ctx, id, added)
	return effect, err
}

// Submit runs one player command through the narrator. Shortcut commands
// such as "look" are answered from local state without a narrator call.
func (s *Session) Submit(ctx context.Context, command string) (*Turn, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, ErrEmptyCommand
	}

	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	before := len(s.gs.Transcript)
	id := s.gs.ID.String()

	if res := s.gs.TryHandleCommand(command); res.Handled {
		_, _ = s.reduceLocked(AddMessage{Message: chat.ChatMessage{Role: chat.ChatRoleUser, Content: command}})
		_, _ = s.reduceLocked(AddMessage{Message: chat.ChatMessage{Role: res.Role, Content: res.Message}})
		turn := s.turnLocked(before)
		s.mu.Unlock()
		s.publish(ctx, id, turn.Messages)
		return turn, nil
	}

	ps := s.beginCommandLocked(command)
	started := s.addedSince(before)
	s.mu.Unlock()
	s.publish(ctx, id, started)

	return s.narrate(ctx, command, ps, before)
}

// ResolveRoll rolls the pending check, then feeds the result back to the
// narrator as a system command.
func (s *Session) ResolveRoll(ctx context.Context, useAlternative bool) (*Turn, error) {
	s.mu.Lock()
	if !s.gs.Initialized {
		s.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if s.gs.PendingRoll == nil {
		s.mu.Unlock()
		return nil, ErrNoPendingRoll
	}
	before := len(s.gs.Transcript)
	id := s.gs.ID.String()

	effect, err := s.reduceLocked(ProcessRoll{UseAlternative: useAlternative})
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if effect.Command == "" {
		turn := s.turnLocked(before)
		s.mu.Unlock()
		s.publish(ctx, id, turn.Messages)
		return turn, nil
	}

	s.logger.Info("Roll resolved",
		"game_id", id,
		"skill", effect.Rolled.Skill,
		"attribute", effect.Rolled.Attribute,
		"successes", effect.Roll.Successes,
		"dice", len(effect.Roll.Dice))

	ps := s.beginCommandLocked(effect.Command)
	started := s.addedSince(before)
	s.mu.Unlock()
	s.publish(ctx, id, started)

	return s.narrate(ctx, effect.Command, ps, before)
}

// narrate calls the narrator and applies its reply. It must be called
// without the lock, after beginCommandLocked.
func (s *Session) narrate(ctx context.Context, command string, ps *state.PromptState, before int) (*Turn, error) {
	resp, callErr := s.narrator.Narrate(ctx, command, ps)
	if callErr == nil && resp == nil {
		callErr = errEmptyReply
	}

	s.mu.Lock()
	published := len(s.gs.Transcript)
	id := s.gs.ID.String()
	if callErr != nil {
		_, _ = s.reduceLocked(SetLoading{Loading: false})
		s.mu.Unlock()
		s.logger.Error("Narrator call failed",
			"game_id", id,
			"error", callErr)
		return nil, fmt.Errorf("%w: %w", ErrNarratorFailed, callErr)
	}

	if len(resp.Dropped) > 0 {
		s.logger.Warn("Dropped malformed narrator fields",
			"game_id", id,
			"fields", resp.Dropped)
	}
	_, _ = s.reduceLocked(ProcessNarrativeResponse{Response: resp, Command: command})
	turn := s.turnLocked(before)
	added := s.addedSince(published)
	s.mu.Unlock()

	s.publish(ctx, id, added)
	return turn, nil
}

// readyLocked checks whether a new command may start.
func (s *Session) readyLocked() error {
	switch s.gs.Phase() {
	case state.PhaseUninitialized:
		return ErrNotInitialized
	case state.PhaseAwaitingRoll:
		return ErrRollPending
	case state.PhaseLoading:
		return ErrBusy
	}
	if s.narrator == nil {
		return fmt.Errorf("no narrator configured")
	}
	return nil
}

// beginCommandLocked records the command and marks the session loading.
// Engine commands are recorded with the system role.
func (s *Session) beginCommandLocked(command string) *state.PromptState {
	role := chat.ChatRoleUser
	if strings.HasPrefix(command, prompts.SystemCommandPrefix) {
		role = chat.ChatRoleSystem
	}
	_, _ = s.reduceLocked(AddMessage{Message: chat.ChatMessage{Role: role, Content: command}})
	_, _ = s.reduceLocked(SetLoading{Loading: true})
	return state.ToPromptState(s.gs)
}

func (s *Session) reduceLocked(action Action) (Effect, error) {
	next, effect, err := s.reducer.Reduce(s.gs, action)
	if err != nil {
		return Effect{}, err
	}
	s.gs = next
	return effect, nil
}

func (s *Session) addedSince(n int) []chat.ChatMessage {
	if n >= len(s.gs.Transcript) {
		return nil
	}
	return slices.Clone(s.gs.Transcript[n:])
}

func (s *Session) turnLocked(before int) *Turn {
	return &Turn{
		Messages: s.addedSince(before),
		State:    s.gs.Clone(),
	}
}

func (s *Session) publish(ctx context.Context, id string, msgs []chat.ChatMessage) {
	if s.publisher == nil {
		return
	}
	for _, m := range msgs {
		if err := s.publisher.Publish(ctx, id, m); err != nil {
			s.logger.Warn("Failed to publish transcript entry",
				"game_id", id,
				"role", m.Role,
				"error", err)
		}
	}
}
