package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/anima-narrator/internal/services/events"
	"github.com/jwebster45206/anima-narrator/internal/storage"
	"github.com/jwebster45206/anima-narrator/pkg/chat"
	"github.com/jwebster45206/anima-narrator/pkg/engine"
	"github.com/jwebster45206/anima-narrator/pkg/narrative"
	"github.com/jwebster45206/anima-narrator/pkg/roll"
	"github.com/jwebster45206/anima-narrator/pkg/scenario"
	"github.com/jwebster45206/anima-narrator/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRoller always rolls the same face.
type fixedRoller int

func (f fixedRoller) Roll(size int) (int, error) { return int(f), nil }

func (f fixedRoller) RollN(count, size int) ([]int, error) {
	out := make([]int, count)
	for i := range out {
		out[i] = int(f)
	}
	return out, nil
}

// scriptedNarrator answers by exact command and records what it was asked.
type scriptedNarrator struct {
	mu      sync.Mutex
	replies map[string]*narrative.Response
	err     error
	calls   []string
}

func (n *scriptedNarrator) Narrate(ctx context.Context, command string, ps *state.PromptState) (*narrative.Response, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, command)
	if n.err != nil {
		return nil, n.err
	}
	if resp, ok := n.replies[command]; ok {
		return resp, nil
	}
	return &narrative.Response{Narrative: "Nothing happens."}, nil
}

func (n *scriptedNarrator) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

type testServer struct {
	mux      *http.ServeMux
	store    *storage.MockStorage
	hub      *events.Hub
	narrator *scriptedNarrator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	catalog, err := scenario.Default()
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	ts := &testServer{
		mux:      http.NewServeMux(),
		store:    storage.NewMockStorage(),
		hub:      events.NewHub(),
		narrator: &scriptedNarrator{replies: map[string]*narrative.Response{}},
	}
	reducer := engine.NewReducer(roll.NewResolver(fixedRoller(6), 0), logger)
	games := NewGameHandler(ts.store, catalog, reducer, ts.narrator, ts.hub, logger,
		WithRand(rand.New(rand.NewPCG(1, 2))))
	games.Register(ts.mux)
	ts.mux.Handle("GET /v1/games/{id}/events", NewEventsHandler(ts.hub, logger))
	ts.mux.Handle("GET /v1/games/{id}/journal.pdf", NewJournalHandler(ts.store, logger))
	ts.mux.Handle("/v1/classes", NewCatalogHandler(logger, catalog))
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body == nil {
		req.ContentLength = 0
	}
	w := httptest.NewRecorder()
	ts.mux.ServeHTTP(w, req)
	return w
}

func (ts *testServer) create(t *testing.T) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/v1/games", CreateGameRequest{PlayerName: "Ilsa", Class: "warden"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp GameResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.ID
}

func decodeTurn(t *testing.T, w *httptest.ResponseRecorder) chat.CommandResponse {
	t.Helper()
	var resp chat.CommandResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.Error
}

func roles(msgs []chat.ChatMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

func TestGameHandler_Create(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/games", CreateGameRequest{PlayerName: "Ilsa", Class: "Warden"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp GameResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, string(state.PhaseAwaitingCommand), resp.Phase)
	require.NotNil(t, resp.State)
	assert.True(t, resp.State.Initialized)
	assert.Equal(t, "Ilsa", resp.State.Player.Name)
	assert.Equal(t, "Warden", resp.State.Player.Class)
	require.NotEmpty(t, resp.State.Transcript)
	assert.Contains(t, resp.State.Transcript[0].Content, "You are Ilsa the Warden")

	stored, err := ts.store.LoadGameState(context.Background(), uuid.MustParse(resp.ID))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, resp.State.Player.Name, stored.Player.Name)
}

func TestGameHandler_CreateRandom(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/v1/games", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp GameResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.State.Player.Name)
	assert.NotEmpty(t, resp.State.Player.Class)
}

func TestGameHandler_CreateRejected(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		wantErr string
	}{
		{"unknown class", CreateGameRequest{Class: "Pirate"}, "unknown class"},
		{"invalid json", "{not json", "Invalid JSON in request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			w := ts.do(t, http.MethodPost, "/v1/games", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decodeError(t, w), tt.wantErr)
		})
	}
}

func TestGameHandler_ReadAndDelete(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)

	w := ts.do(t, http.MethodGet, "/v1/games/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, "/v1/games/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/v1/games/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "game not found", decodeError(t, w))

	w = ts.do(t, http.MethodGet, "/v1/games/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGameHandler_CommandAndRollCycle(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)

	ts.narrator.replies["climb the wall"] = &narrative.Response{
		Narrative:    "The stones are slick with rain.",
		RequiredRoll: &roll.Request{Skill: "athletics", Attribute: "strength", Difficulty: 8},
	}
	ts.narrator.replies["[SYSTEM] my athletics test got 2 successes."] = &narrative.Response{
		Narrative: "You haul yourself over the parapet.",
	}

	w := ts.do(t, http.MethodPost, "/v1/games/"+id+"/commands", chat.CommandRequest{Message: "climb the wall"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	turn := decodeTurn(t, w)
	assert.Equal(t, id, turn.SessionID)
	assert.Equal(t, string(state.PhaseAwaitingRoll), turn.Phase)
	assert.Contains(t, turn.PendingRoll, "Roll athletics + strength")
	assert.Equal(t, []string{chat.ChatRoleUser, chat.ChatRoleMaster}, roles(turn.Messages))

	// a second command must wait for the roll
	w = ts.do(t, http.MethodPost, "/v1/games/"+id+"/commands", chat.CommandRequest{Message: "wait"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, engine.ErrRollPending.Error(), decodeError(t, w))

	w = ts.do(t, http.MethodPost, "/v1/games/"+id+"/roll", chat.RollConfirmRequest{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	turn = decodeTurn(t, w)
	assert.Equal(t, string(state.PhaseAwaitingCommand), turn.Phase)
	assert.Empty(t, turn.PendingRoll)
	assert.Equal(t, []string{chat.ChatRoleRoll, chat.ChatRoleSystem, chat.ChatRoleMaster}, roles(turn.Messages))
	assert.Equal(t, "You haul yourself over the parapet.", turn.Messages[2].Content)

	assert.Equal(t, []string{"climb the wall", "[SYSTEM] my athletics test got 2 successes."}, ts.narrator.Calls())
	assert.False(t, ts.store.Locked(uuid.MustParse(id)), "lock must be released")

	w = ts.do(t, http.MethodPost, "/v1/games/"+id+"/roll", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, engine.ErrNoPendingRoll.Error(), decodeError(t, w))
}

func TestGameHandler_ShortcutCommand(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)

	w := ts.do(t, http.MethodPost, "/v1/games/"+id+"/commands", chat.CommandRequest{Message: "inventory"})
	require.Equal(t, http.StatusOK, w.Code)
	turn := decodeTurn(t, w)
	require.Len(t, turn.Messages, 2)
	assert.Contains(t, turn.Messages[1].Content, "rope")
	assert.Empty(t, ts.narrator.Calls())
}

func TestGameHandler_CommandRejected(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"empty message", "/v1/games/" + id + "/commands", chat.CommandRequest{Message: "  "}, http.StatusBadRequest},
		{"too long", "/v1/games/" + id + "/commands", chat.CommandRequest{Message: strings.Repeat("a", chat.MaxMessageLength+1)}, http.StatusBadRequest},
		{"invalid json", "/v1/games/" + id + "/commands", "nope", http.StatusBadRequest},
		{"unknown game", "/v1/games/" + uuid.NewString() + "/commands", chat.CommandRequest{Message: "look"}, http.StatusNotFound},
		{"bad roll body", "/v1/games/" + id + "/roll", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
		})
	}
	assert.Empty(t, ts.narrator.Calls())
}

func TestGameHandler_NarratorFailure(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)
	ts.narrator.err = errors.New("upstream 529")

	w := ts.do(t, http.MethodPost, "/v1/games/"+id+"/commands", chat.CommandRequest{Message: "search the desk"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, decodeError(t, w), "529")

	gs, err := ts.store.LoadGameState(context.Background(), uuid.MustParse(id))
	require.NoError(t, err)
	assert.False(t, gs.Loading)
	last := gs.Transcript[len(gs.Transcript)-1]
	assert.Equal(t, "search the desk", last.Content)

	ts.narrator.err = nil
	w = ts.do(t, http.MethodPost, "/v1/games/"+id+"/commands", chat.CommandRequest{Message: "search the desk"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGameHandler_Locked(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)
	ts.store.Lock(uuid.MustParse(id), "another-request")

	w := ts.do(t, http.MethodPost, "/v1/games/"+id+"/commands", chat.CommandRequest{Message: "look"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, storage.ErrLocked.Error(), decodeError(t, w))

	w = ts.do(t, http.MethodDelete, "/v1/games/"+id, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGameHandler_SaveFailure(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)
	ts.store.SetSaveError(errors.New("disk full"))

	w := ts.do(t, http.MethodPost, "/v1/games/"+id+"/commands", chat.CommandRequest{Message: "wait"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeError(t, w))
}

func TestGameHandler_PublishesToHub(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)

	sub, err := ts.hub.Subscribe(context.Background(), id)
	require.NoError(t, err)
	defer sub.Close()

	w := ts.do(t, http.MethodPost, "/v1/games/"+id+"/commands", chat.CommandRequest{Message: "listen"})
	require.Equal(t, http.StatusOK, w.Code)

	var got []events.EventType
	for range 3 {
		ev := <-sub.Events()
		got = append(got, ev.Type)
	}
	assert.Equal(t, []events.EventType{events.EventTypeMessage, events.EventTypeMessage, events.EventTypeStateUpdated}, got)
}

func TestJournalHandler(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)

	w := ts.do(t, http.MethodGet, "/v1/games/"+id+"/journal.pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = ts.do(t, http.MethodGet, "/v1/games/"+uuid.NewString()+"/journal.pdf", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogHandler(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/v1/classes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var classes []ClassSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&classes))
	require.NotEmpty(t, classes)
	assert.Equal(t, "Warden", classes[0].Name)
	assert.Equal(t, []string{"physical", "mental", "social"}, classes[0].Foci)

	w = ts.do(t, http.MethodPost, "/v1/classes", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errGameNotFound, http.StatusNotFound},
		{engine.ErrEmptyCommand, http.StatusBadRequest},
		{scenario.ErrUnknownClass, http.StatusBadRequest},
		{engine.ErrBusy, http.StatusConflict},
		{storage.ErrLocked, http.StatusConflict},
		{engine.ErrNotInitialized, http.StatusConflict},
		{errors.Join(engine.ErrNarratorFailed, errors.New("x")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
