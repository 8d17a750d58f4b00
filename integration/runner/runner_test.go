package runner

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jwebster45206/anima-narrator/internal/handlers"
	"github.com/jwebster45206/anima-narrator/internal/services"
	"github.com/jwebster45206/anima-narrator/internal/services/events"
	"github.com/jwebster45206/anima-narrator/internal/storage"
	"github.com/jwebster45206/anima-narrator/pkg/chat"
	"github.com/jwebster45206/anima-narrator/pkg/engine"
	"github.com/jwebster45206/anima-narrator/pkg/roll"
	"github.com/jwebster45206/anima-narrator/pkg/scenario"
	"github.com/jwebster45206/anima-narrator/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRoller int

func (f fixedRoller) Roll(size int) (int, error) { return int(f), nil }

func (f fixedRoller) RollN(count, size int) ([]int, error) {
	out := make([]int, count)
	for i := range out {
		out[i] = int(f)
	}
	return out, nil
}

// newStack serves the real handlers over a mock LLM that asks for an
// athletics roll whenever the player climbs.
func newStack(t *testing.T) *httptest.Server {
	t.Helper()
	catalog, err := scenario.Default()
	require.NoError(t, err)
	logger := slog.New(slog.DiscardHandler)

	llm := services.NewMockLLMAPI()
	llm.ChatFunc = func(_ context.Context, msgs []chat.ChatMessage) (*chat.ChatResponse, error) {
		if strings.Contains(lastPlayerMessage(msgs), "climb") {
			return &chat.ChatResponse{Message: `{
				"narrative": "The wall is slick with rain.",
				"required_roll": {"skill": "athletics", "attribute": "strength", "difficulty": 8}
			}`}, nil
		}
		return &chat.ChatResponse{Message: services.MockNarration}, nil
	}

	narrator := services.NewNarratorService(llm, "PG-13", 0, logger)
	reducer := engine.NewReducer(roll.NewResolver(fixedRoller(6), 0), logger)
	mux := http.NewServeMux()
	handlers.NewGameHandler(storage.NewMockStorage(), catalog, reducer, narrator, events.NewHub(), logger,
		handlers.WithRand(rand.New(rand.NewPCG(1, 2)))).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// lastPlayerMessage skips the trailing system reminders the prompt builder adds.
func lastPlayerMessage(msgs []chat.ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == chat.ChatRoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

func intPtr(v int) *int { return &v }

func TestRunner_RunSuite(t *testing.T) {
	srv := newStack(t)
	r := NewRunner(srv.URL)

	suite := TestSuite{
		Name:  "climb",
		Class: "Warden",
		Steps: []TestStep{
			{
				Command:      "inventory",
				Expectations: Expectations{Phase: string(state.PhaseAwaitingCommand), Inventory: []string{"rope"}, ResponseContains: []string{"rope"}},
			},
			{
				Command:      "climb the wall",
				Expectations: Expectations{Phase: string(state.PhaseAwaitingRoll), ResponseContains: []string{"slick"}},
			},
			{
				Command:      "climb again",
				Expectations: Expectations{Status: http.StatusConflict},
			},
			{
				Roll: true,
				Expectations: Expectations{
					Phase:             string(state.PhaseAwaitingCommand),
					ResponseContains:  []string{"2 successes"},
					ResponseMinLength: intPtr(10),
				},
			},
		},
	}

	result := r.RunSuite(context.Background(), suite)
	require.NoError(t, result.Error)
	assert.NotEmpty(t, result.GameID)
	require.Len(t, result.Results, 4)
	for _, step := range result.Results {
		assert.True(t, step.Success, step.StepName)
	}
}

func TestRunner_ReportsFailures(t *testing.T) {
	srv := newStack(t)
	r := NewRunner(srv.URL)
	r.ErrorHandlingMode = ErrorHandlingExit

	suite := TestSuite{
		Class: "Warden",
		Steps: []TestStep{
			{Command: "look", Expectations: Expectations{Phase: string(state.PhaseAwaitingRoll)}},
			{Command: "look"},
		},
	}
	result := r.RunSuite(context.Background(), suite)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "phase")
	assert.Len(t, result.Results, 1)
}

func TestRunner_UnknownClass(t *testing.T) {
	srv := newStack(t)
	result := NewRunner(srv.URL).RunSuite(context.Background(), TestSuite{Class: "Jester"})
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "failed to create game")
}

func TestCheckExpectations(t *testing.T) {
	gs := state.NewGameState()
	game := &handlers.GameResponse{Phase: "awaiting_command", State: gs}
	yes := true

	err := CheckExpectations(Expectations{
		InCombat:            &yes,
		Inventory:           []string{"lantern"},
		ResponseContains:    []string{"dragon"},
		ResponseNotContains: []string{"gate"},
		ResponseRegex:       `^\d+$`,
	}, game, "The gate is open.")
	require.Error(t, err)
	for _, want := range []string{"in_combat", "lantern", "dragon", "gate", "does not match"} {
		assert.Contains(t, err.Error(), want)
	}

	assert.NoError(t, CheckExpectations(Expectations{ResponseContains: []string{"GATE"}}, game, "The gate is open."))
}

func TestLoadTestSuite(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
class: Warden
steps:
  - command: look
    expect:
      phase: awaiting_command
  - roll: true
    use_alternative: true
    expect:
      status: 409
`), 0o644))

	suite, err := LoadTestSuite(good)
	require.NoError(t, err)
	assert.Equal(t, "good", suite.Name)
	require.Len(t, suite.Steps, 2)
	assert.True(t, suite.Steps[1].UseAlternative)
	assert.Equal(t, 409, suite.Steps[1].Expectations.Status)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("steps:\n  - command: look\n    roll: true\n"), 0o644))
	_, err = LoadTestSuite(bad)
	require.Error(t, err)

	files, err := DiscoverSuites(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
