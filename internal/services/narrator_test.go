package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/anima-narrator/pkg/actor"
	"github.com/jwebster45206/anima-narrator/pkg/chat"
	"github.com/jwebster45206/anima-narrator/pkg/narrative"
	"github.com/jwebster45206/anima-narrator/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func promptState() *state.PromptState {
	gs := state.NewGameState()
	gs.Player = actor.Player{Name: "Ilsa", Class: "Warden", Health: actor.Health{Value: 5, Max: 5}}
	gs.AppendMemory("look around", "Fog everywhere.")
	return state.ToPromptState(gs)
}

func TestNarratorService_Narrate(t *testing.T) {
	recorder := recordSpans(t)
	llm := NewMockLLMAPI()
	llm.SetChatResponse("```json\n" + `{
		"narrative": "The rope holds.",
		"required_roll": {"skill": "athletics", "attribute": "strength", "difficulty": 7},
		"state_update": {"in_combat": true}
	}` + "\n```")

	n := NewNarratorService(llm, "PG", time.Second, nil)
	resp, err := n.Narrate(context.Background(), "climb down", promptState())
	require.NoError(t, err)

	assert.Equal(t, "The rope holds.", resp.Narrative)
	require.NotNil(t, resp.RequiredRoll)
	assert.Equal(t, "athletics", resp.RequiredRoll.Skill)
	require.NotNil(t, resp.StateUpdate)
	require.NotNil(t, resp.StateUpdate.InCombat)
	assert.True(t, *resp.StateUpdate.InCombat)

	_, calls := llm.GetCalls()
	require.Len(t, calls, 1)
	msgs := calls[0].Messages
	assert.Equal(t, chat.ChatRoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Content Rating: PG")
	assert.Contains(t, msgs, chat.ChatMessage{Role: chat.ChatRoleUser, Content: "Ilsa: climb down"})
	assert.Contains(t, msgs, chat.ChatMessage{Role: chat.ChatRoleAgent, Content: "Fog everywhere."})

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "narrator.narrate", spans[0].Name())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestNarratorService_SystemCommandIsNotPrefixed(t *testing.T) {
	llm := NewMockLLMAPI()
	n := NewNarratorService(llm, "", 0, nil)

	_, err := n.Narrate(context.Background(), "[SYSTEM] my athletics test got 2 successes.", promptState())
	require.NoError(t, err)

	_, calls := llm.GetCalls()
	require.Len(t, calls, 1)
	found := false
	for _, m := range calls[0].Messages {
		if m.Role == chat.ChatRoleUser && strings.HasPrefix(m.Content, "[SYSTEM]") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestNarratorService_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*MockLLMAPI)
		check func(*testing.T, error)
	}{
		{
			name:  "llm error",
			setup: func(m *MockLLMAPI) { m.SetChatError(errors.New("503 overloaded")) },
			check: func(t *testing.T, err error) { assert.Contains(t, err.Error(), "503 overloaded") },
		},
		{
			name:  "no narrative",
			setup: func(m *MockLLMAPI) { m.SetChatResponse(`{"ascii_art": "~~"}`) },
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, narrative.ErrNoNarrative) },
		},
		{
			name:  "not json",
			setup: func(m *MockLLMAPI) { m.SetChatResponse("I cannot do that.") },
			check: func(t *testing.T, err error) { assert.Error(t, err) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := recordSpans(t)
			llm := NewMockLLMAPI()
			tt.setup(llm)

			_, err := NewNarratorService(llm, "G", time.Second, nil).Narrate(context.Background(), "wait", promptState())
			require.Error(t, err)
			tt.check(t, err)

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, codes.Error, spans[0].Status().Code)
		})
	}
}

func TestNarratorService_AppliesTimeout(t *testing.T) {
	llm := NewMockLLMAPI()
	llm.ChatFunc = func(ctx context.Context, _ []chat.ChatMessage) (*chat.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := NewNarratorService(llm, "", 20*time.Millisecond, nil).Narrate(context.Background(), "wait", promptState())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNarratorService_NilPromptState(t *testing.T) {
	_, err := NewNarratorService(NewMockLLMAPI(), "", 0, nil).Narrate(context.Background(), "wait", nil)
	assert.Error(t, err)
}

func TestNarratorService_FiltersForRating(t *testing.T) {
	reply := `{"narrative": "The damn door is stuck."}`
	tests := []struct {
		rating string
		want   string
	}{
		{"PG", "The dang door is stuck."},
		{"R", "The damn door is stuck."},
	}
	for _, tt := range tests {
		t.Run(tt.rating, func(t *testing.T) {
			llm := NewMockLLMAPI()
			llm.SetChatResponse(reply)
			resp, err := NewNarratorService(llm, tt.rating, time.Second, nil).Narrate(context.Background(), "push", promptState())
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Narrative)
		})
	}
}
