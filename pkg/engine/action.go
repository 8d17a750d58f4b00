package engine

import (
	"github.com/jwebster45206/anima-narrator/pkg/chat"
	"github.com/jwebster45206/anima-narrator/pkg/narrative"
	"github.com/jwebster45206/anima-narrator/pkg/roll"
	"github.com/jwebster45206/anima-narrator/pkg/state"
)

// Action is an input to the reducer.
type Action interface {
	actionName() string
}

// InitGame replaces the state with a freshly set up game.
type InitGame struct {
	State *state.GameState
}

// SetLoading toggles the loading flag that gates new commands.
type SetLoading struct {
	Loading bool
}

// AddMessage appends one transcript entry.
type AddMessage struct {
	Message chat.ChatMessage
}

// ProcessNarrativeResponse applies a narrator turn for the given command.
type ProcessNarrativeResponse struct {
	Response *narrative.Response
	Command  string
}

// ProcessRoll resolves the pending roll.
type ProcessRoll struct {
	UseAlternative bool
}

func (InitGame) actionName() string                 { return "init_game" }
func (SetLoading) actionName() string               { return "set_loading" }
func (AddMessage) actionName() string               { return "add_message" }
func (ProcessNarrativeResponse) actionName() string { return "process_narrative_response" }
func (ProcessRoll) actionName() string              { return "process_roll" }

// Effect describes follow-up work a transition asks of its caller.
type Effect struct {
	// Command is a synthesized command to dispatch to the narrator next.
	Command string
	// Roll is the outcome of a resolved roll, and Rolled the check actually rolled.
	Roll   *roll.Result
	Rolled roll.Request
}
