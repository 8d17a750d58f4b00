package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/anima-narrator/pkg/chat"
	"github.com/jwebster45206/anima-narrator/pkg/state"
)

// SystemCommandPrefix marks commands synthesized by the engine.
const SystemCommandPrefix = "[SYSTEM]"

// Builder constructs chat messages for LLM interaction using a fluent interface.
type Builder struct {
	ps       *state.PromptState
	command  string
	rating   string
	messages []chat.ChatMessage
}

// New creates a new prompt builder with default settings.
func New() *Builder {
	return &Builder{
		rating:   RatingPG13,
		messages: make([]chat.ChatMessage, 0),
	}
}

// WithPromptState sets the reduced state the narrator sees.
func (b *Builder) WithPromptState(ps *state.PromptState) *Builder {
	b.ps = ps
	return b
}

// WithCommand sets the player's command for this turn.
func (b *Builder) WithCommand(command string) *Builder {
	b.command = command
	return b
}

// WithRating sets the content rating. An empty rating keeps the default.
func (b *Builder) WithRating(rating string) *Builder {
	if rating != "" {
		b.rating = rating
	}
	return b
}

// Build constructs and returns the final message array for LLM consumption.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.ps == nil {
		return nil, fmt.Errorf("prompt state is required")
	}
	if strings.TrimSpace(b.command) == "" {
		return nil, fmt.Errorf("command is required")
	}

	b.messages = make([]chat.ChatMessage, 0, 4+2*len(b.ps.RecentMemory))

	// 1. System prompt
	if err := b.addSystemPrompt(); err != nil {
		return nil, fmt.Errorf("error building system prompt: %w", err)
	}

	// 2. Recent turns
	b.addHistory()

	// 3. Command
	b.addCommand()

	// 4. Final reminder
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: UserPostPrompt,
	})

	return b.messages, nil
}

func (b *Builder) addSystemPrompt() error {
	var sb strings.Builder
	sb.WriteString(BaseSystemPrompt)
	sb.WriteString("\nContent Rating: " + b.rating + " (" + GetContentRatingPrompt(b.rating) + ")\n\n")
	sb.WriteString(ResponseFormatPrompt)

	statePrompt, err := GetStatePrompt(b.ps)
	if err != nil {
		return fmt.Errorf("error generating state prompt: %w", err)
	}
	sb.WriteString("\n\n" + statePrompt.Content)

	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: sb.String(),
	})
	return nil
}

// addHistory replays recent memory as alternating player/narrator turns.
func (b *Builder) addHistory() {
	for _, m := range b.ps.RecentMemory {
		b.messages = append(b.messages,
			chat.ChatMessage{Role: chat.ChatRoleUser, Content: b.formatCommand(m.Command)},
			chat.ChatMessage{Role: chat.ChatRoleAgent, Content: m.Narrative},
		)
	}
}

func (b *Builder) addCommand() {
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleUser,
		Content: b.formatCommand(b.command),
	})
}

// formatCommand prefixes player commands with the character name. Engine
// commands are passed through unchanged.
func (b *Builder) formatCommand(command string) string {
	if strings.HasPrefix(command, SystemCommandPrefix) || b.ps.Player.Name == "" {
		return command
	}
	return chat.FormatWithPCName(command, b.ps.Player.Name)
}

// BuildMessages is a convenience function for the common case.
func BuildMessages(ps *state.PromptState, command, rating string) ([]chat.ChatMessage, error) {
	return New().
		WithPromptState(ps).
		WithCommand(command).
		WithRating(rating).
		Build()
}
