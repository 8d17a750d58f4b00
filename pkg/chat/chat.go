package chat

import (
	"fmt"
	"strings"
)

// MaxMessageLength bounds a single player command.
const MaxMessageLength = 1000

// maxSpeakerLength is the longest prefix before a colon that is still
// treated as a speaker name.
const maxSpeakerLength = 50

// Roles sent to the LLM.
const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Narrator
	ChatRoleSystem = "system"    // Instructions and engine notices
)

// Transcript-only roles.
const (
	ChatRoleMaster = "master" // Narrative text from the game master
	ChatRoleArt    = "art"    // ASCII art attached to a narrative turn
	ChatRoleRoll   = "roll"   // Dice results
)

// ChatMessage is a single entry, either in an LLM conversation or in a
// session transcript.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is a completed LLM reply.
type ChatResponse struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

// CommandRequest is a free-text command submitted by the player.
type CommandRequest struct {
	Message string `json:"message"`
}

func (cr *CommandRequest) Validate() error {
	if strings.TrimSpace(cr.Message) == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if len(cr.Message) > MaxMessageLength {
		return fmt.Errorf("message exceeds maximum length of %d characters", MaxMessageLength)
	}
	return nil
}

// RollConfirmRequest confirms the pending roll.
type RollConfirmRequest struct {
	UseAlternative bool `json:"use_alternative"`
}

// CommandResponse is returned after a command or a roll is processed.
// Messages holds only the transcript entries added by the request.
type CommandResponse struct {
	SessionID   string        `json:"session_id"`
	Messages    []ChatMessage `json:"messages"`
	PendingRoll string        `json:"pending_roll,omitempty"` // roll prompt, when a roll is now required
	Loading     bool          `json:"loading"`
	Phase       string        `json:"phase"`
}

// FormatWithPCName prefixes a player message with the character's name so the
// narrator knows who is speaking. Messages that already start with a speaker
// ("Name: ...") are returned unchanged.
func FormatWithPCName(message, pcName string) string {
	if i := strings.Index(message, ":"); i > 0 && i <= maxSpeakerLength {
		return message
	}
	return pcName + ": " + message
}
