package state

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/anima-narrator/pkg/actor"
	"github.com/jwebster45206/anima-narrator/pkg/chat"
	"github.com/jwebster45206/anima-narrator/pkg/roll"
	"github.com/jwebster45206/anima-narrator/pkg/world"
)

// MemoryLimit is the number of recent turns kept for the narrator.
const MemoryLimit = 5

// Phase is the lifecycle position of a session.
type Phase string

const (
	PhaseUninitialized   Phase = "uninitialized"
	PhaseLoading         Phase = "loading"
	PhaseAwaitingCommand Phase = "awaiting_command"
	PhaseAwaitingRoll    Phase = "awaiting_roll"
)

// MemoryEntry is one command/narrative pair.
type MemoryEntry struct {
	Command   string `json:"command"`
	Narrative string `json:"narrative"`
}

// GameState is the full state of one narrator session.
// Transitions never mutate a GameState in place; they build a new one.
type GameState struct {
	ID           uuid.UUID          `json:"id"`
	Player       actor.Player       `json:"player"`
	World        world.World        `json:"world"`
	InCombat     bool               `json:"in_combat"`
	RecentMemory []MemoryEntry      `json:"recent_memory"`
	PendingRoll  *roll.Request      `json:"pending_roll,omitempty"`
	RollPrompt   string             `json:"roll_prompt,omitempty"`
	Loading      bool               `json:"loading"`
	Initialized  bool               `json:"initialized"`
	Transcript   []chat.ChatMessage `json:"transcript"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// NewGameState returns an uninitialized state with a fresh ID.
func NewGameState() *GameState {
	now := time.Now().UTC()
	return &GameState{
		ID:           uuid.New(),
		World:        make(world.World),
		RecentMemory: make([]MemoryEntry, 0, MemoryLimit),
		Transcript:   make([]chat.ChatMessage, 0),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a deep copy.
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	cp := *gs
	cp.Player = gs.Player.Clone()
	cp.World = gs.World.Clone()
	cp.RecentMemory = slices.Clone(gs.RecentMemory)
	cp.PendingRoll = gs.PendingRoll.Clone()
	cp.Transcript = slices.Clone(gs.Transcript)
	return &cp
}

// Phase derives the lifecycle phase from the state flags.
func (gs *GameState) Phase() Phase {
	switch {
	case !gs.Initialized:
		return PhaseUninitialized
	case gs.PendingRoll != nil:
		return PhaseAwaitingRoll
	case gs.Loading:
		return PhaseLoading
	default:
		return PhaseAwaitingCommand
	}
}

// CurrentRoom returns the room at the player's position.
func (gs *GameState) CurrentRoom() (world.Room, bool) {
	return gs.World.At(gs.Player.Position)
}

// AppendMemory adds an entry and evicts the oldest entries beyond MemoryLimit.
// The receiver's slice is never written through.
func (gs *GameState) AppendMemory(command, narrative string) {
	mem := make([]MemoryEntry, 0, MemoryLimit+1)
	mem = append(mem, gs.RecentMemory...)
	mem = append(mem, MemoryEntry{Command: command, Narrative: narrative})
	if over := len(mem) - MemoryLimit; over > 0 {
		mem = mem[over:]
	}
	gs.RecentMemory = mem
}

// AddMessage appends a transcript entry. The transcript is unbounded.
func (gs *GameState) AddMessage(msg chat.ChatMessage) {
	gs.Transcript = append(slices.Clip(gs.Transcript), msg)
}

// Touch bumps UpdatedAt.
func (gs *GameState) Touch() {
	gs.UpdatedAt = time.Now().UTC()
}
