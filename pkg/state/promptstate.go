package state

import (
	"maps"
	"slices"

	"github.com/jwebster45206/anima-narrator/pkg/actor"
)

// PromptState is the reduced game state sent to the narrator.
type PromptState struct {
	Player       PromptPlayer  `json:"player"`
	Room         *PromptRoom   `json:"current_room,omitempty"` // nil when no room exists at the player's position
	InCombat     bool          `json:"in_combat"`
	RecentMemory []MemoryEntry `json:"recent_memory,omitempty"`
}

// PromptPlayer is the player as the narrator sees it.
type PromptPlayer struct {
	Name      string                          `json:"name"`
	Class     string                          `json:"class"`
	Foci      map[actor.FocusName]PromptFocus `json:"foci"`
	Health    actor.Health                    `json:"health"`
	Inventory []string                        `json:"inventory"`
	Equipment map[string]string               `json:"equipment,omitempty"` // slot -> item name
	Position  string                          `json:"position"`
}

// PromptFocus is one focus branch with its anima named for the fiction.
type PromptFocus struct {
	AnimaLabel string         `json:"anima_label"`
	Anima      actor.Anima    `json:"anima"`
	Attributes map[string]int `json:"attributes,omitempty"`
	Skills     map[string]int `json:"skills,omitempty"`
}

// PromptRoom summarizes the room the player is in.
type PromptRoom struct {
	Coordinates string            `json:"coordinates"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Items       []string          `json:"items,omitempty"`
	NPCs        []actor.NPC       `json:"npcs,omitempty"`
	Exits       map[string]string `json:"exits,omitempty"` // direction -> coordinates
}

// ToPromptState projects gs for a narrator call.
func ToPromptState(gs *GameState) *PromptState {
	p := gs.Player
	ps := &PromptState{
		Player: PromptPlayer{
			Name:      p.Name,
			Class:     p.Class,
			Foci:      make(map[actor.FocusName]PromptFocus, len(p.Foci)),
			Health:    p.Health,
			Inventory: actor.ItemNames(p.Inventory),
			Equipment: p.EquippedNames(),
			Position:  p.Position.Key(),
		},
		InCombat:     gs.InCombat,
		RecentMemory: slices.Clone(gs.RecentMemory),
	}
	for name, f := range p.Foci {
		ps.Player.Foci[name] = PromptFocus{
			AnimaLabel: actor.AnimaLabel[name],
			Anima:      f.Anima,
			Attributes: maps.Clone(f.Attributes),
			Skills:     maps.Clone(f.Skills),
		}
	}

	if room, ok := gs.CurrentRoom(); ok {
		pr := &PromptRoom{
			Coordinates: p.Position.Key(),
			Name:        room.Name,
			Description: room.BaseDescription,
			Items:       actor.ItemNames(room.Items),
		}
		for _, n := range room.NPCs {
			pr.NPCs = append(pr.NPCs, n.Clone())
		}
		if len(room.Exits) > 0 {
			pr.Exits = make(map[string]string, len(room.Exits))
			for dir, pos := range room.Exits {
				pr.Exits[dir] = pos.Key()
			}
		}
		ps.Room = pr
	}
	return ps
}
