// Package scenario holds the static content a new game is built from:
// character class templates and starting room templates.
package scenario

import (
	"maps"

	"github.com/jwebster45206/anima-narrator/pkg/actor"
	"github.com/jwebster45206/anima-narrator/pkg/world"
)

// MaxLevel is the highest attribute or skill level a template may grant.
const MaxLevel = 7

// Catalog is the template set new games are drawn from.
type Catalog struct {
	Classes []ClassTemplate `yaml:"classes"` // Playable character classes
	Rooms   []RoomTemplate  `yaml:"rooms"`   // Possible starting rooms
	Names   []string        `yaml:"names"`   // Fallback player names
}

// ClassTemplate describes a playable class.
type ClassTemplate struct {
	Name        string                   `yaml:"name"`
	Description string                   `yaml:"description"`
	Health      int                      `yaml:"health"`              // Starting and maximum health
	Foci        map[string]FocusTemplate `yaml:"foci"`                // Keyed by focus name: physical, mental, social
	Inventory   []ItemTemplate           `yaml:"inventory,omitempty"` // Starting inventory
	Equipment   map[string]ItemTemplate  `yaml:"equipment,omitempty"` // Starting equipment by slot
}

// FocusTemplate is one focus branch of a class.
type FocusTemplate struct {
	Anima      int            `yaml:"anima"` // Starting and maximum anima
	Attributes map[string]int `yaml:"attributes"`
	Skills     map[string]int `yaml:"skills"`
}

// ItemTemplate is an item granted by a template.
type ItemTemplate struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// NPCTemplate is an NPC placed in a starting room.
type NPCTemplate struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Attributes  map[string]float64 `yaml:"attributes,omitempty"`
}

// RoomTemplate is a possible starting room. The room is always placed at the
// origin; exits point at neighboring coordinates given as "x,y".
type RoomTemplate struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Items       []ItemTemplate    `yaml:"items,omitempty"`
	NPCs        []NPCTemplate     `yaml:"npcs,omitempty"`
	Exits       map[string]string `yaml:"exits,omitempty"` // direction -> "x,y"
}

func (t ItemTemplate) item() actor.Item {
	return actor.Item{Name: t.Name, Description: t.Description}
}

// Player builds a full-health player of this class.
func (c ClassTemplate) Player(name string) actor.Player {
	p := actor.Player{
		Name:      name,
		Class:     c.Name,
		Foci:      make(map[actor.FocusName]actor.Focus, len(c.Foci)),
		Health:    actor.Health{Value: c.Health, Max: c.Health},
		Inventory: make([]actor.Item, 0, len(c.Inventory)),
		Equipment: make(map[string]*actor.Item, len(c.Equipment)),
	}
	for fn, f := range c.Foci {
		p.Foci[actor.FocusName(fn)] = actor.Focus{
			Anima:      actor.Anima{Value: f.Anima, Max: f.Anima},
			Attributes: maps.Clone(f.Attributes),
			Skills:     maps.Clone(f.Skills),
		}
	}
	for _, it := range c.Inventory {
		p.Inventory = append(p.Inventory, it.item())
	}
	for slot, it := range c.Equipment {
		item := it.item()
		p.Equipment[slot] = &item
	}
	return p
}

// Room builds the world room for this template. Exits that do not parse are
// skipped; Validate reports them.
func (r RoomTemplate) Room() world.Room {
	room := world.Room{
		Name:            r.Name,
		BaseDescription: r.Description,
	}
	for _, it := range r.Items {
		room.Items = append(room.Items, it.item())
	}
	for _, n := range r.NPCs {
		npc := actor.NPC{Name: n.Name, Description: n.Description}
		npc.MergeAttributes(n.Attributes)
		room.NPCs = append(room.NPCs, npc)
	}
	if len(r.Exits) > 0 {
		room.Exits = make(map[string]actor.Position, len(r.Exits))
		for dir, coords := range r.Exits {
			pos, err := actor.ParsePosition(coords)
			if err != nil {
				continue
			}
			room.Exits[dir] = pos
		}
	}
	return room
}
