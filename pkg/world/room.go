// Package world holds the rooms the narrative has introduced so far.
package world

import (
	"maps"

	"github.com/jwebster45206/anima-narrator/pkg/actor"
)

// Room is a location in the world grid.
type Room struct {
	Name            string                    `json:"name"`
	BaseDescription string                    `json:"base_description"`
	Items           []actor.Item              `json:"items,omitempty"`
	NPCs            []actor.NPC               `json:"npcs,omitempty"`
	Exits           map[string]actor.Position `json:"exits,omitempty"` // direction -> coordinates
}

// World maps coordinate keys ("x,y") to rooms.
// Rooms are added as the story introduces them and are never removed.
type World map[string]Room

// Clone returns a deep copy of the room.
func (r Room) Clone() Room {
	if r.Items != nil {
		r.Items = append(make([]actor.Item, 0, len(r.Items)), r.Items...)
	}
	if r.NPCs != nil {
		npcs := make([]actor.NPC, 0, len(r.NPCs))
		for _, n := range r.NPCs {
			npcs = append(npcs, n.Clone())
		}
		r.NPCs = npcs
	}
	r.Exits = maps.Clone(r.Exits)
	return r
}

// RemoveNPCs drops every NPC whose name matches one of names, ignoring case.
func (r *Room) RemoveNPCs(names []string) {
	remove := actor.NewNameSet(names)
	if len(remove) == 0 {
		return
	}
	kept := make([]actor.NPC, 0, len(r.NPCs))
	for _, n := range r.NPCs {
		if remove.Has(n.Name) {
			continue
		}
		kept = append(kept, n)
	}
	r.NPCs = kept
}

// FindNPC returns the index of the NPC with exactly the given name, or -1.
func (r Room) FindNPC(name string) int {
	for i, n := range r.NPCs {
		if n.Name == name {
			return i
		}
	}
	return -1
}

// NPCNames lists the names of the room's NPCs in order.
func (r Room) NPCNames() []string {
	names := make([]string, 0, len(r.NPCs))
	for _, n := range r.NPCs {
		names = append(names, n.Name)
	}
	return names
}

// Clone returns a deep copy of the world.
func (w World) Clone() World {
	if w == nil {
		return nil
	}
	out := make(World, len(w))
	for k, r := range w {
		out[k] = r.Clone()
	}
	return out
}

// At returns the room at pos, if the story has introduced one there.
func (w World) At(pos actor.Position) (Room, bool) {
	r, ok := w[pos.Key()]
	return r, ok
}
