package state

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/jwebster45206/anima-narrator/pkg/actor"
	"github.com/jwebster45206/anima-narrator/pkg/world"
)

// StateUpdate is a sparse patch produced by the narrator after each turn.
// A nil or empty field means "no change".
//
// Decoding is tolerant: each fragment is decoded on its own and a fragment of
// the wrong shape is dropped (and listed in Dropped) instead of failing the
// whole update.
type StateUpdate struct {
	Player   *PlayerUpdate `json:"player,omitempty"`
	World    *WorldUpdate  `json:"world,omitempty"`
	NewRoom  *NewRoom      `json:"new_room,omitempty"`
	InCombat *bool         `json:"in_combat,omitempty"`

	// Dropped lists the paths of fragments that failed validation.
	Dropped []string `json:"-"`
}

// PlayerUpdate patches the player.
type PlayerUpdate struct {
	Position        *actor.Position                 `json:"position,omitempty"`
	Health          *HealthUpdate                   `json:"health,omitempty"`
	Foci            map[actor.FocusName]FocusUpdate `json:"foci,omitempty"`
	InventoryAdd    []actor.Item                    `json:"inventory_add,omitempty"`
	InventoryRemove []string                        `json:"inventory_remove,omitempty"`
	Equipment       map[string]*actor.Item          `json:"equipment,omitempty"` // a nil item clears the slot
}

// HealthUpdate is merged field by field into the player's health.
type HealthUpdate struct {
	Value *int `json:"value,omitempty"`
	Max   *int `json:"max,omitempty"`
}

// AnimaUpdate is merged field by field into a focus's anima.
type AnimaUpdate struct {
	Value *int `json:"value,omitempty"`
	Max   *int `json:"max,omitempty"`
}

// FocusUpdate patches one focus branch. Only the anima pool can change.
type FocusUpdate struct {
	Anima *AnimaUpdate `json:"anima,omitempty"`
}

// WorldUpdate patches the NPCs of the room the player ends up in.
type WorldUpdate struct {
	NPCRemove []string    `json:"npc_remove,omitempty"`
	NPCUpdate []NPCUpdate `json:"npc_update,omitempty"`
}

// NPCUpdate merges attributes into the NPC with exactly this name.
type NPCUpdate struct {
	Name       string             `json:"name"`
	Attributes map[string]float64 `json:"attributes"`
}

// NewRoom declares a room at the given coordinates.
type NewRoom struct {
	Coordinates string     `json:"coordinates"` // "x,y"
	Room        world.Room `json:"room"`
}

// IsEmpty reports whether the update carries no changes.
func (u *StateUpdate) IsEmpty() bool {
	return u == nil || (u.Player == nil && u.World == nil && u.NewRoom == nil && u.InCombat == nil)
}

// UnmarshalJSON decodes the update one fragment at a time.
func (u *StateUpdate) UnmarshalJSON(data []byte) error {
	*u = StateUpdate{}
	obj, ok := decodeObject(data)
	if !ok {
		if !isNull(data) {
			u.drop("state_update")
		}
		return nil
	}

	if raw, ok := obj["player"]; ok {
		u.Player = u.decodePlayer(raw)
	}
	if raw, ok := obj["world"]; ok {
		u.World = u.decodeWorld(raw)
	}
	if raw, ok := obj["new_room"]; ok {
		u.NewRoom = u.decodeNewRoom(raw)
	}
	if raw, ok := obj["in_combat"]; ok {
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil && !isNull(raw) {
			u.InCombat = &b
		} else {
			u.drop("in_combat")
		}
	}
	return nil
}

func (u *StateUpdate) drop(path string) {
	u.Dropped = append(u.Dropped, path)
}

func (u *StateUpdate) decodePlayer(raw json.RawMessage) *PlayerUpdate {
	obj, ok := decodeObject(raw)
	if !ok {
		u.drop("player")
		return nil
	}
	p := &PlayerUpdate{}
	empty := true

	if v, ok := obj["position"]; ok {
		if pos, ok := decodePosition(v); ok {
			p.Position = &pos
			empty = false
		} else {
			u.drop("player.position")
		}
	}

	if v, ok := obj["health"]; ok {
		if h, ok := decodeObject(v); ok {
			hu := &HealthUpdate{}
			hu.Value = u.decodeIntField(h, "value", "player.health.value")
			hu.Max = u.decodeIntField(h, "max", "player.health.max")
			if hu.Value != nil || hu.Max != nil {
				p.Health = hu
				empty = false
			}
		} else {
			u.drop("player.health")
		}
	}

	if v, ok := obj["foci"]; ok {
		if foci, ok := decodeObject(v); ok {
			for name, fv := range foci {
				fn := actor.FocusName(strings.ToLower(strings.TrimSpace(name)))
				path := "player.foci." + name
				if !actor.ValidFocus(fn) {
					u.drop(path)
					continue
				}
				fobj, ok := decodeObject(fv)
				if !ok {
					u.drop(path)
					continue
				}
				aobj, ok := decodeObject(fobj["anima"])
				if !ok {
					u.drop(path + ".anima")
					continue
				}
				au := &AnimaUpdate{
					Value: u.decodeIntField(aobj, "value", path+".anima.value"),
					Max:   u.decodeIntField(aobj, "max", path+".anima.max"),
				}
				if au.Value == nil && au.Max == nil {
					continue
				}
				if p.Foci == nil {
					p.Foci = make(map[actor.FocusName]FocusUpdate)
				}
				p.Foci[fn] = FocusUpdate{Anima: au}
				empty = false
			}
		} else {
			u.drop("player.foci")
		}
	}

	if v, ok := obj["inventory_add"]; ok {
		var entries []json.RawMessage
		if err := json.Unmarshal(v, &entries); err == nil {
			for _, e := range entries {
				if it, ok := decodeItem(e); ok {
					p.InventoryAdd = append(p.InventoryAdd, it)
				} else {
					u.drop("player.inventory_add[]")
				}
			}
			empty = empty && len(p.InventoryAdd) == 0
		} else {
			u.drop("player.inventory_add")
		}
	}

	if v, ok := obj["inventory_remove"]; ok {
		if names, ok := u.decodeNames(v, "player.inventory_remove"); ok {
			p.InventoryRemove = names
			empty = empty && len(names) == 0
		}
	}

	if v, ok := obj["equipment"]; ok {
		if slots, ok := decodeObject(v); ok {
			for slot, sv := range slots {
				var it *actor.Item
				if !isNull(sv) {
					decoded, ok := decodeItem(sv)
					if !ok {
						u.drop("player.equipment." + slot)
						continue
					}
					it = &decoded
				}
				if p.Equipment == nil {
					p.Equipment = make(map[string]*actor.Item)
				}
				p.Equipment[slot] = it
				empty = false
			}
		} else {
			u.drop("player.equipment")
		}
	}

	if empty {
		return nil
	}
	return p
}

func (u *StateUpdate) decodeWorld(raw json.RawMessage) *WorldUpdate {
	obj, ok := decodeObject(raw)
	if !ok {
		u.drop("world")
		return nil
	}
	w := &WorldUpdate{}

	if v, ok := obj["npc_remove"]; ok {
		if names, ok := u.decodeNames(v, "world.npc_remove"); ok {
			w.NPCRemove = names
		}
	}

	if v, ok := obj["npc_update"]; ok {
		w.NPCUpdate = u.decodeNPCUpdates(v)
	}

	if len(w.NPCRemove) == 0 && len(w.NPCUpdate) == 0 {
		return nil
	}
	return w
}

// decodeNPCUpdates accepts either a list of {name, attributes} objects or a
// map of name -> {attributes}.
func (u *StateUpdate) decodeNPCUpdates(raw json.RawMessage) []NPCUpdate {
	var out []NPCUpdate

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, e := range list {
			obj, ok := decodeObject(e)
			if !ok {
				u.drop("world.npc_update[]")
				continue
			}
			var name string
			if err := json.Unmarshal(obj["name"], &name); err != nil || strings.TrimSpace(name) == "" {
				u.drop("world.npc_update[]")
				continue
			}
			if attrs, ok := u.decodeAttributes(obj["attributes"], "world.npc_update."+name); ok {
				out = append(out, NPCUpdate{Name: name, Attributes: attrs})
			}
		}
		return out
	}

	byName, ok := decodeObject(raw)
	if !ok {
		u.drop("world.npc_update")
		return nil
	}
	for name, e := range byName {
		obj, ok := decodeObject(e)
		if !ok {
			u.drop("world.npc_update." + name)
			continue
		}
		if attrs, ok := u.decodeAttributes(obj["attributes"], "world.npc_update."+name); ok {
			out = append(out, NPCUpdate{Name: name, Attributes: attrs})
		}
	}
	return out
}

// decodeAttributes keeps only numeric attribute values.
func (u *StateUpdate) decodeAttributes(raw json.RawMessage, path string) (map[string]float64, bool) {
	obj, ok := decodeObject(raw)
	if !ok {
		u.drop(path + ".attributes")
		return nil, false
	}
	attrs := make(map[string]float64, len(obj))
	for k, v := range obj {
		var f float64
		if err := json.Unmarshal(v, &f); err != nil || isNull(v) {
			u.drop(path + ".attributes." + k)
			continue
		}
		attrs[k] = f
	}
	return attrs, len(attrs) > 0
}

func (u *StateUpdate) decodeNewRoom(raw json.RawMessage) *NewRoom {
	obj, ok := decodeObject(raw)
	if !ok {
		u.drop("new_room")
		return nil
	}
	pos, ok := decodePosition(obj["coordinates"])
	if !ok {
		u.drop("new_room.coordinates")
		return nil
	}
	var room world.Room
	if err := json.Unmarshal(obj["room"], &room); err != nil || isNull(obj["room"]) {
		u.drop("new_room.room")
		return nil
	}
	return &NewRoom{Coordinates: pos.Key(), Room: room}
}

// decodeNames accepts a list of names or a single name. Non-string entries
// are dropped.
func (u *StateUpdate) decodeNames(raw json.RawMessage, path string) ([]string, bool) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, true
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		u.drop(path)
		return nil, false
	}
	names := make([]string, 0, len(list))
	for _, e := range list {
		var s string
		if err := json.Unmarshal(e, &s); err != nil {
			u.drop(path + "[]")
			continue
		}
		names = append(names, s)
	}
	return names, true
}

func (u *StateUpdate) decodeIntField(obj map[string]json.RawMessage, key, path string) *int {
	raw, ok := obj[key]
	if !ok {
		return nil
	}
	n, ok := decodeInt(raw)
	if !ok {
		u.drop(path)
		return nil
	}
	return &n
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodeInt accepts integral JSON numbers, including 3.0.
func decodeInt(raw json.RawMessage) (int, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || isNull(raw) {
		return 0, false
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// decodeItem accepts {"name": "...", "description": "..."}; name must be a
// non-blank string. A bare string is taken as the item name.
func decodeItem(raw json.RawMessage) (actor.Item, bool) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		if strings.TrimSpace(name) == "" {
			return actor.Item{}, false
		}
		return actor.Item{Name: name}, true
	}
	obj, ok := decodeObject(raw)
	if !ok {
		return actor.Item{}, false
	}
	if err := json.Unmarshal(obj["name"], &name); err != nil || strings.TrimSpace(name) == "" {
		return actor.Item{}, false
	}
	it := actor.Item{Name: name}
	if d, ok := obj["description"]; ok {
		var desc string
		if err := json.Unmarshal(d, &desc); err == nil {
			it.Description = desc
		}
	}
	return it, true
}

// decodePosition accepts {"x": 1, "y": 2} or "1,2".
func decodePosition(raw json.RawMessage) (actor.Position, bool) {
	var key string
	if err := json.Unmarshal(raw, &key); err == nil {
		pos, err := actor.ParsePosition(key)
		return pos, err == nil
	}
	obj, ok := decodeObject(raw)
	if !ok {
		return actor.Position{}, false
	}
	xr, xok := obj["x"]
	yr, yok := obj["y"]
	if !xok || !yok {
		return actor.Position{}, false
	}
	x, xok := decodeInt(xr)
	y, yok := decodeInt(yr)
	if !xok || !yok {
		return actor.Position{}, false
	}
	return actor.Position{X: x, Y: y}, true
}
