package actor

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/jwebster45206/d20"
)

// FocusName identifies one of the three development branches of a character.
type FocusName string

const (
	FocusPhysical FocusName = "physical"
	FocusMental   FocusName = "mental"
	FocusSocial   FocusName = "social"
)

// FocusOrder is the fixed iteration order used for every lookup across foci.
var FocusOrder = []FocusName{FocusPhysical, FocusMental, FocusSocial}

// AnimaLabel is the in-fiction name of each branch's resource pool.
var AnimaLabel = map[FocusName]string{
	FocusPhysical: "vigor",
	FocusMental:   "focus",
	FocusSocial:   "grace",
}

// ValidFocus reports whether name is one of the three known foci.
func ValidFocus(name FocusName) bool {
	_, ok := AnimaLabel[name]
	return ok
}

// baselineDefense is the armor value given to the d20 projection of a player.
// Anima characters have no armor class of their own.
const baselineDefense = 10

// Anima is the resource pool of a Focus branch.
type Anima struct {
	Value int `json:"value"`
	Max   int `json:"max"`
}

// Focus holds one branch of the character sheet.
type Focus struct {
	Anima      Anima          `json:"anima"`
	Attributes map[string]int `json:"attributes,omitempty"`
	Skills     map[string]int `json:"skills,omitempty"` // levels 0-7, bound enforced by clients
}

// Clone returns a copy of the Focus that shares no maps with the original.
func (f Focus) Clone() Focus {
	f.Attributes = maps.Clone(f.Attributes)
	f.Skills = maps.Clone(f.Skills)
	return f
}

// Health is the player's hit point track.
type Health struct {
	Value int `json:"value"`
	Max   int `json:"max"`
}

// Position is a coordinate in the world grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Key returns the world map key for the position, e.g. "2,-1".
func (p Position) Key() string {
	return strconv.Itoa(p.X) + "," + strconv.Itoa(p.Y)
}

// ParsePosition parses a world map key of the form "x,y".
func ParsePosition(key string) (Position, error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(key), ",")
	if !ok {
		return Position{}, fmt.Errorf("invalid coordinates %q: expected \"x,y\"", key)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return Position{}, fmt.Errorf("invalid x coordinate in %q: %w", key, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return Position{}, fmt.Errorf("invalid y coordinate in %q: %w", key, err)
	}
	return Position{X: x, Y: y}, nil
}

// Player is the character controlled by the user.
type Player struct {
	Name      string              `json:"name"`
	Class     string              `json:"class"`
	Foci      map[FocusName]Focus `json:"foci"`
	Health    Health              `json:"health"`
	Inventory []Item              `json:"inventory"`
	Equipment map[string]*Item    `json:"equipment,omitempty"` // slot -> item, nil when the slot is empty
	Position  Position            `json:"position"`
}

// Clone returns a deep copy of the player.
func (p Player) Clone() Player {
	if p.Foci != nil {
		foci := make(map[FocusName]Focus, len(p.Foci))
		for name, f := range p.Foci {
			foci[name] = f.Clone()
		}
		p.Foci = foci
	}
	if p.Inventory != nil {
		p.Inventory = append(make([]Item, 0, len(p.Inventory)), p.Inventory...)
	}
	if p.Equipment != nil {
		equipment := make(map[string]*Item, len(p.Equipment))
		for slot, it := range p.Equipment {
			if it == nil {
				equipment[slot] = nil
				continue
			}
			cp := *it
			equipment[slot] = &cp
		}
		p.Equipment = equipment
	}
	return p
}

// AttributeLevel returns the level of the named attribute, or 0 if unknown.
// When several foci hold the same name, the last one in FocusOrder wins.
func (p *Player) AttributeLevel(name string) int {
	return p.lookup(name, func(f Focus) map[string]int { return f.Attributes })
}

// SkillLevel returns the level of the named skill, or 0 if unknown.
// When several foci hold the same name, the last one in FocusOrder wins.
func (p *Player) SkillLevel(name string) int {
	return p.lookup(name, func(f Focus) map[string]int { return f.Skills })
}

func (p *Player) lookup(name string, levels func(Focus) map[string]int) int {
	key := NameKey(name)
	level := 0
	for _, fn := range FocusOrder {
		focus, ok := p.Foci[fn]
		if !ok {
			continue
		}
		if v, ok := focusLevel(levels(focus), key); ok {
			level = v
		}
	}
	return level
}

// focusLevel finds key within one focus. Keys folding to the same name are
// taken in sorted order, so "Strength" beats "strength" every time.
func focusLevel(levels map[string]int, key string) (int, bool) {
	for _, k := range slices.Sorted(maps.Keys(levels)) {
		if NameKey(k) == key {
			return levels[k], true
		}
	}
	return 0, false
}

// EquippedNames returns "slot: item" pairs for every occupied slot.
func (p *Player) EquippedNames() map[string]string {
	out := make(map[string]string, len(p.Equipment))
	for slot, it := range p.Equipment {
		if it == nil {
			continue
		}
		out[slot] = it.Name
	}
	return out
}

// Actor projects the player onto a d20 actor. Attribute and skill levels are
// flattened into a single attribute map.
func (p *Player) Actor() (*d20.Actor, error) {
	attrs := make(map[string]int)
	for _, fn := range FocusOrder {
		focus, ok := p.Foci[fn]
		if !ok {
			continue
		}
		maps.Copy(attrs, focus.Attributes)
		maps.Copy(attrs, focus.Skills)
	}

	id := p.Name
	if id == "" {
		id = p.Class
	}

	a, err := d20.NewActor(id).
		WithHP(p.Health.Max).
		WithAC(baselineDefense).
		WithAttributes(attrs).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	if p.Health.Value != p.Health.Max && p.Health.Value > 0 {
		if err := a.SetHP(p.Health.Value); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}
	return a, nil
}
