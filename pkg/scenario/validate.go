package scenario

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/jwebster45206/anima-narrator/pkg/actor"
)

// Validate checks every template and returns all problems joined together.
func (c *Catalog) Validate() error {
	var errs []error
	if len(c.Classes) == 0 {
		errs = append(errs, errors.New("catalog has no classes"))
	}
	if len(c.Rooms) == 0 {
		errs = append(errs, errors.New("catalog has no rooms"))
	}

	seen := make(actor.NameSet)
	for i, cls := range c.Classes {
		if seen.Has(cls.Name) {
			errs = append(errs, fmt.Errorf("class %q is defined twice", cls.Name))
		}
		seen[actor.NameKey(cls.Name)] = struct{}{}
		if err := cls.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("class %d: %w", i, err))
		}
	}
	for i, room := range c.Rooms {
		if err := room.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("room %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks a class template. The class must cover all three foci and
// levels must lie in 0..MaxLevel.
func (c ClassTemplate) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	if c.Health <= 0 {
		return fmt.Errorf("%s: health must be positive", c.Name)
	}
	for name := range c.Foci {
		if !actor.ValidFocus(actor.FocusName(name)) {
			return fmt.Errorf("%s: unknown focus %q", c.Name, name)
		}
	}
	for _, fn := range actor.FocusOrder {
		f, ok := c.Foci[string(fn)]
		if !ok {
			return fmt.Errorf("%s: missing %s focus", c.Name, fn)
		}
		if f.Anima <= 0 {
			return fmt.Errorf("%s: %s anima must be positive", c.Name, fn)
		}
		if err := checkLevels(f.Attributes); err != nil {
			return fmt.Errorf("%s: %s attribute %w", c.Name, fn, err)
		}
		if err := checkLevels(f.Skills); err != nil {
			return fmt.Errorf("%s: %s skill %w", c.Name, fn, err)
		}
	}
	for _, it := range c.Inventory {
		if it.Name == "" {
			return fmt.Errorf("%s: inventory item without a name", c.Name)
		}
	}
	for slot, it := range c.Equipment {
		if it.Name == "" {
			return fmt.Errorf("%s: equipment slot %q without a name", c.Name, slot)
		}
	}

	p := c.Player(c.Name)
	if _, err := p.Actor(); err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return nil
}

// Validate checks a room template.
func (r RoomTemplate) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	for dir, coords := range r.Exits {
		if _, err := actor.ParsePosition(coords); err != nil {
			return fmt.Errorf("%s: exit %s: %w", r.Name, dir, err)
		}
	}
	for _, n := range r.NPCs {
		if n.Name == "" {
			return fmt.Errorf("%s: npc without a name", r.Name)
		}
	}
	return nil
}

func checkLevels(levels map[string]int) error {
	seen := make(actor.NameSet, len(levels))
	for _, name := range slices.Sorted(maps.Keys(levels)) {
		if v := levels[name]; v < 0 || v > MaxLevel {
			return fmt.Errorf("%q level %d out of range 0..%d", name, v, MaxLevel)
		}
		if seen.Has(name) {
			return fmt.Errorf("%q is listed twice with different case", name)
		}
		seen[actor.NameKey(name)] = struct{}{}
	}
	return nil
}
