package prompts

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jwebster45206/anima-narrator/pkg/actor"
	"github.com/jwebster45206/anima-narrator/pkg/state"
)

// FormatPromptState renders the prompt state in a form optimized for LLM
// comprehension.
//
// Example output:
// CURRENT ROOM (0,0):
// Gatehouse: A crumbling gatehouse.
// Items here: lantern
// Exits: north (0,1)
//
// NPCs:
// Goblin: A wiry scout. [health 5]
//
// PLAYER:
// Ilsa the Warden, health 10/12
// physical (vigor 4/6): strength 3; athletics 2
// Carrying: rope, torch
// Equipped: hand: spear
//
// The player is IN COMBAT.
func FormatPromptState(ps *state.PromptState) string {
	var sb strings.Builder

	if r := ps.Room; r != nil {
		fmt.Fprintf(&sb, "CURRENT ROOM (%s):\n%s", r.Coordinates, r.Name)
		if r.Description != "" {
			fmt.Fprintf(&sb, ": %s", r.Description)
		}
		sb.WriteString("\n")
		if len(r.Items) > 0 {
			fmt.Fprintf(&sb, "Items here: %s\n", strings.Join(r.Items, ", "))
		}
		if len(r.Exits) > 0 {
			exits := make([]string, 0, len(r.Exits))
			for _, dir := range slices.Sorted(maps.Keys(r.Exits)) {
				exits = append(exits, fmt.Sprintf("%s (%s)", dir, r.Exits[dir]))
			}
			fmt.Fprintf(&sb, "Exits: %s\n", strings.Join(exits, ", "))
		}
		if len(r.NPCs) > 0 {
			sb.WriteString("\nNPCs:")
			for _, npc := range r.NPCs {
				fmt.Fprintf(&sb, "\n%s", npc.Name)
				if npc.Description != "" {
					fmt.Fprintf(&sb, ": %s", npc.Description)
				}
				if len(npc.Attributes) > 0 {
					fmt.Fprintf(&sb, " [%s]", formatAttributes(npc.Attributes))
				}
			}
			sb.WriteString("\n")
		}
	} else {
		fmt.Fprintf(&sb, "Unknown location: %s\n", ps.Player.Position)
	}

	p := ps.Player
	fmt.Fprintf(&sb, "\nPLAYER:\n%s the %s, health %d/%d\n", p.Name, p.Class, p.Health.Value, p.Health.Max)
	for _, fn := range actor.FocusOrder {
		f, ok := p.Foci[fn]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "%s (%s %d/%d): %s; %s\n", fn, f.AnimaLabel, f.Anima.Value, f.Anima.Max,
			formatLevels(f.Attributes), formatLevels(f.Skills))
	}
	if len(p.Inventory) > 0 {
		fmt.Fprintf(&sb, "Carrying: %s\n", strings.Join(p.Inventory, ", "))
	}
	if len(p.Equipment) > 0 {
		slots := make([]string, 0, len(p.Equipment))
		for _, slot := range slices.Sorted(maps.Keys(p.Equipment)) {
			slots = append(slots, slot+": "+p.Equipment[slot])
		}
		fmt.Fprintf(&sb, "Equipped: %s\n", strings.Join(slots, ", "))
	}

	if ps.InCombat {
		sb.WriteString("\nThe player is IN COMBAT.\n")
	}
	return sb.String()
}

func formatLevels(levels map[string]int) string {
	if len(levels) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(levels))
	for _, name := range slices.Sorted(maps.Keys(levels)) {
		parts = append(parts, fmt.Sprintf("%s %d", name, levels[name]))
	}
	return strings.Join(parts, ", ")
}

func formatAttributes(attrs map[string]float64) string {
	parts := make([]string, 0, len(attrs))
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		parts = append(parts, fmt.Sprintf("%s %g", name, attrs[name]))
	}
	return strings.Join(parts, ", ")
}
