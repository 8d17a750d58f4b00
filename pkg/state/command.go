package state

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jwebster45206/anima-narrator/pkg/actor"
	"github.com/jwebster45206/anima-narrator/pkg/chat"
)

type CommandType string

const (
	CmdLook      CommandType = "look"
	CmdInventory CommandType = "inventory"
	CmdSheet     CommandType = "sheet"
	CmdNone      CommandType = "" // No command, used for fallback
)

var knownCommands = map[string]CommandType{
	"look":      CmdLook,
	"l":         CmdLook,
	"inventory": CmdInventory,
	"inv":       CmdInventory,
	"i":         CmdInventory,
	"sheet":     CmdSheet,
	"stats":     CmdSheet,
}

// parseCommand recognizes a shortcut command. Anything else is CmdNone.
func parseCommand(input string) CommandType {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return CmdNone
	}
	return knownCommands[trimmed]
}

// CommandResult is an early evaluation of a player command.
type CommandResult struct {
	Handled bool   // True if the command was fully resolved and no narrator call is needed
	Message string // Message or prompt to return
	Role    string // Transcript role for the message
}

// TryHandleCommand answers shortcut commands from local state.
func (gs *GameState) TryHandleCommand(input string) *CommandResult {
	switch parseCommand(input) {
	case CmdLook:
		return &CommandResult{Handled: true, Message: gs.DescribeLocation(), Role: chat.ChatRoleMaster}
	case CmdInventory:
		return &CommandResult{Handled: true, Message: gs.DescribeInventory(), Role: chat.ChatRoleMaster}
	case CmdSheet:
		return &CommandResult{Handled: true, Message: gs.DescribeSheet(), Role: chat.ChatRoleMaster}
	default:
		return &CommandResult{Handled: false, Message: input, Role: chat.ChatRoleUser}
	}
}

func (gs *GameState) DescribeLocation() string {
	room, ok := gs.CurrentRoom()
	if !ok {
		return "You are in an unknown location."
	}
	var sb strings.Builder
	sb.WriteString(room.Name)
	if room.BaseDescription != "" {
		sb.WriteString(": ")
		sb.WriteString(room.BaseDescription)
	}
	if len(room.Items) > 0 {
		sb.WriteString("\nYou see: ")
		sb.WriteString(actor.DescribeItems(room.Items))
	}
	if len(room.NPCs) > 0 {
		sb.WriteString("\nPresent: ")
		sb.WriteString(strings.Join(room.NPCNames(), ", "))
	}
	if len(room.Exits) > 0 {
		dirs := slices.Sorted(maps.Keys(room.Exits))
		sb.WriteString("\nExits: ")
		sb.WriteString(strings.Join(dirs, ", "))
	}
	return sb.String()
}

func (gs *GameState) DescribeInventory() string {
	if len(gs.Player.Inventory) == 0 {
		return "Your inventory is empty."
	}
	return "You have:\n- " + strings.Join(actor.ItemNames(gs.Player.Inventory), "\n- ")
}

// DescribeSheet renders a compact character sheet.
func (gs *GameState) DescribeSheet() string {
	p := gs.Player
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s the %s\nHealth %d/%d", p.Name, p.Class, p.Health.Value, p.Health.Max)
	for _, fn := range actor.FocusOrder {
		f, ok := p.Foci[fn]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "\n%s (%s %d/%d)", fn, actor.AnimaLabel[fn], f.Anima.Value, f.Anima.Max)
		if len(f.Attributes) > 0 {
			sb.WriteString("\n  attributes: ")
			sb.WriteString(formatLevels(f.Attributes))
		}
		if len(f.Skills) > 0 {
			sb.WriteString("\n  skills: ")
			sb.WriteString(formatLevels(f.Skills))
		}
	}
	return sb.String()
}

func formatLevels(levels map[string]int) string {
	parts := make([]string, 0, len(levels))
	for _, name := range slices.Sorted(maps.Keys(levels)) {
		parts = append(parts, fmt.Sprintf("%s %d", name, levels[name]))
	}
	return strings.Join(parts, ", ")
}
