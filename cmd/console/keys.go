package main

import "github.com/charmbracelet/bubbles/key"

// keyMap lists the bindings shown in the side panel.
type keyMap struct {
	Send    key.Binding
	Roll    key.Binding
	RollAlt key.Binding
	Copy    key.Binding
	Scroll  key.Binding
	Quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Send:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "act")),
		Roll:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "roll")),
		RollAlt: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "roll alternative")),
		Copy:    key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy narration")),
		Scroll:  key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Roll, k.Quit}
}

// FullHelp is a single column; the side panel is narrow.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Send, k.Roll, k.RollAlt, k.Copy, k.Scroll, k.Quit}}
}
