package actor

import "strings"

// Item is anything a player can carry or equip.
type Item struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ItemNames returns the names of the given items in order.
func ItemNames(items []Item) []string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	return names
}

// RemoveItems drops every item whose name matches one of names, ignoring case.
// A new slice is returned; the input is left untouched.
func RemoveItems(items []Item, names []string) []Item {
	remove := NewNameSet(names)
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if remove.Has(it.Name) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// DescribeItems renders a short inventory line, e.g. "rope, lantern (dim)".
func DescribeItems(items []Item) string {
	if len(items) == 0 {
		return "nothing"
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it.Description != "" {
			parts = append(parts, it.Name+" ("+it.Description+")")
			continue
		}
		parts = append(parts, it.Name)
	}
	return strings.Join(parts, ", ")
}
