package actor

import "maps"

// NPC represents a non-player character living in a room.
type NPC struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Attributes  map[string]float64 `json:"attributes,omitempty"` // e.g. "health": 8, "strength": 3
}

// Clone returns a copy of the NPC that shares no maps with the original.
func (n NPC) Clone() NPC {
	n.Attributes = maps.Clone(n.Attributes)
	return n
}

// MergeAttributes overlays attrs onto the NPC's attributes.
// New keys are added, existing keys overwritten, untouched keys kept.
func (n *NPC) MergeAttributes(attrs map[string]float64) {
	if len(attrs) == 0 {
		return
	}
	if n.Attributes == nil {
		n.Attributes = make(map[string]float64, len(attrs))
	}
	maps.Copy(n.Attributes, attrs)
}
