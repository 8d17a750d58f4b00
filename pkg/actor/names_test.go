package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameKey(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"Goblin", "GOBLIN"},
		{"  rat ", "Rat"},
		{"Straße", "STRASSE"},
		{"Σίσυφος", "ΣΊΣΥΦΟΣ"},
	}
	for _, tt := range tests {
		t.Run(tt.a, func(t *testing.T) {
			assert.Equal(t, NameKey(tt.a), NameKey(tt.b))
		})
	}
}

func TestNameSet(t *testing.T) {
	set := NewNameSet([]string{"Goblin", "", "  "})
	assert.Len(t, set, 1)
	assert.True(t, set.Has("goblin"))
	assert.False(t, set.Has("rat"))
}

func TestRemoveItems(t *testing.T) {
	items := []Item{{Name: "Rope"}, {Name: "rope"}, {Name: "Torch"}}
	out := RemoveItems(items, []string{"ROPE"})

	assert.Equal(t, []Item{{Name: "Torch"}}, out)
	assert.Len(t, items, 3, "input must not be modified")

	again := RemoveItems(out, []string{"ROPE"})
	assert.Equal(t, out, again)
}

func TestDescribeItems(t *testing.T) {
	assert.Equal(t, "nothing", DescribeItems(nil))
	assert.Equal(t, "Rope, Lantern (dim)", DescribeItems([]Item{{Name: "Rope"}, {Name: "Lantern", Description: "dim"}}))
}

func TestNPC_MergeAttributes(t *testing.T) {
	n := NPC{Name: "Goblin", Attributes: map[string]float64{"health": 5, "strength": 2}}
	n.MergeAttributes(map[string]float64{"health": 3, "fear": 1})

	assert.Equal(t, map[string]float64{"health": 3, "strength": 2, "fear": 1}, n.Attributes)

	var empty NPC
	empty.MergeAttributes(map[string]float64{"health": 1})
	assert.Equal(t, map[string]float64{"health": 1}, empty.Attributes)
}
