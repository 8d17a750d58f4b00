package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlayer() Player {
	return Player{
		Name:  "Ilsa",
		Class: "Warden",
		Foci: map[FocusName]Focus{
			FocusPhysical: {
				Anima:      Anima{Value: 4, Max: 6},
				Attributes: map[string]int{"strength": 3, "agility": 2},
				Skills:     map[string]int{"Athletics": 2, "lore": 1},
			},
			FocusMental: {
				Anima:      Anima{Value: 3, Max: 3},
				Attributes: map[string]int{"wits": 2},
				Skills:     map[string]int{"lore": 4},
			},
			FocusSocial: {
				Anima:      Anima{Value: 2, Max: 5},
				Attributes: map[string]int{"presence": 1},
				Skills:     map[string]int{"persuasion": 3},
			},
		},
		Health:    Health{Value: 10, Max: 12},
		Inventory: []Item{{Name: "Rope"}, {Name: "Lantern", Description: "dim"}},
		Equipment: map[string]*Item{"hand": {Name: "Spear"}, "head": nil},
		Position:  Position{X: 1, Y: -2},
	}
}

func TestPlayer_SkillLevel(t *testing.T) {
	p := testPlayer()

	tests := []struct {
		name     string
		skill    string
		expected int
	}{
		{"exact match", "persuasion", 3},
		{"case insensitive", "athletics", 2},
		{"unknown skill", "stealth", 0},
		{"later focus wins", "lore", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.SkillLevel(tt.skill); got != tt.expected {
				t.Errorf("SkillLevel(%q) = %d, want %d", tt.skill, got, tt.expected)
			}
		})
	}
}

func TestPlayer_FoldedKeyCollision(t *testing.T) {
	p := Player{Foci: map[FocusName]Focus{
		FocusPhysical: {Attributes: map[string]int{"strength": 1, "Strength": 4, "STRENGTH": 2}},
	}}
	// sorted key order decides, never map order
	for range 50 {
		require.Equal(t, 2, p.AttributeLevel("strength"))
	}
}

func TestPlayer_AttributeLevel(t *testing.T) {
	p := testPlayer()
	assert.Equal(t, 3, p.AttributeLevel("Strength"))
	assert.Equal(t, 2, p.AttributeLevel("wits"))
	assert.Equal(t, 0, p.AttributeLevel("charm"))
}

func TestPlayer_Clone(t *testing.T) {
	p := testPlayer()
	cp := p.Clone()

	cp.Foci[FocusPhysical].Skills["Athletics"] = 7
	cp.Inventory[0].Name = "Chain"
	cp.Equipment["hand"].Name = "Sword"

	assert.Equal(t, 2, p.Foci[FocusPhysical].Skills["Athletics"])
	assert.Equal(t, "Rope", p.Inventory[0].Name)
	assert.Equal(t, "Spear", p.Equipment["hand"].Name)
	assert.Nil(t, cp.Equipment["head"])
}

func TestPlayer_EquippedNames(t *testing.T) {
	p := testPlayer()
	assert.Equal(t, map[string]string{"hand": "Spear"}, p.EquippedNames())
}

func TestPlayer_Actor(t *testing.T) {
	p := testPlayer()
	a, err := p.Actor()
	require.NoError(t, err)

	assert.Equal(t, 12, a.MaxHP())
	assert.Equal(t, 10, a.HP())

	strength, ok := a.Attribute("strength")
	require.True(t, ok)
	assert.Equal(t, 3, strength)

	persuasion, ok := a.Attribute("persuasion")
	require.True(t, ok)
	assert.Equal(t, 3, persuasion)
}

func TestPosition_Key(t *testing.T) {
	assert.Equal(t, "0,0", Position{}.Key())
	assert.Equal(t, "3,-4", Position{X: 3, Y: -4}.Key())
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in      string
		want    Position
		wantErr bool
	}{
		{"0,0", Position{}, false},
		{" 2 , -7 ", Position{X: 2, Y: -7}, false},
		{"2", Position{}, true},
		{"a,1", Position{}, true},
		{"1,b", Position{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePosition(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidFocus(t *testing.T) {
	assert.True(t, ValidFocus(FocusMental))
	assert.False(t, ValidFocus("spiritual"))
}
