package scenario

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/jwebster45206/anima-narrator/pkg/actor"
	"github.com/jwebster45206/anima-narrator/pkg/chat"
	"github.com/jwebster45206/anima-narrator/pkg/state"
)

// Options selects the player for a new game. Empty fields are chosen at random.
type Options struct {
	PlayerName string
	Class      string
}

// ErrUnknownClass is returned when Options names a class the catalog lacks.
var ErrUnknownClass = errors.New("unknown class")

// NewGame draws a class and a starting room and builds the opening state.
// The player starts at the origin, where the starting room is placed.
// The returned state is not yet initialized; pass it to InitGame.
func (c *Catalog) NewGame(r *rand.Rand, opts Options) (*state.GameState, error) {
	if len(c.Classes) == 0 || len(c.Rooms) == 0 {
		return nil, errors.New("catalog needs at least one class and one room")
	}
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	var cls ClassTemplate
	if opts.Class != "" {
		var ok bool
		if cls, ok = c.Class(opts.Class); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownClass, opts.Class)
		}
	} else {
		cls = c.Classes[r.IntN(len(c.Classes))]
	}
	room := c.Rooms[r.IntN(len(c.Rooms))]

	name := strings.TrimSpace(opts.PlayerName)
	if name == "" {
		name = "Wanderer"
		if len(c.Names) > 0 {
			name = c.Names[r.IntN(len(c.Names))]
		}
	}

	gs := state.NewGameState()
	gs.Player = cls.Player(name)
	gs.Player.Position = actor.Position{}
	gs.World[gs.Player.Position.Key()] = room.Room()
	gs.AddMessage(chat.ChatMessage{Role: chat.ChatRoleMaster, Content: opening(gs, cls)})
	return gs, nil
}

func opening(gs *state.GameState, cls ClassTemplate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s the %s", gs.Player.Name, cls.Name)
	if cls.Description != "" {
		fmt.Fprintf(&sb, ", %s", strings.ToLower(cls.Description[:1])+cls.Description[1:])
	} else {
		sb.WriteString(".")
	}
	sb.WriteString("\n\n")
	sb.WriteString(gs.DescribeLocation())
	return sb.String()
}
