// Package engine holds the narrative state machine: a pure reducer over
// GameState and the Session that owns one state and talks to the narrator.
package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/anima-narrator/pkg/actor"
	"github.com/jwebster45206/anima-narrator/pkg/chat"
	"github.com/jwebster45206/anima-narrator/pkg/prompts"
	"github.com/jwebster45206/anima-narrator/pkg/roll"
	"github.com/jwebster45206/anima-narrator/pkg/state"
)

// Reducer computes state transitions. It never mutates its input; the only
// non-determinism comes from the resolver's dice roller.
type Reducer struct {
	resolver *roll.Resolver
	logger   *slog.Logger
}

// NewReducer returns a reducer. A nil resolver uses the default dice roller.
func NewReducer(resolver *roll.Resolver, logger *slog.Logger) *Reducer {
	if resolver == nil {
		resolver = roll.NewResolver(nil, 0)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reducer{resolver: resolver, logger: logger}
}

// Reduce applies action to gs. Transitions that do not apply (for example
// ProcessRoll with nothing pending) return gs itself. An error is returned
// only when the dice roller fails, in which case gs is returned unchanged.
func (r *Reducer) Reduce(gs *state.GameState, action Action) (*state.GameState, Effect, error) {
	switch a := action.(type) {
	case InitGame:
		return r.initGame(gs, a), Effect{}, nil
	case SetLoading:
		next := gs.Clone()
		next.Loading = a.Loading
		return next, Effect{}, nil
	case AddMessage:
		next := gs.Clone()
		next.AddMessage(a.Message)
		next.Touch()
		return next, Effect{}, nil
	case ProcessNarrativeResponse:
		return r.processNarrative(gs, a), Effect{}, nil
	case ProcessRoll:
		return r.processRoll(gs, a)
	default:
		r.logger.Warn("Ignoring unknown action", "action", fmt.Sprintf("%T", action))
		return gs, Effect{}, nil
	}
}

func (r *Reducer) initGame(gs *state.GameState, a InitGame) *state.GameState {
	if a.State == nil {
		return gs
	}
	next := a.State.Clone()
	next.Initialized = true
	next.Loading = false
	next.PendingRoll = nil
	next.RollPrompt = ""
	next.Touch()
	return next
}

func (r *Reducer) processNarrative(gs *state.GameState, a ProcessNarrativeResponse) *state.GameState {
	resp := a.Response
	if resp == nil {
		return gs
	}

	next := state.NewDeltaWorker(gs, resp.StateUpdate, r.logger).Apply(a.Command, resp.Narrative)

	if resp.ASCIIArt != "" {
		next.AddMessage(chat.ChatMessage{Role: chat.ChatRoleArt, Content: resp.ASCIIArt})
	}
	next.AddMessage(chat.ChatMessage{Role: chat.ChatRoleMaster, Content: resp.Narrative})

	next.PendingRoll = resp.RequiredRoll.Clone()
	next.RollPrompt = ""
	if next.PendingRoll != nil {
		next.RollPrompt = RollPrompt(&next.Player, next.PendingRoll)
	}
	next.Loading = next.PendingRoll != nil
	next.Touch()
	return next
}

func (r *Reducer) processRoll(gs *state.GameState, a ProcessRoll) (*state.GameState, Effect, error) {
	if gs.PendingRoll == nil {
		return gs, Effect{}, nil
	}

	res, used, err := r.resolver.ResolveRequest(&gs.Player, *gs.PendingRoll, a.UseAlternative)
	if err != nil {
		return gs, Effect{}, fmt.Errorf("failed to resolve roll: %w", err)
	}
	if res.Capped {
		r.logger.Warn("Dice pool hit the safety cap",
			"game_id", gs.ID.String(),
			"skill", used.Skill,
			"dice", len(res.Dice))
	}

	next := gs.Clone()
	next.AddMessage(chat.ChatMessage{Role: chat.ChatRoleRoll, Content: res.Report(used)})
	next.PendingRoll = nil
	next.RollPrompt = ""
	next.Loading = false
	next.Touch()

	return next, Effect{
		Command: SystemRollCommand(used.Skill, res.Successes),
		Roll:    res,
		Rolled:  used,
	}, nil
}

// SystemRollCommand is the command fed back to the narrator after a roll.
func SystemRollCommand(skill string, successes int) string {
	return fmt.Sprintf("%s my %s test got %s.", prompts.SystemCommandPrefix, skill, roll.SuccessPhrase(successes))
}

// RollPrompt describes a pending roll for the player, e.g.
// "Roll athletics + strength: 2d10 vs difficulty 8".
func RollPrompt(p *actor.Player, req *roll.Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Roll %s + %s: %dd10 vs difficulty %d",
		req.Skill, req.Attribute, roll.PoolSize(p.SkillLevel(req.Skill)), req.Difficulty)
	if bonus := req.Bonus.Total(); bonus != 0 {
		fmt.Fprintf(&sb, " (bonus %+d)", bonus)
	}
	if req.HasAlternative() {
		alt := req.Swap(true)
		fmt.Fprintf(&sb, ", or %s + %s: %dd10",
			alt.Skill, alt.Attribute, roll.PoolSize(p.SkillLevel(alt.Skill)))
	}
	return sb.String()
}
