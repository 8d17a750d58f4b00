// Package roll resolves dice-pool checks.
//
// A pool of d10s is rolled, one die per skill level (minimum one). Each die is
// added to the attribute level and the bonus total and compared against the
// difficulty. A 1 is a critical failure worth -1 success. A 10 counts as 15,
// and explodes: it queues one more die, which may explode in turn.
package roll

import (
	"fmt"

	"github.com/KirkDiggler/rpg-toolkit/dice"
	"github.com/jwebster45206/anima-narrator/pkg/actor"
)

const (
	dieSize = 10

	criticalFace  = 1
	explodingFace = 10
	explodedValue = 15

	// DefaultMaxDice caps how many dice one resolution may roll, so that an
	// endless chain of tens still terminates.
	DefaultMaxDice = 1000
)

// Input is everything a resolution needs besides randomness.
type Input struct {
	SkillLevel     int
	AttributeLevel int
	Bonus          int
	Difficulty     int
}

// PoolSize returns the number of dice rolled for a skill level.
func PoolSize(skillLevel int) int {
	return max(skillLevel, 1)
}

// Resolver rolls dice pools using a dice.Roller.
type Resolver struct {
	roller  dice.Roller
	maxDice int
}

// NewResolver returns a resolver. A nil roller falls back to the toolkit's
// default roller and a non-positive maxDice falls back to DefaultMaxDice.
func NewResolver(roller dice.Roller, maxDice int) *Resolver {
	if roller == nil {
		roller = dice.DefaultRoller
	}
	if maxDice <= 0 {
		maxDice = DefaultMaxDice
	}
	return &Resolver{roller: roller, maxDice: maxDice}
}

// Resolve rolls the pool described by in.
func (r *Resolver) Resolve(in Input) (*Result, error) {
	res := &Result{Input: in}

	// Worklist of dice still to roll. Tens push one more entry.
	pending := PoolSize(in.SkillLevel)
	for pending > 0 {
		if len(res.Dice) >= r.maxDice {
			res.Capped = true
			break
		}
		pending--

		face, err := r.roller.Roll(dieSize)
		if err != nil {
			return nil, fmt.Errorf("failed to roll d%d: %w", dieSize, err)
		}
		if face < 1 || face > dieSize {
			return nil, fmt.Errorf("roller returned %d for a d%d", face, dieSize)
		}

		die := r.score(len(res.Dice)+1, face, in)
		if die.Exploded {
			pending++
		}
		res.Successes += die.Successes()
		res.Dice = append(res.Dice, die)
	}

	return res, nil
}

// ResolveRequest looks up the request's skill and attribute on the player,
// optionally swapping in the alternative check, and resolves the pool.
// The returned request is the one actually rolled.
func (r *Resolver) ResolveRequest(p *actor.Player, req Request, useAlternative bool) (*Result, Request, error) {
	req = req.Swap(useAlternative)
	in := Input{
		SkillLevel:     p.SkillLevel(req.Skill),
		AttributeLevel: p.AttributeLevel(req.Attribute),
		Bonus:          req.Bonus.Total(),
		Difficulty:     req.Difficulty,
	}
	res, err := r.Resolve(in)
	if err != nil {
		return nil, req, err
	}
	return res, req, nil
}

func (r *Resolver) score(index, face int, in Input) Die {
	d := Die{
		Index:     index,
		Face:      face,
		Resolved:  face,
		Attribute: in.AttributeLevel,
		Bonus:     in.Bonus,
	}
	switch face {
	case criticalFace:
		d.Critical = true
	case explodingFace:
		d.Resolved = explodedValue
		d.Exploded = true
	}
	d.Total = d.Resolved + d.Attribute + d.Bonus
	d.Success = !d.Critical && d.Total >= in.Difficulty
	return d
}
