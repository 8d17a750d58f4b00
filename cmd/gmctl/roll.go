package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/KirkDiggler/rpg-toolkit/dice"
	"github.com/jwebster45206/anima-narrator/pkg/roll"
	"github.com/spf13/cobra"
)

// seededRoller makes pools reproducible for a given seed.
type seededRoller struct {
	r *rand.Rand
}

func (s *seededRoller) Roll(size int) (int, error) {
	if size <= 0 {
		return 0, fmt.Errorf("invalid die size %d", size)
	}
	return s.r.IntN(size) + 1, nil
}

func (s *seededRoller) RollN(count, size int) ([]int, error) {
	out := make([]int, 0, count)
	for range count {
		v, err := s.Roll(size)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func newRollCmd() *cobra.Command {
	var (
		in      roll.Input
		seed    uint64
		maxDice int
	)
	cmd := &cobra.Command{
		Use:   "roll",
		Short: "Roll a dice pool",
		Long: `Roll a pool of d10s the way the engine does and print the per-die trace.

  Example: gmctl roll --skill 2 --attribute 3 --difficulty 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var roller dice.Roller
			if cmd.Flags().Changed("seed") {
				roller = &seededRoller{r: rand.New(rand.NewPCG(seed, seed))}
			}
			res, err := roll.NewResolver(roller, maxDice).Resolve(in)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🎲 %d dice vs difficulty %d\n", roll.PoolSize(in.SkillLevel), in.Difficulty)
			for _, line := range res.Trace() {
				fmt.Fprintln(out, line)
			}
			if res.Capped {
				fmt.Fprintf(out, "(stopped after %d dice)\n", len(res.Dice))
			}
			fmt.Fprintf(out, "Result: %s\n", res.Summary())
			return nil
		},
	}
	cmd.Flags().IntVar(&in.SkillLevel, "skill", 0, "skill level (pool size, minimum 1)")
	cmd.Flags().IntVar(&in.AttributeLevel, "attribute", 0, "attribute level added to each die")
	cmd.Flags().IntVar(&in.Bonus, "bonus", 0, "total bonus added to each die")
	cmd.Flags().IntVar(&in.Difficulty, "difficulty", 8, "total each die must reach")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for a reproducible roll")
	cmd.Flags().IntVar(&maxDice, "max-dice", roll.DefaultMaxDice, "cap on dice rolled, exploding tens included")
	return cmd
}
