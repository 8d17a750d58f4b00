// Command gmctl is the game master's toolbox: it checks scenario content,
// rolls dice pools offline, renders journals and sweeps expired games.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gmctl",
		Short: "Anima Narrator game master tools",
		Long:  `gmctl validates scenario content, rolls dice pools, renders game journals and maintains SQLite storage.`,

		SilenceUsage: true,
	}
	root.AddCommand(newValidateCmd())
	root.AddCommand(newRollCmd())
	root.AddCommand(newJournalCmd())
	root.AddCommand(newPurgeCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
