package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jwebster45206/anima-narrator/pkg/scenario"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Check scenario content",
		Long: `Validate a catalog file, or a directory of catalog files merged over the
built-in content. With no path the built-in catalog is checked.

  Example: gmctl validate data/scenario`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			catalog, err := loadCatalog(args, logger)
			if err != nil {
				return err
			}
			if err := catalog.Validate(); err != nil {
				return fmt.Errorf("validation failed:\n%w", err)
			}
			fmt.Fprintf(out, "Catalog is valid: %d classes, %d rooms, %d names\n",
				len(catalog.Classes), len(catalog.Rooms), len(catalog.Names))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log each file as it loads")
	return cmd
}

func loadCatalog(args []string, logger *slog.Logger) (*scenario.Catalog, error) {
	if len(args) == 0 {
		return scenario.Default()
	}
	info, err := os.Stat(args[0])
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return scenario.LoadDir(args[0], logger)
	}
	return scenario.LoadFile(args[0])
}
