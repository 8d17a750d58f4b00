package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/anima-narrator/internal/journal"
	"github.com/jwebster45206/anima-narrator/internal/storage"
	"github.com/jwebster45206/anima-narrator/pkg/state"
	"github.com/spf13/cobra"
)

func newJournalCmd() *cobra.Command {
	var (
		dbPath string
		output string
		title  string
	)
	cmd := &cobra.Command{
		Use:   "journal [game-id | state.json]",
		Short: "Render a game journal as PDF",
		Long: `Render the transcript and character sheet of a game as a PDF. The game is
read from a SQLite database when --db is set, otherwise from a saved state file.

  Example: gmctl journal --db data/anima.db 3f0c9d6e-... -o journal.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			gs, err := loadGame(ctx, dbPath, args[0])
			if err != nil {
				return err
			}
			data, err := journal.Render(gs, title)
			if err != nil {
				return fmt.Errorf("failed to render journal: %w", err)
			}
			if output == "" {
				output = fmt.Sprintf("journal-%s.pdf", gs.ID.String()[:8])
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write journal: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", output, len(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to read the game from")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default journal-<id>.pdf)")
	cmd.Flags().StringVar(&title, "title", "", "journal title")
	return cmd
}

func loadGame(ctx context.Context, dbPath, arg string) (*state.GameState, error) {
	if dbPath == "" {
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read state file: %w", err)
		}
		var gs state.GameState
		if err := json.Unmarshal(data, &gs); err != nil {
			return nil, fmt.Errorf("failed to parse state file: %w", err)
		}
		return &gs, nil
	}

	id, err := uuid.Parse(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid game id: %w", err)
	}
	store, err := storage.OpenSQLite(dbPath, storage.DefaultSessionTTL, slog.New(slog.DiscardHandler))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = store.Close()
	}()

	gs, err := store.LoadGameState(ctx, id)
	if err != nil {
		return nil, err
	}
	if gs == nil {
		return nil, fmt.Errorf("game %s not found", id)
	}
	return gs, nil
}

func newPurgeCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired games from a SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.OpenSQLite(dbPath, storage.DefaultSessionTTL, slog.New(slog.DiscardHandler))
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			n, err := store.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired games\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}
