package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write a JSON backup of the ledger (\"-\" for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			var w io.Writer = os.Stdout
			if args[0] != "-" {
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("failed to create backup file: %w", err)
				}
				defer f.Close()
				w = f
			}

			if err := a.ledger.ExportJSON(ctx, w); err != nil {
				return err
			}

			if args[0] != "-" {
				fmt.Println(cli.FormatSuccess("Exported ledger to " + args[0]))
			}
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	var (
		yes          bool
		noCheckpoint bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the ledger with a JSON backup",
		Long: `Replace transactions, cards, reserves, yield history and settings with the
contents of a backup. A checkpoint of the current database is taken first so
the import can be undone with "tally checkpoint restore".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open backup: %w", err)
			}
			defer f.Close()

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if !yes {
				fmt.Println(cli.FormatWarning("Importing replaces the whole ledger with the backup."))
				ok, err := cli.NewPrompter(os.Stdin, os.Stdout).Confirm(ctx, "Continue?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println(cli.SubtleStyle.Render("Import cancelled."))
					return nil
				}
			}

			if !noCheckpoint {
				manager, err := a.store.NewCheckpointManager()
				if err != nil {
					return fmt.Errorf("failed to create checkpoint manager: %w", err)
				}
				info, err := manager.AutoCheckpoint(ctx, "import")
				if err != nil {
					return err
				}
				slog.Info("Created checkpoint before import", "checkpoint", info.ID)
			}

			if err := a.ledger.ImportJSON(ctx, f); err != nil {
				return err
			}
			if _, err := a.ledger.Startup(ctx); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("Imported " + args[0]))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	cmd.Flags().BoolVar(&noCheckpoint, "no-checkpoint", false, "skip the automatic checkpoint")

	return cmd
}
