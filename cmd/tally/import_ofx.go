package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/ledger"
	"github.com/Veraticus/tally/internal/ofx"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func importOFXCmd() *cobra.Command {
	var (
		cardRef string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import entries from OFX/QFX statements",
		Long: `Import entries from OFX or QFX files exported from your bank. Bank
statements become cash entries; with --card, statement rows become purchases
on that card's invoices. Rows already imported are skipped.`,
		Example: `  # Import a checking account statement
  tally import-ofx ~/Downloads/checking_2024_05.ofx

  # Import every card statement in a folder
  tally import-ofx --card nubank ~/Downloads/nubank/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			files, err := expandFiles(args)
			if err != nil {
				return err
			}

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			cardID := ""
			if cardRef != "" {
				card, err := a.resolveCard(ctx, cardRef)
				if err != nil {
					return err
				}
				cardID = card.ID
			}

			handler := cli.NewInterruptHandler(os.Stdout)
			ctx, stop := handler.HandleInterrupts(ctx, "Import", "Nothing was written to the ledger.")
			defer stop()

			bar := progressbar.NewOptions(len(files),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan][bold]Reading statements...[reset]"),
				progressbar.OptionClearOnFinish(),
			)

			parser := ofx.NewParser()
			var inputs []ledger.TransactionInput
			skipped := 0
			for _, path := range files {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				entries, err := parseOFXFile(ctx, parser, path)
				_ = bar.Add(1)
				if err != nil {
					common.LogError(err, "Failed to parse OFX file", common.Fields{"file": path})
					continue
				}
				if len(entries) == 0 {
					slog.Warn("No transactions found in file", "file", filepath.Base(path))
					continue
				}

				in, s := ofx.Inputs(entries, cardID)
				inputs = append(inputs, in...)
				skipped += s
				fields := common.Fields{"file": filepath.Base(path), "entries": len(entries)}
				if s > 0 {
					fields["skipped"] = s
				}
				common.LogDebug("Parsed file", fields)
			}
			_ = bar.Finish()

			if len(inputs) == 0 {
				fmt.Println(cli.FormatWarning("No entries found in any file."))
				return nil
			}

			if dryRun {
				fmt.Println(cli.FormatInfo(fmt.Sprintf("Dry run: %d entries would be considered, %d rows skipped.", len(inputs), skipped)))
				for _, in := range inputs {
					fmt.Printf("  %s  %s  %s\n", in.Date, a.money(in.Amount), in.Description)
				}
				return nil
			}

			result, err := a.ledger.ImportTransactions(ctx, inputs)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d entries from %d file(s)", result.Added, len(files))))
			if result.Duplicates > 0 || skipped > 0 {
				fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("  %d already in the ledger, %d rows skipped", result.Duplicates, skipped)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cardRef, "card", "", "treat rows as purchases on this card")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "preview without saving")

	return cmd
}

// expandFiles resolves globs; a pattern with no match is kept when it names
// an existing file.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}

func parseOFXFile(ctx context.Context, parser *ofx.Parser, path string) ([]ofx.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parser.ParseFile(ctx, f)
}
