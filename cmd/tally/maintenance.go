package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/ledger"
	"github.com/spf13/cobra"
)

func repairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Re-run migrations and recompute derived data",
		Long: `Repair re-runs pending data migrations and every recompute step (automatic
invoice payments, available card limits), saving only what changed. It is
safe to run at any time.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.ledger.Repair(ctx)
			if err != nil {
				return err
			}

			printMigrations(report.Migrations)
			if len(report.Changed) == 0 {
				fmt.Println(cli.FormatSuccess("Nothing to repair."))
				return nil
			}
			fmt.Println(cli.FormatSuccess("Repaired: " + strings.Join(report.Changed, ", ")))
			return nil
		},
	}
}

func dailyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daily",
		Short: "Run the daily catch-up now",
		Long: `Accrue reserve yield through yesterday, materialize recurring entries,
cover a negative balance from reserves and evaluate last month's surplus.
Every other command does this on start; this command shows what happened.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.ledger.Startup(ctx)
			if err != nil {
				return err
			}
			printDaily(a, report)
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending data migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.ledger.RunMigrations(ctx)
			if err != nil {
				return err
			}
			printMigrations(report)
			if len(report.Applied) == 0 && len(report.Failed) == 0 {
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Data is at version %d.", report.To)))
			}
			return nil
		},
	}
}

func printMigrations(report ledger.MigrationReport) {
	for _, m := range report.Applied {
		fmt.Println(cli.FormatSuccess("Migrated: " + m))
	}
	for _, m := range report.Failed {
		fmt.Println(cli.FormatWarning("Migration failed, will retry next start: " + m))
	}
}

func printDaily(a *app, r ledger.DailyReport) {
	if r.Yield.Skipped {
		fmt.Println(cli.SubtleStyle.Render("Yield already processed today."))
	} else {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Yield: %d record(s) across %d reserve(s), net %s",
			r.Yield.Records, r.Yield.Investments, a.money(r.Yield.Net))))
	}

	if r.Materialized > 0 {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Materialized %d recurring entr%s", r.Materialized, plural(r.Materialized, "y", "ies"))))
	}

	switch {
	case r.Coverage.Skipped:
		fmt.Println(cli.SubtleStyle.Render("Coverage already ran today."))
	case r.Coverage.Covered.IsPositive():
		fmt.Println(cli.FormatWarning(fmt.Sprintf("Covered %s of a %s deficit from reserves",
			a.money(r.Coverage.Covered), a.money(r.Coverage.Deficit))))
	}

	if r.Swept != nil {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Moved the %s surplus of %s to a reserve",
			r.Swept.Month, a.money(r.Swept.Amount))))
	}
	if r.Pending != nil {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Surplus of %s (%s) will move on the next income",
			r.Pending.Month, a.money(r.Pending.Amount))))
	}
}
