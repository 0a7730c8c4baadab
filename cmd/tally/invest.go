package main

import (
	"fmt"
	"os"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/investment"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func investCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invest",
		Aliases: []string{"reserve", "reserves"},
		Short:   "Manage interest-bearing reserves",
		Long: `Reserves accrue daily yield at their annual rate, net of tax. Reserves
allowed to cover negative balances are drawn from when the balance dips below
zero, and the first of them receives monthly surpluses.`,
	}

	cmd.AddCommand(investAddCmd())
	cmd.AddCommand(investAmountCmd("deposit", "Add money to a reserve"))
	cmd.AddCommand(investAmountCmd("withdraw", "Take money out of a reserve"))
	cmd.AddCommand(investRateCmd())
	cmd.AddCommand(investDefaultRateCmd())
	cmd.AddCommand(investCoverageCmd())
	cmd.AddCommand(investDeleteCmd())
	cmd.AddCommand(investListCmd())
	cmd.AddCommand(investHistoryCmd())

	return cmd
}

func investAddCmd() *cobra.Command {
	var (
		name, kind, amount, rate, start string
		cover                           bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a reserve",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			req := investment.CreateRequest{Name: name, Type: kind, CanCover: cover}
			if req.Amount, err = parseAmount(amount); err != nil {
				return err
			}
			if req.StartDate, err = parseDate(start, a.ledger.Today()); err != nil {
				return err
			}
			if rate != "" {
				r, err := parseAmount(rate)
				if err != nil {
					return err
				}
				req.Rate = &r
			}

			inv, err := a.ledger.CreateInvestment(ctx, req)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created reserve %s at %s%% a year (%s)", inv.Name, inv.YieldRate, inv.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "reserve name")
	cmd.Flags().StringVar(&kind, "type", "", "free-form kind, e.g. savings or CDB")
	cmd.Flags().StringVarP(&amount, "amount", "a", "0", "initial amount")
	cmd.Flags().StringVar(&rate, "rate", "", "annual yield rate in percent (default: stored default rate)")
	cmd.Flags().StringVar(&start, "start", "", "start date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&cover, "cover", false, "allow this reserve to cover negative balances")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func investAmountCmd(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <reserve> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			inv, err := a.resolveInvestment(ctx, args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}

			if use == "deposit" {
				inv, err = a.ledger.Deposit(ctx, inv.ID, amount)
			} else {
				inv, err = a.ledger.Withdraw(ctx, inv.ID, amount)
			}
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s now holds %s", inv.Name, a.money(inv.CurrentAmount))))
			return nil
		},
	}
}

func investRateCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "rate <reserve> <annual-rate>",
		Short: "Change a reserve's yield rate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			inv, err := a.resolveInvestment(ctx, args[0])
			if err != nil {
				return err
			}
			rate, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			effective, err := parseDate(from, a.ledger.Today())
			if err != nil {
				return err
			}

			inv, err = a.ledger.UpdateYieldRate(ctx, inv.ID, rate, effective)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s yields %s%% a year from %s", inv.Name, inv.YieldRate, effective)))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "date the new rate takes effect (default today)")

	return cmd
}

func investDefaultRateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default-rate [annual-rate]",
		Short: "Show or change the rate new reserves start with",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				rate, err := parseAmount(args[0])
				if err != nil {
					return err
				}
				if err := a.ledger.SetDefaultYieldRate(ctx, rate); err != nil {
					return err
				}
			}

			rate, err := a.ledger.DefaultYieldRate(ctx)
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatInfo(fmt.Sprintf("Default yield rate: %s%% a year", rate)))
			return nil
		},
	}
}

func investCoverageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coverage <reserve>",
		Short: "Toggle whether a reserve covers negative balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			inv, err := a.resolveInvestment(ctx, args[0])
			if err != nil {
				return err
			}

			enabled, err := a.ledger.ToggleCoverage(ctx, inv.ID)
			if err != nil {
				return err
			}

			state := "no longer covers"
			if enabled {
				state = "now covers"
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s %s negative balances", inv.Name, state)))
			return nil
		},
	}
}

func investDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <reserve>",
		Short: "Delete a reserve and its yield history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			inv, err := a.resolveInvestment(ctx, args[0])
			if err != nil {
				return err
			}

			if !yes {
				ok, err := cli.NewPrompter(os.Stdin, os.Stdout).Confirm(ctx,
					fmt.Sprintf("Delete %s holding %s?", inv.Name, a.money(inv.CurrentAmount)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println(cli.SubtleStyle.Render("Deletion cancelled."))
					return nil
				}
			}

			if err := a.ledger.DeleteInvestment(ctx, inv.ID); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Deleted reserve " + inv.Name))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	return cmd
}

func investListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List reserves",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			invs, err := a.ledger.Investments(ctx)
			if err != nil {
				return err
			}
			if len(invs) == 0 {
				fmt.Println(cli.FormatInfo("No reserves yet. Create one with `tally invest add`."))
				return nil
			}

			total := decimal.Zero
			rows := make([][]string, 0, len(invs))
			for _, inv := range invs {
				flags := ""
				if inv.CanCoverNegativeBalance {
					flags = "covers"
				}
				if !inv.IsActive {
					flags += " inactive"
				}
				rows = append(rows, []string{
					cli.ReserveIcon + " " + inv.Name,
					a.money(inv.CurrentAmount),
					inv.YieldRate.String() + "%",
					inv.LastYieldDate.String(),
					flags,
					inv.ID,
				})
				total = total.Add(inv.CurrentAmount)
			}
			fmt.Println(cli.RenderTable([]string{"Reserve", "Balance", "Rate", "Last yield", "Flags", "ID"}, rows))
			fmt.Println(cli.InfoStyle.Render("Total: " + a.money(total)))
			return nil
		},
	}
}

func investHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <reserve>",
		Short: "Show the daily yield of a reserve",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			inv, err := a.resolveInvestment(ctx, args[0])
			if err != nil {
				return err
			}

			records, err := a.ledger.YieldHistory(ctx, inv.ID)
			if err != nil {
				return err
			}
			if limit > 0 && len(records) > limit {
				records = records[len(records)-limit:]
			}

			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{
					r.Date.String(),
					r.Rate.String() + "%",
					r.GrossAmount.StringFixed(8),
					r.TaxAmount.StringFixed(8),
					r.NetAmount.StringFixed(8),
					a.money(r.BalanceAfter),
				})
			}
			fmt.Println(cli.RenderTable([]string{"Date", "Rate", "Gross", "Tax", "Net", "Balance"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 30, "show only the most recent records (0 for all)")

	return cmd
}
