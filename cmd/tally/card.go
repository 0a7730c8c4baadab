package main

import (
	"fmt"
	"os"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/ledger"
	"github.com/spf13/cobra"
)

func cardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "card",
		Aliases: []string{"cards"},
		Short:   "Manage credit cards",
		Example: `  tally card add --name Nubank --limit 5000 --closing-day 3 --due-day 10
  tally card invoice nubank 2024-05`,
	}

	cmd.AddCommand(cardAddCmd())
	cmd.AddCommand(cardEditCmd())
	cmd.AddCommand(cardDeleteCmd())
	cmd.AddCommand(cardListCmd())
	cmd.AddCommand(cardInvoiceCmd())

	return cmd
}

func cardAddCmd() *cobra.Command {
	var (
		name, last4, limit, payer string
		closingDay, dueDay        int
		canPayOthers              bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a credit card",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			in := ledger.CardInput{
				Name:       name,
				Last4:      last4,
				ClosingDay: closingDay,
				DueDay:     dueDay,
			}
			if in.Limit, err = parseAmount(limit); err != nil {
				return err
			}
			if cmd.Flags().Changed("can-pay-others") {
				in.CanPayOtherCards = &canPayOthers
			}
			if payer != "" {
				p, err := a.resolveCard(ctx, payer)
				if err != nil {
					return err
				}
				in.DefaultPayerCardID = p.ID
			}

			card, err := a.ledger.AddCard(ctx, in)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added card %s (%s)", card.Name, card.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "card name")
	cmd.Flags().StringVar(&last4, "last4", "", "last four digits")
	cmd.Flags().StringVar(&limit, "limit", "", "credit limit")
	cmd.Flags().IntVar(&closingDay, "closing-day", 1, "day of month the invoice closes")
	cmd.Flags().IntVar(&dueDay, "due-day", 10, "day of month the invoice is due")
	cmd.Flags().BoolVar(&canPayOthers, "can-pay-others", true, "card may pay other cards' invoices")
	cmd.Flags().StringVar(&payer, "payer", "", "card that pays this card's invoices automatically")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("limit")

	return cmd
}

func cardEditCmd() *cobra.Command {
	var (
		name, last4, limit, payer string
		closingDay, dueDay        int
		canPayOthers              bool
	)

	cmd := &cobra.Command{
		Use:   "edit <card>",
		Short: "Edit a credit card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			card, err := a.resolveCard(ctx, args[0])
			if err != nil {
				return err
			}

			var edit ledger.CardEdit
			flags := cmd.Flags()
			if flags.Changed("name") {
				edit.Name = &name
			}
			if flags.Changed("last4") {
				edit.Last4 = &last4
			}
			if flags.Changed("limit") {
				v, err := parseAmount(limit)
				if err != nil {
					return err
				}
				edit.Limit = &v
			}
			if flags.Changed("closing-day") {
				edit.ClosingDay = &closingDay
			}
			if flags.Changed("due-day") {
				edit.DueDay = &dueDay
			}
			if flags.Changed("can-pay-others") {
				edit.CanPayOtherCards = &canPayOthers
			}
			if flags.Changed("payer") {
				id := ""
				if payer != "" && payer != "none" {
					p, err := a.resolveCard(ctx, payer)
					if err != nil {
						return err
					}
					id = p.ID
				}
				edit.DefaultPayerCardID = &id
			}

			updated, err := a.ledger.EditCard(ctx, card.ID, edit)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated card %s", updated.Name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "card name")
	cmd.Flags().StringVar(&last4, "last4", "", "last four digits")
	cmd.Flags().StringVar(&limit, "limit", "", "full credit limit")
	cmd.Flags().IntVar(&closingDay, "closing-day", 0, "day of month the invoice closes")
	cmd.Flags().IntVar(&dueDay, "due-day", 0, "day of month the invoice is due")
	cmd.Flags().BoolVar(&canPayOthers, "can-pay-others", true, "card may pay other cards' invoices")
	cmd.Flags().StringVar(&payer, "payer", "", "default paying card, or \"none\"")

	return cmd
}

func cardDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <card>",
		Short: "Delete a credit card and everything billed to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			card, err := a.resolveCard(ctx, args[0])
			if err != nil {
				return err
			}

			if !yes {
				fmt.Println(cli.FormatWarning(fmt.Sprintf(
					"Deleting %s also deletes every purchase billed to it and every payment of its invoices.", card.Name)))
				ok, err := cli.NewPrompter(os.Stdin, os.Stdout).Confirm(ctx, "Continue?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println(cli.SubtleStyle.Render("Deletion cancelled."))
					return nil
				}
			}

			removed, err := a.ledger.DeleteCard(ctx, card.ID)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted card %s and %d entr%s", card.Name, removed, plural(removed, "y", "ies"))))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	return cmd
}

func cardListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List credit cards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			cards, err := a.ledger.Cards(ctx)
			if err != nil {
				return err
			}
			if len(cards) == 0 {
				fmt.Println(cli.FormatInfo("No cards yet. Add one with `tally card add`."))
				return nil
			}

			rows := make([][]string, 0, len(cards))
			for _, c := range cards {
				original, err := a.ledger.OriginalLimit(ctx, c.ID)
				if err != nil {
					return err
				}
				payer := "-"
				if c.DefaultPayerCardID != "" {
					payer = c.DefaultPayerCardID
				}
				rows = append(rows, []string{
					cli.CardIcon + " " + c.Name,
					c.Last4,
					a.money(c.Limit),
					a.money(original),
					fmt.Sprintf("%d / %d", c.ClosingDay, c.DueDay),
					payer,
					c.ID,
				})
			}
			fmt.Println(cli.RenderTable(
				[]string{"Card", "Last4", "Available", "Limit", "Close/Due", "Payer", "ID"}, rows))
			return nil
		},
	}
}

func cardInvoiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invoice <card> [YYYY-MM]",
		Short: "Show one invoice of a card",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			card, err := a.resolveCard(ctx, args[0])
			if err != nil {
				return err
			}

			month := a.ledger.Today().Month()
			if len(args) == 2 {
				if month, err = parseMonth(args[1]); err != nil {
					return err
				}
			}

			inv, err := a.ledger.InvoiceDetail(ctx, card.ID, month)
			if err != nil {
				return err
			}

			status := cli.WarningStyle.Render("open")
			if inv.Paid {
				status = cli.SuccessStyle.Render("paid")
			}
			summary := fmt.Sprintf("Due %s  Total %s  %s", inv.DueDate, a.money(inv.Total), status)
			fmt.Println(cli.RenderBox(fmt.Sprintf("%s %s %s", cli.CardIcon, inv.CardName, inv.InvoiceMonth), summary))
			if len(inv.Transactions) > 0 {
				fmt.Println(a.transactionTable(inv.Transactions))
			}
			return nil
		},
	}
}
