package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/ledger"
	"github.com/spf13/cobra"
)

func statementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "statement [YYYY-MM]",
		Short: "Show the cash statement of a month",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			month := a.ledger.Today().Month()
			if len(args) == 1 {
				if month, err = parseMonth(args[0]); err != nil {
					return err
				}
			}

			st, err := a.ledger.Statement(ctx, month)
			if err != nil {
				return err
			}

			s := st.Summary
			var b strings.Builder
			fmt.Fprintf(&b, "Income     %s\n", a.signed(s.Income))
			fmt.Fprintf(&b, "Expenses   %s\n", a.signed(s.Expenses.Neg()))
			fmt.Fprintf(&b, "Invoices   %s\n", a.signed(s.Invoices.Neg()))
			fmt.Fprintf(&b, "Balance    %s", a.signed(s.Balance))
			fmt.Println(cli.RenderBox(cli.LedgerIcon+" Statement "+month.String(), b.String()))

			if len(s.Open) > 0 {
				rows := make([][]string, 0, len(s.Open))
				for _, inv := range s.Open {
					rows = append(rows, []string{inv.CardName, inv.InvoiceMonth.String(), inv.DueDate.String(), a.money(inv.Total)})
				}
				fmt.Println(cli.RenderTable([]string{"Open invoice", "Month", "Due", "Total"}, rows))
				fmt.Println()
			}
			if len(st.Transactions) > 0 {
				fmt.Println(a.transactionTable(st.Transactions))
			}
			return nil
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the current and projected balance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.ledger.Balance(ctx)
			if err != nil {
				return err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Current              %s\n", a.signed(p.Current))
			fmt.Fprintf(&b, "Upcoming income      %s\n", a.signed(p.ProjectedIncome))
			fmt.Fprintf(&b, "Upcoming expenses    %s\n", a.signed(p.ProjectedExpenses.Neg()))
			fmt.Fprintf(&b, "Projected            %s", a.signed(p.Projected))
			fmt.Println(cli.RenderBox(cli.LedgerIcon+" Balance on "+p.Today.String(), b.String()))

			pending, err := a.ledger.PendingTransfer(ctx)
			if err != nil {
				return err
			}
			if pending != nil {
				fmt.Println(cli.FormatInfo(fmt.Sprintf("Surplus of %s (%s) waits for the next income to move to a reserve.",
					pending.Month, a.money(pending.Amount))))
			}
			return nil
		},
	}
}

func payCmd() *cobra.Command {
	var method, payer, date string

	cmd := &cobra.Command{
		Use:   "pay <card> <YYYY-MM>",
		Short: "Pay a card invoice",
		Long: `Pay a card invoice with cash, debit, or another card. Paying with a card
charges the payer card for the invoice total.`,
		Example: `  tally pay nubank 2024-05 --method cash
  tally pay inter 2024-05 --method card --payer nubank`,
		Args: cobra.ExactArgs(2),
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

			req := ledger.PayRequest{CardID: card.ID}
			if req.Month, err = parseMonth(args[1]); err != nil {
				return err
			}
			if req.Method, err = ledger.ParsePaymentMethod(method); err != nil {
				return err
			}
			if req.Date, err = parseDate(date, a.ledger.Today()); err != nil {
				return err
			}
			if payer != "" {
				p, err := a.resolveCard(ctx, payer)
				if err != nil {
					return err
				}
				req.PayerCardID = p.ID
			}

			payment, err := a.ledger.PayInvoice(ctx, req)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Paid %s invoice %s: %s",
				card.Name, req.Month, a.money(payment.Amount.Abs()))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", "cash", "cash, debit or card")
	cmd.Flags().StringVar(&payer, "payer", "", "paying card (with --method card)")
	cmd.Flags().StringVar(&date, "date", "", "payment date YYYY-MM-DD (default today)")

	return cmd
}
