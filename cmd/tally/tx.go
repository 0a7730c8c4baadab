package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/ledger"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/recurrence"
	"github.com/spf13/cobra"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transaction", "transactions"},
		Short:   "Manage ledger entries",
		Long: `Add, edit, delete and list ledger entries. Entries can be paid in cash or
billed to a credit card, split into installments, or repeat weekly, monthly
or yearly.`,
		Example: `  # Monthly salary, open-ended
  tally tx add --type income --amount 5000 --category Salary --repeat monthly

  # A purchase split in 3 on a card
  tally tx add --amount 900 --category Electronics --card nubank --installments 3

  # Change the amount of every future rent payment
  tally tx edit 3f1c... --amount 1800 --scope forward`,
	}

	cmd.AddCommand(txAddCmd())
	cmd.AddCommand(txEditCmd())
	cmd.AddCommand(txDeleteCmd())
	cmd.AddCommand(txListCmd())

	return cmd
}

func parseType(s string) (model.TransactionType, error) {
	switch t := model.TransactionType(strings.ToLower(strings.TrimSpace(s))); t {
	case model.TypeIncome, model.TypeExpense:
		return t, nil
	default:
		return "", common.Validationf("type must be income or expense, got %q", s)
	}
}

func parseCadence(s string) (model.RecurrenceCadence, error) {
	switch c := model.RecurrenceCadence(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return "", nil
	case model.CadenceWeekly, model.CadenceMonthly, model.CadenceYearly:
		return c, nil
	default:
		return "", common.Validationf("repeat must be weekly, monthly or yearly, got %q", s)
	}
}

func txAddCmd() *cobra.Command {
	var (
		date, amount, txType, category, description string
		cardRef, invoiceMonth, repeat, until         string
		installments                                 int
		perInstallment                               bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an entry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			in := ledger.TransactionInput{
				Category:     category,
				Description:  description,
				Installments: installments,
				Origin:       model.OriginUser,
			}
			if in.Date, err = parseDate(date, a.ledger.Today()); err != nil {
				return err
			}
			if in.Amount, err = parseAmount(amount); err != nil {
				return err
			}
			if in.Type, err = parseType(txType); err != nil {
				return err
			}
			if in.Cadence, err = parseCadence(repeat); err != nil {
				return err
			}
			if until != "" {
				if in.EndDate, err = parseDate(until, a.ledger.Today()); err != nil {
					return err
				}
			}
			if in.InvoiceMonth, err = parseMonth(invoiceMonth); err != nil {
				return err
			}
			if cardRef != "" {
				card, err := a.resolveCard(ctx, cardRef)
				if err != nil {
					return err
				}
				in.CardID = card.ID
			}
			if perInstallment {
				in.AmountMode = recurrence.AmountPerInstallment
			}

			created, err := a.ledger.AddTransaction(ctx, in)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added %d entr%s", len(created), plural(len(created), "y", "ies"))))
			fmt.Println(a.transactionTable(created))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "entry date YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "amount, always positive")
	cmd.Flags().StringVarP(&txType, "type", "t", "expense", "income or expense")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category (required for expenses)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "free-text description")
	cmd.Flags().StringVar(&cardRef, "card", "", "credit card ID or name to bill")
	cmd.Flags().StringVar(&invoiceMonth, "invoice-month", "", "override the invoice month YYYY-MM")
	cmd.Flags().IntVarP(&installments, "installments", "n", 1, "split into this many monthly installments")
	cmd.Flags().BoolVar(&perInstallment, "per-installment", false, "amount is the value of each installment, not the total")
	cmd.Flags().StringVar(&repeat, "repeat", "", "repeat weekly, monthly or yearly")
	cmd.Flags().StringVar(&until, "until", "", "last day of the repetition YYYY-MM-DD (default forever)")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func txEditCmd() *cobra.Command {
	var (
		amount, txType, category, description string
		date, cardRef, invoiceMonth, scope    string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an entry or its series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			target, err := a.ledger.GetTransaction(ctx, args[0])
			if err != nil {
				return err
			}

			var edit ledger.TransactionEdit
			flags := cmd.Flags()
			if flags.Changed("amount") {
				v, err := parseAmount(amount)
				if err != nil {
					return err
				}
				edit.Amount = &v
			}
			if flags.Changed("type") {
				v, err := parseType(txType)
				if err != nil {
					return err
				}
				edit.Type = &v
			}
			if flags.Changed("category") {
				edit.Category = &category
			}
			if flags.Changed("description") {
				edit.Description = &description
			}
			if flags.Changed("date") {
				v, err := parseDate(date, a.ledger.Today())
				if err != nil {
					return err
				}
				edit.Date = &v
			}
			if flags.Changed("card") {
				id := ""
				if cardRef != "" && !strings.EqualFold(cardRef, "none") {
					card, err := a.resolveCard(ctx, cardRef)
					if err != nil {
						return err
					}
					id = card.ID
				}
				edit.CardID = &id
			}
			if flags.Changed("invoice-month") {
				v, err := parseMonth(invoiceMonth)
				if err != nil {
					return err
				}
				edit.InvoiceMonth = &v
			}

			s, err := chooseScope(cmd, target, scope, "Edit")
			if err != nil {
				return err
			}

			edited, err := a.ledger.EditTransaction(ctx, target.ID, edit, s)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Edited %d entr%s", len(edited), plural(len(edited), "y", "ies"))))
			fmt.Println(a.transactionTable(edited))
			return nil
		},
	}

	cmd.Flags().StringVarP(&amount, "amount", "a", "", "new amount")
	cmd.Flags().StringVarP(&txType, "type", "t", "", "income or expense")
	cmd.Flags().StringVarP(&category, "category", "c", "", "new category")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&date, "date", "", "move to this date (single scope only)")
	cmd.Flags().StringVar(&cardRef, "card", "", "move to this card, or \"none\" for cash (single scope only)")
	cmd.Flags().StringVar(&invoiceMonth, "invoice-month", "", "move to this invoice YYYY-MM (single scope only)")
	cmd.Flags().StringVar(&scope, "scope", "", "single, forward or all (asked when omitted)")

	return cmd
}

func txDeleteCmd() *cobra.Command {
	var (
		scope string
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry or its series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			target, err := a.ledger.GetTransaction(ctx, args[0])
			if err != nil {
				return err
			}

			s, err := chooseScope(cmd, target, scope, "Delete")
			if err != nil {
				return err
			}

			if !yes {
				ok, err := cli.NewPrompter(os.Stdin, os.Stdout).Confirm(ctx,
					fmt.Sprintf("Delete %q (%s)?", describe(target), s))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println(cli.SubtleStyle.Render("Deletion cancelled."))
					return nil
				}
			}

			n, err := a.ledger.DeleteTransaction(ctx, target.ID, s)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted %d entr%s", n, plural(n, "y", "ies"))))
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "single, forward or all (asked when omitted)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	return cmd
}

func txListCmd() *cobra.Command {
	var month, invoiceMonth, cardRef, category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			filter := ledger.TransactionFilter{Category: category}
			if filter.Month, err = parseMonth(month); err != nil {
				return err
			}
			if filter.InvoiceMonth, err = parseMonth(invoiceMonth); err != nil {
				return err
			}
			if cardRef != "" {
				card, err := a.resolveCard(ctx, cardRef)
				if err != nil {
					return err
				}
				filter.CardID = card.ID
			}

			txs, err := a.ledger.ListTransactions(ctx, filter)
			if err != nil {
				return err
			}
			if len(txs) == 0 {
				fmt.Println(cli.FormatInfo("No entries found."))
				return nil
			}

			fmt.Println(a.transactionTable(txs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "only entries dated in YYYY-MM")
	cmd.Flags().StringVar(&invoiceMonth, "invoice-month", "", "only card entries on the YYYY-MM invoice")
	cmd.Flags().StringVar(&cardRef, "card", "", "only entries billed to this card")
	cmd.Flags().StringVarP(&category, "category", "c", "", "only entries in this category")

	return cmd
}

// chooseScope uses the --scope flag when given, asks when the entry belongs
// to a family, and otherwise picks the single entry.
func chooseScope(cmd *cobra.Command, tx model.Transaction, flag, action string) (recurrence.Scope, error) {
	if flag != "" {
		return recurrence.ParseScope(flag)
	}
	if !recurrence.NeedsScopeChoice(tx) {
		return recurrence.ScopeSingle, nil
	}
	return cli.NewPrompter(os.Stdin, os.Stdout).ChooseScope(cmd.Context(), action)
}

func (a *app) transactionTable(txs []model.Transaction) string {
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		where := "cash"
		if tx.Card != nil {
			where = fmt.Sprintf("%s %s", tx.Card.CardID, tx.Card.InvoiceMonth)
		}
		rows = append(rows, []string{
			tx.Date.String(),
			a.signed(tx.Amount),
			tx.Category,
			describe(tx),
			where,
			string(tx.Kind),
			tx.ID,
		})
	}
	return cli.RenderTable([]string{"Date", "Amount", "Category", "Description", "Billed", "Kind", "ID"}, rows)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
