// Package balance derives cash balances from the ledger: what has already
// happened, what is still to come, and how reserves top up a deficit.
package balance

import (
	"sort"

	"github.com/Veraticus/tally/internal/billing"
	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
)

// Projection splits the cash position at a given day into what is settled
// and what is scheduled.
type Projection struct {
	Today             calendar.Date
	Current           decimal.Decimal
	ProjectedIncome   decimal.Decimal
	ProjectedExpenses decimal.Decimal
	Projected         decimal.Decimal
}

// Project computes the balance as of today. Cash entries count on their date
// and open card invoices count on their due date. Card purchases themselves
// never touch cash; a paid invoice shows up through its payment entry.
func Project(txs []model.Transaction, cards []model.CreditCard, today calendar.Date) Projection {
	p := Projection{
		Today:             today,
		Current:           decimal.Zero,
		ProjectedIncome:   decimal.Zero,
		ProjectedExpenses: decimal.Zero,
	}

	for i := range txs {
		tx := &txs[i]
		if tx.IsCardPayment() {
			continue
		}
		future := tx.Date.After(today)
		switch {
		case tx.Type == model.TypeIncome && future:
			p.ProjectedIncome = p.ProjectedIncome.Add(tx.AbsAmount())
		case tx.Type == model.TypeIncome:
			p.Current = p.Current.Add(tx.AbsAmount())
		case future:
			p.ProjectedExpenses = p.ProjectedExpenses.Add(tx.AbsAmount())
		default:
			p.Current = p.Current.Sub(tx.AbsAmount())
		}
	}

	for _, inv := range billing.OpenInvoices(cards, txs) {
		if inv.DueDate.After(today) {
			p.ProjectedExpenses = p.ProjectedExpenses.Add(inv.Total)
		} else {
			p.Current = p.Current.Sub(inv.Total)
		}
	}

	p.Projected = p.Current.Add(p.ProjectedIncome).Sub(p.ProjectedExpenses)
	return p
}

// Summary is the cash flow of one calendar month.
type Summary struct {
	Month    calendar.Month
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Invoices decimal.Decimal
	Balance  decimal.Decimal
	Open     []billing.ConsolidatedInvoice
}

// MonthSummary totals the cash entries dated in month and the open invoices
// falling due in it.
func MonthSummary(txs []model.Transaction, cards []model.CreditCard, month calendar.Month) Summary {
	s := Summary{
		Month:    month,
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
		Invoices: decimal.Zero,
	}

	for i := range txs {
		tx := &txs[i]
		if tx.IsCardPayment() || !month.Contains(tx.Date) {
			continue
		}
		if tx.Type == model.TypeIncome {
			s.Income = s.Income.Add(tx.AbsAmount())
		} else {
			s.Expenses = s.Expenses.Add(tx.AbsAmount())
		}
	}

	s.Open = billing.StatementInvoices(cards, txs, month)
	for _, inv := range s.Open {
		s.Invoices = s.Invoices.Add(inv.Total)
	}

	s.Balance = s.Income.Sub(s.Expenses).Sub(s.Invoices)
	return s
}

// Draw is the amount to take from one reserve.
type Draw struct {
	InvestmentID string
	Amount       decimal.Decimal
}

// PlanCoverage spreads a deficit over the reserves allowed to cover it,
// largest balance first, each capped at what it holds. Whatever the reserves
// cannot cover is left uncovered.
func PlanCoverage(deficit decimal.Decimal, investments []model.Investment) []Draw {
	deficit = deficit.Abs()
	if deficit.IsZero() {
		return nil
	}

	eligible := make([]model.Investment, 0, len(investments))
	for _, inv := range investments {
		if inv.CanCover() {
			eligible = append(eligible, inv)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if c := eligible[i].CurrentAmount.Cmp(eligible[j].CurrentAmount); c != 0 {
			return c > 0
		}
		return eligible[i].ID < eligible[j].ID
	})

	var draws []Draw
	for _, inv := range eligible {
		if !deficit.IsPositive() {
			break
		}
		amount := decimal.Min(deficit, inv.CurrentAmount.Truncate(2))
		if !amount.IsPositive() {
			continue
		}
		draws = append(draws, Draw{InvestmentID: inv.ID, Amount: amount})
		deficit = deficit.Sub(amount)
	}
	return draws
}

// Total sums the planned draws.
func Total(draws []Draw) decimal.Decimal {
	total := decimal.Zero
	for _, d := range draws {
		total = total.Add(d.Amount)
	}
	return total
}
