package billing

import (
	"slices"
	"strings"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
)

// ConsolidatedInvoice is one card's invoice for one month, built on demand
// and never stored.
type ConsolidatedInvoice struct {
	InvoiceMonth calendar.Month
	DueDate      calendar.Date
	Total        decimal.Decimal
	CardID       string
	CardName     string
	Transactions []model.Transaction
	Paid         bool
}

// BuildInvoice assembles the invoice of card for month, paid or not.
func BuildInvoice(card model.CreditCard, txs []model.Transaction, month calendar.Month) ConsolidatedInvoice {
	inv := ConsolidatedInvoice{
		CardID:       card.ID,
		CardName:     card.Name,
		InvoiceMonth: month,
		DueDate:      DueDateOf(month, card.ClosingDay, card.DueDay),
		Total:        decimal.Zero,
	}
	for i := range txs {
		tx := &txs[i]
		if tx.Card == nil || tx.Card.CardID != card.ID || tx.Card.InvoiceMonth != month {
			continue
		}
		if tx.Kind == model.KindInvoicePayment {
			continue
		}
		inv.Transactions = append(inv.Transactions, *tx)
		inv.Total = inv.Total.Add(chargeValue(tx))
	}
	slices.SortStableFunc(inv.Transactions, func(a, b model.Transaction) int {
		return a.Date.Compare(b.Date)
	})
	inv.Paid = IsInvoiceSettled(card.ID, month, txs)
	return inv
}

// OpenInvoices returns every unpaid invoice with a positive total for cards
// that settle their own invoices. Cards delegated to a default payer are
// skipped: the payer's charge already carries their amount.
func OpenInvoices(cards []model.CreditCard, txs []model.Transaction) []ConsolidatedInvoice {
	var out []ConsolidatedInvoice
	for _, card := range cards {
		if card.DefaultPayerCardID != "" {
			continue
		}
		for _, month := range InvoiceMonths(card.ID, txs) {
			inv := BuildInvoice(card, txs, month)
			if inv.Paid || !inv.Total.IsPositive() {
				continue
			}
			out = append(out, inv)
		}
	}
	sortInvoices(out)
	return out
}

// StatementInvoices returns the open invoices whose due date falls within
// the statement month.
func StatementInvoices(cards []model.CreditCard, txs []model.Transaction, month calendar.Month) []ConsolidatedInvoice {
	var out []ConsolidatedInvoice
	for _, inv := range OpenInvoices(cards, txs) {
		if month.Contains(inv.DueDate) {
			out = append(out, inv)
		}
	}
	return out
}

func sortInvoices(invoices []ConsolidatedInvoice) {
	slices.SortStableFunc(invoices, func(a, b ConsolidatedInvoice) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		return strings.Compare(a.CardName, b.CardName)
	})
}
