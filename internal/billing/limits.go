package billing

import (
	"slices"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
)

// InvoiceTotals groups a card's charges by invoice month. Purchases add their
// absolute amount and card credits (refunds) subtract theirs. Settlement
// markers never count toward the card they pay.
func InvoiceTotals(cardID string, txs []model.Transaction) map[calendar.Month]decimal.Decimal {
	totals := make(map[calendar.Month]decimal.Decimal)
	for i := range txs {
		tx := &txs[i]
		if tx.Card == nil || tx.Card.CardID != cardID || tx.Kind == model.KindInvoicePayment {
			continue
		}
		totals[tx.Card.InvoiceMonth] = totals[tx.Card.InvoiceMonth].Add(chargeValue(tx))
	}
	return totals
}

// IsInvoiceSettled reports whether any entry settles the card's invoice for month.
func IsInvoiceSettled(cardID string, month calendar.Month, txs []model.Transaction) bool {
	for i := range txs {
		if txs[i].Settles(cardID, month) {
			return true
		}
	}
	return false
}

// UnpaidTotal sums the card's invoices that have no settlement.
func UnpaidTotal(cardID string, txs []model.Transaction) decimal.Decimal {
	settled := settledMonths(cardID, txs)
	total := decimal.Zero
	for month, amount := range InvoiceTotals(cardID, txs) {
		if settled[month] {
			continue
		}
		total = total.Add(amount)
	}
	return total
}

// AvailableLimit replays every unpaid invoice against the original limit.
// The result never goes below zero.
func AvailableLimit(original decimal.Decimal, cardID string, txs []model.Transaction) decimal.Decimal {
	return model.MaxZero(original.Sub(UnpaidTotal(cardID, txs)))
}

// LegacyOriginalLimit rebuilds the original limit of a card created before
// original limits were tracked: the current limit plus everything consumed
// and not yet restored by a payment.
func LegacyOriginalLimit(card model.CreditCard, txs []model.Transaction) decimal.Decimal {
	return card.Limit.Add(UnpaidTotal(card.ID, txs))
}

// InvoiceMonths returns the months with charges for the card, oldest first.
func InvoiceMonths(cardID string, txs []model.Transaction) []calendar.Month {
	totals := InvoiceTotals(cardID, txs)
	months := make([]calendar.Month, 0, len(totals))
	for m := range totals {
		months = append(months, m)
	}
	slices.SortFunc(months, calendar.Month.Compare)
	return months
}

func settledMonths(cardID string, txs []model.Transaction) map[calendar.Month]bool {
	settled := make(map[calendar.Month]bool)
	for i := range txs {
		if s := txs[i].Settlement; s != nil && s.PaidCardID == cardID {
			settled[s.PaidMonth] = true
		}
	}
	return settled
}

func chargeValue(tx *model.Transaction) decimal.Decimal {
	if tx.Type == model.TypeIncome {
		return tx.Amount.Abs().Neg()
	}
	return tx.Amount.Abs()
}
