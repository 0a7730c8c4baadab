// Package billing holds the credit card billing-cycle maths: which invoice a
// purchase lands on, when that invoice is due, how much of a card's limit is
// consumed, and which invoices a payer card settles automatically.
//
// Everything here is a pure function over in-memory slices. Persistence and
// orchestration live in the ledger package.
package billing

import "github.com/Veraticus/tally/internal/calendar"

// Closing and due day bounds. Closing days stop at 28 so every month has one.
const (
	MaxClosingDay = 28
	MaxDueDay     = 31
)

// InvoiceMonthOf returns the invoice month of a purchase. A purchase on or
// before the closing day belongs to its own month; later purchases roll to
// the next month.
func InvoiceMonthOf(purchase calendar.Date, closingDay int) calendar.Month {
	if purchase.Day() <= closingDay {
		return purchase.Month()
	}
	return purchase.Month().Next()
}

// DueDateOf returns the due date of an invoice. When the due day comes after
// the closing day the invoice is due within its own month, otherwise in the
// month after. Due days past the end of a short month clamp to its last day.
func DueDateOf(invoice calendar.Month, closingDay, dueDay int) calendar.Date {
	if dueDay > closingDay {
		return invoice.Date(dueDay)
	}
	return invoice.Next().Date(dueDay)
}

// ClampClosingDay forces a closing day into 1..28.
func ClampClosingDay(day int) int { return clamp(day, 1, MaxClosingDay) }

// ClampDueDay forces a due day into 1..31.
func ClampDueDay(day int) int { return clamp(day, 1, MaxDueDay) }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
