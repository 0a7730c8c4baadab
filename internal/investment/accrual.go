// Package investment runs the daily yield simulation of cash reserves and
// manages their balances.
package investment

import (
	"sort"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
)

// Yield amounts keep this many decimal places; balances are shown in cents.
const yieldPlaces = 8

var (
	hundred      = decimal.NewFromInt(100)
	daysPerYear  = decimal.NewFromInt(365)
	annualDivide = hundred.Mul(daysPerYear)
)

// Yield is one day of interest on a balance.
type Yield struct {
	Gross decimal.Decimal
	Tax   decimal.Decimal
	Net   decimal.Decimal
}

// DailyYield prorates an annual percentage rate over 365 days and withholds
// taxRate percent of it.
func DailyYield(balance, annualRate, taxRate decimal.Decimal) Yield {
	if !balance.IsPositive() || !annualRate.IsPositive() {
		return Yield{Gross: decimal.Zero, Tax: decimal.Zero, Net: decimal.Zero}
	}
	gross := balance.Mul(annualRate).Div(annualDivide).Round(yieldPlaces)
	tax := gross.Mul(taxRate).Div(hundred).Round(yieldPlaces)
	return Yield{Gross: gross, Tax: tax, Net: gross.Sub(tax)}
}

// RateOn returns the annual rate in force on day. The latest change dated on
// or before day wins. Before the first recorded change the rate is that
// change's previous rate; with no history it is the current rate.
func RateOn(inv *model.Investment, day calendar.Date) decimal.Decimal {
	if len(inv.YieldRateHistory) == 0 {
		return inv.YieldRate
	}

	changes := sortedChanges(inv.YieldRateHistory)
	if day.Before(changes[0].Date) {
		return changes[0].PreviousRate
	}

	rate := changes[0].NewRate
	for _, change := range changes[1:] {
		if change.Date.After(day) {
			break
		}
		rate = change.NewRate
	}
	return rate
}

func sortedChanges(history []model.RateChange) []model.RateChange {
	changes := make([]model.RateChange, len(history))
	copy(changes, history)
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Date.Before(changes[j].Date)
	})
	return changes
}

// Accrue computes the yield records of inv for every day from the later of
// its start date and the day after its last record through the given day, chaining
// balances from day to day. It returns the new records and the resulting
// balance. Existing records are never recomputed.
func Accrue(inv *model.Investment, existing []model.YieldRecord, through calendar.Date, taxRate decimal.Decimal) ([]model.YieldRecord, decimal.Decimal) {
	balance := inv.CurrentAmount
	if !inv.IsActive || inv.StartDate.IsZero() {
		return nil, balance
	}

	start := inv.StartDate
	for _, rec := range existing {
		if rec.InvestmentID != "" && rec.InvestmentID != inv.ID {
			continue
		}
		if next := rec.Date.AddDays(1); next.After(start) {
			start = next
		}
	}
	if start.After(through) {
		return nil, balance
	}

	records := make([]model.YieldRecord, 0, start.DaysUntil(through)+1)
	for day := start; !day.After(through); day = day.AddDays(1) {
		rate := RateOn(inv, day)
		y := DailyYield(balance, rate, taxRate)
		after := balance.Add(y.Net)
		records = append(records, model.YieldRecord{
			InvestmentID:  inv.ID,
			Date:          day,
			AppliedDate:   day.AddDays(1),
			Rate:          rate,
			GrossAmount:   y.Gross,
			TaxAmount:     y.Tax,
			NetAmount:     y.Net,
			BalanceBefore: balance,
			BalanceAfter:  after,
		})
		balance = after
	}
	return records, balance
}

// Credit adds amount to the reserve on day. An inactive reserve comes back
// to life and accrues again from day, never for the days it sat empty.
func Credit(inv *model.Investment, amount decimal.Decimal, day calendar.Date) {
	inv.CurrentAmount = inv.CurrentAmount.Add(amount)
	if inv.IsActive || !inv.CurrentAmount.IsPositive() {
		return
	}
	inv.IsActive = true
	if day.After(inv.StartDate) {
		inv.StartDate = day
	}
}

// Draw takes up to amount from the reserve and returns what was taken. A
// reserve drawn to zero becomes inactive.
func Draw(inv *model.Investment, amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() || !inv.CurrentAmount.IsPositive() {
		return decimal.Zero
	}
	taken := decimal.Min(amount, inv.CurrentAmount)
	inv.CurrentAmount = inv.CurrentAmount.Sub(taken)
	if !inv.CurrentAmount.IsPositive() {
		inv.CurrentAmount = decimal.Zero
		inv.IsActive = false
	}
	return taken
}
