// Package recurrence expands user-entered templates into dated ledger
// entries: installment plans split over months and repeating charges on a
// weekly, monthly or yearly cadence. Every instance of one template shares a
// family identifier so the family can later be edited or deleted together.
package recurrence

import (
	"fmt"
	"slices"

	"github.com/Veraticus/tally/internal/billing"
	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
)

// MaxInstances bounds how many entries a single expansion may produce.
const MaxInstances = 1200

// Expansion errors. Each wraps common.ErrValidation.
var (
	ErrInvalidCount   = fmt.Errorf("%w: installment count must be at least 1", common.ErrValidation)
	ErrInvalidCadence = fmt.Errorf("%w: unknown recurrence cadence", common.ErrValidation)
	ErrEndBeforeStart = fmt.Errorf("%w: recurrence end date is before its start", common.ErrValidation)
	ErrTooManyEntries = fmt.Errorf("%w: recurrence would create too many entries", common.ErrValidation)
)

// AmountMode tells whether an installment template amount is the purchase
// total or the value of each installment.
type AmountMode int

// Amount modes.
const (
	AmountIsTotal AmountMode = iota
	AmountPerInstallment
)

// Options control how instances are stamped.
type Options struct {
	NewID model.IDGenerator
	// ClosingDay places card charges on invoices; unused for cash entries.
	ClosingDay int
}

func (o Options) id() string {
	if o.NewID == nil {
		return model.NewID()
	}
	return o.NewID()
}

// Installments splits template into count monthly installments starting at
// the template date. In AmountIsTotal mode every installment gets total/count
// rounded to cents, with the rounding remainder on the last one so the family
// sums to the total. Installment 1 carries no parent; the others point at it.
func Installments(template model.Transaction, count int, mode AmountMode, opts Options) ([]model.Transaction, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, count)
	}
	if count > MaxInstances {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrInvalidCount, count, MaxInstances)
	}

	base := template.Amount.Abs()
	each := base
	last := base
	if mode == AmountIsTotal {
		each = model.Cents(base.Div(decimal.NewFromInt(int64(count))))
		last = base.Sub(each.Mul(decimal.NewFromInt(int64(count - 1))))
	}

	out := make([]model.Transaction, 0, count)
	parentID := ""
	for i := 1; i <= count; i++ {
		tx := template.Clone()
		tx.ID = opts.id()
		tx.Kind = model.KindInstallment
		tx.Recurrence = nil
		tx.Settlement = nil
		tx.Date = template.Date.AddMonths(i - 1)
		tx.Amount = each
		if i == count {
			tx.Amount = last
		}
		tx.NormalizeSign()
		tx.Description = withSuffix(template.Description, i, count)
		tx.Installment = &model.InstallmentInfo{Count: count, Index: i, ParentID: parentID}
		place(&tx, opts)
		if i == 1 {
			parentID = tx.ID
		}
		out = append(out, tx)
	}
	return out, nil
}

// Recurring materializes a repeating template from its date through end
// (inclusive). When end is zero the family is open-ended and only instances up
// to horizon are produced; Extend adds the rest on demand.
func Recurring(template model.Transaction, cadence model.RecurrenceCadence, end, horizon calendar.Date, opts Options) ([]model.Transaction, error) {
	if _, err := step(cadence, template.Date, 0); err != nil {
		return nil, err
	}
	if !end.IsZero() && end.Before(template.Date) {
		return nil, fmt.Errorf("%w: %s < %s", ErrEndBeforeStart, end, template.Date)
	}

	if end.IsZero() && horizon.IsZero() {
		horizon = template.Date
	}
	limit := limitOf(end, horizon)
	family := &model.RecurrenceInfo{FamilyID: opts.id(), Cadence: cadence, EndDate: end}
	if end.IsZero() {
		family.Through = limit
	}
	return generate(template, template.Date, family, calendar.Date{}, limit, opts)
}

// Extend materializes the missing instances of an open-ended recurrence
// family up to through. Dates already covered by an earlier expansion are
// never regenerated, so deleted single instances stay deleted. New instances
// record through as the family's materialized horizon; callers should stamp
// it on the existing members too (see MarkThrough).
func Extend(family []model.Transaction, through calendar.Date, opts Options) ([]model.Transaction, error) {
	if len(family) == 0 {
		return nil, nil
	}
	members := slices.Clone(family)
	slices.SortFunc(members, func(a, b model.Transaction) int { return a.Date.Compare(b.Date) })

	first, latest := members[0], members[len(members)-1]
	if latest.Recurrence == nil {
		return nil, fmt.Errorf("%w: entry %s is not recurring", ErrInvalidCadence, latest.ID)
	}

	after := latest.Date
	for _, m := range members {
		if m.Recurrence != nil && m.Recurrence.Through.After(after) {
			after = m.Recurrence.Through
		}
	}
	limit := limitOf(latest.Recurrence.EndDate, through)
	if !limit.After(after) {
		return nil, nil
	}

	info := *latest.Recurrence
	if info.EndDate.IsZero() {
		info.Through = limit
	}
	return generate(latest, first.Date, &info, after, limit, opts)
}

// MarkThrough records through as the materialized horizon of every open-ended
// recurring entry in family.
func MarkThrough(family []model.Transaction, through calendar.Date) {
	for i := range family {
		r := family[i].Recurrence
		if r != nil && r.EndDate.IsZero() && through.After(r.Through) {
			r.Through = through
		}
	}
}

func generate(template model.Transaction, base calendar.Date, family *model.RecurrenceInfo, after, limit calendar.Date, opts Options) ([]model.Transaction, error) {
	var out []model.Transaction
	for k := 0; ; k++ {
		date, err := step(family.Cadence, base, k)
		if err != nil {
			return nil, err
		}
		if date.After(limit) {
			break
		}
		if !after.IsZero() && !date.After(after) {
			continue
		}
		if len(out) == MaxInstances {
			return nil, fmt.Errorf("%w: more than %d through %s", ErrTooManyEntries, MaxInstances, limit)
		}
		tx := template.Clone()
		tx.ID = opts.id()
		tx.Kind = model.KindRecurring
		tx.Installment = nil
		tx.Settlement = nil
		tx.Date = date
		info := *family
		tx.Recurrence = &info
		tx.NormalizeSign()
		place(&tx, opts)
		out = append(out, tx)
	}
	return out, nil
}

func step(cadence model.RecurrenceCadence, base calendar.Date, k int) (calendar.Date, error) {
	switch cadence {
	case model.CadenceWeekly:
		return base.AddWeeks(k), nil
	case model.CadenceMonthly:
		return base.AddMonths(k), nil
	case model.CadenceYearly:
		return base.AddYears(k), nil
	default:
		return calendar.Date{}, fmt.Errorf("%w: %q", ErrInvalidCadence, cadence)
	}
}

func limitOf(end, horizon calendar.Date) calendar.Date {
	switch {
	case end.IsZero():
		return horizon
	case horizon.IsZero():
		return end
	default:
		return calendar.MinDate(end, horizon)
	}
}

// place recomputes the invoice month of card charges from the instance date.
func place(tx *model.Transaction, opts Options) {
	if tx.Card == nil {
		return
	}
	tx.Card.InvoiceMonth = billing.InvoiceMonthOf(tx.Date, opts.ClosingDay)
}

func withSuffix(description string, index, count int) string {
	suffix := fmt.Sprintf("(%d/%d)", index, count)
	if description == "" {
		return suffix
	}
	return description + " " + suffix
}
