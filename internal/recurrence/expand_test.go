package recurrence

import (
	"fmt"
	"testing"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ids() model.IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func expense(date, amount string) model.Transaction {
	return model.Transaction{
		Date:        calendar.MustParseDate(date),
		Amount:      dec(amount),
		Type:        model.TypeExpense,
		Kind:        model.KindPlain,
		Origin:      model.OriginUser,
		Category:    "Electronics",
		Description: "Laptop",
	}
}

func TestInstallments_TotalMode(t *testing.T) {
	got, err := Installments(expense("2024-01-15", "300.00"), 3, AmountIsTotal, Options{NewID: ids()})
	require.NoError(t, err)
	require.Len(t, got, 3)

	wantDates := []string{"2024-01-15", "2024-02-15", "2024-03-15"}
	for i, tx := range got {
		require.NoError(t, tx.Validate())
		assert.True(t, dec("-100").Equal(tx.Amount), "installment %d amount %s", i+1, tx.Amount)
		assert.Equal(t, wantDates[i], tx.Date.String())
		assert.Equal(t, model.KindInstallment, tx.Kind)
		assert.Equal(t, i+1, tx.Installment.Index)
		assert.Equal(t, 3, tx.Installment.Count)
		assert.Equal(t, fmt.Sprintf("Laptop (%d/3)", i+1), tx.Description)
	}

	assert.Empty(t, got[0].Installment.ParentID)
	assert.Equal(t, got[0].ID, got[1].Installment.ParentID)
	assert.Equal(t, got[0].ID, got[2].Installment.ParentID)
	assert.Equal(t, got[1].FamilyKey(), got[0].FamilyKey())
}

func TestInstallments_RemainderOnLast(t *testing.T) {
	got, err := Installments(expense("2024-01-31", "100"), 3, AmountIsTotal, Options{NewID: ids()})
	require.NoError(t, err)

	assert.True(t, dec("-33.33").Equal(got[0].Amount))
	assert.True(t, dec("-33.33").Equal(got[1].Amount))
	assert.True(t, dec("-33.34").Equal(got[2].Amount))
	assert.Equal(t, "2024-02-29", got[1].Date.String())
	assert.Equal(t, "2024-03-31", got[2].Date.String())
}

func TestInstallments_PerInstallmentMode(t *testing.T) {
	tmpl := expense("2024-01-10", "-45.5")
	got, err := Installments(tmpl, 4, AmountPerInstallment, Options{NewID: ids()})
	require.NoError(t, err)
	require.Len(t, got, 4)
	for _, tx := range got {
		assert.True(t, dec("-45.5").Equal(tx.Amount))
	}
}

func TestInstallments_IncomeIsPositive(t *testing.T) {
	tmpl := expense("2024-01-10", "-90")
	tmpl.Type = model.TypeIncome
	got, err := Installments(tmpl, 3, AmountIsTotal, Options{NewID: ids()})
	require.NoError(t, err)
	for _, tx := range got {
		assert.True(t, dec("30").Equal(tx.Amount))
	}
}

func TestInstallments_CardChargesPerInvoice(t *testing.T) {
	tmpl := expense("2024-01-26", "200")
	tmpl.Card = &model.CardCharge{CardID: "visa"}

	got, err := Installments(tmpl, 2, AmountIsTotal, Options{NewID: ids(), ClosingDay: 25})
	require.NoError(t, err)
	assert.Equal(t, "2024-02", got[0].Card.InvoiceMonth.String())
	assert.Equal(t, "2024-03", got[1].Card.InvoiceMonth.String())
	assert.NotSame(t, got[0].Card, got[1].Card)
}

func TestInstallments_InvalidCount(t *testing.T) {
	_, err := Installments(expense("2024-01-10", "10"), 0, AmountIsTotal, Options{})
	require.ErrorIs(t, err, ErrInvalidCount)
}

func TestRecurring_WithEndDate(t *testing.T) {
	tests := []struct {
		cadence model.RecurrenceCadence
		start   string
		end     string
		want    []string
	}{
		{model.CadenceWeekly, "2024-01-01", "2024-01-22", []string{"2024-01-01", "2024-01-08", "2024-01-15", "2024-01-22"}},
		{model.CadenceMonthly, "2024-01-31", "2024-04-30", []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"}},
		{model.CadenceYearly, "2024-02-29", "2026-03-01", []string{"2024-02-29", "2025-02-28", "2026-02-28"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.cadence), func(t *testing.T) {
			got, err := Recurring(expense(tt.start, "10"), tt.cadence, calendar.MustParseDate(tt.end), calendar.Date{}, Options{NewID: ids()})
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))

			familyID := got[0].Recurrence.FamilyID
			for i, tx := range got {
				require.NoError(t, tx.Validate())
				assert.Equal(t, tt.want[i], tx.Date.String())
				assert.Equal(t, familyID, tx.Recurrence.FamilyID)
				assert.Equal(t, tt.end, tx.Recurrence.EndDate.String())
				assert.True(t, dec("-10").Equal(tx.Amount))
			}
		})
	}
}

func TestRecurring_OpenEndedIsLazy(t *testing.T) {
	got, err := Recurring(expense("2024-01-05", "50"), model.CadenceMonthly, calendar.Date{}, calendar.MustParseDate("2024-03-31"), Options{NewID: ids()})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[2].Recurrence.EndDate.IsZero())

	more, err := Extend(got, calendar.MustParseDate("2024-06-30"), Options{NewID: ids()})
	require.NoError(t, err)
	require.Len(t, more, 3)
	assert.Equal(t, "2024-04-05", more[0].Date.String())
	assert.Equal(t, "2024-06-05", more[2].Date.String())
	assert.Equal(t, got[0].Recurrence.FamilyID, more[0].Recurrence.FamilyID)

	again, err := Extend(append(got, more...), calendar.MustParseDate("2024-06-30"), Options{NewID: ids()})
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestRecurring_Errors(t *testing.T) {
	_, err := Recurring(expense("2024-01-05", "50"), "daily", calendar.Date{}, calendar.MustParseDate("2024-03-31"), Options{})
	require.ErrorIs(t, err, ErrInvalidCadence)

	_, err = Recurring(expense("2024-01-05", "50"), model.CadenceMonthly, calendar.MustParseDate("2023-12-31"), calendar.Date{}, Options{})
	require.ErrorIs(t, err, ErrEndBeforeStart)
}

func TestRecurring_RejectsTooManyEntries(t *testing.T) {
	_, err := Recurring(expense("2024-01-01", "5"), model.CadenceWeekly, calendar.MustParseDate("2050-01-01"), calendar.Date{}, Options{NewID: ids()})
	require.ErrorIs(t, err, ErrTooManyEntries)
	assert.ErrorIs(t, err, common.ErrValidation)

	got, err := Recurring(expense("2024-01-01", "5"), model.CadenceWeekly, calendar.MustParseDate("2043-12-31"), calendar.Date{}, Options{NewID: ids()})
	require.NoError(t, err)
	assert.Len(t, got, 1044)
	assert.Equal(t, "2043-12-28", got[len(got)-1].Date.String())
}

func TestExtend_KeepsDeletedLatestInstanceDeleted(t *testing.T) {
	got, err := Recurring(expense("2024-01-05", "50"), model.CadenceMonthly, calendar.Date{}, calendar.MustParseDate("2024-03-31"), Options{NewID: ids()})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-03-31", got[0].Recurrence.Through.String())

	// Drop the March instance; the family still remembers it covered March.
	more, err := Extend(got[:2], calendar.MustParseDate("2024-04-30"), Options{NewID: ids()})
	require.NoError(t, err)
	require.Len(t, more, 1)
	assert.Equal(t, "2024-04-05", more[0].Date.String())
	assert.Equal(t, "2024-04-30", more[0].Recurrence.Through.String())

	family := append(got[:2], more...)
	MarkThrough(family, calendar.MustParseDate("2024-04-30"))
	for _, tx := range family {
		assert.Equal(t, "2024-04-30", tx.Recurrence.Through.String())
	}
}

func TestExtend_StopsAtEndDate(t *testing.T) {
	got, err := Recurring(expense("2024-01-05", "50"), model.CadenceMonthly, calendar.MustParseDate("2024-02-10"), calendar.Date{}, Options{NewID: ids()})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Recurrence.Through.IsZero())

	more, err := Extend(got, calendar.MustParseDate("2024-12-31"), Options{NewID: ids()})
	require.NoError(t, err)
	assert.Empty(t, more)
}
