package balance

import (
	"testing"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "want %s, got %s %v", want, got, msgAndArgs)
}

func TestProject_CashOnly(t *testing.T) {
	f := testutil.NewFixtures(t).
		WithIncome("salary", "2024-03-05", "3000").
		WithExpense("rent", "2024-03-10", "1200", testutil.CategoryRent).
		WithExpense("future", "2024-03-25", "100", testutil.CategoryGroceries).
		WithIncome("bonus", "2024-03-28", "500")

	p := Project(f.Transactions(), nil, calendar.MustParseDate("2024-03-15"))
	assertDec(t, "1800", p.Current)
	assertDec(t, "500", p.ProjectedIncome)
	assertDec(t, "100", p.ProjectedExpenses)
	assertDec(t, "2200", p.Projected)
}

func TestProject_CardInvoicesCountOnDueDate(t *testing.T) {
	f := testutil.NewFixtures(t).
		WithCard("c1", "Gold", "5000", 25, 5).
		WithIncome("salary", "2024-03-01", "3000").
		WithCardPurchase("p1", "c1", "2024-02-10", "400"). // invoice 2024-02, due 2024-03-05
		WithCardPurchase("p2", "c1", "2024-03-10", "250")  // invoice 2024-03, due 2024-04-05

	txs := f.Transactions()

	before := Project(txs, f.Cards(), calendar.MustParseDate("2024-03-04"))
	assertDec(t, "3000", before.Current)
	assertDec(t, "650", before.ProjectedExpenses)

	after := Project(txs, f.Cards(), calendar.MustParseDate("2024-03-05"))
	assertDec(t, "2600", after.Current, "invoice due today counts")
	assertDec(t, "250", after.ProjectedExpenses)
	assertDec(t, "2350", after.Projected)
}

func TestProject_PaidInvoiceCountsOnce(t *testing.T) {
	f := testutil.NewFixtures(t).
		WithCard("c1", "Gold", "5000", 25, 5).
		WithIncome("salary", "2024-03-01", "3000").
		WithCardPurchase("p1", "c1", "2024-02-10", "400").
		WithTransaction(model.Transaction{
			ID:         "pay",
			Date:       calendar.MustParseDate("2024-03-02"),
			Amount:     dec("-400"),
			Type:       model.TypeExpense,
			Kind:       model.KindInvoicePayment,
			Origin:     model.OriginUser,
			Settlement: &model.SettlementInfo{PaidCardID: "c1", PaidMonth: calendar.MustParseMonth("2024-02")},
		})

	p := Project(f.Transactions(), f.Cards(), calendar.MustParseDate("2024-03-10"))
	assertDec(t, "2600", p.Current)
	assertDec(t, "0", p.ProjectedExpenses)
}

func TestProject_DelegatedCardsCountThroughPayer(t *testing.T) {
	f := testutil.NewFixtures(t).
		WithCard("payer", "Payer", "5000", 25, 5).
		WithCard("kid", "Kid", "500", 25, 5, testutil.PaidBy("payer")).
		WithCardPurchase("p1", "kid", "2024-02-10", "100")

	p := Project(f.Transactions(), f.Cards(), calendar.MustParseDate("2024-03-10"))
	assertDec(t, "0", p.Current, "kid's invoice waits for the payer charge")
}

func TestMonthSummary(t *testing.T) {
	f := testutil.NewFixtures(t).
		WithCard("c1", "Gold", "5000", 25, 5).
		WithIncome("salary", "2024-03-01", "3000").
		WithExpense("rent", "2024-03-10", "1200", testutil.CategoryRent).
		WithExpense("april", "2024-04-01", "99", testutil.CategoryRent).
		WithCardPurchase("p1", "c1", "2024-02-10", "400")

	s := MonthSummary(f.Transactions(), f.Cards(), calendar.MustParseMonth("2024-03"))
	assertDec(t, "3000", s.Income)
	assertDec(t, "1200", s.Expenses)
	assertDec(t, "400", s.Invoices)
	assertDec(t, "1400", s.Balance)
	require.Len(t, s.Open, 1)
	assert.Equal(t, "c1", s.Open[0].CardID)
}

func TestPlanCoverage(t *testing.T) {
	invs := []model.Investment{
		{ID: "small", CurrentAmount: dec("100"), IsActive: true, CanCoverNegativeBalance: true},
		{ID: "big", CurrentAmount: dec("300"), IsActive: true, CanCoverNegativeBalance: true},
		{ID: "locked", CurrentAmount: dec("9000"), IsActive: true},
		{ID: "closed", CurrentAmount: dec("0"), CanCoverNegativeBalance: true},
	}

	tests := []struct {
		name    string
		deficit string
		want    []Draw
	}{
		{name: "no deficit", deficit: "0", want: nil},
		{name: "largest covers alone", deficit: "-250", want: []Draw{{InvestmentID: "big", Amount: dec("250")}}},
		{
			name:    "spills into the next reserve",
			deficit: "-350",
			want:    []Draw{{InvestmentID: "big", Amount: dec("300")}, {InvestmentID: "small", Amount: dec("50")}},
		},
		{
			name:    "takes everything when short",
			deficit: "-1000",
			want:    []Draw{{InvestmentID: "big", Amount: dec("300")}, {InvestmentID: "small", Amount: dec("100")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanCoverage(dec(tt.deficit), invs)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].InvestmentID, got[i].InvestmentID)
				assertDec(t, tt.want[i].Amount.String(), got[i].Amount)
			}
		})
	}

	assertDec(t, "400", Total(PlanCoverage(dec("-1000"), invs)))
}
