package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/investment"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) calendar.Date { return calendar.MustParseDate(s) }

func month(s string) calendar.Month { return calendar.MustParseMonth(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func newTestLedger(t *testing.T, today string) (*Ledger, *testutil.TestStore, *testutil.Clock) {
	t.Helper()

	ts := testutil.SetupTestStore(t)
	clock := testutil.NewClock(today)
	seq := 0
	l := NewWithConfig(ts.Repo, Config{
		Clock: clock.Now,
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
		Investment: investment.Config{
			TaxRate:          dec("20"),
			DefaultYieldRate: dec("10"),
		},
	})
	return l, ts, clock
}

func listAll(t *testing.T, l *Ledger) []model.Transaction {
	t.Helper()
	txs, err := l.ListTransactions(context.Background(), TransactionFilter{})
	require.NoError(t, err)
	return txs
}

func TestDefaultPipeline_Order(t *testing.T) {
	p := DefaultPipeline(model.NewID)
	assert.Equal(t, []string{"autopay", "card-limits"}, p.Names())
}

func TestMutate_FailureWritesNothing(t *testing.T) {
	l, ts, _ := newTestLedger(t, "2024-03-10")
	ctx := context.Background()

	testutil.NewFixtures(t).
		WithIncome("i1", "2024-03-01", "100").
		Seed(ts.Repo)

	err := l.mutate(ctx, "failing", func(st *state) error {
		delete(st.txs, "i1")
		st.touch("transactions")
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = l.GetTransaction(ctx, "i1")
	assert.NoError(t, err)
}

func TestSettings(t *testing.T) {
	l, _, _ := newTestLedger(t, "2024-03-10")
	ctx := context.Background()

	settings, err := l.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), settings)

	settings.Currency = "USD"
	require.NoError(t, l.UpdateSettings(ctx, settings))

	got, err := l.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USD", got.Currency)
}
