package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportJSON(t *testing.T, l *Ledger) string {
	t.Helper()
	backup, err := l.Export(context.Background())
	require.NoError(t, err)
	backup.ExportedAt = time.Time{}
	data, err := json.Marshal(backup)
	require.NoError(t, err)
	return string(data)
}

func TestExportImport_RoundTrip(t *testing.T) {
	src, ts, _ := newTestLedger(t, "2024-03-20")
	ctx := context.Background()

	testutil.NewFixtures(t).
		WithCard("c1", "Gold", "1000", 5, 12).
		WithCardPurchase("p1", "c1", "2024-03-10", "200").
		WithIncome("i1", "2024-03-01", "3000").
		WithInvestment("r", "Emergency", "1000", "10", "2024-03-01", true).
		Seed(ts.Repo)
	require.NoError(t, src.SetDefaultYieldRate(ctx, dec("11.5")))
	_, err := src.RunDaily(ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.ExportJSON(ctx, &buf))

	dst, _, _ := newTestLedger(t, "2024-03-20")
	require.NoError(t, dst.ImportJSON(ctx, &buf))

	assert.JSONEq(t, exportJSON(t, src), exportJSON(t, dst))

	rate, err := dst.DefaultYieldRate(ctx)
	require.NoError(t, err)
	assertDec(t, "11.5", rate)

	history, err := dst.YieldHistory(ctx, "r")
	require.NoError(t, err)
	assert.NotEmpty(t, history)
}

func TestImport_RejectsNewerVersion(t *testing.T) {
	l, _, _ := newTestLedger(t, "2024-03-20")

	err := l.Import(context.Background(), model.Backup{Version: model.BackupVersion + 1})
	assert.ErrorIs(t, err, ErrUnsupportedBackup)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestImport_InvalidJSON(t *testing.T) {
	l, _, _ := newTestLedger(t, "2024-03-20")

	err := l.ImportJSON(context.Background(), strings.NewReader("{not json"))
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestImport_RebuildsMissingLimits(t *testing.T) {
	l, _, _ := newTestLedger(t, "2024-03-20")
	ctx := context.Background()

	fx := testutil.NewFixtures(t).
		WithCard("c1", "Gold", "700", 5, 12).
		WithCardPurchase("p1", "c1", "2024-03-10", "300")
	txs := map[string]model.Transaction{}
	for _, tx := range fx.Transactions() {
		txs[tx.ID] = tx
	}

	err := l.Import(ctx, model.Backup{
		Version:      1,
		Transactions: txs,
		CreditCards:  fx.Cards(),
	})
	require.NoError(t, err)

	original, err := l.OriginalLimit(ctx, "c1")
	require.NoError(t, err)
	assertDec(t, "1000", original, "current limit plus the unpaid invoice")

	card, err := l.Card(ctx, "c1")
	require.NoError(t, err)
	assertDec(t, "700", card.Limit)
}

func TestImport_ReplacesExistingData(t *testing.T) {
	l, ts, _ := newTestLedger(t, "2024-03-20")
	ctx := context.Background()

	testutil.NewFixtures(t).
		WithIncome("old", "2024-03-01", "10").
		WithInvestment("r", "Emergency", "1000", "10", "2024-03-01", true).
		Seed(ts.Repo)
	require.NoError(t, l.SetDefaultYieldRate(ctx, dec("9")))

	err := l.Import(ctx, model.Backup{Version: model.BackupVersion})
	require.NoError(t, err)

	assert.Empty(t, listAll(t, l))
	invs, err := l.Investments(ctx)
	require.NoError(t, err)
	assert.Empty(t, invs)

	rate, err := l.DefaultYieldRate(ctx)
	require.NoError(t, err)
	assertDec(t, "10", rate, "an omitted default rate falls back to the configured one")
}

func TestImport_RejectsInvalidEntries(t *testing.T) {
	l, _, _ := newTestLedger(t, "2024-03-20")

	err := l.Import(context.Background(), model.Backup{
		Version: model.BackupVersion,
		Transactions: map[string]model.Transaction{
			"a": {ID: "b", Date: day("2024-03-01"), Amount: dec("1"), Type: model.TypeIncome, Kind: model.KindPlain},
		},
	})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestImport_RejectsPayerCycle(t *testing.T) {
	l, _, _ := newTestLedger(t, "2024-03-20")

	fx := testutil.NewFixtures(t).
		WithCard("a", "Gold", "1000", 5, 12, testutil.PaidBy("b")).
		WithCard("b", "Black", "1000", 10, 20, testutil.PaidBy("a"))

	err := l.Import(context.Background(), model.Backup{
		Version:     model.BackupVersion,
		CreditCards: fx.Cards(),
	})
	assert.ErrorIs(t, err, model.ErrInvalidCard)

	cards, err := l.Cards(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestImport_PipelineFailureWritesNothing(t *testing.T) {
	l, ts, _ := newTestLedger(t, "2024-03-20")
	ctx := context.Background()

	testutil.NewFixtures(t).
		WithIncome("old", "2024-03-01", "10").
		Seed(ts.Repo)

	l.pipeline = Pipeline{steps: []step{{
		name:  "failing",
		apply: func(*state) (bool, error) { return false, errors.New("disk on fire") },
	}}}

	fx := testutil.NewFixtures(t).
		WithCard("c1", "Gold", "700", 5, 12).
		WithCardPurchase("p1", "c1", "2024-03-10", "300")
	txs := map[string]model.Transaction{}
	for _, tx := range fx.Transactions() {
		txs[tx.ID] = tx
	}

	err := l.Import(ctx, model.Backup{
		Version:      model.BackupVersion,
		Transactions: txs,
		CreditCards:  fx.Cards(),
	})
	require.Error(t, err)

	remaining := listAll(t, l)
	require.Len(t, remaining, 1)
	assert.Equal(t, "old", remaining[0].ID)

	cards, err := l.Cards(ctx)
	require.NoError(t, err)
	assert.Empty(t, cards)
}
