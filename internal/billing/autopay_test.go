package billing

import (
	"testing"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyPlan(txs []model.Transaction, plan AutoPayPlan) []model.Transaction {
	return plan.apply(txs)
}

func TestPlanAutoPayments(t *testing.T) {
	payer := card("payer", 20, 28, "5000")
	paid := card("paid", 25, 5, "1000")
	paid.DefaultPayerCardID = "payer"
	cards := []model.CreditCard{payer, paid}

	txs := []model.Transaction{
		purchase("t1", paid, "2024-01-10", "120"),
		purchase("t2", paid, "2024-01-20", "80"),
	}

	plan := PlanAutoPayments(cards, txs, sequentialIDs("auto"))
	require.Len(t, plan.Create, 1)
	assert.Empty(t, plan.Update)
	assert.Empty(t, plan.Delete)

	tx := plan.Create[0]
	require.NoError(t, tx.Validate())
	assert.Equal(t, "auto-1", tx.ID)
	assert.Equal(t, model.KindCardTransfer, tx.Kind)
	assert.Equal(t, model.OriginAutoPay, tx.Origin)
	assert.True(t, dec("-200").Equal(tx.Amount))
	// paid card's January invoice is due 2024-02-05.
	assert.Equal(t, "2024-02-05", tx.Date.String())
	assert.Equal(t, "payer", tx.Card.CardID)
	assert.Equal(t, "2024-02", tx.Card.InvoiceMonth.String())
	assert.Equal(t, "payer", tx.Settlement.SourceCardID)
	assert.Equal(t, "paid", tx.Settlement.TargetCardID)
	assert.Equal(t, "2024-01", tx.Settlement.PaidMonth.String())
}

func TestPlanAutoPayments_Idempotent(t *testing.T) {
	payer := card("payer", 20, 28, "5000")
	paid := card("paid", 25, 5, "1000")
	paid.DefaultPayerCardID = "payer"
	cards := []model.CreditCard{payer, paid}

	txs := []model.Transaction{
		purchase("t1", paid, "2024-01-10", "120"),
		purchase("t2", paid, "2024-02-20", "80"),
	}

	first := PlanAutoPayments(cards, txs, sequentialIDs("auto"))
	require.Len(t, first.Create, 2)
	txs = applyPlan(txs, first)

	second := PlanAutoPayments(cards, txs, sequentialIDs("again"))
	assert.True(t, second.Empty())
}

func TestPlanAutoPayments_LimitsMove(t *testing.T) {
	payer := card("payer", 20, 28, "5000")
	paid := card("paid", 25, 5, "1000")
	paid.DefaultPayerCardID = "payer"
	cards := []model.CreditCard{payer, paid}

	txs := []model.Transaction{purchase("t1", paid, "2024-01-10", "300")}
	assert.True(t, dec("700").Equal(AvailableLimit(dec("1000"), "paid", txs)))
	assert.True(t, dec("5000").Equal(AvailableLimit(dec("5000"), "payer", txs)))

	txs = applyPlan(txs, PlanAutoPayments(cards, txs, sequentialIDs("auto")))

	assert.True(t, dec("1000").Equal(AvailableLimit(dec("1000"), "paid", txs)))
	assert.True(t, dec("4700").Equal(AvailableLimit(dec("5000"), "payer", txs)))
}

func TestPlanAutoPayments_UpdatesAndDeletes(t *testing.T) {
	payer := card("payer", 20, 28, "5000")
	paid := card("paid", 25, 5, "1000")
	paid.DefaultPayerCardID = "payer"
	cards := []model.CreditCard{payer, paid}

	txs := []model.Transaction{purchase("t1", paid, "2024-01-10", "100")}
	txs = applyPlan(txs, PlanAutoPayments(cards, txs, sequentialIDs("auto")))

	// A new purchase lands on the already-paid invoice.
	txs = append(txs, purchase("t2", paid, "2024-01-11", "50"))
	plan := PlanAutoPayments(cards, txs, sequentialIDs("x"))
	assert.Empty(t, plan.Create)
	require.Len(t, plan.Update, 1)
	assert.True(t, dec("-150").Equal(plan.Update[0].Amount))
	txs = applyPlan(txs, plan)

	// Removing every purchase drops the synthesized payment.
	var remaining []model.Transaction
	for _, tx := range txs {
		if tx.Kind == model.KindCardTransfer {
			remaining = append(remaining, tx)
		}
	}
	plan = PlanAutoPayments(cards, remaining, sequentialIDs("y"))
	assert.Equal(t, []string{"auto-1"}, plan.Delete)
}

func TestPlanAutoPayments_SkipsInvalidPayers(t *testing.T) {
	payer := card("payer", 20, 28, "5000")
	payer.CanPayOtherCards = false
	paid := card("paid", 25, 5, "1000")
	paid.DefaultPayerCardID = "payer"
	orphan := card("orphan", 25, 5, "1000")
	orphan.DefaultPayerCardID = "missing"

	txs := []model.Transaction{
		purchase("t1", paid, "2024-01-10", "100"),
		purchase("t2", orphan, "2024-01-10", "100"),
	}

	plan := PlanAutoPayments([]model.CreditCard{payer, paid, orphan}, txs, sequentialIDs("auto"))
	assert.True(t, plan.Empty())
}

func TestPlanAutoPayments_RespectsCashSettlement(t *testing.T) {
	payer := card("payer", 20, 28, "5000")
	paid := card("paid", 25, 5, "1000")
	paid.DefaultPayerCardID = "payer"

	txs := []model.Transaction{
		purchase("t1", paid, "2024-01-10", "100"),
		cashPayment("p1", paid, "2024-01", "100"),
	}

	plan := PlanAutoPayments([]model.CreditCard{payer, paid}, txs, sequentialIDs("auto"))
	assert.True(t, plan.Empty())
}

func TestNewCardPayment(t *testing.T) {
	payer := card("payer", 10, 20, "5000")
	paid := card("paid", 25, 5, "1000")

	tx := NewCardPayment(payer, paid, calendar.MustParseMonth("2024-03"), calendar.MustParseDate("2024-04-15"), dec("75"), "id-1")
	require.NoError(t, tx.Validate())
	assert.True(t, dec("-75").Equal(tx.Amount))
	assert.Equal(t, "2024-05", tx.Card.InvoiceMonth.String())
	assert.True(t, tx.Settles("paid", calendar.MustParseMonth("2024-03")))
}

func TestPlanAutoPayments_ChainSettlesInOnePass(t *testing.T) {
	top := card("top", 10, 20, "5000")
	middle := card("middle", 15, 25, "3000")
	middle.DefaultPayerCardID = "top"
	leaf := card("leaf", 25, 5, "1000")
	leaf.DefaultPayerCardID = "middle"
	// Listed payer first so declaration order cannot hide the chaining.
	cards := []model.CreditCard{top, middle, leaf}

	txs := []model.Transaction{purchase("t1", leaf, "2024-01-10", "100")}

	first := PlanAutoPayments(cards, txs, sequentialIDs("auto"))
	require.Len(t, first.Create, 2)

	byTarget := map[string]model.Transaction{}
	for _, tx := range first.Create {
		byTarget[tx.Settlement.TargetCardID] = tx
	}
	require.Contains(t, byTarget, "leaf")
	require.Contains(t, byTarget, "middle")
	assert.Equal(t, "middle", byTarget["leaf"].Card.CardID)
	assert.Equal(t, "top", byTarget["middle"].Card.CardID)
	assert.True(t, dec("-100").Equal(byTarget["middle"].Amount))

	txs = applyPlan(txs, first)
	second := PlanAutoPayments(cards, txs, sequentialIDs("again"))
	assert.True(t, second.Empty(), "second run must not change anything: %+v", second)

	// A price change ripples down the whole chain as updates.
	txs[0].Amount = dec("-150")
	third := PlanAutoPayments(cards, txs, sequentialIDs("more"))
	assert.Empty(t, third.Create)
	require.Len(t, third.Update, 2)
	for _, tx := range third.Update {
		assert.True(t, dec("-150").Equal(tx.Amount), tx.Settlement.TargetCardID)
	}
}

func TestPlanAutoPayments_StoredCycleTerminates(t *testing.T) {
	a := card("a", 10, 20, "1000")
	b := card("b", 15, 25, "1000")
	a.DefaultPayerCardID = "b"
	b.DefaultPayerCardID = "a"

	txs := []model.Transaction{purchase("t1", a, "2024-01-05", "50")}
	assert.NotPanics(t, func() {
		PlanAutoPayments([]model.CreditCard{a, b}, txs, sequentialIDs("auto"))
	})
}
