package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/tally/internal/billing"
	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/shopspring/decimal"
)

// Common categories used across tests.
const (
	CategoryGroceries = "Groceries"
	CategorySalary    = "Salary"
	CategoryRent      = "Rent"
	CategoryStreaming = "Streaming"
)

// Fixtures is a fluent builder of ledger data. Amounts are decimal strings
// and dates are YYYY-MM-DD; malformed input fails the test.
type Fixtures struct {
	t            *testing.T
	transactions map[string]model.Transaction
	investments  map[string]model.Investment
	limits       map[string]decimal.Decimal
	cards        []model.CreditCard
}

// NewFixtures starts an empty fixture set.
func NewFixtures(t *testing.T) *Fixtures {
	t.Helper()
	return &Fixtures{
		t:            t,
		transactions: map[string]model.Transaction{},
		investments:  map[string]model.Investment{},
		limits:       map[string]decimal.Decimal{},
	}
}

// CardOption customizes a fixture card.
type CardOption func(*model.CreditCard)

// PaidBy delegates the card's invoices to payer.
func PaidBy(payer string) CardOption {
	return func(c *model.CreditCard) { c.DefaultPayerCardID = payer }
}

// CannotPayOthers stops the card from settling other cards.
func CannotPayOthers() CardOption {
	return func(c *model.CreditCard) { c.CanPayOtherCards = false }
}

// WithCard adds a card whose original and available limit is limit.
func (f *Fixtures) WithCard(id, name, limit string, closingDay, dueDay int, opts ...CardOption) *Fixtures {
	f.t.Helper()
	card := model.CreditCard{
		ID:               id,
		Name:             name,
		Limit:            f.amount(limit),
		ClosingDay:       closingDay,
		DueDay:           dueDay,
		CanPayOtherCards: true,
	}
	for _, opt := range opts {
		opt(&card)
	}
	f.cards = append(f.cards, card)
	f.limits[id] = card.Limit
	return f
}

// WithIncome adds a plain cash income.
func (f *Fixtures) WithIncome(id, date, amount string) *Fixtures {
	f.t.Helper()
	f.transactions[id] = model.Transaction{
		ID:       id,
		Date:     f.date(date),
		Amount:   f.amount(amount).Abs(),
		Type:     model.TypeIncome,
		Kind:     model.KindPlain,
		Origin:   model.OriginUser,
		Category: CategorySalary,
	}
	return f
}

// WithExpense adds a plain cash expense.
func (f *Fixtures) WithExpense(id, date, amount, category string) *Fixtures {
	f.t.Helper()
	f.transactions[id] = model.Transaction{
		ID:       id,
		Date:     f.date(date),
		Amount:   f.amount(amount).Abs().Neg(),
		Type:     model.TypeExpense,
		Kind:     model.KindPlain,
		Origin:   model.OriginUser,
		Category: category,
	}
	return f
}

// WithCardPurchase adds a purchase on a card already added with WithCard.
// Its invoice month follows the card's closing day.
func (f *Fixtures) WithCardPurchase(id, cardID, date, amount string) *Fixtures {
	f.t.Helper()
	card := model.FindCard(f.cards, cardID)
	if card == nil {
		f.t.Fatalf("fixture purchase %s references unknown card %s", id, cardID)
	}
	day := f.date(date)
	f.transactions[id] = model.Transaction{
		ID:       id,
		Date:     day,
		Amount:   f.amount(amount).Abs().Neg(),
		Type:     model.TypeExpense,
		Kind:     model.KindPlain,
		Origin:   model.OriginUser,
		Category: CategoryGroceries,
		Card:     &model.CardCharge{CardID: cardID, InvoiceMonth: billing.InvoiceMonthOf(day, card.ClosingDay)},
	}
	return f
}

// WithTransaction adds an arbitrary transaction.
func (f *Fixtures) WithTransaction(tx model.Transaction) *Fixtures {
	f.transactions[tx.ID] = tx
	return f
}

// WithInvestment adds an active reserve that starts on start.
func (f *Fixtures) WithInvestment(id, name, amount, rate, start string, canCover bool) *Fixtures {
	f.t.Helper()
	value := f.amount(amount)
	f.investments[id] = model.Investment{
		ID:                      id,
		Name:                    name,
		InitialAmount:           value,
		CurrentAmount:           value,
		YieldRate:               f.amount(rate),
		StartDate:               f.date(start),
		IsActive:                true,
		CanCoverNegativeBalance: canCover,
	}
	return f
}

// Cards returns the fixture cards.
func (f *Fixtures) Cards() []model.CreditCard { return f.cards }

// Transactions returns the fixture transactions as a slice.
func (f *Fixtures) Transactions() []model.Transaction {
	txs := make([]model.Transaction, 0, len(f.transactions))
	for _, tx := range f.transactions {
		txs = append(txs, tx)
	}
	return txs
}

// Seed writes every fixture into repo.
func (f *Fixtures) Seed(repo *storage.Repository) {
	f.t.Helper()
	err := repo.Batch().
		Put(storage.KeyCreditCards, f.cards).
		Put(storage.KeyOriginalCardLimits, f.limits).
		Put(storage.KeyTransactions, f.transactions).
		Put(storage.KeyInvestments, f.investments).
		Commit(context.Background())
	if err != nil {
		f.t.Fatalf("failed to seed fixtures: %v", err)
	}
}

func (f *Fixtures) amount(s string) decimal.Decimal {
	f.t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		f.t.Fatalf("bad fixture amount %q: %v", s, err)
	}
	return d
}

func (f *Fixtures) date(s string) calendar.Date {
	f.t.Helper()
	d, err := calendar.ParseDate(s)
	if err != nil {
		f.t.Fatalf("bad fixture date %q: %v", s, err)
	}
	return d
}

// MustAmount parses a decimal or panics; for table literals.
func MustAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("bad amount %q: %v", s, err))
	}
	return d
}
