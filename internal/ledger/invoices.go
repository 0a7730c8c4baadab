package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/tally/internal/balance"
	"github.com/Veraticus/tally/internal/billing"
	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// PaymentMethod is how an invoice is settled.
type PaymentMethod string

// Payment methods.
const (
	PayCash  PaymentMethod = "cash"
	PayDebit PaymentMethod = "debit"
	PayCard  PaymentMethod = "card"
)

// ParsePaymentMethod converts a user-supplied string into a PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case PayCash, PayDebit, PayCard:
		return m, nil
	default:
		return "", common.Validationf("unknown payment method %q (want cash, debit or card)", s)
	}
}

// PayRequest settles the invoice of CardID for Month. PayerCardID is
// required with PayCard. A zero Date means today.
type PayRequest struct {
	Date        calendar.Date
	Month       calendar.Month
	CardID      string
	PayerCardID string
	Method      PaymentMethod
}

// Statement is everything that moves cash in one month.
type Statement struct {
	Summary      balance.Summary
	Transactions []model.Transaction
}

// Statement builds the statement for month, first materializing open-ended
// recurrences through its last day.
func (l *Ledger) Statement(ctx context.Context, month calendar.Month) (Statement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out Statement
	err := l.mutate(ctx, "statement", func(st *state) error {
		_, err := l.materialize(st, month.Last())
		return err
	})
	if err != nil {
		return out, err
	}

	st, err := l.load(ctx)
	if err != nil {
		return out, err
	}
	txs := st.list()
	out.Summary = balance.MonthSummary(txs, st.cards, month)
	for _, tx := range txs {
		if !tx.IsCardPayment() && month.Contains(tx.Date) {
			out.Transactions = append(out.Transactions, tx)
		}
	}
	return out, nil
}

// InvoiceDetail returns one card's invoice for month, paid or not. Cards
// delegated to a payer are allowed here.
func (l *Ledger) InvoiceDetail(ctx context.Context, cardID string, month calendar.Month) (billing.ConsolidatedInvoice, error) {
	st, err := l.load(ctx)
	if err != nil {
		return billing.ConsolidatedInvoice{}, err
	}
	card, err := st.card(cardID)
	if err != nil {
		return billing.ConsolidatedInvoice{}, err
	}
	return billing.BuildInvoice(*card, st.list(), month), nil
}

// Balance projects the cash position as of today.
func (l *Ledger) Balance(ctx context.Context) (balance.Projection, error) {
	st, err := l.load(ctx)
	if err != nil {
		return balance.Projection{}, err
	}
	return balance.Project(st.list(), st.cards, l.Today()), nil
}

// PayInvoice settles an invoice with cash, debit or another card and returns
// the settlement entry.
func (l *Ledger) PayInvoice(ctx context.Context, req PayRequest) (model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if req.Date.IsZero() {
		req.Date = l.Today()
	}

	var payment model.Transaction
	err := l.mutate(ctx, "pay invoice", func(st *state) error {
		card, err := st.card(req.CardID)
		if err != nil {
			return err
		}

		invoice := billing.BuildInvoice(*card, st.list(), req.Month)
		switch {
		case invoice.Paid:
			return fmt.Errorf("%w: %s %s", ErrInvoiceAlreadyPaid, card.Name, req.Month)
		case !invoice.Total.IsPositive():
			return fmt.Errorf("%w: %s %s", ErrNothingToPay, card.Name, req.Month)
		}

		switch req.Method {
		case PayCash, PayDebit:
			payment = model.Transaction{
				ID:          l.config.NewID(),
				Date:        req.Date,
				Amount:      invoice.Total.Neg(),
				Type:        model.TypeExpense,
				Kind:        model.KindInvoicePayment,
				Origin:      model.OriginUser,
				Category:    billing.AutoPayCategory,
				Description: fmt.Sprintf("%s invoice %s (%s)", card.Name, req.Month, req.Method),
				Settlement:  &model.SettlementInfo{PaidCardID: card.ID, PaidMonth: req.Month},
			}
		case PayCard:
			if req.PayerCardID == "" {
				return ErrPayerRequired
			}
			payer, err := st.card(req.PayerCardID)
			if err != nil {
				return err
			}
			if payer.ID == card.ID || !payer.CanPayOtherCards {
				return fmt.Errorf("%w: %s cannot pay %s", ErrInvalidPayer, payer.Name, card.Name)
			}
			payment = billing.NewCardPayment(*payer, *card, req.Month, req.Date, invoice.Total, l.config.NewID())
		default:
			return common.Validationf("unknown payment method %q", req.Method)
		}

		if err := payment.Validate(); err != nil {
			return err
		}
		st.put(payment)
		return nil
	})
	if err != nil {
		return model.Transaction{}, err
	}

	slog.Info("Paid invoice",
		"card", req.CardID,
		"month", req.Month,
		"method", req.Method,
		"amount", payment.Amount.Abs().StringFixed(2))
	return payment, nil
}
