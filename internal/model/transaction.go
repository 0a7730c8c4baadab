package model

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money for a ledger entry.
type TransactionType string

// Transaction types.
const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// TransactionKind tells which role a ledger entry plays. Each kind carries
// only the payload that makes sense for it.
type TransactionKind string

// Transaction kinds.
const (
	// KindPlain is a one-off entry.
	KindPlain TransactionKind = "plain"
	// KindInstallment is one member of a purchase split into installments.
	KindInstallment TransactionKind = "installment"
	// KindRecurring is one instance of a repeating template.
	KindRecurring TransactionKind = "recurring"
	// KindCardTransfer is a payer card's charge that settles another card's invoice.
	KindCardTransfer TransactionKind = "card_transfer"
	// KindInvoicePayment marks an invoice as paid with cash or debit.
	KindInvoicePayment TransactionKind = "invoice_payment"
)

// Origin records who created an entry. Only user entries count when looking
// for the first income of a month.
type Origin string

// Transaction origins.
const (
	OriginUser     Origin = "user"
	OriginAutoPay  Origin = "autopay"
	OriginCoverage Origin = "coverage"
	OriginSweep    Origin = "sweep"
	OriginImport   Origin = "import"
)

// CardCharge places an entry on a credit card invoice.
type CardCharge struct {
	CardID       string         `json:"cardId"`
	InvoiceMonth calendar.Month `json:"invoiceMonth"`
}

// InstallmentInfo describes a member of an installment family. Installment
// number 1 has an empty ParentID; its siblings point at its ID.
type InstallmentInfo struct {
	ParentID string `json:"parentId,omitempty"`
	Count    int    `json:"installments"`
	Index    int    `json:"currentInstallment"`
}

// RecurrenceCadence is the period between recurring instances.
type RecurrenceCadence string

// Recurrence cadences.
const (
	CadenceWeekly  RecurrenceCadence = "weekly"
	CadenceMonthly RecurrenceCadence = "monthly"
	CadenceYearly  RecurrenceCadence = "yearly"
)

// RecurrenceInfo describes an instance of a recurrence family. A zero EndDate
// means the family repeats indefinitely and is materialized on demand up to
// Through.
type RecurrenceInfo struct {
	FamilyID string            `json:"recurrenceId"`
	Cadence  RecurrenceCadence `json:"recurrenceType"`
	EndDate  calendar.Date     `json:"recurrenceEndDate,omitzero"`
	Through  calendar.Date     `json:"materializedThrough,omitzero"`
}

// SettlementInfo names the invoice an entry pays.
type SettlementInfo struct {
	SourceCardID string         `json:"sourceCardId,omitempty"`
	TargetCardID string         `json:"targetCardId,omitempty"`
	PaidCardID   string         `json:"paidInvoiceCardId"`
	PaidMonth    calendar.Month `json:"paidInvoiceMonth"`
}

// Transaction is an atomic ledger entry. Amount is signed: positive for
// income, negative for expenses.
type Transaction struct {
	Date        calendar.Date    `json:"date"`
	Amount      decimal.Decimal  `json:"amount"`
	Card        *CardCharge      `json:"card,omitempty"`
	Installment *InstallmentInfo `json:"installment,omitempty"`
	Recurrence  *RecurrenceInfo  `json:"recurrence,omitempty"`
	Settlement  *SettlementInfo  `json:"settlement,omitempty"`
	ID          string           `json:"id"`
	Type        TransactionType  `json:"type"`
	Kind        TransactionKind  `json:"kind"`
	Origin      Origin           `json:"origin,omitempty"`
	Category    string           `json:"category,omitempty"`
	Description string           `json:"description,omitempty"`
	ExternalID  string           `json:"externalId,omitempty"`
}

// IsCardPayment reports whether the entry is billed to a credit card.
func (t *Transaction) IsCardPayment() bool { return t.Card != nil }

// CardID returns the card the entry is billed to, or "".
func (t *Transaction) CardID() string {
	if t.Card == nil {
		return ""
	}
	return t.Card.CardID
}

// IsInvoicePayment reports whether the entry settles an invoice and must stay
// out of invoice totals of the card it pays.
func (t *Transaction) IsInvoicePayment() bool {
	return t.Kind == KindInvoicePayment || t.Kind == KindCardTransfer
}

// IsCardToCardPayment reports whether another card paid the settled invoice.
func (t *Transaction) IsCardToCardPayment() bool { return t.Kind == KindCardTransfer }

// Settles reports whether the entry settles the invoice of card for month.
func (t *Transaction) Settles(cardID string, month calendar.Month) bool {
	return t.Settlement != nil && t.Settlement.PaidCardID == cardID && t.Settlement.PaidMonth == month
}

// FamilyKey identifies the installment or recurrence family the entry belongs
// to. Plain entries return "".
func (t *Transaction) FamilyKey() string {
	switch {
	case t.Recurrence != nil:
		return "r:" + t.Recurrence.FamilyID
	case t.Installment != nil && t.Installment.ParentID != "":
		return "i:" + t.Installment.ParentID
	case t.Installment != nil:
		return "i:" + t.ID
	default:
		return ""
	}
}

// AbsAmount returns the magnitude of the amount.
func (t *Transaction) AbsAmount() decimal.Decimal { return t.Amount.Abs() }

// NormalizeSign makes the amount's sign agree with the transaction type.
func (t *Transaction) NormalizeSign() {
	abs := t.Amount.Abs()
	if t.Type == TypeExpense {
		t.Amount = abs.Neg()
		return
	}
	t.Amount = abs
}

// Clone returns a deep copy so payload pointers are not shared.
func (t Transaction) Clone() Transaction {
	if t.Card != nil {
		c := *t.Card
		t.Card = &c
	}
	if t.Installment != nil {
		i := *t.Installment
		t.Installment = &i
	}
	if t.Recurrence != nil {
		r := *t.Recurrence
		t.Recurrence = &r
	}
	if t.Settlement != nil {
		s := *t.Settlement
		t.Settlement = &s
	}
	return t
}

// Validate checks required fields and that the payloads match the kind.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if t.Type != TypeIncome && t.Type != TypeExpense {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, t.Type)
	}
	if t.Amount.IsZero() {
		return fmt.Errorf("%w: amount must not be zero", ErrInvalidTransaction)
	}
	if t.Type == TypeExpense && t.Kind != KindInvoicePayment && t.Kind != KindCardTransfer &&
		strings.TrimSpace(t.Category) == "" {
		return fmt.Errorf("%w: expenses need a category", ErrInvalidTransaction)
	}
	if t.Card != nil {
		if t.Card.CardID == "" || t.Card.InvoiceMonth.IsZero() {
			return fmt.Errorf("%w: card charge needs card and invoice month", ErrInvalidTransaction)
		}
	}

	switch t.Kind {
	case KindPlain:
		if t.Installment != nil || t.Recurrence != nil || t.Settlement != nil {
			return fmt.Errorf("%w: plain entry carries family or settlement data", ErrInvalidTransaction)
		}
	case KindInstallment:
		if t.Installment == nil || t.Recurrence != nil || t.Settlement != nil {
			return fmt.Errorf("%w: installment entry needs installment data only", ErrInvalidTransaction)
		}
		if t.Installment.Count < 1 || t.Installment.Index < 1 || t.Installment.Index > t.Installment.Count {
			return fmt.Errorf("%w: installment %d/%d", ErrInvalidTransaction, t.Installment.Index, t.Installment.Count)
		}
		if (t.Installment.Index == 1) != (t.Installment.ParentID == "") {
			return fmt.Errorf("%w: only installment 1 has no parent", ErrInvalidTransaction)
		}
	case KindRecurring:
		if t.Recurrence == nil || t.Installment != nil || t.Settlement != nil {
			return fmt.Errorf("%w: recurring entry needs recurrence data only", ErrInvalidTransaction)
		}
		switch t.Recurrence.Cadence {
		case CadenceWeekly, CadenceMonthly, CadenceYearly:
		default:
			return fmt.Errorf("%w: unknown recurrence type %q", ErrInvalidTransaction, t.Recurrence.Cadence)
		}
		if t.Recurrence.FamilyID == "" {
			return fmt.Errorf("%w: missing recurrence id", ErrInvalidTransaction)
		}
	case KindCardTransfer:
		if t.Settlement == nil || t.Card == nil || t.Type != TypeExpense {
			return fmt.Errorf("%w: card transfer needs a payer card and settlement data", ErrInvalidTransaction)
		}
		if t.Settlement.SourceCardID != t.Card.CardID || t.Settlement.TargetCardID != t.Settlement.PaidCardID {
			return fmt.Errorf("%w: card transfer legs do not match", ErrInvalidTransaction)
		}
		if t.Settlement.SourceCardID == t.Settlement.TargetCardID {
			return fmt.Errorf("%w: a card cannot pay itself", ErrInvalidTransaction)
		}
	case KindInvoicePayment:
		if t.Settlement == nil || t.Card != nil || t.Type != TypeExpense {
			return fmt.Errorf("%w: invoice payment needs settlement data and no card", ErrInvalidTransaction)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTransaction, t.Kind)
	}
	return nil
}
