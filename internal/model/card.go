package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CreditCard is a card whose purchases are billed on monthly invoices.
// Limit is the available limit; the original limit lives in a side table so
// the available one can always be recomputed from scratch.
type CreditCard struct {
	Limit              decimal.Decimal `json:"limit"`
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Last4              string          `json:"last4,omitempty"`
	DefaultPayerCardID string          `json:"defaultPayerCardId,omitempty"`
	ClosingDay         int             `json:"closingDay"`
	DueDay             int             `json:"dueDay"`
	CanPayOtherCards   bool            `json:"canPayOtherCards"`
}

// Validate checks a single card in isolation.
func (c *CreditCard) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidCard)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCard)
	}
	if c.ClosingDay < 1 || c.ClosingDay > 28 {
		return fmt.Errorf("%w: closing day %d outside 1-28", ErrInvalidCard, c.ClosingDay)
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return fmt.Errorf("%w: due day %d outside 1-31", ErrInvalidCard, c.DueDay)
	}
	if c.Limit.IsNegative() {
		return fmt.Errorf("%w: negative limit", ErrInvalidCard)
	}
	if c.Last4 != "" && len(c.Last4) != 4 {
		return fmt.Errorf("%w: last4 must have 4 digits", ErrInvalidCard)
	}
	if c.DefaultPayerCardID == c.ID {
		return fmt.Errorf("%w: a card cannot pay itself", ErrInvalidCard)
	}
	return nil
}

// ValidatePayer checks the default payer reference against the other cards.
func (c *CreditCard) ValidatePayer(cards []CreditCard) error {
	if c.DefaultPayerCardID == "" {
		return nil
	}
	payer := FindCard(cards, c.DefaultPayerCardID)
	if payer == nil {
		return fmt.Errorf("%w: default payer %s not found", ErrInvalidCard, c.DefaultPayerCardID)
	}
	if !payer.CanPayOtherCards {
		return fmt.Errorf("%w: card %s cannot pay other cards", ErrInvalidCard, payer.Name)
	}
	return c.checkPayerChain(cards)
}

// ValidatePayerChains rejects any set of cards whose default payers form a
// cycle.
func ValidatePayerChains(cards []CreditCard) error {
	for i := range cards {
		if err := cards[i].checkPayerChain(cards); err != nil {
			return err
		}
	}
	return nil
}

// checkPayerChain follows default payers from c and fails if the chain comes
// back to c. cards may still hold an older version of c; c's own payer is
// taken from the receiver.
func (c *CreditCard) checkPayerChain(cards []CreditCard) error {
	seen := map[string]bool{c.ID: true}
	for id := c.DefaultPayerCardID; id != ""; {
		if id == c.ID {
			return fmt.Errorf("%w: %s would end up paying its own invoices", ErrInvalidCard, c.Name)
		}
		if seen[id] {
			return nil
		}
		seen[id] = true
		next := FindCard(cards, id)
		if next == nil {
			return nil
		}
		id = next.DefaultPayerCardID
	}
	return nil
}

// FindCard returns the card with the given ID, or nil.
func FindCard(cards []CreditCard, id string) *CreditCard {
	for i := range cards {
		if cards[i].ID == id {
			return &cards[i]
		}
	}
	return nil
}
