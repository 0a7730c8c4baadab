package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/shopspring/decimal"
)

// CardInput describes a new credit card. Limit is its full, unused limit.
type CardInput struct {
	Limit              decimal.Decimal
	CanPayOtherCards   *bool
	Name               string
	Last4              string
	DefaultPayerCardID string
	ClosingDay         int
	DueDay             int
}

// CardEdit changes an existing card. Nil fields stay as they are. Limit
// replaces the original limit; the available limit is recomputed from it.
type CardEdit struct {
	Limit              *decimal.Decimal
	CanPayOtherCards   *bool
	Name               *string
	Last4              *string
	DefaultPayerCardID *string
	ClosingDay         *int
	DueDay             *int
}

// AddCard creates a card and records its original limit.
func (l *Ledger) AddCard(ctx context.Context, in CardInput) (model.CreditCard, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	card := model.CreditCard{
		ID:                 l.config.NewID(),
		Name:               strings.TrimSpace(in.Name),
		Last4:              strings.TrimSpace(in.Last4),
		Limit:              in.Limit,
		ClosingDay:         in.ClosingDay,
		DueDay:             in.DueDay,
		CanPayOtherCards:   true,
		DefaultPayerCardID: in.DefaultPayerCardID,
	}
	if in.CanPayOtherCards != nil {
		card.CanPayOtherCards = *in.CanPayOtherCards
	}

	err := l.mutate(ctx, "add card", func(st *state) error {
		if err := card.Validate(); err != nil {
			return err
		}
		if err := card.ValidatePayer(st.cards); err != nil {
			return err
		}
		st.cards = append(st.cards, card)
		st.limits[card.ID] = card.Limit
		st.touch(storage.KeyCreditCards, storage.KeyOriginalCardLimits)
		return nil
	})
	if err != nil {
		return model.CreditCard{}, err
	}

	slog.Info("Added card", "id", card.ID, "name", card.Name)
	return card, nil
}

// EditCard changes a card. Purchases keep the invoice month they were
// assigned when a closing day changes.
func (l *Ledger) EditCard(ctx context.Context, id string, edit CardEdit) (model.CreditCard, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result model.CreditCard
	err := l.mutate(ctx, "edit card", func(st *state) error {
		card, err := st.card(id)
		if err != nil {
			return err
		}
		updated := *card

		if edit.Name != nil {
			updated.Name = strings.TrimSpace(*edit.Name)
		}
		if edit.Last4 != nil {
			updated.Last4 = strings.TrimSpace(*edit.Last4)
		}
		if edit.ClosingDay != nil {
			updated.ClosingDay = *edit.ClosingDay
		}
		if edit.DueDay != nil {
			updated.DueDay = *edit.DueDay
		}
		if edit.DefaultPayerCardID != nil {
			updated.DefaultPayerCardID = *edit.DefaultPayerCardID
		}
		if edit.CanPayOtherCards != nil {
			updated.CanPayOtherCards = *edit.CanPayOtherCards
		}
		if edit.Limit != nil {
			if edit.Limit.IsNegative() {
				return fmt.Errorf("%w: negative limit", model.ErrInvalidCard)
			}
			st.limits[id] = *edit.Limit
			st.touch(storage.KeyOriginalCardLimits)
		}

		if err := updated.Validate(); err != nil {
			return err
		}
		if err := updated.ValidatePayer(st.cards); err != nil {
			return err
		}
		if !updated.CanPayOtherCards {
			for _, other := range st.cards {
				if other.DefaultPayerCardID == id {
					return fmt.Errorf("%w: %s pays %s", ErrPayerInUse, updated.Name, other.Name)
				}
			}
		}

		*card = updated
		st.touch(storage.KeyCreditCards)
		return nil
	})
	if err != nil {
		return model.CreditCard{}, err
	}

	// Read back so the recomputed limit is reported.
	cards, err := l.repo.Cards(ctx)
	if err != nil {
		return model.CreditCard{}, err
	}
	if c := model.FindCard(cards, id); c != nil {
		result = *c
	}
	slog.Info("Edited card", "id", id)
	return result, nil
}

// DeleteCard removes a card with every entry billed to it and every
// settlement of its invoices. Cards it used to pay fall back to paying
// their own invoices.
func (l *Ledger) DeleteCard(ctx context.Context, id string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	err := l.mutate(ctx, "delete card", func(st *state) error {
		if _, err := st.card(id); err != nil {
			return err
		}

		kept := st.cards[:0]
		for _, card := range st.cards {
			if card.ID == id {
				continue
			}
			if card.DefaultPayerCardID == id {
				card.DefaultPayerCardID = ""
			}
			kept = append(kept, card)
		}
		st.cards = kept
		delete(st.limits, id)

		for txID, tx := range st.txs {
			if tx.CardID() == id || (tx.Settlement != nil && tx.Settlement.PaidCardID == id) {
				delete(st.txs, txID)
				removed++
			}
		}
		st.touch(storage.KeyCreditCards, storage.KeyOriginalCardLimits, storage.KeyTransactions)
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("Deleted card", "id", id, "transactions", removed)
	return removed, nil
}

// Cards returns every card.
func (l *Ledger) Cards(ctx context.Context) ([]model.CreditCard, error) {
	return l.repo.Cards(ctx)
}

// Card returns one card.
func (l *Ledger) Card(ctx context.Context, id string) (model.CreditCard, error) {
	cards, err := l.repo.Cards(ctx)
	if err != nil {
		return model.CreditCard{}, err
	}
	card := model.FindCard(cards, id)
	if card == nil {
		return model.CreditCard{}, fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	return *card, nil
}

// OriginalLimit returns the full limit a card was given.
func (l *Ledger) OriginalLimit(ctx context.Context, id string) (decimal.Decimal, error) {
	limits, err := l.repo.OriginalLimits(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	limit, ok := limits[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	return limit, nil
}
