package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/tally/internal/billing"
	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/recurrence"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/shopspring/decimal"
)

// TransactionInput is a user-entered entry. Installments above 1 split it
// into a plan; a non-empty Cadence makes it repeat until EndDate (forever
// when zero). The two are mutually exclusive.
type TransactionInput struct {
	Date         calendar.Date
	EndDate      calendar.Date
	InvoiceMonth calendar.Month
	Amount       decimal.Decimal
	Type         model.TransactionType
	Origin       model.Origin
	Cadence      model.RecurrenceCadence
	Category     string
	Description  string
	CardID       string
	ExternalID   string
	Installments int
	AmountMode   recurrence.AmountMode
}

// TransactionEdit changes an existing entry. Nil fields stay as they are.
// Date, CardID and InvoiceMonth can only change with the single scope.
type TransactionEdit struct {
	recurrence.Patch
	Date         *calendar.Date
	CardID       *string
	InvoiceMonth *calendar.Month
}

// TransactionFilter narrows ListTransactions. Zero fields match everything.
type TransactionFilter struct {
	Month        calendar.Month
	InvoiceMonth calendar.Month
	CardID       string
	Category     string
}

// AddTransaction records a new entry, expanding installment plans and
// recurrences, and returns what was created.
func (l *Ledger) AddTransaction(ctx context.Context, in TransactionInput) ([]model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var created []model.Transaction
	err := l.mutate(ctx, "add transaction", func(st *state) error {
		txs, err := l.expand(st, in)
		if err != nil {
			return err
		}
		st.put(txs...)
		created = txs
		l.sweepPending(st)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Added transaction", "id", created[0].ID, "instances", len(created))
	return created, nil
}

func (l *Ledger) expand(st *state, in TransactionInput) ([]model.Transaction, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	template := model.Transaction{
		Date:        in.Date,
		Amount:      in.Amount,
		Type:        in.Type,
		Kind:        model.KindPlain,
		Origin:      in.Origin,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		ExternalID:  in.ExternalID,
	}
	if template.Origin == "" {
		template.Origin = model.OriginUser
	}
	template.NormalizeSign()

	opts := recurrence.Options{NewID: l.config.NewID}
	if in.CardID != "" {
		card, err := st.card(in.CardID)
		if err != nil {
			return nil, err
		}
		month := in.InvoiceMonth
		if month.IsZero() {
			month = billing.InvoiceMonthOf(in.Date, card.ClosingDay)
		}
		template.Card = &model.CardCharge{CardID: card.ID, InvoiceMonth: month}
		opts.ClosingDay = card.ClosingDay
	}

	var txs []model.Transaction
	var err error
	switch {
	case in.Installments > 1:
		txs, err = recurrence.Installments(template, in.Installments, in.AmountMode, opts)
	case in.Cadence != "":
		var horizon calendar.Date
		if in.EndDate.IsZero() {
			horizon = calendar.MaxDate(l.Today().Month().Last(), in.Date)
		}
		txs, err = recurrence.Recurring(template, in.Cadence, in.EndDate, horizon, opts)
	default:
		template.ID = l.config.NewID()
		txs = []model.Transaction{template}
	}
	if err != nil {
		return nil, err
	}

	// An explicit invoice month pins the first instance only.
	if !in.InvoiceMonth.IsZero() && len(txs) > 0 && txs[0].Card != nil {
		txs[0].Card.InvoiceMonth = in.InvoiceMonth
	}

	for i := range txs {
		if err := txs[i].Validate(); err != nil {
			return nil, err
		}
	}
	return txs, nil
}

func validateInput(in TransactionInput) error {
	switch {
	case in.Date.IsZero():
		return common.Validationf("date is required")
	case in.Amount.IsZero():
		return common.Validationf("amount must not be zero")
	case in.Type != model.TypeIncome && in.Type != model.TypeExpense:
		return common.Validationf("type must be income or expense, got %q", in.Type)
	case in.Type == model.TypeExpense && strings.TrimSpace(in.Category) == "":
		return common.Validationf("expenses need a category")
	case in.Installments > 1 && in.Cadence != "":
		return common.Validationf("an entry cannot be both an installment plan and recurring")
	case in.Installments < 0:
		return common.Validationf("installment count must not be negative")
	}
	return nil
}

// EditTransaction changes the entry and, depending on scope, its family.
func (l *Ledger) EditTransaction(ctx context.Context, id string, edit TransactionEdit, scope recurrence.Scope) ([]model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if scope != recurrence.ScopeSingle && (edit.Date != nil || edit.CardID != nil || edit.InvoiceMonth != nil) {
		return nil, common.Validationf("date, card and invoice month can only change with the single scope")
	}
	if edit.Amount != nil && edit.Amount.IsZero() {
		return nil, common.Validationf("amount must not be zero")
	}

	var edited []model.Transaction
	err := l.mutate(ctx, "edit transaction", func(st *state) error {
		target, ok := st.txs[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
		}

		for _, memberID := range recurrence.SelectFamily(st.list(), target, scope) {
			tx := st.txs[memberID].Clone()
			edit.Patch.Apply(&tx)
			if memberID == id {
				if err := l.applyPlacement(st, &tx, edit); err != nil {
					return err
				}
			}
			if err := tx.Validate(); err != nil {
				return err
			}
			edited = append(edited, tx)
		}
		st.put(edited...)
		l.sweepPending(st)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortTransactions(edited)
	slog.Info("Edited transaction", "id", id, "scope", scope, "count", len(edited))
	return edited, nil
}

// applyPlacement moves a single entry to another date, card or invoice.
// The invoice month follows the new date or card unless given explicitly.
func (l *Ledger) applyPlacement(st *state, tx *model.Transaction, edit TransactionEdit) error {
	replace := false
	if edit.Date != nil {
		if edit.Date.IsZero() {
			return common.Validationf("date is required")
		}
		tx.Date = *edit.Date
		replace = true
	}
	if edit.CardID != nil {
		if *edit.CardID == "" {
			tx.Card = nil
		} else {
			if _, err := st.card(*edit.CardID); err != nil {
				return err
			}
			tx.Card = &model.CardCharge{CardID: *edit.CardID}
			replace = true
		}
	}

	if tx.Card == nil {
		return nil
	}
	switch {
	case edit.InvoiceMonth != nil:
		tx.Card.InvoiceMonth = *edit.InvoiceMonth
	case replace:
		card, err := st.card(tx.Card.CardID)
		if err != nil {
			return err
		}
		tx.Card.InvoiceMonth = billing.InvoiceMonthOf(tx.Date, card.ClosingDay)
	}
	return nil
}

// DeleteTransaction removes the entry and, depending on scope, its family.
// Deleting forward from an open-ended recurrence ends it the day before.
func (l *Ledger) DeleteTransaction(ctx context.Context, id string, scope recurrence.Scope) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	err := l.mutate(ctx, "delete transaction", func(st *state) error {
		target, ok := st.txs[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
		}

		ids := recurrence.SelectFamily(st.list(), target, scope)
		for _, memberID := range ids {
			delete(st.txs, memberID)
		}
		removed = len(ids)
		st.touch(storage.KeyTransactions)

		if scope == recurrence.ScopeForward && target.Recurrence != nil {
			l.closeFamily(st, target)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("Deleted transaction", "id", id, "scope", scope, "count", removed)
	return removed, nil
}

// closeFamily ends a recurrence on the day before target so later
// materialization does not bring deleted instances back.
func (l *Ledger) closeFamily(st *state, target model.Transaction) {
	end := target.Date.AddDays(-1)
	for id, tx := range st.txs {
		if tx.Recurrence == nil || tx.Recurrence.FamilyID != target.Recurrence.FamilyID {
			continue
		}
		if !tx.Recurrence.EndDate.IsZero() && tx.Recurrence.EndDate.Before(end) {
			continue
		}
		tx = tx.Clone()
		tx.Recurrence.EndDate = end
		tx.Recurrence.Through = calendar.Date{}
		st.txs[id] = tx
	}
}

// GetTransaction returns one entry.
func (l *Ledger) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	txs, err := l.repo.Transactions(ctx)
	if err != nil {
		return model.Transaction{}, err
	}
	tx, ok := txs[id]
	if !ok {
		return model.Transaction{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	return tx, nil
}

// ListTransactions returns the entries matching filter, oldest first.
func (l *Ledger) ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error) {
	txs, err := l.repo.Transactions(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.Transaction
	for _, tx := range txs {
		if !filter.Month.IsZero() && !filter.Month.Contains(tx.Date) {
			continue
		}
		if filter.CardID != "" && tx.CardID() != filter.CardID {
			continue
		}
		if !filter.InvoiceMonth.IsZero() && (tx.Card == nil || tx.Card.InvoiceMonth != filter.InvoiceMonth) {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(tx.Category, filter.Category) {
			continue
		}
		out = append(out, tx)
	}
	sortTransactions(out)
	return out, nil
}

// MaterializeThrough generates the instances of open-ended recurrences up
// to the given day and returns how many were added.
func (l *Ledger) MaterializeThrough(ctx context.Context, through calendar.Date) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	added := 0
	err := l.mutate(ctx, "materialize recurrences", func(st *state) error {
		n, err := l.materialize(st, through)
		added = n
		return err
	})
	return added, err
}

func (l *Ledger) materialize(st *state, through calendar.Date) (int, error) {
	families := map[string][]model.Transaction{}
	for _, tx := range st.txs {
		if tx.Recurrence != nil && tx.Recurrence.EndDate.IsZero() {
			families[tx.Recurrence.FamilyID] = append(families[tx.Recurrence.FamilyID], tx)
		}
	}

	added := 0
	for familyID, family := range families {
		opts := recurrence.Options{NewID: l.config.NewID}
		if card := family[0].Card; card != nil {
			if c := model.FindCard(st.cards, card.CardID); c != nil {
				opts.ClosingDay = c.ClosingDay
			}
		}

		more, err := recurrence.Extend(family, through, opts)
		if err != nil {
			return added, fmt.Errorf("failed to extend recurrence %s: %w", familyID, err)
		}
		if len(more) == 0 {
			continue
		}

		for i := range family {
			family[i] = family[i].Clone()
		}
		recurrence.MarkThrough(family, through)
		st.put(family...)
		st.put(more...)
		added += len(more)
	}
	return added, nil
}

// ImportResult counts what ImportTransactions added and skipped.
type ImportResult struct {
	Added      int
	Duplicates int
}

// ImportTransactions adds a batch of entries in one write. Entries whose
// ExternalID is already in the ledger, or repeats within the batch, are
// skipped.
func (l *Ledger) ImportTransactions(ctx context.Context, inputs []TransactionInput) (ImportResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result ImportResult
	err := l.mutate(ctx, "import transactions", func(st *state) error {
		seen := make(map[string]bool)
		for _, tx := range st.txs {
			if tx.ExternalID != "" {
				seen[tx.ExternalID] = true
			}
		}

		for _, in := range inputs {
			if in.ExternalID != "" && seen[in.ExternalID] {
				result.Duplicates++
				continue
			}
			txs, err := l.expand(st, in)
			if err != nil {
				return fmt.Errorf("entry %q on %s: %w", in.Description, in.Date, err)
			}
			st.put(txs...)
			seen[in.ExternalID] = in.ExternalID != ""
			result.Added += len(txs)
		}
		l.sweepPending(st)
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	slog.Info("Imported transactions", "added", result.Added, "duplicates", result.Duplicates)
	return result, nil
}
