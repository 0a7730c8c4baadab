package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Veraticus/tally/internal/billing"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/shopspring/decimal"
)

// Export snapshots every document a backup carries.
func (l *Ledger) Export(ctx context.Context) (model.Backup, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.load(ctx)
	if err != nil {
		return model.Backup{}, err
	}
	settings, err := l.repo.Settings(ctx)
	if err != nil {
		return model.Backup{}, fmt.Errorf("failed to load settings: %w", err)
	}
	history, err := l.repo.YieldHistory(ctx)
	if err != nil {
		return model.Backup{}, fmt.Errorf("failed to load yield history: %w", err)
	}

	backup := model.Backup{
		Version:            model.BackupVersion,
		ExportedAt:         time.Now().UTC(),
		Transactions:       st.txs,
		CreditCards:        st.cards,
		Investments:        st.invs,
		YieldHistory:       history,
		OriginalCardLimits: st.limits,
		Settings:           &settings,
	}
	if backup.CreditCards == nil {
		backup.CreditCards = []model.CreditCard{}
	}
	if backup.YieldHistory == nil {
		backup.YieldHistory = []model.YieldRecord{}
	}

	raw, found, err := l.repo.Raw(ctx, storage.KeyDefaultYieldRate)
	if err != nil {
		return model.Backup{}, fmt.Errorf("failed to load default yield rate: %w", err)
	}
	if found {
		var rate decimal.Decimal
		if err := json.Unmarshal(raw, &rate); err == nil {
			backup.DefaultYieldRate = &rate
		}
	}
	return backup, nil
}

// ExportJSON writes an indented backup document to w.
func (l *Ledger) ExportJSON(ctx context.Context, w io.Writer) error {
	backup, err := l.Export(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(backup); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// Import replaces every document a backup carries and runs the recompute
// pipeline over the imported entries, writing both in one batch so derived
// limits and automatic payments always agree with what was imported. Keys
// the backup omits are cleared.
func (l *Ledger) Import(ctx context.Context, backup model.Backup) error {
	if backup.Version < 1 || backup.Version > model.BackupVersion {
		return fmt.Errorf("%w: %d (supported up to %d)", ErrUnsupportedBackup, backup.Version, model.BackupVersion)
	}
	if err := validateBackup(&backup); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.load(ctx)
	if err != nil {
		return err
	}
	st.txs = orEmpty(backup.Transactions)
	st.cards = backup.CreditCards
	st.invs = orEmpty(backup.Investments)
	st.limits = orEmpty(backup.OriginalCardLimits)
	st.touch(storage.KeyTransactions, storage.KeyCreditCards, storage.KeyInvestments)
	if backup.OriginalCardLimits != nil {
		st.touch(storage.KeyOriginalCardLimits)
	}

	if err := l.pipeline.Run(st); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	batch := st.stage(l.repo.Batch())
	if !st.dirty[storage.KeyOriginalCardLimits] {
		batch.Delete(storage.KeyOriginalCardLimits)
	}
	batch.Put(storage.KeyYieldHistory, backup.YieldHistory)

	settings := model.DefaultSettings()
	if backup.Settings != nil {
		settings = *backup.Settings
	}
	batch.Put(storage.KeySettings, settings)

	if backup.DefaultYieldRate != nil {
		batch.Put(storage.KeyDefaultYieldRate, backup.DefaultYieldRate)
	} else {
		batch.Delete(storage.KeyDefaultYieldRate)
	}

	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("failed to import backup: %w", err)
	}

	slog.Info("Imported backup",
		"version", backup.Version,
		"transactions", len(backup.Transactions),
		"cards", len(backup.CreditCards),
		"investments", len(backup.Investments))
	return nil
}

// ImportJSON decodes a backup document from r and imports it.
func (l *Ledger) ImportJSON(ctx context.Context, r io.Reader) error {
	var backup model.Backup
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return common.Validationf("backup is not valid JSON: %v", err)
	}
	return l.Import(ctx, backup)
}

func validateBackup(b *model.Backup) error {
	if b.CreditCards == nil {
		b.CreditCards = []model.CreditCard{}
	}
	if b.YieldHistory == nil {
		b.YieldHistory = []model.YieldRecord{}
	}
	for id, tx := range b.Transactions {
		if tx.ID != id {
			return common.Validationf("transaction stored under %q has ID %q", id, tx.ID)
		}
		if err := tx.Validate(); err != nil {
			return err
		}
	}
	for i := range b.CreditCards {
		card := &b.CreditCards[i]
		card.ClosingDay = billing.ClampClosingDay(card.ClosingDay)
		card.DueDay = billing.ClampDueDay(card.DueDay)
		if err := card.Validate(); err != nil {
			return err
		}
	}
	if err := model.ValidatePayerChains(b.CreditCards); err != nil {
		return err
	}
	for id, inv := range b.Investments {
		if inv.ID != id {
			return common.Validationf("investment stored under %q has ID %q", id, inv.ID)
		}
		if err := inv.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func orEmpty[V any](m map[string]V) map[string]V {
	if m == nil {
		return map[string]V{}
	}
	return m
}
