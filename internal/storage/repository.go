package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
	"github.com/shopspring/decimal"
)

// Repository gives typed access to the ledger documents kept in a KVStore.
//
// Reads fail open: a missing key or a document that no longer decodes yields
// the supplied default (the latter with a warning). Errors from the backing
// store itself are returned so callers never write a default back over data
// they could not read. Writes always propagate errors.
type Repository struct {
	kv service.KVStore
}

// NewRepository wraps kv.
func NewRepository(kv service.KVStore) *Repository {
	return &Repository{kv: kv}
}

// Store returns the underlying key-value store.
func (r *Repository) Store() service.KVStore {
	return r.kv
}

func read[T any](ctx context.Context, r *Repository, key string, def T) (T, error) {
	raw, found, err := r.kv.Get(ctx, key)
	if err != nil {
		return def, err
	}
	if !found || len(raw) == 0 {
		return def, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.Warn("Stored document is corrupt, using default",
			"key", key,
			"error", err)
		return def, nil
	}
	return v, nil
}

func (r *Repository) write(ctx context.Context, key string, v any) error {
	return r.Batch().Put(key, v).Commit(ctx)
}

// Raw returns the undecoded document under key.
func (r *Repository) Raw(ctx context.Context, key string) ([]byte, bool, error) {
	return r.kv.Get(ctx, key)
}

// Transactions returns every ledger entry keyed by ID.
func (r *Repository) Transactions(ctx context.Context) (map[string]model.Transaction, error) {
	txs, err := read(ctx, r, KeyTransactions, map[string]model.Transaction{})
	if txs == nil {
		txs = map[string]model.Transaction{}
	}
	return txs, err
}

// SaveTransactions replaces the transaction document.
func (r *Repository) SaveTransactions(ctx context.Context, txs map[string]model.Transaction) error {
	return r.write(ctx, KeyTransactions, txs)
}

// Cards returns all credit cards.
func (r *Repository) Cards(ctx context.Context) ([]model.CreditCard, error) {
	return read(ctx, r, KeyCreditCards, []model.CreditCard(nil))
}

// SaveCards replaces the credit card document.
func (r *Repository) SaveCards(ctx context.Context, cards []model.CreditCard) error {
	if cards == nil {
		cards = []model.CreditCard{}
	}
	return r.write(ctx, KeyCreditCards, cards)
}

// OriginalLimits returns the original limit of each card keyed by card ID.
func (r *Repository) OriginalLimits(ctx context.Context) (map[string]decimal.Decimal, error) {
	limits, err := read(ctx, r, KeyOriginalCardLimits, map[string]decimal.Decimal{})
	if limits == nil {
		limits = map[string]decimal.Decimal{}
	}
	return limits, err
}

// SaveOriginalLimits replaces the original limit table.
func (r *Repository) SaveOriginalLimits(ctx context.Context, limits map[string]decimal.Decimal) error {
	return r.write(ctx, KeyOriginalCardLimits, limits)
}

// Investments returns every reserve keyed by ID.
func (r *Repository) Investments(ctx context.Context) (map[string]model.Investment, error) {
	invs, err := read(ctx, r, KeyInvestments, map[string]model.Investment{})
	if invs == nil {
		invs = map[string]model.Investment{}
	}
	return invs, err
}

// SaveInvestments replaces the investment document.
func (r *Repository) SaveInvestments(ctx context.Context, invs map[string]model.Investment) error {
	return r.write(ctx, KeyInvestments, invs)
}

// YieldHistory returns the daily accrual log.
func (r *Repository) YieldHistory(ctx context.Context) ([]model.YieldRecord, error) {
	return read(ctx, r, KeyYieldHistory, []model.YieldRecord(nil))
}

// YieldWatermark returns the last day the yield catch-up ran, or the zero Date.
func (r *Repository) YieldWatermark(ctx context.Context) (calendar.Date, error) {
	return read(ctx, r, KeyYieldWatermark, calendar.Date{})
}

// DefaultYieldRate returns the stored default annual rate, or fallback.
func (r *Repository) DefaultYieldRate(ctx context.Context, fallback decimal.Decimal) (decimal.Decimal, error) {
	return read(ctx, r, KeyDefaultYieldRate, fallback)
}

// SaveDefaultYieldRate stores the default annual rate.
func (r *Repository) SaveDefaultYieldRate(ctx context.Context, rate decimal.Decimal) error {
	return r.write(ctx, KeyDefaultYieldRate, rate)
}

// PendingTransfer returns the pending month-end transfer, or nil.
func (r *Repository) PendingTransfer(ctx context.Context) (*model.PendingTransfer, error) {
	return read(ctx, r, KeyPendingTransfer, (*model.PendingTransfer)(nil))
}

// TransferHistory returns the log of completed sweeps.
func (r *Repository) TransferHistory(ctx context.Context) ([]model.TransferRecord, error) {
	return read(ctx, r, KeyTransferHistory, []model.TransferRecord(nil))
}

// CoverageRecords returns the log of reserve draws.
func (r *Repository) CoverageRecords(ctx context.Context) ([]model.CoverageRecord, error) {
	return read(ctx, r, KeyCoverageRecords, []model.CoverageRecord(nil))
}

// Settings returns the user settings, or the defaults.
func (r *Repository) Settings(ctx context.Context) (model.Settings, error) {
	return read(ctx, r, KeySettings, model.DefaultSettings())
}

// SaveSettings stores the user settings.
func (r *Repository) SaveSettings(ctx context.Context, settings model.Settings) error {
	return r.write(ctx, KeySettings, settings)
}

// SchemaVersion returns the data schema version, 0 for a fresh or legacy store.
func (r *Repository) SchemaVersion(ctx context.Context) (int, error) {
	return read(ctx, r, KeySchemaVersion, 0)
}

// SaveSchemaVersion records the data schema version.
func (r *Repository) SaveSchemaVersion(ctx context.Context, version int) error {
	return r.write(ctx, KeySchemaVersion, version)
}

// Batch collects writes so they land together.
type Batch struct {
	repo   *Repository
	set    map[string][]byte
	err    error
	remove []string
}

// Batch starts an empty batch.
func (r *Repository) Batch() *Batch {
	return &Batch{repo: r, set: make(map[string][]byte)}
}

// Put encodes v and queues it under key.
func (b *Batch) Put(key string, v any) *Batch {
	if b.err != nil {
		return b
	}
	data, err := json.Marshal(v)
	if err != nil {
		b.err = fmt.Errorf("failed to encode %s: %w", key, err)
		return b
	}
	b.set[key] = data
	b.remove = slices.DeleteFunc(b.remove, func(k string) bool { return k == key })
	return b
}

// Delete queues the removal of key.
func (b *Batch) Delete(key string) *Batch {
	delete(b.set, key)
	b.remove = append(b.remove, key)
	return b
}

// Commit applies the batch. Stores implementing service.BatchStore apply it
// atomically; other stores get the writes one by one.
func (b *Batch) Commit(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	if bs, ok := b.repo.kv.(service.BatchStore); ok {
		return bs.Apply(ctx, b.set, b.remove)
	}
	for key, value := range b.set {
		if err := b.repo.kv.Set(ctx, key, value); err != nil {
			return err
		}
	}
	for _, key := range b.remove {
		if err := b.repo.kv.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
