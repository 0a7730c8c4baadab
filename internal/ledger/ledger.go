// Package ledger is the mutation layer of the personal finance ledger. It
// loads documents from storage, applies one operation, runs the recompute
// pipeline and writes back every document that changed in a single batch.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/investment"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/shopspring/decimal"
)

// Category names given to entries the ledger creates on its own.
const (
	CategoryCoverage = "Reserve coverage"
	CategorySweep    = "Reserve transfer"
)

// Config holds the collaborators of a Ledger.
type Config struct {
	Clock      calendar.Clock
	NewID      model.IDGenerator
	Investment investment.Config
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Clock:      calendar.SystemClock,
		NewID:      model.NewID,
		Investment: investment.DefaultConfig(),
	}
}

// Ledger serializes every operation behind one mutex so read-modify-write
// cycles on the stored documents never interleave.
type Ledger struct {
	repo     *storage.Repository
	invest   *investment.Engine
	pipeline Pipeline
	config   Config
	mu       sync.Mutex
}

// New creates a ledger with the default configuration.
func New(repo *storage.Repository) *Ledger {
	return NewWithConfig(repo, DefaultConfig())
}

// NewWithConfig creates a ledger with custom configuration. The investment
// engine shares the ledger's clock and ID generator.
func NewWithConfig(repo *storage.Repository, config Config) *Ledger {
	defaults := DefaultConfig()
	if config.Clock == nil {
		config.Clock = defaults.Clock
	}
	if config.NewID == nil {
		config.NewID = defaults.NewID
	}
	config.Investment.Clock = config.Clock
	config.Investment.NewID = config.NewID

	l := &Ledger{
		repo:   repo,
		config: config,
		invest: investment.NewWithConfig(repo, config.Investment),
	}
	l.pipeline = DefaultPipeline(config.NewID)
	return l
}

// Repository returns the storage the ledger writes to.
func (l *Ledger) Repository() *storage.Repository { return l.repo }

// Today returns the ledger's current day.
func (l *Ledger) Today() calendar.Date { return l.config.Clock() }

// state is the working copy of the stored documents for one operation.
type state struct {
	txs       map[string]model.Transaction
	limits    map[string]decimal.Decimal
	invs      map[string]model.Investment
	pending   *model.PendingTransfer
	dirty     map[string]bool
	cards     []model.CreditCard
	transfers []model.TransferRecord
	coverage  []model.CoverageRecord
	version   int
}

func (l *Ledger) load(ctx context.Context) (*state, error) {
	st := &state{dirty: map[string]bool{}}
	var err error

	if st.txs, err = l.repo.Transactions(ctx); err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	if st.cards, err = l.repo.Cards(ctx); err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}
	if st.limits, err = l.repo.OriginalLimits(ctx); err != nil {
		return nil, fmt.Errorf("failed to load original limits: %w", err)
	}
	if st.invs, err = l.repo.Investments(ctx); err != nil {
		return nil, fmt.Errorf("failed to load investments: %w", err)
	}
	if st.pending, err = l.repo.PendingTransfer(ctx); err != nil {
		return nil, fmt.Errorf("failed to load pending transfer: %w", err)
	}
	if st.transfers, err = l.repo.TransferHistory(ctx); err != nil {
		return nil, fmt.Errorf("failed to load transfer history: %w", err)
	}
	if st.coverage, err = l.repo.CoverageRecords(ctx); err != nil {
		return nil, fmt.Errorf("failed to load coverage records: %w", err)
	}
	return st, nil
}

func (l *Ledger) save(ctx context.Context, st *state) error {
	if len(st.dirty) == 0 {
		return nil
	}
	if err := st.stage(l.repo.Batch()).Commit(ctx); err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}
	return nil
}

// stage adds every dirty document to batch.
func (st *state) stage(batch *storage.Batch) *storage.Batch {
	for key := range st.dirty {
		switch key {
		case storage.KeyTransactions:
			batch.Put(key, st.txs)
		case storage.KeyCreditCards:
			cards := st.cards
			if cards == nil {
				cards = []model.CreditCard{}
			}
			batch.Put(key, cards)
		case storage.KeyOriginalCardLimits:
			batch.Put(key, st.limits)
		case storage.KeyInvestments:
			batch.Put(key, st.invs)
		case storage.KeyPendingTransfer:
			if st.pending == nil {
				batch.Delete(key)
			} else {
				batch.Put(key, st.pending)
			}
		case storage.KeyTransferHistory:
			batch.Put(key, st.transfers)
		case storage.KeyCoverageRecords:
			batch.Put(key, st.coverage)
		case storage.KeySchemaVersion:
			batch.Put(key, st.version)
		}
	}
	return batch
}

func (st *state) touch(keys ...string) {
	for _, k := range keys {
		st.dirty[k] = true
	}
}

// list returns the transactions ordered by date, then ID.
func (st *state) list() []model.Transaction {
	txs := make([]model.Transaction, 0, len(st.txs))
	for _, tx := range st.txs {
		txs = append(txs, tx)
	}
	sortTransactions(txs)
	return txs
}

func (st *state) card(id string) (*model.CreditCard, error) {
	card := model.FindCard(st.cards, id)
	if card == nil {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	return card, nil
}

func (st *state) put(txs ...model.Transaction) {
	for _, tx := range txs {
		st.txs[tx.ID] = tx
	}
	st.touch(storage.KeyTransactions)
}

// mutate runs one operation against fresh state, then the recompute
// pipeline, then persists. Nothing is written when fn fails.
func (l *Ledger) mutate(ctx context.Context, op string, fn func(*state) error) error {
	st, err := l.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	if err := l.pipeline.Run(st); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := l.save(ctx, st); err != nil {
		return err
	}
	slog.Debug("Ledger updated", "operation", op, "documents", len(st.dirty))
	return nil
}

func sortTransactions(txs []model.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if c := txs[i].Date.Compare(txs[j].Date); c != 0 {
			return c < 0
		}
		return txs[i].ID < txs[j].ID
	})
}

// Settings returns the user preferences.
func (l *Ledger) Settings(ctx context.Context) (model.Settings, error) {
	return l.repo.Settings(ctx)
}

// UpdateSettings replaces the user preferences.
func (l *Ledger) UpdateSettings(ctx context.Context, settings model.Settings) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.repo.SaveSettings(ctx, settings)
}
