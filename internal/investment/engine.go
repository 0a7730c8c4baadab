package investment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/shopspring/decimal"
)

// Business-rule failures.
var (
	ErrInsufficientFunds = fmt.Errorf("%w: insufficient funds", common.ErrBusinessRule)
	ErrNotFound          = fmt.Errorf("%w: investment", common.ErrNotFound)
)

// Config holds the accrual parameters.
type Config struct {
	Clock            calendar.Clock
	NewID            model.IDGenerator
	TaxRate          decimal.Decimal
	DefaultYieldRate decimal.Decimal
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Clock:            calendar.SystemClock,
		NewID:            model.NewID,
		TaxRate:          decimal.NewFromInt(20),
		DefaultYieldRate: decimal.RequireFromString("10.65"),
	}
}

// Engine owns the reserves and their accrual log. Its watermark records the
// last day the catch-up ran so it runs at most once per day.
type Engine struct {
	repo   *storage.Repository
	config Config
}

// ProcessResult summarizes one catch-up run.
type ProcessResult struct {
	Date        calendar.Date
	Net         decimal.Decimal
	Records     int
	Investments int
	Skipped     bool
}

// CreateRequest describes a new reserve. A nil Rate uses the stored default
// and a zero StartDate means today.
type CreateRequest struct {
	StartDate calendar.Date
	Amount    decimal.Decimal
	Rate      *decimal.Decimal
	Name      string
	Type      string
	CanCover  bool
}

// New creates an engine with the default configuration.
func New(repo *storage.Repository) *Engine {
	return NewWithConfig(repo, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(repo *storage.Repository, config Config) *Engine {
	defaults := DefaultConfig()
	if config.Clock == nil {
		config.Clock = defaults.Clock
	}
	if config.NewID == nil {
		config.NewID = defaults.NewID
	}
	return &Engine{repo: repo, config: config}
}

// TaxRate returns the withholding percentage applied to gross yield.
func (e *Engine) TaxRate() decimal.Decimal { return e.config.TaxRate }

// Watermark returns the last day ProcessDaily ran.
func (e *Engine) Watermark(ctx context.Context) (calendar.Date, error) {
	return e.repo.YieldWatermark(ctx)
}

// ProcessDaily accrues every active reserve through yesterday. It is a no-op
// when it already ran today, and a run interrupted midway is completed by the
// next one because days already in the log are never recomputed.
func (e *Engine) ProcessDaily(ctx context.Context) (ProcessResult, error) {
	today := e.config.Clock()
	result := ProcessResult{Date: today, Net: decimal.Zero}

	watermark, err := e.repo.YieldWatermark(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to read yield watermark: %w", err)
	}
	if !watermark.IsZero() && !watermark.Before(today) {
		slog.Debug("Yield already processed today", "date", today)
		result.Skipped = true
		return result, nil
	}

	invs, err := e.repo.Investments(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load investments: %w", err)
	}
	history, err := e.repo.YieldHistory(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load yield history: %w", err)
	}

	byInvestment := make(map[string][]model.YieldRecord)
	for _, rec := range history {
		byInvestment[rec.InvestmentID] = append(byInvestment[rec.InvestmentID], rec)
	}

	yesterday := today.AddDays(-1)
	for _, id := range sortedIDs(invs) {
		inv := invs[id]
		records, balance := Accrue(&inv, byInvestment[id], yesterday, e.config.TaxRate)
		if len(records) == 0 {
			continue
		}

		for _, rec := range records {
			result.Net = result.Net.Add(rec.NetAmount)
		}
		inv.CurrentAmount = balance
		inv.LastYieldDate = records[len(records)-1].Date
		invs[id] = inv
		history = append(history, records...)
		result.Records += len(records)
		result.Investments++

		slog.Debug("Accrued yield",
			"investment", id,
			"days", len(records),
			"balance", balance.StringFixed(2))
	}

	batch := e.repo.Batch().Put(storage.KeyYieldWatermark, today)
	if result.Records > 0 {
		batch.Put(storage.KeyInvestments, invs).Put(storage.KeyYieldHistory, history)
	}
	if err := batch.Commit(ctx); err != nil {
		return result, fmt.Errorf("failed to save yield: %w", err)
	}

	slog.Info("Processed yield",
		"date", today,
		"investments", result.Investments,
		"records", result.Records,
		"net", result.Net.StringFixed(2))
	return result, nil
}

// Create stores a new active reserve.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (model.Investment, error) {
	rate := decimal.Zero
	if req.Rate != nil {
		rate = *req.Rate
	} else {
		def, err := e.DefaultYieldRate(ctx)
		if err != nil {
			return model.Investment{}, err
		}
		rate = def
	}

	start := req.StartDate
	if start.IsZero() {
		start = e.config.Clock()
	}

	inv := model.Investment{
		ID:                      e.config.NewID(),
		Name:                    strings.TrimSpace(req.Name),
		Type:                    req.Type,
		InitialAmount:           req.Amount,
		CurrentAmount:           req.Amount,
		YieldRate:               rate,
		StartDate:               start,
		IsActive:                true,
		CanCoverNegativeBalance: req.CanCover,
	}
	if err := inv.Validate(); err != nil {
		return model.Investment{}, err
	}

	invs, err := e.repo.Investments(ctx)
	if err != nil {
		return model.Investment{}, err
	}
	invs[inv.ID] = inv
	if err := e.repo.SaveInvestments(ctx, invs); err != nil {
		return model.Investment{}, fmt.Errorf("failed to save investment: %w", err)
	}

	slog.Info("Created investment", "id", inv.ID, "name", inv.Name, "rate", rate.String())
	return inv, nil
}

// Deposit adds money to a reserve.
func (e *Engine) Deposit(ctx context.Context, id string, amount decimal.Decimal) (model.Investment, error) {
	if !amount.IsPositive() {
		return model.Investment{}, common.Validationf("deposit must be positive, got %s", amount)
	}
	return e.update(ctx, id, func(inv *model.Investment) error {
		Credit(inv, amount, e.config.Clock())
		return nil
	})
}

// Withdraw takes money out of a reserve. Taking everything deactivates it.
func (e *Engine) Withdraw(ctx context.Context, id string, amount decimal.Decimal) (model.Investment, error) {
	if !amount.IsPositive() {
		return model.Investment{}, common.Validationf("withdrawal must be positive, got %s", amount)
	}
	return e.update(ctx, id, func(inv *model.Investment) error {
		if amount.GreaterThan(inv.CurrentAmount) {
			return fmt.Errorf("%w: %s requested, %s available", ErrInsufficientFunds,
				amount.StringFixed(2), inv.CurrentAmount.StringFixed(2))
		}
		Draw(inv, amount)
		return nil
	})
}

// UpdateYieldRate changes the annual rate from effective onward (today when
// zero). Yield already recorded keeps the rate it was computed with.
func (e *Engine) UpdateYieldRate(ctx context.Context, id string, rate decimal.Decimal, effective calendar.Date) (model.Investment, error) {
	if rate.IsNegative() {
		return model.Investment{}, common.Validationf("yield rate must not be negative, got %s", rate)
	}
	if effective.IsZero() {
		effective = e.config.Clock()
	}
	return e.update(ctx, id, func(inv *model.Investment) error {
		replaced := false
		for i := range inv.YieldRateHistory {
			if inv.YieldRateHistory[i].Date == effective {
				inv.YieldRateHistory[i].NewRate = rate
				replaced = true
			}
		}
		if !replaced {
			inv.YieldRateHistory = append(inv.YieldRateHistory, model.RateChange{
				Date:         effective,
				PreviousRate: RateOn(inv, effective.AddDays(-1)),
				NewRate:      rate,
			})
		}
		inv.YieldRateHistory = sortedChanges(inv.YieldRateHistory)
		inv.YieldRate = inv.YieldRateHistory[len(inv.YieldRateHistory)-1].NewRate
		return nil
	})
}

// ToggleCoverage flips whether the reserve may cover negative balances and
// returns the new setting.
func (e *Engine) ToggleCoverage(ctx context.Context, id string) (bool, error) {
	inv, err := e.update(ctx, id, func(inv *model.Investment) error {
		inv.CanCoverNegativeBalance = !inv.CanCoverNegativeBalance
		return nil
	})
	return inv.CanCoverNegativeBalance, err
}

// Delete removes a reserve together with its accrual log.
func (e *Engine) Delete(ctx context.Context, id string) error {
	invs, err := e.repo.Investments(ctx)
	if err != nil {
		return err
	}
	if _, ok := invs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(invs, id)

	history, err := e.repo.YieldHistory(ctx)
	if err != nil {
		return err
	}
	kept := history[:0]
	for _, rec := range history {
		if rec.InvestmentID != id {
			kept = append(kept, rec)
		}
	}

	if err := e.repo.Batch().
		Put(storage.KeyInvestments, invs).
		Put(storage.KeyYieldHistory, kept).
		Commit(ctx); err != nil {
		return fmt.Errorf("failed to delete investment: %w", err)
	}
	slog.Info("Deleted investment", "id", id)
	return nil
}

// Get returns one reserve.
func (e *Engine) Get(ctx context.Context, id string) (model.Investment, error) {
	invs, err := e.repo.Investments(ctx)
	if err != nil {
		return model.Investment{}, err
	}
	inv, ok := invs[id]
	if !ok {
		return model.Investment{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return inv, nil
}

// List returns every reserve ordered by name.
func (e *Engine) List(ctx context.Context) ([]model.Investment, error) {
	invs, err := e.repo.Investments(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]model.Investment, 0, len(invs))
	for _, inv := range invs {
		list = append(list, inv)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

// History returns the accrual log of one reserve, oldest first.
func (e *Engine) History(ctx context.Context, id string) ([]model.YieldRecord, error) {
	history, err := e.repo.YieldHistory(ctx)
	if err != nil {
		return nil, err
	}
	var records []model.YieldRecord
	for _, rec := range history {
		if rec.InvestmentID == id {
			records = append(records, rec)
		}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records, nil
}

// DefaultYieldRate returns the rate given to new reserves.
func (e *Engine) DefaultYieldRate(ctx context.Context) (decimal.Decimal, error) {
	return e.repo.DefaultYieldRate(ctx, e.config.DefaultYieldRate)
}

// SetDefaultYieldRate changes the rate given to new reserves.
func (e *Engine) SetDefaultYieldRate(ctx context.Context, rate decimal.Decimal) error {
	if rate.IsNegative() {
		return common.Validationf("yield rate must not be negative, got %s", rate)
	}
	return e.repo.SaveDefaultYieldRate(ctx, rate)
}

func (e *Engine) update(ctx context.Context, id string, mutate func(*model.Investment) error) (model.Investment, error) {
	invs, err := e.repo.Investments(ctx)
	if err != nil {
		return model.Investment{}, err
	}
	inv, ok := invs[id]
	if !ok {
		return model.Investment{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := mutate(&inv); err != nil {
		return inv, err
	}
	invs[id] = inv
	if err := e.repo.SaveInvestments(ctx, invs); err != nil {
		return inv, fmt.Errorf("failed to save investment: %w", err)
	}
	return inv, nil
}

func sortedIDs(invs map[string]model.Investment) []string {
	ids := make([]string, 0, len(invs))
	for id := range invs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
