package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Veraticus/tally/internal/balance"
	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/investment"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/shopspring/decimal"
)

// CoverageResult reports one attempt to cover a negative balance.
type CoverageResult struct {
	Date    calendar.Date
	Deficit decimal.Decimal
	Covered decimal.Decimal
	Draws   []balance.Draw
	Skipped bool
}

// DailyReport summarizes RunDaily.
type DailyReport struct {
	Swept        *model.TransferRecord
	Pending      *model.PendingTransfer
	Coverage     CoverageResult
	Yield        investment.ProcessResult
	Materialized int
}

// CreateInvestment stores a new reserve.
func (l *Ledger) CreateInvestment(ctx context.Context, req investment.CreateRequest) (model.Investment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.invest.Create(ctx, req)
}

// Deposit adds money to a reserve.
func (l *Ledger) Deposit(ctx context.Context, id string, amount decimal.Decimal) (model.Investment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.invest.Deposit(ctx, id, amount)
}

// Withdraw takes money out of a reserve.
func (l *Ledger) Withdraw(ctx context.Context, id string, amount decimal.Decimal) (model.Investment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.invest.Withdraw(ctx, id, amount)
}

// UpdateYieldRate changes a reserve's rate from effective onward.
func (l *Ledger) UpdateYieldRate(ctx context.Context, id string, rate decimal.Decimal, effective calendar.Date) (model.Investment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.invest.UpdateYieldRate(ctx, id, rate, effective)
}

// ToggleCoverage flips whether a reserve may cover negative balances.
func (l *Ledger) ToggleCoverage(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.invest.ToggleCoverage(ctx, id)
}

// DeleteInvestment removes a reserve and its accrual log.
func (l *Ledger) DeleteInvestment(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.invest.Delete(ctx, id)
}

// Investments returns every reserve ordered by name.
func (l *Ledger) Investments(ctx context.Context) ([]model.Investment, error) {
	return l.invest.List(ctx)
}

// Investment returns one reserve.
func (l *Ledger) Investment(ctx context.Context, id string) (model.Investment, error) {
	return l.invest.Get(ctx, id)
}

// YieldHistory returns the accrual log of one reserve.
func (l *Ledger) YieldHistory(ctx context.Context, id string) ([]model.YieldRecord, error) {
	return l.invest.History(ctx, id)
}

// DefaultYieldRate returns the rate given to new reserves.
func (l *Ledger) DefaultYieldRate(ctx context.Context) (decimal.Decimal, error) {
	return l.invest.DefaultYieldRate(ctx)
}

// SetDefaultYieldRate changes the rate given to new reserves.
func (l *Ledger) SetDefaultYieldRate(ctx context.Context, rate decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.invest.SetDefaultYieldRate(ctx, rate)
}

// PendingTransfer returns the surplus waiting to be swept, or nil.
func (l *Ledger) PendingTransfer(ctx context.Context) (*model.PendingTransfer, error) {
	return l.repo.PendingTransfer(ctx)
}

// TransferHistory returns the completed sweeps.
func (l *Ledger) TransferHistory(ctx context.Context) ([]model.TransferRecord, error) {
	return l.repo.TransferHistory(ctx)
}

// CoverageRecords returns the reserve draws made to cover deficits.
func (l *Ledger) CoverageRecords(ctx context.Context) ([]model.CoverageRecord, error) {
	return l.repo.CoverageRecords(ctx)
}

// CoverNegativeBalance draws from coverage reserves when the balance of
// everything due today or earlier is negative. It runs at most once a day.
func (l *Ledger) CoverNegativeBalance(ctx context.Context) (CoverageResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.coverNegativeBalance(ctx)
}

func (l *Ledger) coverNegativeBalance(ctx context.Context) (CoverageResult, error) {
	today := l.Today()
	result := CoverageResult{Date: today, Deficit: decimal.Zero, Covered: decimal.Zero}

	err := l.mutate(ctx, "cover negative balance", func(st *state) error {
		for _, rec := range st.coverage {
			if rec.Date == today {
				result.Skipped = true
				return nil
			}
		}

		current := balance.Project(st.list(), st.cards, today).Current
		if !current.IsNegative() {
			return nil
		}
		result.Deficit = current.Neg()
		result.Draws = balance.PlanCoverage(result.Deficit, st.investments())

		for _, draw := range result.Draws {
			inv := st.invs[draw.InvestmentID]
			taken := investment.Draw(&inv, draw.Amount)
			st.invs[inv.ID] = inv

			tx := model.Transaction{
				ID:          l.config.NewID(),
				Date:        today,
				Amount:      taken,
				Type:        model.TypeIncome,
				Kind:        model.KindPlain,
				Origin:      model.OriginCoverage,
				Category:    CategoryCoverage,
				Description: "Coverage from " + inv.Name,
			}
			st.put(tx)
			st.coverage = append(st.coverage, model.CoverageRecord{
				Date:          today,
				Amount:        taken,
				InvestmentID:  inv.ID,
				TransactionID: tx.ID,
			})
			result.Covered = result.Covered.Add(taken)
		}
		if len(result.Draws) > 0 {
			st.touch(storage.KeyInvestments, storage.KeyCoverageRecords)
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	if result.Deficit.IsPositive() {
		slog.Info("Covered negative balance",
			"deficit", result.Deficit.StringFixed(2),
			"covered", result.Covered.StringFixed(2),
			"reserves", len(result.Draws))
	}
	return result, nil
}

// EvaluateMonthEnd records a pending transfer when month is over, closed
// with a positive balance and some reserve can receive it. A transfer still
// pending is kept as is, and a month already swept is not evaluated again.
func (l *Ledger) EvaluateMonthEnd(ctx context.Context, month calendar.Month) (*model.PendingTransfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.evaluateMonthEnd(ctx, month)
}

func (l *Ledger) evaluateMonthEnd(ctx context.Context, month calendar.Month) (*model.PendingTransfer, error) {
	if !month.Before(l.Today().Month()) {
		return nil, nil
	}

	var pending *model.PendingTransfer
	err := l.mutate(ctx, "evaluate month end", func(st *state) error {
		if st.pending != nil && st.pending.Status == model.TransferPending {
			pending = st.pending
			return nil
		}
		for _, rec := range st.transfers {
			if rec.Month == month {
				return nil
			}
		}
		if sweepTarget(st) == nil {
			return nil
		}

		summary := balance.MonthSummary(st.list(), st.cards, month)
		if !summary.Balance.IsPositive() {
			return nil
		}

		st.pending = &model.PendingTransfer{
			Month:  month,
			Amount: summary.Balance,
			Status: model.TransferPending,
		}
		st.touch(storage.KeyPendingTransfer)
		pending = st.pending
		slog.Info("Month closed with surplus", "month", month, "amount", summary.Balance.StringFixed(2))
		return nil
	})
	return pending, err
}

// sweepPending moves a pending surplus into the first coverage reserve once
// a real income lands in a later month, on or before today. It runs inside
// every mutation that can add income and in the daily run.
func (l *Ledger) sweepPending(st *state) *model.TransferRecord {
	p := st.pending
	if p == nil || p.Status != model.TransferPending {
		return nil
	}

	today := l.Today()
	var trigger *model.Transaction
	for _, tx := range st.list() {
		if tx.Type == model.TypeIncome && !isSynthetic(tx) &&
			tx.Date.Month().After(p.Month) && !tx.Date.After(today) {
			trigger = &tx
			break
		}
	}
	if trigger == nil {
		return nil
	}

	target := sweepTarget(st)
	if target == nil {
		slog.Warn("No reserve can receive the pending transfer", "month", p.Month)
		return nil
	}

	inv := *target
	investment.Credit(&inv, p.Amount, trigger.Date)
	st.invs[inv.ID] = inv

	tx := model.Transaction{
		ID:          l.config.NewID(),
		Date:        trigger.Date,
		Amount:      p.Amount.Neg(),
		Type:        model.TypeExpense,
		Kind:        model.KindPlain,
		Origin:      model.OriginSweep,
		Category:    CategorySweep,
		Description: fmt.Sprintf("Surplus of %s to %s", p.Month, inv.Name),
	}
	st.put(tx)

	record := model.TransferRecord{
		TransferredAt: trigger.Date.Time(),
		Month:         p.Month,
		Date:          trigger.Date,
		Amount:        p.Amount,
		InvestmentID:  inv.ID,
		TransactionID: tx.ID,
	}
	st.transfers = append(st.transfers, record)
	st.pending = nil
	st.touch(storage.KeyInvestments, storage.KeyTransferHistory, storage.KeyPendingTransfer)

	slog.Info("Swept month surplus",
		"month", record.Month,
		"amount", record.Amount.StringFixed(2),
		"investment", inv.ID)
	return &record
}

func isSynthetic(tx model.Transaction) bool {
	switch tx.Origin {
	case model.OriginAutoPay, model.OriginCoverage, model.OriginSweep:
		return true
	default:
		return false
	}
}

// sweepTarget returns the first reserve, by name, allowed to cover deficits.
func sweepTarget(st *state) *model.Investment {
	for _, inv := range st.investments() {
		if inv.CanCoverNegativeBalance {
			return &inv
		}
	}
	return nil
}

func (st *state) investments() []model.Investment {
	list := make([]model.Investment, 0, len(st.invs))
	for _, inv := range st.invs {
		list = append(list, inv)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// RunDaily catches up reserve yield, materializes recurrences through the
// end of the month, sweeps a pending surplus, covers a negative balance and
// evaluates the month that just ended.
func (l *Ledger) RunDaily(ctx context.Context) (DailyReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var report DailyReport
	today := l.Today()

	yield, err := l.invest.ProcessDaily(ctx)
	if err != nil {
		return report, err
	}
	report.Yield = yield

	err = l.mutate(ctx, "daily", func(st *state) error {
		n, err := l.materialize(st, today.Month().Last())
		if err != nil {
			return err
		}
		report.Materialized = n
		report.Swept = l.sweepPending(st)
		return nil
	})
	if err != nil {
		return report, err
	}

	if report.Coverage, err = l.coverNegativeBalance(ctx); err != nil {
		return report, err
	}
	if report.Pending, err = l.evaluateMonthEnd(ctx, today.Month().Prev()); err != nil {
		return report, err
	}
	return report, nil
}
