package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tally/internal/billing"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/storage"
)

// DataVersion is the schema version of the stored documents once every data
// migration has run.
const DataVersion = 2

type dataMigration struct {
	apply       func(*state) error
	description string
	version     int
}

var dataMigrations = []dataMigration{
	{
		version:     1,
		description: "Backfill original card limits",
		apply: func(st *state) error {
			txs := st.list()
			for _, card := range st.cards {
				if _, ok := st.limits[card.ID]; ok {
					continue
				}
				st.limits[card.ID] = billing.LegacyOriginalLimit(card, txs)
				st.touch(storage.KeyOriginalCardLimits)
			}
			return nil
		},
	},
	{
		version:     2,
		description: "Clamp card closing and due days",
		apply: func(st *state) error {
			for i := range st.cards {
				card := &st.cards[i]
				closing := billing.ClampClosingDay(card.ClosingDay)
				due := billing.ClampDueDay(card.DueDay)
				if closing != card.ClosingDay || due != card.DueDay {
					card.ClosingDay, card.DueDay = closing, due
					st.touch(storage.KeyCreditCards)
				}
			}
			return nil
		},
	},
}

// MigrationReport lists the data migrations applied and the ones that failed.
type MigrationReport struct {
	Applied []string
	Failed  []string
	From    int
	To      int
}

// RunMigrations brings the stored documents up to DataVersion. A failing
// migration is logged and skipped; the next start tries it again.
func (l *Ledger) RunMigrations(ctx context.Context) (MigrationReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runMigrations(ctx)
}

func (l *Ledger) runMigrations(ctx context.Context) (MigrationReport, error) {
	current, err := l.repo.SchemaVersion(ctx)
	if err != nil {
		return MigrationReport{}, fmt.Errorf("failed to read schema version: %w", err)
	}
	report := MigrationReport{From: current, To: current}

	for _, m := range dataMigrations {
		if m.version <= current {
			continue
		}
		if err := l.applyMigration(ctx, m); err != nil {
			slog.Warn("Data migration failed",
				"version", m.version,
				"description", m.description,
				"error", err)
			report.Failed = append(report.Failed, m.description)
			break
		}
		current = m.version
		report.To = current
		report.Applied = append(report.Applied, m.description)
		slog.Info("Applied data migration", "version", m.version, "description", m.description)
	}
	return report, nil
}

func (l *Ledger) applyMigration(ctx context.Context, m dataMigration) error {
	st, err := l.load(ctx)
	if err != nil {
		return err
	}
	if err := m.apply(st); err != nil {
		return err
	}
	st.version = m.version
	st.touch(storage.KeySchemaVersion)
	return l.save(ctx, st)
}

// RepairReport lists the recompute steps that changed something.
type RepairReport struct {
	Migrations MigrationReport
	Changed    []string
}

// Repair runs pending data migrations and then every recompute step, even
// when nothing was mutated. Running it twice leaves the data unchanged.
func (l *Ledger) Repair(ctx context.Context) (RepairReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var report RepairReport
	var err error
	if report.Migrations, err = l.runMigrations(ctx); err != nil {
		return report, err
	}

	st, err := l.load(ctx)
	if err != nil {
		return report, err
	}
	if report.Changed, err = l.pipeline.run(st); err != nil {
		return report, fmt.Errorf("repair: %w", err)
	}
	if err := l.save(ctx, st); err != nil {
		return report, err
	}

	fields := common.Fields{"schema_version": report.Migrations.To}
	if len(report.Migrations.Applied) > 0 {
		fields["migrations"] = report.Migrations.Applied
	}
	if len(report.Changed) > 0 {
		fields["recomputed"] = report.Changed
	}
	common.LogInfo("Repaired ledger", fields)
	return report, nil
}

// Startup runs the data migrations and the daily work. Call it once when
// the application opens the store.
func (l *Ledger) Startup(ctx context.Context) (DailyReport, error) {
	if _, err := l.RunMigrations(ctx); err != nil {
		return DailyReport{}, err
	}
	return l.RunDaily(ctx)
}
