package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/investment"
	"github.com/Veraticus/tally/internal/ledger"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// app bundles what a command needs to talk to the ledger.
type app struct {
	store    *storage.SQLiteStorage
	ledger   *ledger.Ledger
	config   config.Config
	currency string
}

// initStorage opens the configured database and applies schema migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, config.Config, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, config.Config{}, err
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, config.Config{}, err
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, config.Config{}, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, cfg, nil
}

// openApp opens storage and builds the ledger. With startup set it also runs
// data migrations and the daily catch-up, the way every session begins.
func openApp(ctx context.Context, startup bool) (*app, error) {
	store, cfg, err := initStorage(ctx)
	if err != nil {
		return nil, err
	}

	l := ledger.NewWithConfig(storage.NewRepository(store), ledger.Config{
		Investment: investment.Config{
			TaxRate:          cfg.TaxRate,
			DefaultYieldRate: cfg.DefaultYieldRate,
		},
	})

	a := &app{store: store, ledger: l, config: cfg}
	if err := a.seedSettings(ctx); err != nil {
		store.Close()
		return nil, err
	}

	if startup {
		if _, err := l.Startup(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to start ledger: %w", err)
		}
	}

	return a, nil
}

// seedSettings writes the configured currency the first time the ledger is used.
func (a *app) seedSettings(ctx context.Context) error {
	_, ok, err := a.ledger.Repository().Raw(ctx, storage.KeySettings)
	if err != nil {
		return err
	}
	if !ok {
		settings := model.DefaultSettings()
		settings.Currency = a.config.Currency
		if err := a.ledger.UpdateSettings(ctx, settings); err != nil {
			return err
		}
	}

	settings, err := a.ledger.Settings(ctx)
	if err != nil {
		return err
	}
	a.currency = settings.Currency
	return nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) money(d decimal.Decimal) string {
	return cli.FormatMoney(d, a.currency)
}

func (a *app) signed(d decimal.Decimal) string {
	return cli.FormatSigned(d, a.currency)
}

// resolveCard accepts a card ID or a case-insensitive card name.
func (a *app) resolveCard(ctx context.Context, ref string) (model.CreditCard, error) {
	if ref == "" {
		return model.CreditCard{}, common.Validationf("card is required")
	}
	cards, err := a.ledger.Cards(ctx)
	if err != nil {
		return model.CreditCard{}, err
	}
	for _, c := range cards {
		if c.ID == ref {
			return c, nil
		}
	}
	for _, c := range cards {
		if strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return model.CreditCard{}, fmt.Errorf("%w: %s", ledger.ErrCardNotFound, ref)
}

// resolveInvestment accepts a reserve ID or a case-insensitive name.
func (a *app) resolveInvestment(ctx context.Context, ref string) (model.Investment, error) {
	invs, err := a.ledger.Investments(ctx)
	if err != nil {
		return model.Investment{}, err
	}
	for _, inv := range invs {
		if inv.ID == ref {
			return inv, nil
		}
	}
	for _, inv := range invs {
		if strings.EqualFold(inv.Name, ref) {
			return inv, nil
		}
	}
	return model.Investment{}, fmt.Errorf("%w: %s", investment.ErrNotFound, ref)
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, common.Validationf("invalid amount %q", s)
	}
	return d, nil
}

// parseDate parses YYYY-MM-DD; an empty string is today.
func parseDate(s string, today calendar.Date) (calendar.Date, error) {
	if strings.TrimSpace(s) == "" {
		return today, nil
	}
	d, err := calendar.ParseDate(s)
	if err != nil {
		return calendar.Date{}, common.Validationf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return d, nil
}

// parseMonth parses YYYY-MM; an empty string is the zero month.
func parseMonth(s string) (calendar.Month, error) {
	if strings.TrimSpace(s) == "" {
		return calendar.Month{}, nil
	}
	m, err := calendar.ParseMonth(s)
	if err != nil {
		return calendar.Month{}, common.Validationf("invalid month %q (want YYYY-MM)", s)
	}
	return m, nil
}

func describe(tx model.Transaction) string {
	if tx.Description != "" {
		return tx.Description
	}
	return tx.Category
}
