package config

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Viper keys.
const (
	KeyDatabasePath     = "database.path"
	KeyLogLevel         = "logging.level"
	KeyLogFormat        = "logging.format"
	KeyCurrency         = "ledger.currency"
	KeyDefaultYieldRate = "investments.default_yield_rate"
	KeyTaxRate          = "investments.tax_rate"
)

// DefaultDatabasePath is where the ledger lives unless configured otherwise.
const DefaultDatabasePath = "$HOME/.local/share/tally/tally.db"

// Config is the resolved runtime configuration.
type Config struct {
	DefaultYieldRate decimal.Decimal
	TaxRate          decimal.Decimal
	DatabasePath     string
	LogLevel         string
	LogFormat        string
	Currency         string
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		DatabasePath:     DefaultDatabasePath,
		LogLevel:         "info",
		LogFormat:        "console",
		Currency:         "BRL",
		DefaultYieldRate: decimal.RequireFromString("10.65"),
		TaxRate:          decimal.NewFromInt(20),
	}
}

// SetDefaults registers the defaults with v so unset keys resolve.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault(KeyDatabasePath, d.DatabasePath)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFormat, d.LogFormat)
	v.SetDefault(KeyCurrency, d.Currency)
	v.SetDefault(KeyDefaultYieldRate, d.DefaultYieldRate.String())
	v.SetDefault(KeyTaxRate, d.TaxRate.String())
}

// FromViper reads the configuration out of v. Paths are expanded and rates
// checked; a malformed value is an ErrInvalidConfig.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Defaults()

	if s := strings.TrimSpace(v.GetString(KeyDatabasePath)); s != "" {
		cfg.DatabasePath = s
	}
	cfg.DatabasePath = ExpandPath(cfg.DatabasePath)

	if s := v.GetString(KeyLogLevel); s != "" {
		cfg.LogLevel = s
	}
	if _, err := common.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}

	if s := v.GetString(KeyLogFormat); s != "" {
		cfg.LogFormat = s
	}
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("%w: unknown log format %q", common.ErrInvalidConfig, cfg.LogFormat)
	}

	if s := strings.TrimSpace(v.GetString(KeyCurrency)); s != "" {
		cfg.Currency = strings.ToUpper(s)
	}

	var err error
	if cfg.DefaultYieldRate, err = rate(v, KeyDefaultYieldRate, cfg.DefaultYieldRate); err != nil {
		return Config{}, err
	}
	if cfg.TaxRate, err = rate(v, KeyTaxRate, cfg.TaxRate); err != nil {
		return Config{}, err
	}
	if cfg.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
		return Config{}, fmt.Errorf("%w: %s must not exceed 100", common.ErrInvalidConfig, KeyTaxRate)
	}

	return cfg, nil
}

func rate(v *viper.Viper, key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, key, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s must not be negative", common.ErrInvalidConfig, key)
	}
	return d, nil
}
