package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BackupVersion is the format version written by exports.
const BackupVersion = 2

// Backup is the JSON document produced by export and consumed by import.
type Backup struct {
	ExportedAt         time.Time                  `json:"exportedAt"`
	Transactions       map[string]Transaction     `json:"transactions"`
	Investments        map[string]Investment      `json:"investments"`
	OriginalCardLimits map[string]decimal.Decimal `json:"originalCardLimits,omitempty"`
	DefaultYieldRate   *decimal.Decimal           `json:"defaultYieldRate,omitempty"`
	Settings           *Settings                  `json:"settings,omitempty"`
	CreditCards        []CreditCard               `json:"creditCards"`
	YieldHistory       []YieldRecord              `json:"yieldHistory"`
	Version            int                        `json:"version"`
}
