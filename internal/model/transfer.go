package model

import (
	"time"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/shopspring/decimal"
)

// TransferStatus is the state of a month-end surplus transfer.
type TransferStatus string

// Transfer statuses.
const (
	TransferPending     TransferStatus = "pending"
	TransferTransferred TransferStatus = "transferred"
)

// PendingTransfer is a positive month-end balance waiting to be swept into a
// reserve on the next month's first income.
type PendingTransfer struct {
	Month  calendar.Month  `json:"month"`
	Amount decimal.Decimal `json:"amount"`
	Status TransferStatus  `json:"status"`
}

// TransferRecord logs a completed sweep.
type TransferRecord struct {
	TransferredAt time.Time       `json:"transferredAt"`
	Month         calendar.Month  `json:"month"`
	Date          calendar.Date   `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	InvestmentID  string          `json:"investmentId"`
	TransactionID string          `json:"transactionId"`
}

// CoverageRecord logs a reserve draw that covered a deficit. At most one
// record exists per (Date, InvestmentID).
type CoverageRecord struct {
	Date          calendar.Date   `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	InvestmentID  string          `json:"investmentId"`
	TransactionID string          `json:"transactionId"`
}
