package model

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/shopspring/decimal"
)

// RateChange is one entry of an investment's yield rate history. Changes
// apply from Date onward and never rewrite earlier yield.
type RateChange struct {
	Date         calendar.Date   `json:"date"`
	PreviousRate decimal.Decimal `json:"previousRate"`
	NewRate      decimal.Decimal `json:"newRate"`
}

// Investment is an interest-bearing cash reserve.
type Investment struct {
	StartDate               calendar.Date   `json:"startDate"`
	LastYieldDate           calendar.Date   `json:"lastYieldDate,omitzero"`
	InitialAmount           decimal.Decimal `json:"initialAmount"`
	CurrentAmount           decimal.Decimal `json:"currentAmount"`
	YieldRate               decimal.Decimal `json:"yieldRate"`
	ID                      string          `json:"id"`
	Name                    string          `json:"name"`
	Type                    string          `json:"type,omitempty"`
	YieldRateHistory        []RateChange    `json:"yieldRateHistory,omitempty"`
	IsActive                bool            `json:"isActive"`
	CanCoverNegativeBalance bool            `json:"canCoverNegativeBalance"`
}

// Validate checks required fields.
func (i *Investment) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidInvestment)
	}
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidInvestment)
	}
	if i.StartDate.IsZero() {
		return fmt.Errorf("%w: missing start date", ErrInvalidInvestment)
	}
	if i.InitialAmount.IsNegative() || i.CurrentAmount.IsNegative() {
		return fmt.Errorf("%w: negative amount", ErrInvalidInvestment)
	}
	if i.YieldRate.IsNegative() {
		return fmt.Errorf("%w: negative yield rate", ErrInvalidInvestment)
	}
	return nil
}

// CanCover reports whether the reserve may be drawn to cover a deficit.
func (i *Investment) CanCover() bool {
	return i.IsActive && i.CanCoverNegativeBalance && i.CurrentAmount.IsPositive()
}

// YieldRecord is the accrual of one investment for one calendar day. The
// yield for Date lands in the balance on AppliedDate (Date + 1).
type YieldRecord struct {
	Date          calendar.Date   `json:"date"`
	AppliedDate   calendar.Date   `json:"appliedDate"`
	GrossAmount   decimal.Decimal `json:"grossAmount"`
	TaxAmount     decimal.Decimal `json:"taxAmount"`
	NetAmount     decimal.Decimal `json:"netAmount"`
	BalanceBefore decimal.Decimal `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	Rate          decimal.Decimal `json:"rate"`
	InvestmentID  string          `json:"investmentId"`
}
