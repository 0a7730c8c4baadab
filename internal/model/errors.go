// Package model defines the core domain models used throughout the ledger.
package model

import (
	"fmt"

	"github.com/Veraticus/tally/internal/common"
)

// Model validation errors. Each wraps common.ErrValidation.
var (
	ErrInvalidTransaction = fmt.Errorf("%w: invalid transaction", common.ErrValidation)
	ErrInvalidCard        = fmt.Errorf("%w: invalid credit card", common.ErrValidation)
	ErrInvalidInvestment  = fmt.Errorf("%w: invalid investment", common.ErrValidation)
)
