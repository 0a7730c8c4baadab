package ledger

import (
	"fmt"

	"github.com/Veraticus/tally/internal/common"
)

// Lookup failures. Each wraps common.ErrNotFound.
var (
	ErrTransactionNotFound = fmt.Errorf("%w: transaction", common.ErrNotFound)
	ErrCardNotFound        = fmt.Errorf("%w: credit card", common.ErrNotFound)
)

// Business-rule failures. Each wraps common.ErrBusinessRule.
var (
	ErrInvoiceAlreadyPaid = fmt.Errorf("%w: invoice already paid", common.ErrBusinessRule)
	ErrNothingToPay       = fmt.Errorf("%w: invoice has nothing to pay", common.ErrBusinessRule)
	ErrPayerRequired      = fmt.Errorf("%w: a paying card is required", common.ErrBusinessRule)
	ErrInvalidPayer       = fmt.Errorf("%w: card cannot pay this invoice", common.ErrBusinessRule)
	ErrPayerInUse         = fmt.Errorf("%w: card is the default payer of another card", common.ErrBusinessRule)
)

// ErrUnsupportedBackup rejects backups written by a newer version.
var ErrUnsupportedBackup = fmt.Errorf("%w: unsupported backup version", common.ErrValidation)
