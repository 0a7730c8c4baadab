package recurrence

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
)

// Scope selects which members of a family an edit or delete touches.
type Scope string

// Scopes.
const (
	// ScopeSingle touches only the targeted entry.
	ScopeSingle Scope = "single"
	// ScopeForward touches family members dated on or after the target.
	ScopeForward Scope = "forward"
	// ScopeAll touches the whole family regardless of date.
	ScopeAll Scope = "all"
)

// ParseScope converts a user-supplied string into a Scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeSingle, "":
		return ScopeSingle, nil
	case ScopeForward, "future":
		return ScopeForward, nil
	case ScopeAll:
		return ScopeAll, nil
	default:
		return "", common.Validationf("unknown scope %q (want single, forward or all)", s)
	}
}

// NeedsScopeChoice reports whether the caller must ask single, forward or
// all before editing or deleting tx.
func NeedsScopeChoice(tx model.Transaction) bool {
	if tx.Recurrence != nil && tx.Recurrence.FamilyID != "" {
		return true
	}
	if tx.Installment != nil && (tx.Installment.Count > 1 || tx.Installment.ParentID != "") {
		return true
	}
	return false
}

// SelectFamily returns the IDs of the entries a scoped operation on target
// touches. Entries without a family always select just the target.
func SelectFamily(txs []model.Transaction, target model.Transaction, scope Scope) []string {
	key := target.FamilyKey()
	if scope == ScopeSingle || key == "" {
		return []string{target.ID}
	}

	var ids []string
	for _, tx := range txs {
		if tx.FamilyKey() != key {
			continue
		}
		if scope == ScopeForward && tx.Date.Before(target.Date) {
			continue
		}
		ids = append(ids, tx.ID)
	}
	return ids
}

// Patch is a partial edit propagated across family members. Nil fields are
// left untouched. Dates never propagate: each member keeps its own.
type Patch struct {
	Amount      *decimal.Decimal
	Type        *model.TransactionType
	Category    *string
	Description *string
}

// Apply writes the patch onto tx. Installment members keep their (i/N)
// suffix and amounts keep the sign of the (possibly new) type.
func (p Patch) Apply(tx *model.Transaction) {
	if p.Type != nil {
		tx.Type = *p.Type
	}
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Category != nil {
		tx.Category = *p.Category
	}
	if p.Description != nil {
		tx.Description = *p.Description
		if tx.Installment != nil {
			tx.Description = withSuffix(StripSuffix(*p.Description), tx.Installment.Index, tx.Installment.Count)
		}
	}
	tx.NormalizeSign()
}

// StripSuffix removes a trailing installment marker such as " (2/10)".
func StripSuffix(description string) string {
	d := strings.TrimSpace(description)
	if !strings.HasSuffix(d, ")") {
		return d
	}
	open := strings.LastIndex(d, "(")
	if open < 0 {
		return d
	}
	var i, n int
	if _, err := fmt.Sscanf(d[open:], "(%d/%d)", &i, &n); err != nil {
		return d
	}
	return strings.TrimSpace(d[:open])
}
