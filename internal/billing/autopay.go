package billing

import (
	"fmt"
	"sort"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
)

// AutoPayCategory is the category given to synthesized card-to-card payments.
const AutoPayCategory = "Card payment"

// AutoPayPlan lists the changes needed to bring synthesized card-to-card
// payments in line with the invoices they settle.
type AutoPayPlan struct {
	Create []model.Transaction
	Update []model.Transaction
	Delete []string
}

// Empty reports whether the plan changes nothing.
func (p AutoPayPlan) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

// PlanAutoPayments works out, for every card with a default payer, which of
// its invoices still need a payer-card charge. An existing card-to-card
// payment for (target card, invoice month) is never duplicated. Synthesized
// payments whose invoice total changed are updated in place, and those whose
// invoice emptied out are deleted.
//
// Cards are planned furthest from the end of their payer chain first, and
// every change is applied to a working copy before the next card is planned,
// so a charge landing on a payer that is itself paid by another card settles
// all the way down the chain in one call.
func PlanAutoPayments(cards []model.CreditCard, txs []model.Transaction, newID model.IDGenerator) AutoPayPlan {
	var plan AutoPayPlan
	work := make([]model.Transaction, len(txs))
	copy(work, txs)

	for _, paid := range payerChainOrder(cards) {
		if paid.DefaultPayerCardID == "" || paid.DefaultPayerCardID == paid.ID {
			continue
		}
		payer := model.FindCard(cards, paid.DefaultPayerCardID)
		if payer == nil || !payer.CanPayOtherCards {
			continue
		}

		var step AutoPayPlan
		totals := InvoiceTotals(paid.ID, work)
		existing := cardTransfersTo(paid.ID, work)

		for _, month := range InvoiceMonths(paid.ID, work) {
			total := totals[month]
			current, ok := existing[month]
			switch {
			case !total.IsPositive():
				continue
			case ok:
				if current.Origin == model.OriginAutoPay && !current.Amount.Abs().Equal(total) {
					updated := current.Clone()
					updated.Amount = total.Neg()
					step.Update = append(step.Update, updated)
				}
			case IsInvoiceSettled(paid.ID, month, work):
				// Paid by cash or debit already.
			default:
				step.Create = append(step.Create, newAutoPayment(*payer, paid, month, total.Neg(), newID()))
			}
		}

		for _, month := range sortedMonths(existing) {
			if tx := existing[month]; tx.Origin == model.OriginAutoPay && !totals[month].IsPositive() {
				step.Delete = append(step.Delete, tx.ID)
			}
		}

		work = step.apply(work)
		plan.merge(step)
	}

	return plan
}

// apply returns txs with the plan's changes made.
func (p AutoPayPlan) apply(txs []model.Transaction) []model.Transaction {
	if p.Empty() {
		return txs
	}
	deleted := make(map[string]bool, len(p.Delete))
	for _, id := range p.Delete {
		deleted[id] = true
	}
	updated := make(map[string]model.Transaction, len(p.Update))
	for _, tx := range p.Update {
		updated[tx.ID] = tx
	}

	out := make([]model.Transaction, 0, len(txs)+len(p.Create))
	for _, tx := range txs {
		if deleted[tx.ID] {
			continue
		}
		if u, ok := updated[tx.ID]; ok {
			tx = u
		}
		out = append(out, tx)
	}
	return append(out, p.Create...)
}

// merge folds a later plan into p. Updates to transactions p itself creates
// replace the created version.
func (p *AutoPayPlan) merge(next AutoPayPlan) {
	for _, tx := range next.Update {
		replaced := false
		for i := range p.Create {
			if p.Create[i].ID == tx.ID {
				p.Create[i] = tx
				replaced = true
			}
		}
		if !replaced {
			p.Update = append(p.Update, tx)
		}
	}
	p.Create = append(p.Create, next.Create...)
	p.Delete = append(p.Delete, next.Delete...)
}

// payerChainOrder sorts cards by how many payer hops separate them from a
// card nobody pays for them, deepest first. Chains are cut at len(cards)
// hops so a stored cycle cannot loop forever.
func payerChainOrder(cards []model.CreditCard) []model.CreditCard {
	depth := func(c model.CreditCard) int {
		n := 0
		for id := c.DefaultPayerCardID; id != "" && n < len(cards); n++ {
			next := model.FindCard(cards, id)
			if next == nil {
				break
			}
			id = next.DefaultPayerCardID
		}
		return n
	}

	ordered := make([]model.CreditCard, len(cards))
	copy(ordered, cards)
	sort.SliceStable(ordered, func(i, j int) bool {
		return depth(ordered[i]) > depth(ordered[j])
	})
	return ordered
}

func sortedMonths(m map[calendar.Month]model.Transaction) []calendar.Month {
	months := make([]calendar.Month, 0, len(m))
	for month := range m {
		months = append(months, month)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}

// NewCardPayment builds the payer-card charge that settles the paid card's
// invoice for month, dated date.
func NewCardPayment(payer, paid model.CreditCard, month calendar.Month, date calendar.Date, total decimal.Decimal, id string) model.Transaction {
	return model.Transaction{
		ID:          id,
		Date:        date,
		Amount:      total.Abs().Neg(),
		Type:        model.TypeExpense,
		Kind:        model.KindCardTransfer,
		Origin:      model.OriginUser,
		Category:    AutoPayCategory,
		Description: fmt.Sprintf("%s invoice %s", paid.Name, month),
		Card: &model.CardCharge{
			CardID:       payer.ID,
			InvoiceMonth: InvoiceMonthOf(date, payer.ClosingDay),
		},
		Settlement: &model.SettlementInfo{
			SourceCardID: payer.ID,
			TargetCardID: paid.ID,
			PaidCardID:   paid.ID,
			PaidMonth:    month,
		},
	}
}

func newAutoPayment(payer, paid model.CreditCard, month calendar.Month, amount decimal.Decimal, id string) model.Transaction {
	due := DueDateOf(month, paid.ClosingDay, paid.DueDay)
	tx := NewCardPayment(payer, paid, month, due, amount, id)
	tx.Origin = model.OriginAutoPay
	return tx
}

// cardTransfersTo indexes card-to-card payments settling the target card by
// paid invoice month.
func cardTransfersTo(target string, txs []model.Transaction) map[calendar.Month]model.Transaction {
	out := make(map[calendar.Month]model.Transaction)
	for _, tx := range txs {
		if tx.Kind != model.KindCardTransfer || tx.Settlement == nil || tx.Settlement.TargetCardID != target {
			continue
		}
		if _, dup := out[tx.Settlement.PaidMonth]; !dup {
			out[tx.Settlement.PaidMonth] = tx
		}
	}
	return out
}
