package ledger

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/tally/internal/billing"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
)

// step is one idempotent recalculation. It reports whether it changed state.
type step struct {
	apply func(*state) (bool, error)
	name  string
}

// Pipeline is the ordered list of recalculations run after every mutation.
type Pipeline struct {
	steps []step
}

// DefaultPipeline regenerates automatic card payments first, then replays
// card limits so the new payer charges are counted.
func DefaultPipeline(newID model.IDGenerator) Pipeline {
	return Pipeline{steps: []step{
		{name: "autopay", apply: autoPayStep(newID)},
		{name: "card-limits", apply: cardLimitStep},
	}}
}

// Names lists the steps in run order.
func (p Pipeline) Names() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.name
	}
	return names
}

// Run applies every step in order.
func (p Pipeline) Run(st *state) error {
	_, err := p.run(st)
	return err
}

// run applies every step and returns the names of those that changed something.
func (p Pipeline) run(st *state) ([]string, error) {
	var changed []string
	for _, s := range p.steps {
		did, err := s.apply(st)
		if err != nil {
			return changed, fmt.Errorf("recompute step %s failed: %w", s.name, err)
		}
		if did {
			changed = append(changed, s.name)
		}
	}
	return changed, nil
}

func autoPayStep(newID model.IDGenerator) func(*state) (bool, error) {
	return func(st *state) (bool, error) {
		plan := billing.PlanAutoPayments(st.cards, st.list(), newID)
		if plan.Empty() {
			return false, nil
		}

		st.put(plan.Create...)
		st.put(plan.Update...)
		for _, id := range plan.Delete {
			delete(st.txs, id)
		}
		st.touch(storage.KeyTransactions)

		slog.Info("Synchronized automatic card payments",
			"created", len(plan.Create),
			"updated", len(plan.Update),
			"deleted", len(plan.Delete))
		return true, nil
	}
}

func cardLimitStep(st *state) (bool, error) {
	txs := st.list()
	changed := false

	for i := range st.cards {
		card := &st.cards[i]
		original, ok := st.limits[card.ID]
		if !ok {
			original = billing.LegacyOriginalLimit(*card, txs)
			st.limits[card.ID] = original
			st.touch(storage.KeyOriginalCardLimits)
			slog.Warn("Card had no original limit, rebuilt from history",
				"card", card.ID,
				"original", original.StringFixed(2))
		}

		available := billing.AvailableLimit(original, card.ID, txs)
		if !available.Equal(card.Limit) {
			card.Limit = available
			st.touch(storage.KeyCreditCards)
			changed = true
		}
	}
	return changed, nil
}
