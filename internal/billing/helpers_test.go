package billing

import (
	"fmt"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func card(id string, closing, due int, limit string) model.CreditCard {
	return model.CreditCard{
		ID:               id,
		Name:             "Card " + id,
		ClosingDay:       closing,
		DueDay:           due,
		Limit:            dec(limit),
		CanPayOtherCards: true,
	}
}

func purchase(id string, c model.CreditCard, date, amount string) model.Transaction {
	d := calendar.MustParseDate(date)
	return model.Transaction{
		ID:       id,
		Date:     d,
		Amount:   dec(amount).Abs().Neg(),
		Type:     model.TypeExpense,
		Kind:     model.KindPlain,
		Origin:   model.OriginUser,
		Category: "Shopping",
		Card:     &model.CardCharge{CardID: c.ID, InvoiceMonth: InvoiceMonthOf(d, c.ClosingDay)},
	}
}

func cashPayment(id string, c model.CreditCard, month, amount string) model.Transaction {
	return model.Transaction{
		ID:     id,
		Date:   calendar.MustParseMonth(month).Next().Date(c.DueDay),
		Amount: dec(amount).Neg(),
		Type:   model.TypeExpense,
		Kind:   model.KindInvoicePayment,
		Origin: model.OriginUser,
		Settlement: &model.SettlementInfo{
			PaidCardID: c.ID,
			PaidMonth:  calendar.MustParseMonth(month),
		},
	}
}

func sequentialIDs(prefix string) model.IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
