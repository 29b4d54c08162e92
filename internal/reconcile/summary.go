// Package reconcile derives balances from ledger movements. It holds no
// state: the live register view, daily reports and closures all call
// Summarize on the movements in scope, so they cannot disagree.
package reconcile

import (
	"rentalcash/internal/model"

	"github.com/shopspring/decimal"
)

// Summarize aggregates movements into per-method and per-category totals and
// the expected drawer balances.
//
//	expected_cash = opening + cash.income - cash.expense - cash.refund
//	expected_card = card.income - card.expense - card.refund
//
// Adjustment movements are reported but never change a balance.
func Summarize(opening decimal.Decimal, movements []model.CashMovement) model.Summary {
	byMethod := make(map[string]model.MethodTotals, len(model.LedgerMethods))
	for _, m := range model.LedgerMethods {
		byMethod[m] = emptyMethodTotals()
	}
	byCategory := make(map[string]decimal.Decimal)

	var totals model.SummaryTotals
	totals.GrossIncome = decimal.Zero
	totals.TotalExpenses = decimal.Zero
	totals.TotalRefunds = decimal.Zero
	totals.TotalAdjustments = decimal.Zero

	for _, mv := range movements {
		mt, ok := byMethod[mv.PaymentMethod]
		if !ok {
			mt = emptyMethodTotals()
		}
		cat, ok := byCategory[mv.Category]
		if !ok {
			cat = decimal.Zero
		}

		switch mv.MovementType {
		case model.MovementIncome:
			mt.Income = mt.Income.Add(mv.Amount)
			totals.GrossIncome = totals.GrossIncome.Add(mv.Amount)
			cat = cat.Add(mv.Amount)
		case model.MovementExpense:
			mt.Expense = mt.Expense.Add(mv.Amount)
			totals.TotalExpenses = totals.TotalExpenses.Add(mv.Amount)
			cat = cat.Sub(mv.Amount)
		case model.MovementRefund:
			mt.Refund = mt.Refund.Add(mv.Amount)
			totals.TotalRefunds = totals.TotalRefunds.Add(mv.Amount)
			cat = cat.Sub(mv.Amount)
		case model.MovementAdjustment:
			mt.Adjustment = mt.Adjustment.Add(mv.Amount)
			totals.TotalAdjustments = totals.TotalAdjustments.Add(mv.Amount)
		}
		mt.Net = Net(mt)
		byMethod[mv.PaymentMethod] = mt
		byCategory[mv.Category] = cat
	}

	totals.NetBalance = totals.GrossIncome.Sub(totals.TotalExpenses).Sub(totals.TotalRefunds)

	cash := byMethod[model.PaymentCash]
	card := byMethod[model.PaymentCard]
	return model.Summary{
		OpeningBalance:  opening,
		ByPaymentMethod: byMethod,
		ByCategory:      byCategory,
		Totals:          totals,
		ExpectedCash:    opening.Add(Net(cash)),
		ExpectedCard:    Net(card),
		MovementsCount:  len(movements),
	}
}

// Net is income - expense - refund for one payment method.
func Net(mt model.MethodTotals) decimal.Decimal {
	return mt.Income.Sub(mt.Expense).Sub(mt.Refund)
}

func emptyMethodTotals() model.MethodTotals {
	return model.MethodTotals{
		Income:     decimal.Zero,
		Expense:    decimal.Zero,
		Refund:     decimal.Zero,
		Adjustment: decimal.Zero,
		Net:        decimal.Zero,
	}
}
