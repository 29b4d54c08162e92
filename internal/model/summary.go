package model

import "github.com/shopspring/decimal"

// MethodTotals aggregates the movements of one payment method.
// Net excludes adjustments.
type MethodTotals struct {
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	Refund     decimal.Decimal `json:"refund"`
	Adjustment decimal.Decimal `json:"adjustment"`
	Net        decimal.Decimal `json:"net"`
}

// SummaryTotals are the store-wide sums of a movement set.
type SummaryTotals struct {
	GrossIncome      decimal.Decimal `json:"gross_income"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	TotalRefunds     decimal.Decimal `json:"total_refunds"`
	TotalAdjustments decimal.Decimal `json:"total_adjustments"`
	NetBalance       decimal.Decimal `json:"net_balance"`
}

// Summary is the reconciliation view of a movement set. It is persisted
// verbatim inside every CashClosure.
type Summary struct {
	OpeningBalance  decimal.Decimal            `json:"opening_balance"`
	ByPaymentMethod map[string]MethodTotals    `json:"by_payment_method"`
	ByCategory      map[string]decimal.Decimal `json:"by_category"`
	Totals          SummaryTotals              `json:"totals"`
	ExpectedCash    decimal.Decimal            `json:"expected_cash"`
	ExpectedCard    decimal.Decimal            `json:"expected_card"`
	MovementsCount  int                        `json:"movements_count"`
}
