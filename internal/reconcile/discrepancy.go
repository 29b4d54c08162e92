package reconcile

import (
	"rentalcash/internal/model"

	"github.com/shopspring/decimal"
)

var minorThreshold = decimal.NewFromInt(1) // percent of expected

// Discrepancy is counted - expected. Positive means surplus in the drawer.
func Discrepancy(counted, expected decimal.Decimal) decimal.Decimal {
	return counted.Sub(expected)
}

// Closing is the discrepancy breakdown written into a closure.
type Closing struct {
	Cash  decimal.Decimal
	Card  decimal.Decimal
	Total decimal.Decimal
	Level string
}

// Close compares the counted amounts against the summary's expected balances.
func Close(s model.Summary, countedCash, countedCard decimal.Decimal) Closing {
	cash := Discrepancy(countedCash, s.ExpectedCash)
	card := Discrepancy(countedCard, s.ExpectedCard)
	total := cash.Add(card)
	return Closing{
		Cash:  cash,
		Card:  card,
		Total: total,
		Level: Classify(total, s.ExpectedCash.Add(s.ExpectedCard)),
	}
}

// Classify grades a discrepancy: ok when zero, minor when within 1% of the
// expected amount, major otherwise.
func Classify(discrepancy, expected decimal.Decimal) string {
	if discrepancy.IsZero() {
		return model.DiscrepancyNone
	}
	if expected.IsZero() {
		return model.DiscrepancyMajor
	}
	pct := discrepancy.Abs().Div(expected.Abs()).Mul(decimal.NewFromInt(100))
	if pct.LessThanOrEqual(minorThreshold) {
		return model.DiscrepancyMinor
	}
	return model.DiscrepancyMajor
}
