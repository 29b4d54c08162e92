package reconcile

import "rentalcash/internal/model"

// ComputeStatus derives a rental's status from its lines:
// cancelled wins, then returned when every line is fully back, partial when
// at least one unit came back, active otherwise.
func ComputeStatus(items []model.RentalItem, cancelled bool) string {
	if cancelled {
		return model.RentalCancelled
	}
	if len(items) == 0 {
		return model.RentalActive
	}
	all, some := true, false
	for _, it := range items {
		if it.ReturnedQuantity < it.Quantity {
			all = false
		}
		if it.ReturnedQuantity > 0 {
			some = true
		}
	}
	switch {
	case all:
		return model.RentalReturned
	case some:
		return model.RentalPartial
	default:
		return model.RentalActive
	}
}

// ApplyReturn clamps qty to what is still outstanding on the line, books it
// and returns the quantity actually returned.
func ApplyReturn(item *model.RentalItem, qty int) int {
	if qty <= 0 {
		return 0
	}
	if out := item.Outstanding(); qty > out {
		qty = out
	}
	item.ReturnedQuantity += qty
	item.Returned = item.ReturnedQuantity >= item.Quantity
	return qty
}
