package reconcile

import (
	"testing"

	"rentalcash/internal/model"

	"github.com/stretchr/testify/assert"
)

func line(qty, returned int) model.RentalItem {
	return model.RentalItem{Quantity: qty, ReturnedQuantity: returned, Returned: returned >= qty}
}

func TestComputeStatus(t *testing.T) {
	cases := []struct {
		name      string
		items     []model.RentalItem
		cancelled bool
		want      string
	}{
		{"no returns", []model.RentalItem{line(2, 0), line(1, 0)}, false, model.RentalActive},
		{"one unit back", []model.RentalItem{line(2, 1), line(1, 0)}, false, model.RentalPartial},
		{"one line back", []model.RentalItem{line(2, 2), line(1, 0)}, false, model.RentalPartial},
		{"everything back", []model.RentalItem{line(2, 2), line(1, 1)}, false, model.RentalReturned},
		{"cancelled wins", []model.RentalItem{line(2, 2)}, true, model.RentalCancelled},
		{"no lines", nil, false, model.RentalActive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeStatus(tc.items, tc.cancelled))
		})
	}
}

func TestApplyReturn_ClampsToOutstanding(t *testing.T) {
	it := line(5, 3)

	got := ApplyReturn(&it, 10)

	assert.Equal(t, 2, got)
	assert.Equal(t, 5, it.ReturnedQuantity)
	assert.True(t, it.Returned)
	assert.Equal(t, 0, it.Outstanding())

	assert.Equal(t, 0, ApplyReturn(&it, 1))
	assert.Equal(t, 5, it.ReturnedQuantity)
}

func TestApplyReturn_Partial(t *testing.T) {
	it := line(4, 0)

	assert.Equal(t, 1, ApplyReturn(&it, 1))
	assert.False(t, it.Returned)
	assert.Equal(t, 3, it.Outstanding())

	assert.Equal(t, 0, ApplyReturn(&it, -2))
	assert.Equal(t, 1, it.ReturnedQuantity)
}
