package service

import (
	"errors"
	"fmt"
	"testing"

	"rentalcash/internal/repository"
	"rentalcash/internal/tenant"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNoActiveSession, CodeNoActiveSession},
		{fmt.Errorf("wrap: %w", ErrSessionClosed), CodeSessionClosed},
		{&ExcessPaymentError{}, CodeExcessPayment},
		{&DepositAlreadySettledError{}, CodeDepositAlreadySettled},
		{&ItemNotRentedError{}, CodeItemNotRented},
		{&ItemAlreadyRentedError{}, CodeItemAlreadyRented},
		{ErrRentalNotFound, CodeNotFound},
		{repository.ErrNotFound, CodeNotFound},
		{ErrConflict, CodeConflict},
		{tenant.ErrStoreRequired, CodeForbidden},
		{ErrInvalidAmount, CodeValidation},
		{errors.New("disk on fire"), CodeInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Code(tc.err), "%v", tc.err)
	}
}

func TestRetryOnConflict(t *testing.T) {
	calls := 0
	err := retryOnConflict(func() error {
		calls++
		if calls == 1 {
			return repository.ErrStaleVersion
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = retryOnConflict(func() error {
		calls++
		return repository.ErrDuplicate
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 2, calls)

	boom := errors.New("boom")
	calls = 0
	err = retryOnConflict(func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}
