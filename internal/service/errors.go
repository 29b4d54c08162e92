package service

import (
	"errors"
	"fmt"

	"rentalcash/internal/repository"
	"rentalcash/internal/tenant"

	"github.com/shopspring/decimal"
)

// Error codes exposed to API clients.
const (
	CodeNoActiveSession       = "NO_ACTIVE_SESSION"
	CodeSessionAlreadyOpen    = "SESSION_ALREADY_OPEN"
	CodeSessionNotFound       = "SESSION_NOT_FOUND"
	CodeSessionClosed         = "SESSION_CLOSED"
	CodeExcessPayment         = "EXCESS_PAYMENT"
	CodeDepositAlreadySettled = "DEPOSIT_ALREADY_SETTLED"
	CodeItemNotRented         = "ITEM_NOT_RENTED"
	CodeItemAlreadyRented     = "ITEM_ALREADY_RENTED"
	CodeNotFound              = "NOT_FOUND"
	CodeConflict              = "CONFLICT"
	CodeValidation            = "VALIDATION_ERROR"
	CodeForbidden             = "STORE_SCOPE_REQUIRED"
	CodeInternal              = "INTERNAL_ERROR"
)

var (
	ErrNoActiveSession    = errors.New("no active cash session for this store")
	ErrSessionAlreadyOpen = errors.New("a cash session is already open for this store")
	ErrSessionNotFound    = errors.New("cash session not found")
	ErrSessionClosed      = errors.New("cash session is closed")

	ErrExcessPayment         = errors.New("payment exceeds pending amount")
	ErrDepositAlreadySettled = errors.New("deposit already settled")
	ErrItemNotRented         = errors.New("item is not rented in this rental")
	ErrItemAlreadyRented     = errors.New("item is not available")

	ErrRentalNotFound   = errors.New("rental not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrMovementNotFound = errors.New("cash movement not found")
	ErrClosureNotFound  = errors.New("cash closure not found")

	ErrInvalidAmount        = errors.New("amount must be a non-negative value")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidCategory      = errors.New("invalid movement category")
	ErrInvalidMovementType  = errors.New("invalid movement type")
	ErrSamePaymentMethod    = errors.New("rental already uses that payment method")
	ErrRentalNotActive      = errors.New("rental is not active")
	ErrNoDeposit            = errors.New("rental has no deposit to settle")
	ErrEmptyReturn          = errors.New("return request has no items and no deposit action")
	ErrDuplicateItem        = errors.New("item barcode already exists")
	ErrNoItems              = errors.New("rental needs at least one item")
	ErrInvalidRange         = errors.New("invalid date range")

	ErrConflict = errors.New("concurrent modification, please retry")
)

// ExcessPaymentError reports a payment larger than what is still owed.
type ExcessPaymentError struct {
	Requested decimal.Decimal
	Pending   decimal.Decimal
}

func (e *ExcessPaymentError) Error() string {
	return fmt.Sprintf("payment of %s exceeds pending amount %s", e.Requested.StringFixed(2), e.Pending.StringFixed(2))
}
func (e *ExcessPaymentError) Unwrap() error { return ErrExcessPayment }
func (e *ExcessPaymentError) Meta() map[string]any {
	return map[string]any{"requested": e.Requested, "pending": e.Pending}
}

// DepositAlreadySettledError carries the settlement already recorded.
type DepositAlreadySettledError struct {
	State     string // returned | forfeited
	Requested string // return | forfeit
}

func (e *DepositAlreadySettledError) Error() string {
	return fmt.Sprintf("deposit already %s, cannot %s it", e.State, e.Requested)
}
func (e *DepositAlreadySettledError) Unwrap() error { return ErrDepositAlreadySettled }
func (e *DepositAlreadySettledError) Meta() map[string]any {
	return map[string]any{"state": e.State, "requested": e.Requested}
}

type ItemNotRentedError struct {
	Barcode string
}

func (e *ItemNotRentedError) Error() string {
	return fmt.Sprintf("item %s has nothing outstanding in this rental", e.Barcode)
}
func (e *ItemNotRentedError) Unwrap() error { return ErrItemNotRented }
func (e *ItemNotRentedError) Meta() map[string]any {
	return map[string]any{"barcode": e.Barcode}
}

type ItemAlreadyRentedError struct {
	Barcode   string
	Available int
	Requested int
}

func (e *ItemAlreadyRentedError) Error() string {
	return fmt.Sprintf("item %s: requested %d, available %d", e.Barcode, e.Requested, e.Available)
}
func (e *ItemAlreadyRentedError) Unwrap() error { return ErrItemAlreadyRented }
func (e *ItemAlreadyRentedError) Meta() map[string]any {
	return map[string]any{"barcode": e.Barcode, "available": e.Available, "requested": e.Requested}
}

// Code maps an error to its client-facing code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoActiveSession):
		return CodeNoActiveSession
	case errors.Is(err, ErrSessionAlreadyOpen):
		return CodeSessionAlreadyOpen
	case errors.Is(err, ErrSessionNotFound):
		return CodeSessionNotFound
	case errors.Is(err, ErrSessionClosed):
		return CodeSessionClosed
	case errors.Is(err, ErrExcessPayment):
		return CodeExcessPayment
	case errors.Is(err, ErrDepositAlreadySettled):
		return CodeDepositAlreadySettled
	case errors.Is(err, ErrItemNotRented):
		return CodeItemNotRented
	case errors.Is(err, ErrItemAlreadyRented):
		return CodeItemAlreadyRented
	case errors.Is(err, ErrRentalNotFound), errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrMovementNotFound), errors.Is(err, ErrClosureNotFound),
		errors.Is(err, repository.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrDuplicateItem):
		return CodeConflict
	case errors.Is(err, tenant.ErrStoreRequired), errors.Is(err, tenant.ErrNoScope):
		return CodeForbidden
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidPaymentMethod),
		errors.Is(err, ErrInvalidCategory), errors.Is(err, ErrInvalidMovementType),
		errors.Is(err, ErrSamePaymentMethod), errors.Is(err, ErrRentalNotActive),
		errors.Is(err, ErrNoDeposit), errors.Is(err, ErrEmptyReturn),
		errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidRange):
		return CodeValidation
	}
	return CodeInternal
}

// Meta returns the offending quantities carried by structured errors.
func Meta(err error) map[string]any {
	var m interface{ Meta() map[string]any }
	if errors.As(err, &m) {
		return m.Meta()
	}
	return nil
}

// retryOnConflict runs fn again once when it lost a unique-key or version
// race, then reports ErrConflict.
func retryOnConflict(fn func() error) error {
	err := fn()
	if !isConflict(err) {
		return err
	}
	err = fn()
	if isConflict(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func isConflict(err error) bool {
	return errors.Is(err, repository.ErrDuplicate) || errors.Is(err, repository.ErrStaleVersion)
}
