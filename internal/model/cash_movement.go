package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Movement types. The direction of a movement is carried by its type, the
// amount is never negative.
const (
	MovementIncome     = "income"
	MovementExpense    = "expense"
	MovementRefund     = "refund"
	MovementAdjustment = "adjustment"
)

// Payment methods. PaymentPending is only valid on a rental, never on a movement.
const (
	PaymentCash    = "cash"
	PaymentCard    = "card"
	PaymentPending = "pending"
)

// Movement categories.
const (
	CategoryRental           = "rental"
	CategoryRentalAdjustment = "rental_adjustment"
	CategoryDeposit          = "deposit"
	CategoryDepositReturn    = "deposit_return"
	CategoryDepositForfeited = "deposit_forfeited"
	CategoryExternalRepair   = "external_repair"
	CategoryManual           = "manual"
	CategoryOther            = "other"
)

// ReferenceRental is the reference_type of movements emitted by rental events.
const ReferenceRental = "rental"

// LedgerMethods lists the payment methods a movement may carry, in report order.
var LedgerMethods = []string{PaymentCash, PaymentCard}

// Categories lists every valid movement category.
var Categories = []string{
	CategoryRental, CategoryRentalAdjustment, CategoryDeposit, CategoryDepositReturn,
	CategoryDepositForfeited, CategoryExternalRepair, CategoryManual, CategoryOther,
}

// CashMovement is an append-only ledger entry. Rows are inserted once and
// only removed through the audited reversal path; there is no update path.
type CashMovement struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	StoreID       uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_cash_movements_idempotency,priority:1"`
	SessionID     *uuid.UUID      `gorm:"type:uuid;index"`
	MovementType  string          `gorm:"type:varchar(12);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentMethod string          `gorm:"type:varchar(8);not null"`
	Category      string          `gorm:"type:varchar(20);not null;index"`
	Concept       string          `gorm:"not null;default:''"`
	ReferenceID   *uuid.UUID      `gorm:"type:uuid;index"`
	ReferenceType string          `gorm:"type:varchar(20);not null;default:''"`
	// IdempotencyKey is unique per store; retries of the same operation reuse it.
	IdempotencyKey *string   `gorm:"type:varchar(120);uniqueIndex:idx_cash_movements_idempotency,priority:2"`
	CreatedBy      uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

func (CashMovement) TableName() string { return "cash_movements" }

func (m *CashMovement) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// IsLedgerMethod reports whether method may appear on a movement.
func IsLedgerMethod(method string) bool {
	return method == PaymentCash || method == PaymentCard
}

// IsRentalMethod reports whether method may appear on a rental.
func IsRentalMethod(method string) bool {
	return IsLedgerMethod(method) || method == PaymentPending
}

func IsMovementType(t string) bool {
	switch t {
	case MovementIncome, MovementExpense, MovementRefund, MovementAdjustment:
		return true
	}
	return false
}

func IsCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}
