package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Rental statuses.
const (
	RentalActive    = "active"
	RentalPartial   = "partial"
	RentalReturned  = "returned"
	RentalCancelled = "cancelled"
)

// Rental holds the monetary fields the cash engine keeps in lock-step with
// the ledger. Version guards concurrent updates.
type Rental struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	StoreID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerName         string          `gorm:"not null;default:''"`
	Status               string          `gorm:"type:varchar(10);not null;index"`
	Subtotal             decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Discount             decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalAmount          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaidAmount           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PendingAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Deposit              decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DepositPaymentMethod string          `gorm:"type:varchar(8);not null;default:''"`
	DepositReturned      bool            `gorm:"not null;default:false"`
	DepositForfeited     bool            `gorm:"not null;default:false"`
	PaymentMethod        string          `gorm:"type:varchar(8);not null"`
	Version              int             `gorm:"not null;default:1"`
	CreatedBy            uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt            time.Time
	UpdatedAt            time.Time

	Items []RentalItem `gorm:"foreignKey:RentalID"`
}

func (Rental) TableName() string { return "rentals" }

func (r *Rental) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RecomputePending sets PendingAmount = max(0, TotalAmount - PaidAmount).
// A cancelled rental owes nothing.
func (r *Rental) RecomputePending() {
	if r.Status == RentalCancelled {
		r.PendingAmount = decimal.Zero
		return
	}
	p := r.TotalAmount.Sub(r.PaidAmount)
	if p.IsNegative() {
		p = decimal.Zero
	}
	r.PendingAmount = p
}

// DepositSettled reports whether the deposit was already returned or forfeited.
func (r *Rental) DepositSettled() bool {
	return r.DepositReturned || r.DepositForfeited
}

// DepositState names the current deposit settlement.
func (r *Rental) DepositState() string {
	switch {
	case r.DepositReturned:
		return "returned"
	case r.DepositForfeited:
		return "forfeited"
	default:
		return "held"
	}
}

// RentalItem is one line of a rental. Generic lines track a quantity pool;
// serialized lines always have Quantity 1.
type RentalItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RentalID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	Barcode          string          `gorm:"not null"`
	Name             string          `gorm:"not null;default:''"`
	IsGeneric        bool            `gorm:"not null;default:false"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity         int             `gorm:"not null"`
	ReturnedQuantity int             `gorm:"not null;default:0"`
	Returned         bool            `gorm:"not null;default:false"`
}

func (RentalItem) TableName() string { return "rental_items" }

func (i *RentalItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Outstanding is the quantity still out with the customer.
func (i *RentalItem) Outstanding() int {
	n := i.Quantity - i.ReturnedQuantity
	if n < 0 {
		return 0
	}
	return n
}

// LineTotal is UnitPrice * Quantity.
func (i *RentalItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
