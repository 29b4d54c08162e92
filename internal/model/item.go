package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Serialized item statuses. Generic items use the stock counters instead.
const (
	ItemAvailable = "available"
	ItemRented    = "rented"
)

// Item is the rentable catalog entry the engine reads and reserves.
type Item struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	StoreID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_items_store_barcode,priority:1"`
	Barcode        string          `gorm:"not null;uniqueIndex:idx_items_store_barcode,priority:2"`
	Name           string          `gorm:"not null"`
	Price          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	IsGeneric      bool            `gorm:"not null;default:false"`
	Status         string          `gorm:"type:varchar(10);not null;default:'available'"`
	StockTotal     int             `gorm:"not null;default:0"`
	StockAvailable int             `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Item) TableName() string { return "items" }

func (it *Item) BeforeCreate(*gorm.DB) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	return nil
}

// Available returns how many units can be rented right now.
func (it *Item) Available() int {
	if it.IsGeneric {
		return it.StockAvailable
	}
	if it.Status == ItemAvailable {
		return 1
	}
	return 0
}

// Reserve takes qty units out of the pool. The caller checks Available first.
func (it *Item) Reserve(qty int) {
	if it.IsGeneric {
		it.StockAvailable -= qty
		return
	}
	it.Status = ItemRented
}

// Release puts qty units back, never above StockTotal.
func (it *Item) Release(qty int) {
	if !it.IsGeneric {
		it.Status = ItemAvailable
		return
	}
	it.StockAvailable += qty
	if it.StockAvailable > it.StockTotal {
		it.StockAvailable = it.StockTotal
	}
}
