package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DateLayout is the store-local calendar date format used by closures and reports.
const DateLayout = "2006-01-02"

// Discrepancy levels.
const (
	DiscrepancyNone  = "ok"
	DiscrepancyMinor = "minor"
	DiscrepancyMajor = "major"
)

// CashClosure is the immutable snapshot written when a session closes.
// (StoreID, Date, ClosureNumber) is unique; numbers are never reassigned.
type CashClosure struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	StoreID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cash_closures_number,priority:1"`
	SessionID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Date             string          `gorm:"type:varchar(10);not null;uniqueIndex:idx_cash_closures_number,priority:2"`
	ClosureNumber    int             `gorm:"not null;uniqueIndex:idx_cash_closures_number,priority:3"`
	OpeningBalance   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PhysicalCash     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CardTotal        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ExpectedCash     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ExpectedCard     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscrepancyCash  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscrepancyCard  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscrepancyTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscrepancyLevel string          `gorm:"type:varchar(8);not null"`
	Totals           Summary         `gorm:"serializer:json;type:text"`
	MovementsCount   int             `gorm:"not null"`
	PeriodStart      time.Time       `gorm:"not null"`
	ClosedBy         uuid.UUID       `gorm:"type:uuid;not null"`
	ClosedAt         time.Time       `gorm:"not null"`
	Notes            string
}

func (CashClosure) TableName() string { return "cash_closures" }

func (c *CashClosure) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
