package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Session statuses.
const (
	SessionOpen   = "open"
	SessionClosed = "closed"
)

// CashSession is one till period of a store. At most one row per store may
// have Status=open; a partial unique index enforces it.
type CashSession struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	StoreID        uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_cash_sessions_store_number,priority:1"`
	SessionNumber  int             `gorm:"not null;uniqueIndex:idx_cash_sessions_store_number,priority:2"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	OpenedBy       uuid.UUID       `gorm:"type:uuid;not null"`
	OpenedAt       time.Time       `gorm:"not null"`
	Status         string          `gorm:"type:varchar(10);not null;index"`
	// ClosureID is set when the session is closed and cleared if that closure is reverted.
	ClosureID *uuid.UUID `gorm:"type:uuid"`
	ClosedBy  *uuid.UUID `gorm:"type:uuid"`
	ClosedAt  *time.Time
}

func (CashSession) TableName() string { return "cash_sessions" }

func (s *CashSession) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsOpen reports whether movements may still be appended to the session.
func (s *CashSession) IsOpen() bool { return s.Status == SessionOpen }
