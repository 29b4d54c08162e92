package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog records administrative reversals together with the deleted row.
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	StoreID    uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID     uuid.UUID `gorm:"type:uuid;not null"`
	Action     string    `gorm:"type:varchar(40);not null"`
	EntityType string    `gorm:"type:varchar(20);not null"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Before     string    `gorm:"type:text"`
	CreatedAt  time.Time
}

func (AuditLog) TableName() string { return "audit_logs" }

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
