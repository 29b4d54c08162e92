package repository

import (
	"context"

	"rentalcash/internal/model"
	"rentalcash/internal/tenant"

	"gorm.io/gorm"
)

type AuditRepository interface {
	Create(ctx context.Context, scope tenant.Scope, a *model.AuditLog) error
	List(ctx context.Context, scope tenant.Scope, p Page) ([]model.AuditLog, int64, error)
}

type auditRepo struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository { return &auditRepo{db: db} }

func (r *auditRepo) Create(ctx context.Context, scope tenant.Scope, a *model.AuditLog) error {
	storeID, err := scope.RequireStore()
	if err != nil {
		return err
	}
	a.StoreID = storeID
	return conn(ctx, r.db).Create(a).Error
}

func (r *auditRepo) List(ctx context.Context, scope tenant.Scope, p Page) ([]model.AuditLog, int64, error) {
	q, err := scoped(ctx, r.db, scope)
	if err != nil {
		return nil, 0, err
	}
	q = q.Model(&model.AuditLog{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []model.AuditLog
	err = paginate(q, p).Order("created_at DESC").Find(&logs).Error
	return logs, total, err
}
