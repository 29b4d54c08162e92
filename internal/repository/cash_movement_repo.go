package repository

import (
	"context"

	"rentalcash/internal/model"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CashMovementRepository has no update method: the ledger is append-only.
type CashMovementRepository interface {
	// Create fails with ErrDuplicate when the idempotency key was already used in the store.
	Create(ctx context.Context, scope tenant.Scope, m *model.CashMovement) error
	FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.CashMovement, error)
	FindByIdempotencyKey(ctx context.Context, scope tenant.Scope, key string) (*model.CashMovement, error)
	List(ctx context.Context, scope tenant.Scope, f MovementFilter) ([]model.CashMovement, int64, error)
	// Delete is reserved for the audited reversal path.
	Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
}

type cashMovementRepo struct{ db *gorm.DB }

func NewCashMovementRepository(db *gorm.DB) CashMovementRepository {
	return &cashMovementRepo{db: db}
}

func (r *cashMovementRepo) Create(ctx context.Context, scope tenant.Scope, m *model.CashMovement) error {
	storeID, err := scope.RequireStore()
	if err != nil {
		return err
	}
	m.StoreID = storeID
	return translate(conn(ctx, r.db).Create(m).Error)
}

func (r *cashMovementRepo) FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.CashMovement, error) {
	q, err := scoped(ctx, r.db, scope)
	if err != nil {
		return nil, err
	}
	var m model.CashMovement
	if err := q.Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *cashMovementRepo) FindByIdempotencyKey(ctx context.Context, scope tenant.Scope, key string) (*model.CashMovement, error) {
	if _, err := scope.RequireStore(); err != nil {
		return nil, err
	}
	q, _ := scoped(ctx, r.db, scope)
	var m model.CashMovement
	if err := q.Where("idempotency_key = ?", key).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *cashMovementRepo) List(ctx context.Context, scope tenant.Scope, f MovementFilter) ([]model.CashMovement, int64, error) {
	q, err := scoped(ctx, r.db, scope)
	if err != nil {
		return nil, 0, err
	}
	q = q.Model(&model.CashMovement{})
	if f.SessionID != nil {
		q = q.Where("session_id = ?", *f.SessionID)
	}
	if f.ReferenceID != nil {
		q = q.Where("reference_id = ?", *f.ReferenceID)
	}
	if f.ReferenceType != "" {
		q = q.Where("reference_type = ?", f.ReferenceType)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.PaymentMethod != "" {
		q = q.Where("payment_method = ?", f.PaymentMethod)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var movements []model.CashMovement
	err = paginate(q, f.Page).Order("created_at ASC, id ASC").Find(&movements).Error
	return movements, total, err
}

func (r *cashMovementRepo) Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if _, err := scope.RequireStore(); err != nil {
		return err
	}
	q, _ := scoped(ctx, r.db, scope)
	res := q.Where("id = ?", id).Delete(&model.CashMovement{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
