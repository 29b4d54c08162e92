package repository

import (
	"context"

	"rentalcash/internal/model"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CashClosureRepository interface {
	// Create fails with ErrDuplicate when (store, date, closure_number) is taken.
	Create(ctx context.Context, scope tenant.Scope, c *model.CashClosure) error
	MaxClosureNumber(ctx context.Context, scope tenant.Scope, date string) (int, error)
	FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.CashClosure, error)
	List(ctx context.Context, scope tenant.Scope, f ClosureFilter) ([]model.CashClosure, int64, error)
	Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
}

type cashClosureRepo struct{ db *gorm.DB }

func NewCashClosureRepository(db *gorm.DB) CashClosureRepository {
	return &cashClosureRepo{db: db}
}

func (r *cashClosureRepo) Create(ctx context.Context, scope tenant.Scope, c *model.CashClosure) error {
	storeID, err := scope.RequireStore()
	if err != nil {
		return err
	}
	c.StoreID = storeID
	return translate(conn(ctx, r.db).Create(c).Error)
}

func (r *cashClosureRepo) MaxClosureNumber(ctx context.Context, scope tenant.Scope, date string) (int, error) {
	if _, err := scope.RequireStore(); err != nil {
		return 0, err
	}
	q, _ := scoped(ctx, r.db, scope)
	var n int
	err := q.Model(&model.CashClosure{}).
		Where("date = ?", date).
		Select("COALESCE(MAX(closure_number), 0)").
		Scan(&n).Error
	return n, err
}

func (r *cashClosureRepo) FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.CashClosure, error) {
	q, err := scoped(ctx, r.db, scope)
	if err != nil {
		return nil, err
	}
	var c model.CashClosure
	if err := q.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *cashClosureRepo) List(ctx context.Context, scope tenant.Scope, f ClosureFilter) ([]model.CashClosure, int64, error) {
	q, err := scoped(ctx, r.db, scope)
	if err != nil {
		return nil, 0, err
	}
	q = q.Model(&model.CashClosure{})
	if f.From != "" {
		q = q.Where("date >= ?", f.From)
	}
	if f.To != "" {
		q = q.Where("date <= ?", f.To)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var closures []model.CashClosure
	err = paginate(q, f.Page).Order("date ASC, closure_number ASC").Find(&closures).Error
	return closures, total, err
}

func (r *cashClosureRepo) Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if _, err := scope.RequireStore(); err != nil {
		return err
	}
	q, _ := scoped(ctx, r.db, scope)
	res := q.Where("id = ?", id).Delete(&model.CashClosure{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
