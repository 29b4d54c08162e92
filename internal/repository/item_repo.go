package repository

import (
	"context"

	"rentalcash/internal/model"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ItemRepository interface {
	Create(ctx context.Context, scope tenant.Scope, it *model.Item) error
	FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.Item, error)
	FindByBarcode(ctx context.Context, scope tenant.Scope, barcode string) (*model.Item, error)
	// Update persists the availability fields (status, stock_available).
	Update(ctx context.Context, scope tenant.Scope, it *model.Item) error
	List(ctx context.Context, scope tenant.Scope, p Page) ([]model.Item, int64, error)
}

type itemRepo struct{ db *gorm.DB }

func NewItemRepository(db *gorm.DB) ItemRepository { return &itemRepo{db: db} }

func (r *itemRepo) Create(ctx context.Context, scope tenant.Scope, it *model.Item) error {
	storeID, err := scope.RequireStore()
	if err != nil {
		return err
	}
	it.StoreID = storeID
	return translate(conn(ctx, r.db).Create(it).Error)
}

func (r *itemRepo) FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.Item, error) {
	q, err := scoped(ctx, r.db, scope)
	if err != nil {
		return nil, err
	}
	var it model.Item
	if err := q.Where("id = ?", id).First(&it).Error; err != nil {
		return nil, translate(err)
	}
	return &it, nil
}

func (r *itemRepo) FindByBarcode(ctx context.Context, scope tenant.Scope, barcode string) (*model.Item, error) {
	if _, err := scope.RequireStore(); err != nil {
		return nil, err
	}
	q, _ := scoped(ctx, r.db, scope)
	var it model.Item
	if err := q.Where("barcode = ?", barcode).First(&it).Error; err != nil {
		return nil, translate(err)
	}
	return &it, nil
}

func (r *itemRepo) Update(ctx context.Context, scope tenant.Scope, it *model.Item) error {
	if _, err := scope.RequireStore(); err != nil {
		return err
	}
	q, _ := scoped(ctx, r.db, scope)
	res := q.Model(&model.Item{}).Where("id = ?", it.ID).Updates(map[string]interface{}{
		"status":          it.Status,
		"stock_available": it.StockAvailable,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepo) List(ctx context.Context, scope tenant.Scope, p Page) ([]model.Item, int64, error) {
	q, err := scoped(ctx, r.db, scope)
	if err != nil {
		return nil, 0, err
	}
	q = q.Model(&model.Item{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []model.Item
	err = paginate(q, p).Order("barcode ASC").Find(&items).Error
	return items, total, err
}
