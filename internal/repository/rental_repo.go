package repository

import (
	"context"
	"time"

	"rentalcash/internal/model"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RentalRepository interface {
	Create(ctx context.Context, scope tenant.Scope, r *model.Rental) error
	FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.Rental, error)
	// Update saves the rental and its lines if r.Version still matches the
	// stored row, then bumps r.Version. A lost race yields ErrStaleVersion.
	Update(ctx context.Context, scope tenant.Scope, r *model.Rental) error
	List(ctx context.Context, scope tenant.Scope, f RentalFilter) ([]model.Rental, int64, error)
	// ListWithMoney returns rentals carrying any paid amount or deposit.
	ListWithMoney(ctx context.Context, scope tenant.Scope) ([]model.Rental, error)
	// Statuses maps each existing id to its status; missing ids are absent.
	Statuses(ctx context.Context, scope tenant.Scope, ids []uuid.UUID) (map[uuid.UUID]string, error)
	StoreIDs(ctx context.Context, scope tenant.Scope) ([]uuid.UUID, error)
}

type rentalRepo struct{ db *gorm.DB }

func NewRentalRepository(db *gorm.DB) RentalRepository { return &rentalRepo{db: db} }

func (r *rentalRepo) Create(ctx context.Context, scope tenant.Scope, rental *model.Rental) error {
	storeID, err := scope.RequireStore()
	if err != nil {
		return err
	}
	rental.StoreID = storeID
	if rental.Version == 0 {
		rental.Version = 1
	}
	return translate(conn(ctx, r.db).Create(rental).Error)
}

func (r *rentalRepo) FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.Rental, error) {
	q, err := scoped(ctx, r.db, scope)
	if err != nil {
		return nil, err
	}
	var rental model.Rental
	err = q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("barcode ASC, id ASC") }).
		Where("id = ?", id).First(&rental).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rental, nil
}

func (r *rentalRepo) Update(ctx context.Context, scope tenant.Scope, rental *model.Rental) error {
	if _, err := scope.RequireStore(); err != nil {
		return err
	}
	q, _ := scoped(ctx, r.db, scope)
	now := time.Now()
	res := q.Model(&model.Rental{}).
		Where("id = ? AND version = ?", rental.ID, rental.Version).
		Updates(map[string]interface{}{
			"status":            rental.Status,
			"subtotal":          rental.Subtotal,
			"discount":          rental.Discount,
			"total_amount":      rental.TotalAmount,
			"paid_amount":       rental.PaidAmount,
			"pending_amount":    rental.PendingAmount,
			"deposit":           rental.Deposit,
			"deposit_returned":  rental.DepositReturned,
			"deposit_forfeited": rental.DepositForfeited,
			"payment_method":    rental.PaymentMethod,
			"version":           rental.Version + 1,
			"updated_at":        now,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	rental.Version++
	rental.UpdatedAt = now

	keep := make([]uuid.UUID, 0, len(rental.Items))
	for i := range rental.Items {
		rental.Items[i].RentalID = rental.ID
		if err := conn(ctx, r.db).Save(&rental.Items[i]).Error; err != nil {
			return translate(err)
		}
		keep = append(keep, rental.Items[i].ID)
	}
	del := conn(ctx, r.db).Where("rental_id = ?", rental.ID)
	if len(keep) > 0 {
		del = del.Where("id NOT IN ?", keep)
	}
	return del.Delete(&model.RentalItem{}).Error
}

func (r *rentalRepo) List(ctx context.Context, scope tenant.Scope, f RentalFilter) ([]model.Rental, int64, error) {
	q, err := scoped(ctx, r.db, scope)
	if err != nil {
		return nil, 0, err
	}
	q = q.Model(&model.Rental{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rentals []model.Rental
	err = paginate(q, f.Page).Preload("Items").Order("created_at DESC").Find(&rentals).Error
	return rentals, total, err
}

func (r *rentalRepo) ListWithMoney(ctx context.Context, scope tenant.Scope) ([]model.Rental, error) {
	q, err := scoped(ctx, r.db, scope)
	if err != nil {
		return nil, err
	}
	var rentals []model.Rental
	err = q.Where("paid_amount > 0 OR deposit > 0").Order("created_at ASC").Find(&rentals).Error
	return rentals, err
}

func (r *rentalRepo) Statuses(ctx context.Context, scope tenant.Scope, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	q, err := scoped(ctx, r.db, scope)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID     uuid.UUID
		Status string
	}
	if err := q.Model(&model.Rental{}).Select("id, status").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Status
	}
	return out, nil
}

func (r *rentalRepo) StoreIDs(ctx context.Context, scope tenant.Scope) ([]uuid.UUID, error) {
	q, err := scoped(ctx, r.db, scope)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	err = q.Model(&model.Rental{}).Distinct().Pluck("store_id", &ids).Error
	return ids, err
}
