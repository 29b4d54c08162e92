package memory

import (
	"context"
	"sort"
	"time"

	"rentalcash/internal/model"
	"rentalcash/internal/repository"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
)

// ── Rentals ──────────────────────────────────────────────────────────────────

type rentalRepo struct{ s *Store }

func (r *rentalRepo) Create(ctx context.Context, scope tenant.Scope, rental *model.Rental) error {
	storeID, err := scope.RequireStore()
	if err != nil {
		return err
	}
	return r.s.do(ctx, scope, func(d *dataset) error {
		if rental.ID == uuid.Nil {
			rental.ID = uuid.New()
		}
		if _, exists := d.rentals[rental.ID]; exists {
			return repository.ErrDuplicate
		}
		rental.StoreID = storeID
		if rental.Version == 0 {
			rental.Version = 1
		}
		stamp(&rental.CreatedAt)
		rental.UpdatedAt = rental.CreatedAt
		for i := range rental.Items {
			if rental.Items[i].ID == uuid.Nil {
				rental.Items[i].ID = uuid.New()
			}
			rental.Items[i].RentalID = rental.ID
		}
		d.rentals[rental.ID] = copyRental(*rental)
		return nil
	})
}

func (r *rentalRepo) FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.Rental, error) {
	var out *model.Rental
	err := r.s.do(ctx, scope, func(d *dataset) error {
		rental, ok := d.rentals[id]
		if !ok || !scope.Allows(rental.StoreID) {
			return repository.ErrNotFound
		}
		c := copyRental(rental)
		out = &c
		return nil
	})
	return out, err
}

func (r *rentalRepo) Update(ctx context.Context, scope tenant.Scope, rental *model.Rental) error {
	if _, err := scope.RequireStore(); err != nil {
		return err
	}
	return r.s.do(ctx, scope, func(d *dataset) error {
		stored, ok := d.rentals[rental.ID]
		if !ok || !scope.Allows(stored.StoreID) {
			return repository.ErrNotFound
		}
		if stored.Version != rental.Version {
			return repository.ErrStaleVersion
		}
		rental.Version++
		rental.UpdatedAt = time.Now()
		for i := range rental.Items {
			if rental.Items[i].ID == uuid.Nil {
				rental.Items[i].ID = uuid.New()
			}
			rental.Items[i].RentalID = rental.ID
		}
		d.rentals[rental.ID] = copyRental(*rental)
		return nil
	})
}

func (r *rentalRepo) List(ctx context.Context, scope tenant.Scope, f repository.RentalFilter) ([]model.Rental, int64, error) {
	var rows []model.Rental
	err := r.s.do(ctx, scope, func(d *dataset) error {
		for _, rental := range d.rentals {
			if scope.Allows(rental.StoreID) && (f.Status == "" || rental.Status == f.Status) {
				rows = append(rows, copyRental(rental))
			}
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return page(rows, f.Page), int64(len(rows)), err
}

func (r *rentalRepo) ListWithMoney(ctx context.Context, scope tenant.Scope) ([]model.Rental, error) {
	var rows []model.Rental
	err := r.s.do(ctx, scope, func(d *dataset) error {
		for _, rental := range d.rentals {
			if !scope.Allows(rental.StoreID) {
				continue
			}
			if rental.PaidAmount.IsPositive() || rental.Deposit.IsPositive() {
				rows = append(rows, copyRental(rental))
			}
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	return rows, err
}

func (r *rentalRepo) Statuses(ctx context.Context, scope tenant.Scope, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	err := r.s.do(ctx, scope, func(d *dataset) error {
		for _, id := range ids {
			if rental, ok := d.rentals[id]; ok && scope.Allows(rental.StoreID) {
				out[id] = rental.Status
			}
		}
		return nil
	})
	return out, err
}

func (r *rentalRepo) StoreIDs(ctx context.Context, scope tenant.Scope) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	err := r.s.do(ctx, scope, func(d *dataset) error {
		for _, rental := range d.rentals {
			if scope.Allows(rental.StoreID) && !seen[rental.StoreID] {
				seen[rental.StoreID] = true
				ids = append(ids, rental.StoreID)
			}
		}
		return nil
	})
	return ids, err
}

// ── Items ────────────────────────────────────────────────────────────────────

type itemRepo struct{ s *Store }

func (r *itemRepo) Create(ctx context.Context, scope tenant.Scope, it *model.Item) error {
	storeID, err := scope.RequireStore()
	if err != nil {
		return err
	}
	return r.s.do(ctx, scope, func(d *dataset) error {
		for _, other := range d.items {
			if other.StoreID == storeID && other.Barcode == it.Barcode {
				return repository.ErrDuplicate
			}
		}
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		it.StoreID = storeID
		stamp(&it.CreatedAt)
		d.items[it.ID] = *it
		return nil
	})
}

func (r *itemRepo) FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.Item, error) {
	var out *model.Item
	err := r.s.do(ctx, scope, func(d *dataset) error {
		it, ok := d.items[id]
		if !ok || !scope.Allows(it.StoreID) {
			return repository.ErrNotFound
		}
		out = &it
		return nil
	})
	return out, err
}

func (r *itemRepo) FindByBarcode(ctx context.Context, scope tenant.Scope, barcode string) (*model.Item, error) {
	storeID, err := scope.RequireStore()
	if err != nil {
		return nil, err
	}
	var out *model.Item
	err = r.s.do(ctx, scope, func(d *dataset) error {
		for _, it := range d.items {
			if it.StoreID == storeID && it.Barcode == barcode {
				it := it
				out = &it
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *itemRepo) Update(ctx context.Context, scope tenant.Scope, it *model.Item) error {
	if _, err := scope.RequireStore(); err != nil {
		return err
	}
	return r.s.do(ctx, scope, func(d *dataset) error {
		stored, ok := d.items[it.ID]
		if !ok || !scope.Allows(stored.StoreID) {
			return repository.ErrNotFound
		}
		stored.Status = it.Status
		stored.StockAvailable = it.StockAvailable
		stored.UpdatedAt = time.Now()
		d.items[it.ID] = stored
		return nil
	})
}

func (r *itemRepo) List(ctx context.Context, scope tenant.Scope, p repository.Page) ([]model.Item, int64, error) {
	var rows []model.Item
	err := r.s.do(ctx, scope, func(d *dataset) error {
		for _, it := range d.items {
			if scope.Allows(it.StoreID) {
				rows = append(rows, it)
			}
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].Barcode < rows[j].Barcode })
	return page(rows, p), int64(len(rows)), err
}
