// Package memory is an in-process implementation of the repository
// interfaces. It backs DB_DRIVER=memory and the service/handler tests, and
// enforces the same unique constraints as the SQL schema.
package memory

import (
	"context"
	"sync"
	"time"

	"rentalcash/internal/model"
	"rentalcash/internal/repository"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
)

// Store holds every table behind one mutex. WithinTx holds the mutex for the
// whole callback and restores a snapshot when the callback fails.
type Store struct {
	mu   sync.Mutex
	data *dataset
}

type dataset struct {
	sessions  map[uuid.UUID]model.CashSession
	movements []model.CashMovement
	closures  map[uuid.UUID]model.CashClosure
	rentals   map[uuid.UUID]model.Rental
	items     map[uuid.UUID]model.Item
	audit     []model.AuditLog
}

func New() *Store {
	return &Store{data: &dataset{
		sessions: map[uuid.UUID]model.CashSession{},
		closures: map[uuid.UUID]model.CashClosure{},
		rentals:  map[uuid.UUID]model.Rental{},
		items:    map[uuid.UUID]model.Item{},
	}}
}

// NewSet returns a repository.Set backed by a fresh Store.
func NewSet() repository.Set {
	return New().Set()
}

// Set exposes the store through the repository interfaces.
func (s *Store) Set() repository.Set {
	return repository.Set{
		Tx:        s,
		Sessions:  &sessionRepo{s},
		Movements: &movementRepo{s},
		Closures:  &closureRepo{s},
		Rentals:   &rentalRepo{s},
		Items:     &itemRepo{s},
		Audit:     &auditRepo{s},
	}
}

type txKey struct{}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == s {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	committed := false
	defer func() {
		// Also rolls back when fn panics; the panic keeps propagating.
		if !committed {
			s.data = snapshot
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

// do runs fn with the lock held, unless ctx already carries this store's transaction.
func (s *Store) do(ctx context.Context, scope tenant.Scope, fn func(d *dataset) error) error {
	if err := scope.Check(); err != nil {
		return err
	}
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == s {
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		sessions:  make(map[uuid.UUID]model.CashSession, len(d.sessions)),
		movements: append([]model.CashMovement(nil), d.movements...),
		closures:  make(map[uuid.UUID]model.CashClosure, len(d.closures)),
		rentals:   make(map[uuid.UUID]model.Rental, len(d.rentals)),
		items:     make(map[uuid.UUID]model.Item, len(d.items)),
		audit:     append([]model.AuditLog(nil), d.audit...),
	}
	for k, v := range d.sessions {
		c.sessions[k] = v
	}
	for k, v := range d.closures {
		c.closures[k] = v
	}
	for k, v := range d.rentals {
		c.rentals[k] = copyRental(v)
	}
	for k, v := range d.items {
		c.items[k] = v
	}
	return c
}

func copyRental(r model.Rental) model.Rental {
	r.Items = append([]model.RentalItem(nil), r.Items...)
	return r
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}

func page[T any](rows []T, p repository.Page) []T {
	if p.Limit <= 0 {
		return rows
	}
	start := 0
	if p.Page > 1 {
		start = (p.Page - 1) * p.Limit
	}
	if start >= len(rows) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}
