package repository

import (
	"context"
	"errors"
	"time"

	"rentalcash/internal/tenant"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
	// ErrStaleVersion is returned when an optimistic update lost a race.
	ErrStaleVersion = errors.New("stale version")
)

// Transactor runs fn atomically. Repositories called with the ctx passed to fn
// join the transaction; nested calls reuse the outer one.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Set bundles every repository the services need.
type Set struct {
	Tx        Transactor
	Sessions  CashSessionRepository
	Movements CashMovementRepository
	Closures  CashClosureRepository
	Rentals   RentalRepository
	Items     ItemRepository
	Audit     AuditRepository
}

// NewGormSet builds the postgres/sqlite backed repositories.
func NewGormSet(db *gorm.DB) Set {
	return Set{
		Tx:        NewTransactor(db),
		Sessions:  NewCashSessionRepository(db),
		Movements: NewCashMovementRepository(db),
		Closures:  NewCashClosureRepository(db),
		Rentals:   NewRentalRepository(db),
		Items:     NewItemRepository(db),
		Audit:     NewAuditRepository(db),
	}
}

// ── Filters ──────────────────────────────────────────────────────────────────

// Page is 1-based; Limit 0 means no limit.
type Page struct {
	Page  int
	Limit int
}

func (p Page) offset() int {
	if p.Page < 1 || p.Limit <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type SessionFilter struct {
	Status string
	Page
}

type MovementFilter struct {
	SessionID     *uuid.UUID
	ReferenceID   *uuid.UUID
	ReferenceType string
	Category      string
	PaymentMethod string
	From          *time.Time // inclusive
	To            *time.Time // exclusive
	Page
}

type ClosureFilter struct {
	From string // YYYY-MM-DD inclusive
	To   string // YYYY-MM-DD inclusive
	Page
}

type RentalFilter struct {
	Status string
	Page
}

// ── gorm plumbing ────────────────────────────────────────────────────────────

type txKey struct{}

type gormTransactor struct{ db *gorm.DB }

func NewTransactor(db *gorm.DB) Transactor { return &gormTransactor{db: db} }

func (t *gormTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction bound to ctx, or db.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// scoped applies the store filter. Platform scopes see every store.
func scoped(ctx context.Context, db *gorm.DB, scope tenant.Scope) (*gorm.DB, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	q := conn(ctx, db)
	if id, ok := scope.StoreID(); ok {
		q = q.Where("store_id = ?", id)
	}
	return q, nil
}

func paginate(q *gorm.DB, p Page) *gorm.DB {
	if p.Limit > 0 {
		q = q.Offset(p.offset()).Limit(p.Limit)
	}
	return q
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
