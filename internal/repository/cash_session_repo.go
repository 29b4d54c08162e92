package repository

import (
	"context"
	"time"

	"rentalcash/internal/model"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CashSessionRepository interface {
	// Create fails with ErrDuplicate when the store already has an open
	// session or the session number is taken.
	Create(ctx context.Context, scope tenant.Scope, s *model.CashSession) error
	FindOpen(ctx context.Context, scope tenant.Scope) (*model.CashSession, error)
	FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.CashSession, error)
	// LockByID reads the session under a shared row lock so a concurrent
	// close waits for the caller's transaction.
	LockByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.CashSession, error)
	NextSessionNumber(ctx context.Context, scope tenant.Scope) (int, error)
	// MarkClosed flips an open session to closed; ErrNotFound if it is no longer open.
	MarkClosed(ctx context.Context, scope tenant.Scope, id, closureID, closedBy uuid.UUID, closedAt time.Time) error
	DetachClosure(ctx context.Context, scope tenant.Scope, closureID uuid.UUID) error
	List(ctx context.Context, scope tenant.Scope, f SessionFilter) ([]model.CashSession, int64, error)
	ListOpenedBetween(ctx context.Context, scope tenant.Scope, from, to time.Time) ([]model.CashSession, error)
}

type cashSessionRepo struct{ db *gorm.DB }

func NewCashSessionRepository(db *gorm.DB) CashSessionRepository { return &cashSessionRepo{db: db} }

func (r *cashSessionRepo) Create(ctx context.Context, scope tenant.Scope, s *model.CashSession) error {
	storeID, err := scope.RequireStore()
	if err != nil {
		return err
	}
	s.StoreID = storeID
	return translate(conn(ctx, r.db).Create(s).Error)
}

func (r *cashSessionRepo) FindOpen(ctx context.Context, scope tenant.Scope) (*model.CashSession, error) {
	if _, err := scope.RequireStore(); err != nil {
		return nil, err
	}
	q, _ := scoped(ctx, r.db, scope)
	var s model.CashSession
	if err := q.Where("status = ?", model.SessionOpen).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *cashSessionRepo) FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.CashSession, error) {
	q, err := scoped(ctx, r.db, scope)
	if err != nil {
		return nil, err
	}
	var s model.CashSession
	if err := q.Where("id = ?", id).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *cashSessionRepo) LockByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.CashSession, error) {
	q, err := scoped(ctx, r.db, scope)
	if err != nil {
		return nil, err
	}
	var s model.CashSession
	err = q.Clauses(clause.Locking{Strength: "SHARE"}).Where("id = ?", id).First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *cashSessionRepo) NextSessionNumber(ctx context.Context, scope tenant.Scope) (int, error) {
	if _, err := scope.RequireStore(); err != nil {
		return 0, err
	}
	q, _ := scoped(ctx, r.db, scope)
	var n int
	err := q.Model(&model.CashSession{}).Select("COALESCE(MAX(session_number), 0)").Scan(&n).Error
	return n + 1, err
}

func (r *cashSessionRepo) MarkClosed(ctx context.Context, scope tenant.Scope, id, closureID, closedBy uuid.UUID, closedAt time.Time) error {
	if _, err := scope.RequireStore(); err != nil {
		return err
	}
	q, _ := scoped(ctx, r.db, scope)
	res := q.Model(&model.CashSession{}).
		Where("id = ? AND status = ?", id, model.SessionOpen).
		Updates(map[string]interface{}{
			"status":     model.SessionClosed,
			"closure_id": closureID,
			"closed_by":  closedBy,
			"closed_at":  closedAt,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *cashSessionRepo) DetachClosure(ctx context.Context, scope tenant.Scope, closureID uuid.UUID) error {
	if _, err := scope.RequireStore(); err != nil {
		return err
	}
	q, _ := scoped(ctx, r.db, scope)
	return q.Model(&model.CashSession{}).
		Where("closure_id = ?", closureID).
		Update("closure_id", nil).Error
}

func (r *cashSessionRepo) List(ctx context.Context, scope tenant.Scope, f SessionFilter) ([]model.CashSession, int64, error) {
	q, err := scoped(ctx, r.db, scope)
	if err != nil {
		return nil, 0, err
	}
	q = q.Model(&model.CashSession{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var sessions []model.CashSession
	err = paginate(q, f.Page).Order("opened_at DESC").Find(&sessions).Error
	return sessions, total, err
}

func (r *cashSessionRepo) ListOpenedBetween(ctx context.Context, scope tenant.Scope, from, to time.Time) ([]model.CashSession, error) {
	q, err := scoped(ctx, r.db, scope)
	if err != nil {
		return nil, err
	}
	var sessions []model.CashSession
	err = q.Where("opened_at >= ? AND opened_at < ?", from, to).Order("opened_at ASC").Find(&sessions).Error
	return sessions, err
}
