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

// ── Sessions ─────────────────────────────────────────────────────────────────

type sessionRepo struct{ s *Store }

func (r *sessionRepo) Create(ctx context.Context, scope tenant.Scope, sess *model.CashSession) error {
	storeID, err := scope.RequireStore()
	if err != nil {
		return err
	}
	return r.s.do(ctx, scope, func(d *dataset) error {
		for _, other := range d.sessions {
			if other.StoreID != storeID {
				continue
			}
			if other.SessionNumber == sess.SessionNumber {
				return repository.ErrDuplicate
			}
			if sess.Status == model.SessionOpen && other.Status == model.SessionOpen {
				return repository.ErrDuplicate
			}
		}
		if sess.ID == uuid.Nil {
			sess.ID = uuid.New()
		}
		sess.StoreID = storeID
		stamp(&sess.OpenedAt)
		d.sessions[sess.ID] = *sess
		return nil
	})
}

func (r *sessionRepo) FindOpen(ctx context.Context, scope tenant.Scope) (*model.CashSession, error) {
	storeID, err := scope.RequireStore()
	if err != nil {
		return nil, err
	}
	var out *model.CashSession
	err = r.s.do(ctx, scope, func(d *dataset) error {
		for _, sess := range d.sessions {
			if sess.StoreID == storeID && sess.Status == model.SessionOpen {
				sess := sess
				out = &sess
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *sessionRepo) FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.CashSession, error) {
	var out *model.CashSession
	err := r.s.do(ctx, scope, func(d *dataset) error {
		sess, ok := d.sessions[id]
		if !ok || !scope.Allows(sess.StoreID) {
			return repository.ErrNotFound
		}
		out = &sess
		return nil
	})
	return out, err
}

// LockByID is FindByID: the store mutex already serializes transactions.
func (r *sessionRepo) LockByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.CashSession, error) {
	return r.FindByID(ctx, scope, id)
}

func (r *sessionRepo) NextSessionNumber(ctx context.Context, scope tenant.Scope) (int, error) {
	storeID, err := scope.RequireStore()
	if err != nil {
		return 0, err
	}
	n := 0
	err = r.s.do(ctx, scope, func(d *dataset) error {
		for _, sess := range d.sessions {
			if sess.StoreID == storeID && sess.SessionNumber > n {
				n = sess.SessionNumber
			}
		}
		return nil
	})
	return n + 1, err
}

func (r *sessionRepo) MarkClosed(ctx context.Context, scope tenant.Scope, id, closureID, closedBy uuid.UUID, closedAt time.Time) error {
	if _, err := scope.RequireStore(); err != nil {
		return err
	}
	return r.s.do(ctx, scope, func(d *dataset) error {
		sess, ok := d.sessions[id]
		if !ok || !scope.Allows(sess.StoreID) || sess.Status != model.SessionOpen {
			return repository.ErrNotFound
		}
		sess.Status = model.SessionClosed
		sess.ClosureID = &closureID
		sess.ClosedBy = &closedBy
		sess.ClosedAt = &closedAt
		d.sessions[id] = sess
		return nil
	})
}

func (r *sessionRepo) DetachClosure(ctx context.Context, scope tenant.Scope, closureID uuid.UUID) error {
	if _, err := scope.RequireStore(); err != nil {
		return err
	}
	return r.s.do(ctx, scope, func(d *dataset) error {
		for id, sess := range d.sessions {
			if scope.Allows(sess.StoreID) && sess.ClosureID != nil && *sess.ClosureID == closureID {
				sess.ClosureID = nil
				d.sessions[id] = sess
			}
		}
		return nil
	})
}

func (r *sessionRepo) List(ctx context.Context, scope tenant.Scope, f repository.SessionFilter) ([]model.CashSession, int64, error) {
	var rows []model.CashSession
	err := r.s.do(ctx, scope, func(d *dataset) error {
		for _, sess := range d.sessions {
			if scope.Allows(sess.StoreID) && (f.Status == "" || sess.Status == f.Status) {
				rows = append(rows, sess)
			}
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].OpenedAt.After(rows[j].OpenedAt) })
	return page(rows, f.Page), int64(len(rows)), err
}

func (r *sessionRepo) ListOpenedBetween(ctx context.Context, scope tenant.Scope, from, to time.Time) ([]model.CashSession, error) {
	var rows []model.CashSession
	err := r.s.do(ctx, scope, func(d *dataset) error {
		for _, sess := range d.sessions {
			if scope.Allows(sess.StoreID) && !sess.OpenedAt.Before(from) && sess.OpenedAt.Before(to) {
				rows = append(rows, sess)
			}
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].OpenedAt.Before(rows[j].OpenedAt) })
	return rows, err
}

// ── Movements ────────────────────────────────────────────────────────────────

type movementRepo struct{ s *Store }

func (r *movementRepo) Create(ctx context.Context, scope tenant.Scope, m *model.CashMovement) error {
	storeID, err := scope.RequireStore()
	if err != nil {
		return err
	}
	return r.s.do(ctx, scope, func(d *dataset) error {
		if m.IdempotencyKey != nil {
			for _, other := range d.movements {
				if other.StoreID == storeID && other.IdempotencyKey != nil && *other.IdempotencyKey == *m.IdempotencyKey {
					return repository.ErrDuplicate
				}
			}
		}
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.StoreID = storeID
		stamp(&m.CreatedAt)
		d.movements = append(d.movements, *m)
		return nil
	})
}

func (r *movementRepo) FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.CashMovement, error) {
	var out *model.CashMovement
	err := r.s.do(ctx, scope, func(d *dataset) error {
		for _, m := range d.movements {
			if m.ID == id && scope.Allows(m.StoreID) {
				m := m
				out = &m
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *movementRepo) FindByIdempotencyKey(ctx context.Context, scope tenant.Scope, key string) (*model.CashMovement, error) {
	storeID, err := scope.RequireStore()
	if err != nil {
		return nil, err
	}
	var out *model.CashMovement
	err = r.s.do(ctx, scope, func(d *dataset) error {
		for _, m := range d.movements {
			if m.StoreID == storeID && m.IdempotencyKey != nil && *m.IdempotencyKey == key {
				m := m
				out = &m
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *movementRepo) List(ctx context.Context, scope tenant.Scope, f repository.MovementFilter) ([]model.CashMovement, int64, error) {
	var rows []model.CashMovement
	err := r.s.do(ctx, scope, func(d *dataset) error {
		for _, m := range d.movements {
			if scope.Allows(m.StoreID) && matchMovement(m, f) {
				rows = append(rows, m)
			}
		}
		return nil
	})
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	return page(rows, f.Page), int64(len(rows)), err
}

func matchMovement(m model.CashMovement, f repository.MovementFilter) bool {
	if f.SessionID != nil && (m.SessionID == nil || *m.SessionID != *f.SessionID) {
		return false
	}
	if f.ReferenceID != nil && (m.ReferenceID == nil || *m.ReferenceID != *f.ReferenceID) {
		return false
	}
	if f.ReferenceType != "" && m.ReferenceType != f.ReferenceType {
		return false
	}
	if f.Category != "" && m.Category != f.Category {
		return false
	}
	if f.PaymentMethod != "" && m.PaymentMethod != f.PaymentMethod {
		return false
	}
	if f.From != nil && m.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !m.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}

func (r *movementRepo) Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if _, err := scope.RequireStore(); err != nil {
		return err
	}
	return r.s.do(ctx, scope, func(d *dataset) error {
		for i, m := range d.movements {
			if m.ID == id && scope.Allows(m.StoreID) {
				d.movements = append(d.movements[:i:i], d.movements[i+1:]...)
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

// ── Closures ─────────────────────────────────────────────────────────────────

type closureRepo struct{ s *Store }

func (r *closureRepo) Create(ctx context.Context, scope tenant.Scope, c *model.CashClosure) error {
	storeID, err := scope.RequireStore()
	if err != nil {
		return err
	}
	return r.s.do(ctx, scope, func(d *dataset) error {
		for _, other := range d.closures {
			if other.StoreID == storeID && other.Date == c.Date && other.ClosureNumber == c.ClosureNumber {
				return repository.ErrDuplicate
			}
		}
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.StoreID = storeID
		d.closures[c.ID] = *c
		return nil
	})
}

func (r *closureRepo) MaxClosureNumber(ctx context.Context, scope tenant.Scope, date string) (int, error) {
	storeID, err := scope.RequireStore()
	if err != nil {
		return 0, err
	}
	n := 0
	err = r.s.do(ctx, scope, func(d *dataset) error {
		for _, c := range d.closures {
			if c.StoreID == storeID && c.Date == date && c.ClosureNumber > n {
				n = c.ClosureNumber
			}
		}
		return nil
	})
	return n, err
}

func (r *closureRepo) FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.CashClosure, error) {
	var out *model.CashClosure
	err := r.s.do(ctx, scope, func(d *dataset) error {
		c, ok := d.closures[id]
		if !ok || !scope.Allows(c.StoreID) {
			return repository.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *closureRepo) List(ctx context.Context, scope tenant.Scope, f repository.ClosureFilter) ([]model.CashClosure, int64, error) {
	var rows []model.CashClosure
	err := r.s.do(ctx, scope, func(d *dataset) error {
		for _, c := range d.closures {
			if !scope.Allows(c.StoreID) {
				continue
			}
			if (f.From != "" && c.Date < f.From) || (f.To != "" && c.Date > f.To) {
				continue
			}
			rows = append(rows, c)
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].ClosureNumber < rows[j].ClosureNumber
	})
	return page(rows, f.Page), int64(len(rows)), err
}

func (r *closureRepo) Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if _, err := scope.RequireStore(); err != nil {
		return err
	}
	return r.s.do(ctx, scope, func(d *dataset) error {
		c, ok := d.closures[id]
		if !ok || !scope.Allows(c.StoreID) {
			return repository.ErrNotFound
		}
		delete(d.closures, id)
		return nil
	})
}

// ── Audit ────────────────────────────────────────────────────────────────────

type auditRepo struct{ s *Store }

func (r *auditRepo) Create(ctx context.Context, scope tenant.Scope, a *model.AuditLog) error {
	storeID, err := scope.RequireStore()
	if err != nil {
		return err
	}
	return r.s.do(ctx, scope, func(d *dataset) error {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.StoreID = storeID
		stamp(&a.CreatedAt)
		d.audit = append(d.audit, *a)
		return nil
	})
}

func (r *auditRepo) List(ctx context.Context, scope tenant.Scope, p repository.Page) ([]model.AuditLog, int64, error) {
	var rows []model.AuditLog
	err := r.s.do(ctx, scope, func(d *dataset) error {
		for i := len(d.audit) - 1; i >= 0; i-- {
			if scope.Allows(d.audit[i].StoreID) {
				rows = append(rows, d.audit[i])
			}
		}
		return nil
	})
	return page(rows, p), int64(len(rows)), err
}
