package service

import (
	"context"
	"errors"

	"rentalcash/internal/dto"
	"rentalcash/internal/model"
	"rentalcash/internal/reconcile"
	"rentalcash/internal/repository"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ClosureInput is the blind count entered at close time.
type ClosureInput struct {
	PhysicalCash decimal.Decimal
	CardTotal    decimal.Decimal
	Notes        string
	ClosedBy     uuid.UUID
}

// ClosureService owns the closure registry. Close is only called by the
// session manager, inside its transaction.
type ClosureService interface {
	Close(ctx context.Context, scope tenant.Scope, session *model.CashSession, in ClosureInput) (*model.CashClosure, error)
	Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*dto.ClosureResponse, error)
	List(ctx context.Context, scope tenant.Scope, f dto.ClosureFilter) (*dto.ClosureListResponse, error)
	// Delete removes a closure. The session stays closed and other closure
	// numbers are left untouched.
	Delete(ctx context.Context, scope tenant.Scope, userID, id uuid.UUID) error
}

type closureService struct {
	tx        repository.Transactor
	sessions  repository.CashSessionRepository
	movements repository.CashMovementRepository
	closures  repository.CashClosureRepository
	audit     repository.AuditRepository
	clock
}

func NewClosureService(repos repository.Set, clk clock) ClosureService {
	return &closureService{
		tx:        repos.Tx,
		sessions:  repos.Sessions,
		movements: repos.Movements,
		closures:  repos.Closures,
		audit:     repos.Audit,
		clock:     clk,
	}
}

func (s *closureService) Close(ctx context.Context, scope tenant.Scope, session *model.CashSession, in ClosureInput) (*model.CashClosure, error) {
	if in.PhysicalCash.IsNegative() || in.CardTotal.IsNegative() {
		return nil, ErrInvalidAmount
	}

	var closure *model.CashClosure
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		closureID := uuid.New()
		now := s.now()

		// Flip the session first: appends holding the session lock finish
		// before this point, later ones see it closed.
		err := s.sessions.MarkClosed(ctx, scope, session.ID, closureID, in.ClosedBy, now)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionClosed
		}
		if err != nil {
			return err
		}

		movements, _, err := s.movements.List(ctx, scope, repository.MovementFilter{SessionID: &session.ID})
		if err != nil {
			return err
		}
		summary := reconcile.Summarize(session.OpeningBalance, movements)
		closing := reconcile.Close(summary, in.PhysicalCash.Round(2), in.CardTotal.Round(2))

		date := s.date(now)
		last, err := s.closures.MaxClosureNumber(ctx, scope, date)
		if err != nil {
			return err
		}

		closure = &model.CashClosure{
			ID:               closureID,
			SessionID:        session.ID,
			Date:             date,
			ClosureNumber:    last + 1,
			OpeningBalance:   session.OpeningBalance,
			PhysicalCash:     in.PhysicalCash.Round(2),
			CardTotal:        in.CardTotal.Round(2),
			ExpectedCash:     summary.ExpectedCash,
			ExpectedCard:     summary.ExpectedCard,
			DiscrepancyCash:  closing.Cash,
			DiscrepancyCard:  closing.Card,
			DiscrepancyTotal: closing.Total,
			DiscrepancyLevel: closing.Level,
			Totals:           summary,
			MovementsCount:   summary.MovementsCount,
			PeriodStart:      session.OpenedAt,
			ClosedBy:         in.ClosedBy,
			ClosedAt:         now,
			Notes:            in.Notes,
		}
		return s.closures.Create(ctx, scope, closure)
	})
	if err != nil {
		return nil, err
	}

	ev := log.Info()
	if closure.DiscrepancyLevel == model.DiscrepancyMajor {
		ev = log.Warn()
	}
	ev.Str("store_id", closure.StoreID.String()).
		Str("session_id", session.ID.String()).
		Str("date", closure.Date).
		Int("closure_number", closure.ClosureNumber).
		Str("discrepancy", closure.DiscrepancyTotal.StringFixed(2)).
		Str("level", closure.DiscrepancyLevel).
		Msg("cash session closed")
	return closure, nil
}

func (s *closureService) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*dto.ClosureResponse, error) {
	c, err := s.closures.FindByID(ctx, scope, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrClosureNotFound
	}
	if err != nil {
		return nil, err
	}
	resp := toClosureResponse(c)
	return &resp, nil
}

func (s *closureService) List(ctx context.Context, scope tenant.Scope, f dto.ClosureFilter) (*dto.ClosureListResponse, error) {
	rows, total, err := s.closures.List(ctx, scope, repository.ClosureFilter{
		From: f.From,
		To:   f.To,
		Page: repository.Page{Page: f.Page, Limit: f.Limit},
	})
	if err != nil {
		return nil, err
	}
	data := make([]dto.ClosureResponse, 0, len(rows))
	for i := range rows {
		data = append(data, toClosureResponse(&rows[i]))
	}
	return &dto.ClosureListResponse{Data: data, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *closureService) Delete(ctx context.Context, scope tenant.Scope, userID, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.closures.FindByID(ctx, scope, id)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClosureNotFound
		}
		if err != nil {
			return err
		}
		if err := s.closures.Delete(ctx, scope, c.ID); err != nil {
			return err
		}
		if err := s.sessions.DetachClosure(ctx, scope, c.ID); err != nil {
			return err
		}
		return recordAudit(ctx, s.audit, scope, userID, "delete_closure", "cash_closure", c.ID, c, s.now())
	})
}
