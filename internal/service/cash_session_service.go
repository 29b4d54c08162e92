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
)

// CashSessionService manages the one-open-session-per-store lifecycle.
type CashSessionService interface {
	Open(ctx context.Context, scope tenant.Scope, userID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error)
	// GetActive returns nil, nil when the store has no open session.
	GetActive(ctx context.Context, scope tenant.Scope) (*dto.SessionResponse, error)
	// RequireActive is the precondition check used by every money-moving operation.
	RequireActive(ctx context.Context, scope tenant.Scope) (*model.CashSession, error)
	Close(ctx context.Context, scope tenant.Scope, userID uuid.UUID, req dto.CloseSessionRequest) (*dto.ClosureResponse, error)
	Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*dto.SessionResponse, error)
	List(ctx context.Context, scope tenant.Scope, f dto.SessionFilter) (*dto.SessionListResponse, error)
}

type cashSessionService struct {
	tx        repository.Transactor
	sessions  repository.CashSessionRepository
	movements repository.CashMovementRepository
	closures  ClosureService
	clock
}

func NewCashSessionService(repos repository.Set, closures ClosureService, clk clock) CashSessionService {
	return &cashSessionService{
		tx:        repos.Tx,
		sessions:  repos.Sessions,
		movements: repos.Movements,
		closures:  closures,
		clock:     clk,
	}
}

func (s *cashSessionService) Open(ctx context.Context, scope tenant.Scope, userID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error) {
	if req.OpeningBalance.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if _, err := scope.RequireStore(); err != nil {
		return nil, err
	}

	var sess *model.CashSession
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.sessions.FindOpen(ctx, scope); err == nil {
			return ErrSessionAlreadyOpen
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		n, err := s.sessions.NextSessionNumber(ctx, scope)
		if err != nil {
			return err
		}
		sess = &model.CashSession{
			SessionNumber:  n,
			OpeningBalance: req.OpeningBalance.Round(2),
			OpenedBy:       userID,
			OpenedAt:       s.now(),
			Status:         model.SessionOpen,
		}
		return s.sessions.Create(ctx, scope, sess)
	})
	// The partial unique index is the arbiter when two opens race.
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrSessionAlreadyOpen
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("store_id", sess.StoreID.String()).
		Str("session_id", sess.ID.String()).
		Int("session_number", sess.SessionNumber).
		Msg("cash session opened")

	resp := toSessionResponse(sess)
	summary := reconcile.Summarize(sess.OpeningBalance, nil)
	resp.Summary = &summary
	return &resp, nil
}

func (s *cashSessionService) GetActive(ctx context.Context, scope tenant.Scope) (*dto.SessionResponse, error) {
	sess, err := s.sessions.FindOpen(ctx, scope)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.withSummary(ctx, scope, sess)
}

func (s *cashSessionService) RequireActive(ctx context.Context, scope tenant.Scope) (*model.CashSession, error) {
	sess, err := s.sessions.FindOpen(ctx, scope)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *cashSessionService) Close(ctx context.Context, scope tenant.Scope, userID uuid.UUID, req dto.CloseSessionRequest) (*dto.ClosureResponse, error) {
	var closure *model.CashClosure
	err := retryOnConflict(func() error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			sess, err := s.RequireActive(ctx, scope)
			if err != nil {
				return err
			}
			closure, err = s.closures.Close(ctx, scope, sess, ClosureInput{
				PhysicalCash: req.PhysicalCash,
				CardTotal:    req.CardTotal,
				Notes:        req.Notes,
				ClosedBy:     userID,
			})
			return err
		})
	})
	// Nothing to close, or lost the race against another close.
	if errors.Is(err, ErrNoActiveSession) || errors.Is(err, ErrSessionClosed) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	resp := toClosureResponse(closure)
	return &resp, nil
}

func (s *cashSessionService) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*dto.SessionResponse, error) {
	sess, err := s.sessions.FindByID(ctx, scope, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.withSummary(ctx, scope, sess)
}

func (s *cashSessionService) List(ctx context.Context, scope tenant.Scope, f dto.SessionFilter) (*dto.SessionListResponse, error) {
	rows, total, err := s.sessions.List(ctx, scope, repository.SessionFilter{
		Status: f.Status,
		Page:   repository.Page{Page: f.Page, Limit: f.Limit},
	})
	if err != nil {
		return nil, err
	}
	data := make([]dto.SessionResponse, 0, len(rows))
	for i := range rows {
		data = append(data, toSessionResponse(&rows[i]))
	}
	return &dto.SessionListResponse{Data: data, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *cashSessionService) withSummary(ctx context.Context, scope tenant.Scope, sess *model.CashSession) (*dto.SessionResponse, error) {
	movements, _, err := s.movements.List(ctx, scope, repository.MovementFilter{SessionID: &sess.ID})
	if err != nil {
		return nil, err
	}
	resp := toSessionResponse(sess)
	summary := reconcile.Summarize(sess.OpeningBalance, movements)
	resp.Summary = &summary
	return &resp, nil
}
