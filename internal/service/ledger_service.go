package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rentalcash/internal/dto"
	"rentalcash/internal/model"
	"rentalcash/internal/repository"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// MovementInput is what a caller asks the ledger to record.
type MovementInput struct {
	SessionID      uuid.UUID
	Type           string
	Method         string
	Category       string
	Amount         decimal.Decimal
	Concept        string
	ReferenceID    *uuid.UUID
	ReferenceType  string
	IdempotencyKey string
	CreatedBy      uuid.UUID
}

// LedgerService is the only write path into cash_movements.
type LedgerService interface {
	// Append validates and inserts one movement into an open session. A
	// repeated idempotency key returns the movement stored the first time.
	Append(ctx context.Context, scope tenant.Scope, in MovementInput) (*model.CashMovement, error)
	// Record books a manual movement into the store's active session.
	Record(ctx context.Context, scope tenant.Scope, userID uuid.UUID, req dto.RecordMovementRequest) (*dto.MovementResponse, error)
	List(ctx context.Context, scope tenant.Scope, f dto.MovementFilter) (*dto.MovementListResponse, error)
	// Delete removes a movement of an open session and writes an audit entry.
	Delete(ctx context.Context, scope tenant.Scope, userID, id uuid.UUID) (*model.CashMovement, error)
}

type ledgerService struct {
	tx        repository.Transactor
	sessions  repository.CashSessionRepository
	movements repository.CashMovementRepository
	audit     repository.AuditRepository
	clock
}

func NewLedgerService(repos repository.Set, clk clock) LedgerService {
	return &ledgerService{
		tx:        repos.Tx,
		sessions:  repos.Sessions,
		movements: repos.Movements,
		audit:     repos.Audit,
		clock:     clk,
	}
}

func (s *ledgerService) Append(ctx context.Context, scope tenant.Scope, in MovementInput) (*model.CashMovement, error) {
	if in.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if !model.IsMovementType(in.Type) {
		return nil, ErrInvalidMovementType
	}
	if !model.IsLedgerMethod(in.Method) {
		return nil, ErrInvalidPaymentMethod
	}
	if !model.IsCategory(in.Category) {
		return nil, ErrInvalidCategory
	}
	if in.SessionID == uuid.Nil {
		return nil, ErrNoActiveSession
	}

	var out *model.CashMovement
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sess, err := s.sessions.LockByID(ctx, scope, in.SessionID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if !sess.IsOpen() {
			return ErrSessionClosed
		}

		if in.IdempotencyKey != "" {
			existing, err := s.movements.FindByIdempotencyKey(ctx, scope, in.IdempotencyKey)
			if err == nil {
				out = existing
				return nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}

		m := &model.CashMovement{
			ID:            uuid.New(),
			SessionID:     &sess.ID,
			MovementType:  in.Type,
			Amount:        in.Amount.Round(2),
			PaymentMethod: in.Method,
			Category:      in.Category,
			Concept:       in.Concept,
			ReferenceID:   in.ReferenceID,
			ReferenceType: in.ReferenceType,
			CreatedBy:     in.CreatedBy,
			CreatedAt:     s.now(),
		}
		if in.IdempotencyKey != "" {
			key := in.IdempotencyKey
			m.IdempotencyKey = &key
		}
		if err := s.movements.Create(ctx, scope, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ledgerService) Record(ctx context.Context, scope tenant.Scope, userID uuid.UUID, req dto.RecordMovementRequest) (*dto.MovementResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	switch req.Category {
	case model.CategoryManual, model.CategoryExternalRepair, model.CategoryOther:
	default:
		return nil, ErrInvalidCategory
	}
	refID, err := parseOptionalUUID(req.ReferenceID)
	if err != nil {
		return nil, fmt.Errorf("reference_id: %w", err)
	}

	var out *model.CashMovement
	err = retryOnConflict(func() error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			sess, err := s.sessions.FindOpen(ctx, scope)
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNoActiveSession
			}
			if err != nil {
				return err
			}
			if req.SessionID != "" && req.SessionID != sess.ID.String() {
				return ErrSessionClosed
			}
			out, err = s.Append(ctx, scope, MovementInput{
				SessionID:      sess.ID,
				Type:           req.MovementType,
				Method:         req.PaymentMethod,
				Category:       req.Category,
				Amount:         req.Amount,
				Concept:        req.Concept,
				ReferenceID:    refID,
				ReferenceType:  req.ReferenceType,
				IdempotencyKey: req.IdempotencyKey,
				CreatedBy:      userID,
			})
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	resp := toMovementResponse(out)
	return &resp, nil
}

func (s *ledgerService) List(ctx context.Context, scope tenant.Scope, f dto.MovementFilter) (*dto.MovementListResponse, error) {
	rf := repository.MovementFilter{
		Category:      f.Category,
		PaymentMethod: f.PaymentMethod,
		Page:          repository.Page{Page: f.Page, Limit: f.Limit},
	}
	var err error
	if rf.SessionID, err = parseOptionalUUID(f.SessionID); err != nil {
		return nil, fmt.Errorf("session_id: %w", err)
	}
	if rf.ReferenceID, err = parseOptionalUUID(f.ReferenceID); err != nil {
		return nil, fmt.Errorf("reference_id: %w", err)
	}
	if f.Date != "" {
		from, to, err := s.dayBounds(f.Date)
		if err != nil {
			return nil, err
		}
		rf.From, rf.To = &from, &to
	}

	rows, total, err := s.movements.List(ctx, scope, rf)
	if err != nil {
		return nil, err
	}
	return &dto.MovementListResponse{
		Data:  toMovementResponses(rows),
		Total: total,
		Page:  f.Page,
		Limit: f.Limit,
	}, nil
}

func (s *ledgerService) Delete(ctx context.Context, scope tenant.Scope, userID, id uuid.UUID) (*model.CashMovement, error) {
	var deleted *model.CashMovement
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.movements.FindByID(ctx, scope, id)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMovementNotFound
		}
		if err != nil {
			return err
		}
		if m.SessionID != nil {
			sess, err := s.sessions.LockByID(ctx, scope, *m.SessionID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if sess != nil && !sess.IsOpen() {
				return ErrSessionClosed
			}
		}
		if err := s.movements.Delete(ctx, scope, m.ID); err != nil {
			return err
		}
		if err := s.writeAudit(ctx, scope, userID, "delete_movement", "cash_movement", m.ID, m); err != nil {
			return err
		}
		deleted = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Warn().
		Str("store_id", deleted.StoreID.String()).
		Str("movement_id", deleted.ID.String()).
		Str("user_id", userID.String()).
		Str("amount", deleted.Amount.StringFixed(2)).
		Msg("cash movement deleted")
	return deleted, nil
}

func (s *ledgerService) writeAudit(ctx context.Context, scope tenant.Scope, userID uuid.UUID, action, entity string, id uuid.UUID, before any) error {
	return recordAudit(ctx, s.audit, scope, userID, action, entity, id, before, s.now())
}

// recordAudit stores before as JSON next to the action.
func recordAudit(ctx context.Context, repo repository.AuditRepository, scope tenant.Scope, userID uuid.UUID, action, entity string, id uuid.UUID, before any, at time.Time) error {
	raw, err := json.Marshal(before)
	if err != nil {
		return err
	}
	return repo.Create(ctx, scope, &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: entity,
		EntityID:   id,
		Before:     string(raw),
		CreatedAt:  at,
	})
}
