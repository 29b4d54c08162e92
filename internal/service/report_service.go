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
	"github.com/shopspring/decimal"
)

// Summary scopes.
const (
	SummaryScopeSession = "session"
	SummaryScopeDate    = "date"
	SummaryScopeRange   = "range"
	SummaryScopeLive    = "live"
)

// ReportService answers every read of balances. All of them go through
// reconcile.Summarize so the register view, the daily report and the
// financial summary agree for the same movement set.
type ReportService interface {
	// Summary picks the session, the date or the live session, in that order.
	Summary(ctx context.Context, scope tenant.Scope, q dto.SummaryQuery) (*dto.SummaryResponse, error)
	SessionSummary(ctx context.Context, scope tenant.Scope, sessionID uuid.UUID) (*dto.SummaryResponse, error)
	DailyReport(ctx context.Context, scope tenant.Scope, date string) (*dto.SummaryResponse, error)
	FinancialSummary(ctx context.Context, scope tenant.Scope, q dto.RangeQuery) (*dto.SummaryResponse, error)
}

type reportService struct {
	sessions        repository.CashSessionRepository
	movements       repository.CashMovementRepository
	sessionsService CashSessionService
	clock
}

func NewReportService(repos repository.Set, sessions CashSessionService, clk clock) ReportService {
	return &reportService{
		sessions:        repos.Sessions,
		movements:       repos.Movements,
		sessionsService: sessions,
		clock:           clk,
	}
}

func (s *reportService) Summary(ctx context.Context, scope tenant.Scope, q dto.SummaryQuery) (*dto.SummaryResponse, error) {
	switch {
	case q.SessionID != "":
		// An unknown session reads as an empty summary.
		id, err := uuid.Parse(q.SessionID)
		if err != nil {
			return emptySessionSummary(q.SessionID), nil
		}
		resp, err := s.SessionSummary(ctx, scope, id)
		if errors.Is(err, ErrSessionNotFound) {
			return emptySessionSummary(q.SessionID), nil
		}
		return resp, err
	case q.Date != "":
		return s.DailyReport(ctx, scope, q.Date)
	}

	sess, err := s.sessionsService.RequireActive(ctx, scope)
	if errors.Is(err, ErrNoActiveSession) {
		return &dto.SummaryResponse{
			Scope:   SummaryScopeLive,
			Summary: reconcile.Summarize(decimal.Zero, nil),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	resp, err := s.summarizeSession(ctx, scope, sess)
	if err != nil {
		return nil, err
	}
	resp.Scope = SummaryScopeLive
	return resp, nil
}

func emptySessionSummary(sessionID string) *dto.SummaryResponse {
	return &dto.SummaryResponse{
		Scope:     SummaryScopeSession,
		SessionID: &sessionID,
		Summary:   reconcile.Summarize(decimal.Zero, nil),
	}
}

func (s *reportService) SessionSummary(ctx context.Context, scope tenant.Scope, sessionID uuid.UUID) (*dto.SummaryResponse, error) {
	sess, err := s.sessions.FindByID(ctx, scope, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.summarizeSession(ctx, scope, sess)
}

func (s *reportService) DailyReport(ctx context.Context, scope tenant.Scope, date string) (*dto.SummaryResponse, error) {
	summary, err := s.summarizeRange(ctx, scope, date, date)
	if err != nil {
		return nil, err
	}
	return &dto.SummaryResponse{Scope: SummaryScopeDate, From: date, To: date, Summary: summary}, nil
}

func (s *reportService) FinancialSummary(ctx context.Context, scope tenant.Scope, q dto.RangeQuery) (*dto.SummaryResponse, error) {
	summary, err := s.summarizeRange(ctx, scope, q.From, q.To)
	if err != nil {
		return nil, err
	}
	return &dto.SummaryResponse{Scope: SummaryScopeRange, From: q.From, To: q.To, Summary: summary}, nil
}

func (s *reportService) summarizeSession(ctx context.Context, scope tenant.Scope, sess *model.CashSession) (*dto.SummaryResponse, error) {
	movements, _, err := s.movements.List(ctx, scope, repository.MovementFilter{SessionID: &sess.ID})
	if err != nil {
		return nil, err
	}
	id := sess.ID.String()
	return &dto.SummaryResponse{
		Scope:     SummaryScopeSession,
		SessionID: &id,
		Summary:   reconcile.Summarize(sess.OpeningBalance, movements),
	}, nil
}

// summarizeRange covers whole store-local days from..to. The opening balance
// is the sum of the sessions opened inside the range.
func (s *reportService) summarizeRange(ctx context.Context, scope tenant.Scope, from, to string) (model.Summary, error) {
	start, _, err := s.dayBounds(from)
	if err != nil {
		return model.Summary{}, err
	}
	_, end, err := s.dayBounds(to)
	if err != nil {
		return model.Summary{}, err
	}
	if !end.After(start) {
		return model.Summary{}, ErrInvalidRange
	}

	movements, _, err := s.movements.List(ctx, scope, repository.MovementFilter{From: &start, To: &end})
	if err != nil {
		return model.Summary{}, err
	}
	sessions, err := s.sessions.ListOpenedBetween(ctx, scope, start, end)
	if err != nil {
		return model.Summary{}, err
	}
	opening := decimal.Zero
	for _, sess := range sessions {
		opening = opening.Add(sess.OpeningBalance)
	}
	return reconcile.Summarize(opening, movements), nil
}
