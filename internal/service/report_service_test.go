package service

import (
	"testing"

	"rentalcash/internal/dto"
	"rentalcash/internal/model"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary_LiveWithoutSessionIsEmpty(t *testing.T) {
	f := newFixture(t)
	s := f.live(t)
	assert.Equal(t, SummaryScopeLive, s.Scope)
	assert.Nil(t, s.SessionID)
	assertDec(t, "0", s.Summary.ExpectedCash)
	assert.Contains(t, s.Summary.ByPaymentMethod, model.PaymentCash)
	assert.Contains(t, s.Summary.ByPaymentMethod, model.PaymentCard)
}

func TestSummary_DailyReportMatchesFinancialSummary(t *testing.T) {
	f := newFixture(t)
	f.item(t, "A", "60", false, 0)
	f.open(t, "100")
	f.rent(t, dto.CreateRentalRequest{Items: []dto.RentalLineRequest{line("A")}, PaidAmount: dec("60"), PaymentMethod: model.PaymentCard})
	_, err := f.svc.Ledger.Record(f.ctx, f.scope, f.user, manual(model.MovementExpense, model.PaymentCash, "15"))
	require.NoError(t, err)

	daily, err := f.svc.Reports.DailyReport(f.ctx, f.scope, "2026-03-14")
	require.NoError(t, err)
	rng, err := f.svc.Reports.FinancialSummary(f.ctx, f.scope, dto.RangeQuery{From: "2026-03-14", To: "2026-03-14"})
	require.NoError(t, err)
	byDate, err := f.svc.Reports.Summary(f.ctx, f.scope, dto.SummaryQuery{Date: "2026-03-14"})
	require.NoError(t, err)

	assert.Equal(t, SummaryScopeDate, daily.Scope)
	assert.Equal(t, SummaryScopeRange, rng.Scope)
	assert.Equal(t, daily.Summary, rng.Summary)
	assert.Equal(t, daily.Summary, byDate.Summary)
	assertDec(t, "100", daily.Summary.OpeningBalance)
	assertDec(t, "85", daily.Summary.ExpectedCash)
	assertDec(t, "60", daily.Summary.ExpectedCard)

	live := f.live(t).Summary
	assert.Equal(t, live.ExpectedCash.String(), daily.Summary.ExpectedCash.String())
}

func TestSummary_RangeSumsOpeningsAndExcludesOtherDays(t *testing.T) {
	f := newFixture(t)
	f.open(t, "100")
	_, err := f.svc.Ledger.Record(f.ctx, f.scope, f.user, manual(model.MovementIncome, model.PaymentCash, "10"))
	require.NoError(t, err)
	_, err = f.svc.Sessions.Close(f.ctx, f.scope, f.user, dto.CloseSessionRequest{PhysicalCash: dec("110")})
	require.NoError(t, err)

	f.now = f.now.AddDate(0, 0, 1)
	f.open(t, "50")
	_, err = f.svc.Ledger.Record(f.ctx, f.scope, f.user, manual(model.MovementIncome, model.PaymentCash, "5"))
	require.NoError(t, err)

	day2, err := f.svc.Reports.DailyReport(f.ctx, f.scope, "2026-03-15")
	require.NoError(t, err)
	assertDec(t, "50", day2.Summary.OpeningBalance)
	assertDec(t, "55", day2.Summary.ExpectedCash)

	both, err := f.svc.Reports.FinancialSummary(f.ctx, f.scope, dto.RangeQuery{From: "2026-03-14", To: "2026-03-15"})
	require.NoError(t, err)
	assertDec(t, "150", both.Summary.OpeningBalance)
	assert.Equal(t, 2, both.Summary.MovementsCount)

	_, err = f.svc.Reports.FinancialSummary(f.ctx, f.scope, dto.RangeQuery{From: "2026-03-15", To: "2026-03-14"})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestSessionSummary(t *testing.T) {
	f := newFixture(t)
	opened := f.open(t, "20")
	_, err := f.svc.Ledger.Record(f.ctx, f.scope, f.user, manual(model.MovementIncome, model.PaymentCash, "5"))
	require.NoError(t, err)

	id, _ := uuid.Parse(opened.ID)
	s, err := f.svc.Reports.SessionSummary(f.ctx, f.scope, id)
	require.NoError(t, err)
	assert.Equal(t, SummaryScopeSession, s.Scope)
	require.NotNil(t, s.SessionID)
	assert.Equal(t, opened.ID, *s.SessionID)
	assertDec(t, "25", s.Summary.ExpectedCash)

	_, err = f.svc.Reports.SessionSummary(f.ctx, f.scope, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// through the summary filter a missing session reads as empty
	for _, sid := range []string{uuid.NewString(), "not-a-uuid"} {
		empty, err := f.svc.Reports.Summary(f.ctx, f.scope, dto.SummaryQuery{SessionID: sid})
		require.NoError(t, err, sid)
		assert.Equal(t, SummaryScopeSession, empty.Scope)
		assert.Zero(t, empty.Summary.MovementsCount)
		assertDec(t, "0", empty.Summary.ExpectedCash)
	}

	// another store's session is not visible either
	other, err := f.svc.Reports.Summary(f.ctx, tenant.ForStore(uuid.New()), dto.SummaryQuery{SessionID: opened.ID})
	require.NoError(t, err)
	assert.Zero(t, other.Summary.MovementsCount)
}
