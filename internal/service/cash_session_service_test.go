package service

import (
	"sync"
	"testing"

	"rentalcash/internal/dto"
	"rentalcash/internal/model"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SecondOpenFails(t *testing.T) {
	f := newFixture(t)
	first := f.open(t, "100")
	assert.Equal(t, 1, first.SessionNumber)
	assert.Equal(t, model.SessionOpen, first.Status)
	require.NotNil(t, first.Summary)
	assertDec(t, "100", first.Summary.ExpectedCash)

	_, err := f.svc.Sessions.Open(f.ctx, f.scope, f.user, dto.OpenSessionRequest{OpeningBalance: dec("50")})
	assert.ErrorIs(t, err, ErrSessionAlreadyOpen)
	assert.Equal(t, CodeSessionAlreadyOpen, Code(err))
}

func TestOpen_NegativeBalanceRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Sessions.Open(f.ctx, f.scope, f.user, dto.OpenSessionRequest{OpeningBalance: dec("-1")})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestOpen_PlatformScopeNeedsStore(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Sessions.Open(f.ctx, tenant.Platform(), f.user, dto.OpenSessionRequest{})
	assert.ErrorIs(t, err, tenant.ErrStoreRequired)
}

func TestOpen_ConcurrentOpensYieldOneSession(t *testing.T) {
	f := newFixture(t)
	const workers = 12

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Sessions.Open(f.ctx, f.scope, uuid.New(), dto.OpenSessionRequest{OpeningBalance: dec("10")})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrSessionAlreadyOpen)
	}
	assert.Equal(t, 1, ok)

	list, err := f.svc.Sessions.List(f.ctx, f.scope, dto.SessionFilter{Status: model.SessionOpen, Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total)
}

func TestGetActive(t *testing.T) {
	f := newFixture(t)
	active, err := f.svc.Sessions.GetActive(f.ctx, f.scope)
	require.NoError(t, err)
	assert.Nil(t, active)

	_, err = f.svc.Sessions.RequireActive(f.ctx, f.scope)
	assert.ErrorIs(t, err, ErrNoActiveSession)

	opened := f.open(t, "20")
	active, err = f.svc.Sessions.GetActive(f.ctx, f.scope)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, opened.ID, active.ID)
}

func TestClose_WritesClosureAndClosesSession(t *testing.T) {
	f := newFixture(t)
	f.item(t, "DRESS-1", "85", false, 0)
	opened := f.open(t, "100")
	f.rent(t, dto.CreateRentalRequest{
		Items: []dto.RentalLineRequest{line("DRESS-1")}, PaidAmount: dec("85"), Deposit: dec("40"), PaymentMethod: model.PaymentCash,
	})

	closure, err := f.svc.Sessions.Close(f.ctx, f.scope, f.user, dto.CloseSessionRequest{PhysicalCash: dec("224"), CardTotal: dec("0")})
	require.NoError(t, err)
	assert.Equal(t, opened.ID, closure.SessionID)
	assert.Equal(t, "2026-03-14", closure.Date)
	assert.Equal(t, 1, closure.ClosureNumber)
	assertDec(t, "225", closure.ExpectedCash)
	assertDec(t, "-1", closure.DiscrepancyCash)
	assertDec(t, "-1", closure.DiscrepancyTotal)
	assert.Equal(t, model.DiscrepancyMinor, closure.DiscrepancyLevel)
	assert.Equal(t, 2, closure.MovementsCount)

	sid, _ := uuid.Parse(opened.ID)
	sess, err := f.svc.Sessions.Get(f.ctx, f.scope, sid)
	require.NoError(t, err)
	assert.Equal(t, model.SessionClosed, sess.Status)
	require.NotNil(t, sess.ClosureID)
	assert.Equal(t, closure.ID, *sess.ClosureID)

	_, err = f.svc.Sessions.Close(f.ctx, f.scope, f.user, dto.CloseSessionRequest{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, CodeSessionNotFound, Code(err))
}

func TestClose_NumbersClosuresPerDate(t *testing.T) {
	f := newFixture(t)
	for want := 1; want <= 3; want++ {
		f.open(t, "10")
		f.tick()
		c, err := f.svc.Sessions.Close(f.ctx, f.scope, f.user, dto.CloseSessionRequest{PhysicalCash: dec("10")})
		require.NoError(t, err)
		assert.Equal(t, want, c.ClosureNumber)
		assert.Equal(t, model.DiscrepancyNone, c.DiscrepancyLevel)
		f.tick()
	}

	f.now = f.now.AddDate(0, 0, 1)
	f.open(t, "10")
	c, err := f.svc.Sessions.Close(f.ctx, f.scope, f.user, dto.CloseSessionRequest{PhysicalCash: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", c.Date)
	assert.Equal(t, 1, c.ClosureNumber)

	list, err := f.svc.Closures.List(f.ctx, f.scope, dto.ClosureFilter{From: "2026-03-14", To: "2026-03-14", Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 3, list.Total)
}

func TestClosureDelete_DetachesSessionWithoutRenumbering(t *testing.T) {
	f := newFixture(t)
	var ids []uuid.UUID
	for i := 0; i < 2; i++ {
		opened := f.open(t, "0")
		sid, _ := uuid.Parse(opened.ID)
		ids = append(ids, sid)
		_, err := f.svc.Sessions.Close(f.ctx, f.scope, f.user, dto.CloseSessionRequest{})
		require.NoError(t, err)
		f.tick()
	}

	first, err := f.svc.Sessions.Get(f.ctx, f.scope, ids[0])
	require.NoError(t, err)
	closureID, _ := uuid.Parse(*first.ClosureID)
	require.NoError(t, f.svc.Closures.Delete(f.ctx, f.scope, f.user, closureID))

	_, err = f.svc.Closures.Get(f.ctx, f.scope, closureID)
	assert.ErrorIs(t, err, ErrClosureNotFound)

	first, err = f.svc.Sessions.Get(f.ctx, f.scope, ids[0])
	require.NoError(t, err)
	assert.Nil(t, first.ClosureID)
	assert.Equal(t, model.SessionClosed, first.Status)

	list, err := f.svc.Closures.List(f.ctx, f.scope, dto.ClosureFilter{Page: 1, Limit: 50})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, 2, list.Data[0].ClosureNumber)

	audit, _, err := f.repos.Audit.List(f.ctx, f.scope, repositoryPage())
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, "delete_closure", audit[0].Action)

	assert.ErrorIs(t, f.svc.Closures.Delete(f.ctx, f.scope, f.user, closureID), ErrClosureNotFound)
}
