package service

import (
	"context"
	"testing"
	"time"

	"rentalcash/internal/dto"
	"rentalcash/internal/repository"
	"rentalcash/internal/repository/memory"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctx   context.Context
	svc   *Set
	repos repository.Set
	scope tenant.Scope
	user  uuid.UUID
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		repos: memory.NewSet(),
		scope: tenant.ForStore(uuid.New()),
		user:  uuid.New(),
		now:   time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC),
	}
	f.svc = New(f.repos, Options{Location: time.UTC, Now: func() time.Time { return f.now }})
	return f
}

// tick advances the fixture clock so movements keep a stable order.
func (f *fixture) tick() { f.now = f.now.Add(time.Minute) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func (f *fixture) open(t *testing.T, opening string) *dto.SessionResponse {
	t.Helper()
	s, err := f.svc.Sessions.Open(f.ctx, f.scope, f.user, dto.OpenSessionRequest{OpeningBalance: dec(opening)})
	require.NoError(t, err)
	return s
}

func (f *fixture) item(t *testing.T, barcode, price string, generic bool, stock int) *dto.ItemResponse {
	t.Helper()
	it, err := f.svc.Items.Create(f.ctx, f.scope, dto.CreateItemRequest{
		Barcode: barcode, Name: "item " + barcode, Price: dec(price), IsGeneric: generic, Stock: stock,
	})
	require.NoError(t, err)
	return it
}

func (f *fixture) rent(t *testing.T, req dto.CreateRentalRequest) *dto.RentalPaymentResult {
	t.Helper()
	res, err := f.svc.Rentals.Create(f.ctx, f.scope, f.user, req)
	require.NoError(t, err)
	f.tick()
	return res
}

func (f *fixture) rentalID(t *testing.T, res *dto.RentalPaymentResult) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(res.Rental.ID)
	require.NoError(t, err)
	return id
}

func (f *fixture) live(t *testing.T) *dto.SummaryResponse {
	t.Helper()
	s, err := f.svc.Reports.Summary(f.ctx, f.scope, dto.SummaryQuery{})
	require.NoError(t, err)
	return s
}

func line(barcode string) dto.RentalLineRequest { return dto.RentalLineRequest{Barcode: barcode} }

func repositoryPage() repository.Page { return repository.Page{Page: 1, Limit: 100} }
