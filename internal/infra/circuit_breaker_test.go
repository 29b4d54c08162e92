package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func newTestBreaker(now *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, OpenTimeout: time.Minute})
	cb.now = func() time.Time { return *now }
	return cb
}

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)

	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, CBClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, CBOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)
	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return errBoom })
	require.Equal(t, CBOpen, cb.State())

	now = now.Add(time.Minute)
	assert.Equal(t, CBHalfOpen, cb.State())

	// a failed trial reopens
	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, CBOpen, cb.State())

	now = now.Add(time.Minute)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)
	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, CBClosed, cb.State())
}

func TestBreakerSet_OnePerKey(t *testing.T) {
	set := NewBreakerSet(CircuitBreakerConfig{FailureThreshold: 1})
	a := set.For("a")
	assert.Same(t, a, set.For("a"))
	assert.NotSame(t, a, set.For("b"))

	_ = a.Execute(func() error { return errBoom })
	assert.Equal(t, map[string]string{"a": "open", "b": "closed"}, set.States())
}
