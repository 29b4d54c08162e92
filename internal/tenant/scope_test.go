package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_ZeroValueIsInvalid(t *testing.T) {
	var s Scope
	assert.False(t, s.Valid())
	assert.ErrorIs(t, s.Check(), ErrNoScope)
	_, err := s.RequireStore()
	assert.ErrorIs(t, err, ErrNoScope)
	assert.Equal(t, "none", s.String())
}

func TestScope_ForStore(t *testing.T) {
	id := uuid.New()
	s := ForStore(id)
	require.NoError(t, s.Check())

	got, ok := s.StoreID()
	assert.True(t, ok)
	assert.Equal(t, id, got)
	assert.True(t, s.Allows(id))
	assert.False(t, s.Allows(uuid.New()))

	storeID, err := s.RequireStore()
	require.NoError(t, err)
	assert.Equal(t, id, storeID)
}

func TestScope_ForStoreNilIsInvalid(t *testing.T) {
	assert.False(t, ForStore(uuid.Nil).Valid())
}

func TestScope_Platform(t *testing.T) {
	s := Platform()
	require.NoError(t, s.Check())
	assert.True(t, s.IsPlatform())
	assert.True(t, s.Allows(uuid.New()))

	_, ok := s.StoreID()
	assert.False(t, ok)
	_, err := s.RequireStore()
	assert.ErrorIs(t, err, ErrStoreRequired)
}

func TestScope_Context(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	id := uuid.New()
	ctx := WithScope(context.Background(), ForStore(id))
	s, ok := FromContext(ctx)
	require.True(t, ok)
	assert.True(t, s.Allows(id))

	_, ok = FromContext(WithScope(context.Background(), Scope{}))
	assert.False(t, ok)
}
