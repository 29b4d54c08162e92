package apierror

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeOmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(New("boom"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"detail":"boom"}`, string(raw))

	raw, err = json.Marshal(WithCode("EXCESS_PAYMENT", "too much", map[string]any{"pending": "40.00"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"EXCESS_PAYMENT","detail":"too much","meta":{"pending":"40.00"}}`, string(raw))
}

func TestNewValidation(t *testing.T) {
	v := NewValidation(map[string]string{"amount": "must be greater than 0"})
	assert.Equal(t, "VALIDATION_ERROR", v.Code)
	assert.Equal(t, "must be greater than 0", v.Fields["amount"])
}
