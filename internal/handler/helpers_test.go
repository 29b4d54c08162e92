package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"rentalcash/internal/apierror"
	"rentalcash/internal/repository"
	"rentalcash/internal/service"
	"rentalcash/internal/tenant"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func TestRespondError_StatusByCode(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrNoActiveSession, http.StatusConflict, service.CodeNoActiveSession},
		{service.ErrSessionAlreadyOpen, http.StatusConflict, service.CodeSessionAlreadyOpen},
		{&service.DepositAlreadySettledError{State: "returned", Requested: "forfeit"}, http.StatusConflict, service.CodeDepositAlreadySettled},
		{&service.ItemNotRentedError{Barcode: "A"}, http.StatusUnprocessableEntity, service.CodeItemNotRented},
		{fmt.Errorf("wrapped: %w", service.ErrRentalNotFound), http.StatusNotFound, service.CodeNotFound},
		{repository.ErrNotFound, http.StatusNotFound, service.CodeNotFound},
		{tenant.ErrStoreRequired, http.StatusForbidden, service.CodeForbidden},
		{service.ErrInvalidRange, http.StatusUnprocessableEntity, service.CodeValidation},
		{service.ErrConflict, http.StatusConflict, service.CodeConflict},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err)

		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		var body apierror.APIError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Code)
	}
}

func TestRespondError_InternalHidesDetail(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, errors.New("pq: relation \"cash_sessions\" does not exist"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "cash_sessions")
	assert.Len(t, c.Errors, 1)
}

func TestRespondError_ExcessPaymentMeta(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, &service.ExcessPaymentError{Requested: decimal.NewFromInt(50), Pending: decimal.NewFromInt(35)})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body apierror.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "35", body.Meta["pending"])
	assert.Equal(t, "50", body.Meta["requested"])
}

func TestValidate_DecimalTags(t *testing.T) {
	type req struct {
		Amount decimal.Decimal `validate:"gt=0"`
	}
	assert.Error(t, validate.Struct(req{Amount: decimal.Zero}))
	assert.NoError(t, validate.Struct(req{Amount: decimal.RequireFromString("0.01")}))
}
