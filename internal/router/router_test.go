package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rentalcash/internal/apierror"
	"rentalcash/internal/config"
	"rentalcash/internal/dto"
	"rentalcash/internal/middleware"
	"rentalcash/internal/repository/memory"
	"rentalcash/internal/service"
	"rentalcash/internal/tenant"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret = "router-test-secret-0123456789abcdef"
	testPIN    = "4321"
)

func init() { gin.SetMode(gin.TestMode) }

type server struct {
	t      *testing.T
	engine *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPIN), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := &config.Config{
		Env:                "test",
		RateLimitPerMinute: 10000,
		JWTSecret:          testSecret,
		ManagerPINHash:     string(hash),
		StoreTimezone:      "UTC",
	}
	svc := service.New(memory.NewSet(), service.Options{Location: time.UTC})
	return &server{t: t, engine: New(cfg, svc, nil, nil, nil)}
}

func token(t *testing.T, role string, store uuid.UUID) string {
	t.Helper()
	claims := middleware.JWTClaims{UserID: uuid.NewString(), Username: role, Role: role}
	if store != uuid.Nil {
		claims.StoreID = store.String()
	}
	tok, err := middleware.IssueToken(testSecret, claims, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *server) do(method, path, tok string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth_WithoutBackends(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "disabled", body["db"])
	assert.Equal(t, "disabled", body["redis"])
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newServer(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/v1/cash/sessions/active", "", nil).Code)
}

func TestCashFlowOverHTTP(t *testing.T) {
	s := newServer(t)
	store := uuid.New()
	admin := token(t, tenant.RoleAdmin, store)
	cashier := token(t, tenant.RoleCashier, store)

	// cashiers cannot manage the catalog
	w := s.do(http.MethodPost, "/v1/items", cashier, dto.CreateItemRequest{Barcode: "SUIT-1", Name: "Suit", Price: decimal.NewFromInt(85)})
	require.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodPost, "/v1/items", admin, dto.CreateItemRequest{Barcode: "SUIT-1", Name: "Suit", Price: decimal.NewFromInt(85)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	rental := dto.CreateRentalRequest{
		CustomerName:  "Ana",
		Items:         []dto.RentalLineRequest{{Barcode: "SUIT-1"}},
		PaidAmount:    decimal.NewFromInt(50),
		Deposit:       decimal.NewFromInt(40),
		PaymentMethod: "cash",
	}

	// no session yet
	w = s.do(http.MethodPost, "/v1/rentals", cashier, rental)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, service.CodeNoActiveSession, decode[apierror.APIError](t, w).Code)

	w = s.do(http.MethodGet, "/v1/cash/sessions/active", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"session":null}`, w.Body.String())

	w = s.do(http.MethodPost, "/v1/cash/sessions", cashier, dto.OpenSessionRequest{OpeningBalance: decimal.NewFromInt(100)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(http.MethodPost, "/v1/cash/sessions", cashier, dto.OpenSessionRequest{OpeningBalance: decimal.NewFromInt(100)})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, service.CodeSessionAlreadyOpen, decode[apierror.APIError](t, w).Code)

	w = s.do(http.MethodPost, "/v1/rentals", cashier, rental)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.RentalPaymentResult](t, w)
	require.Len(t, created.Movements, 2)
	assert.True(t, created.Rental.PendingAmount.Equal(decimal.NewFromInt(35)))

	// overpaying is rejected with the amounts in meta
	w = s.do(http.MethodPost, "/v1/rentals/"+created.Rental.ID+"/payments", cashier,
		dto.AdditionalPaymentRequest{Amount: decimal.NewFromInt(50), PaymentMethod: "card"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	excess := decode[apierror.APIError](t, w)
	assert.Equal(t, service.CodeExcessPayment, excess.Code)
	assert.Contains(t, excess.Meta, "pending")

	w = s.do(http.MethodPost, "/v1/rentals/"+created.Rental.ID+"/payments", cashier,
		dto.AdditionalPaymentRequest{Amount: decimal.NewFromInt(35), PaymentMethod: "card"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// idempotent manual movement
	move := dto.RecordMovementRequest{
		MovementType: "expense", Amount: decimal.NewFromInt(10), PaymentMethod: "cash",
		Category: "other", Concept: "coffee for the shop",
	}
	w1 := s.do(http.MethodPost, "/v1/cash/movements", cashier, move, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, w1.Code, w1.Body.String())
	w2 := s.do(http.MethodPost, "/v1/cash/movements", cashier, move, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, w2.Code)
	assert.Equal(t, decode[dto.MovementResponse](t, w1).ID, decode[dto.MovementResponse](t, w2).ID)

	w = s.do(http.MethodGet, "/v1/cash/summary", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sum := decode[dto.SummaryResponse](t, w)
	// 100 opening + 50 rent + 40 deposit - 10 expense
	assert.True(t, sum.Summary.ExpectedCash.Equal(decimal.NewFromInt(180)), sum.Summary.ExpectedCash.String())
	assert.True(t, sum.Summary.ExpectedCard.Equal(decimal.NewFromInt(35)))

	w = s.do(http.MethodPost, "/v1/cash/sessions/close", cashier,
		dto.CloseSessionRequest{PhysicalCash: decimal.NewFromInt(180), CardTotal: decimal.NewFromInt(35)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	closure := decode[dto.ClosureResponse](t, w)
	assert.Equal(t, "ok", closure.DiscrepancyLevel)
	assert.Equal(t, 1, closure.ClosureNumber)

	// nothing left to close
	w = s.do(http.MethodPost, "/v1/cash/sessions/close", cashier,
		dto.CloseSessionRequest{PhysicalCash: decimal.NewFromInt(0)})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", decode[apierror.APIError](t, w).Code)

	w = s.do(http.MethodGet, "/v1/cash/closures", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[dto.ClosureListResponse](t, w).Total)

	// another store cannot see it
	other := token(t, tenant.RoleAdmin, uuid.New())
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/cash/closures/"+closure.ID, other, nil).Code)

	// closure delete: admin + manager PIN
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/v1/cash/closures/"+closure.ID, cashier, nil, middleware.ManagerPINHeader, testPIN).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/v1/cash/closures/"+closure.ID, admin, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/v1/cash/closures/"+closure.ID, admin, nil, middleware.ManagerPINHeader, testPIN).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/cash/closures/"+closure.ID, admin, nil).Code)
}

func TestValidationErrors(t *testing.T) {
	s := newServer(t)
	cashier := token(t, tenant.RoleCashier, uuid.New())

	w := s.do(http.MethodPost, "/v1/cash/movements", cashier, map[string]interface{}{
		"movement_type": "gift", "amount": "0", "payment_method": "cash", "category": "rental", "concept": "x",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	verr := decode[apierror.ValidationError](t, w)
	assert.Equal(t, "oneof", verr.Fields["MovementType"])
	assert.Equal(t, "gt", verr.Fields["Amount"])
	assert.Equal(t, "oneof", verr.Fields["Category"])
	assert.Equal(t, "min", verr.Fields["Concept"])

	w = s.do(http.MethodGet, "/v1/reports/financial-summary?from=2026-03-01", cashier, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodGet, "/v1/rentals/not-a-uuid", cashier, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/v1/cash/sessions", cashier, "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMaintenance_InlineRepair(t *testing.T) {
	s := newServer(t)
	store := uuid.New()
	admin := token(t, tenant.RoleAdmin, store)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/v1/maintenance/orphans", token(t, tenant.RoleCashier, store), nil).Code)

	w := s.do(http.MethodGet, "/v1/maintenance/orphans", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[dto.OrphanListResponse](t, w).Total)

	// no queue configured: async falls back to an inline run
	w = s.do(http.MethodPost, "/v1/maintenance/orphans/repair?async=true", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[dto.RepairResult](t, w).TotalOrphansFound)

	// the dead letter queue spans stores: platform admins only
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/v1/maintenance/dlq", admin, nil).Code)
	root := token(t, tenant.RoleSuperAdmin, uuid.Nil)
	w = s.do(http.MethodGet, "/v1/maintenance/dlq", root, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dlq := decode[dto.DeadLetterResponse](t, w)
	assert.Zero(t, dlq.Total)
	assert.Empty(t, dlq.Data)
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(http.MethodGet, "/v1/maintenance/dlq?limit=0", root, nil).Code)
}

func TestDeleteMovement_CompensatesRental(t *testing.T) {
	s := newServer(t)
	store := uuid.New()
	admin := token(t, tenant.RoleAdmin, store)
	cashier := token(t, tenant.RoleCashier, store)

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/v1/items", admin,
		dto.CreateItemRequest{Barcode: "TUX-1", Name: "Tux", Price: decimal.NewFromInt(60)}).Code)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/v1/cash/sessions", cashier,
		dto.OpenSessionRequest{OpeningBalance: decimal.Zero}).Code)

	w := s.do(http.MethodPost, "/v1/rentals", cashier, dto.CreateRentalRequest{
		Items:         []dto.RentalLineRequest{{Barcode: "TUX-1"}},
		PaidAmount:    decimal.NewFromInt(60),
		PaymentMethod: "cash",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.RentalPaymentResult](t, w)
	require.Len(t, created.Movements, 1)
	path := "/v1/cash/movements/" + created.Movements[0].ID

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, path, cashier, nil, middleware.ManagerPINHeader, testPIN).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, path, admin, nil, middleware.ManagerPINHeader, "0000").Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, path, admin, nil, middleware.ManagerPINHeader, testPIN).Code)

	w = s.do(http.MethodGet, "/v1/rentals/"+created.Rental.ID, cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rental := decode[dto.RentalResponse](t, w)
	assert.True(t, rental.PaidAmount.IsZero())
	assert.True(t, rental.PendingAmount.Equal(decimal.NewFromInt(60)))

	w = s.do(http.MethodGet, "/v1/cash/movements", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode[dto.MovementListResponse](t, w).Total)
}

func TestItemLookupByBarcode(t *testing.T) {
	s := newServer(t)
	store := uuid.New()
	admin := token(t, tenant.RoleAdmin, store)

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/v1/items", admin,
		dto.CreateItemRequest{Barcode: "HAT-7", Name: "Hat", Price: decimal.NewFromInt(9)}).Code)

	w := s.do(http.MethodGet, "/v1/items/HAT-7", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hat", decode[dto.ItemResponse](t, w).Name)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/items/HAT-7", token(t, tenant.RoleAdmin, uuid.New()), nil).Code)
}
