package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rentalcash/internal/tenant"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-that-is-long-enough-123"

func init() { gin.SetMode(gin.TestMode) }

func token(t *testing.T, role, storeID string) string {
	t.Helper()
	tok, err := IssueToken(testSecret, JWTClaims{
		UserID: uuid.NewString(), Username: "maria", Role: role, StoreID: storeID,
	}, time.Hour)
	require.NoError(t, err)
	return tok
}

// scopeEngine echoes the resolved scope.
func scopeEngine() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), JWTAuth(testSecret), StoreScope())
	r.GET("/scope", func(c *gin.Context) {
		c.String(http.StatusOK, GetScope(c).String())
	})
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth_RejectsMissingAndBadTokens(t *testing.T) {
	r := scopeEngine()

	w := do(r, httptest.NewRequest(http.MethodGet, "/scope", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/scope", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)

	forged, err := IssueToken("another-secret", JWTClaims{UserID: uuid.NewString(), Role: tenant.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/scope", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)
}

func TestStoreScope_StoreUserIsPinned(t *testing.T) {
	r := scopeEngine()
	store := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/scope", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, tenant.RoleCashier, store))
	// A store user cannot switch stores with the header.
	req.Header.Set(StoreHeader, uuid.NewString())
	w := do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestStoreScope_StoreUserWithoutStore(t *testing.T) {
	r := scopeEngine()
	req := httptest.NewRequest(http.MethodGet, "/scope", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, tenant.RoleAdmin, ""))
	w := do(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "STORE_SCOPE_REQUIRED")
}

func TestStoreScope_SuperAdmin(t *testing.T) {
	r := scopeEngine()
	auth := "Bearer " + token(t, tenant.RoleSuperAdmin, "")

	req := httptest.NewRequest(http.MethodGet, "/scope", nil)
	req.Header.Set("Authorization", auth)
	w := do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "platform", w.Body.String())

	store := uuid.NewString()
	req = httptest.NewRequest(http.MethodGet, "/scope?store_id="+store, nil)
	req.Header.Set("Authorization", auth)
	assert.Equal(t, store, do(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/scope", nil)
	req.Header.Set("Authorization", auth)
	req.Header.Set(StoreHeader, "nope")
	assert.Equal(t, http.StatusBadRequest, do(r, req).Code)
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.Use(JWTAuth(testSecret))
	r.GET("/admin", RequireRole(tenant.RoleAdmin, tenant.RoleSuperAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, tenant.RoleCashier, uuid.NewString()))
	assert.Equal(t, http.StatusForbidden, do(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, tenant.RoleAdmin, uuid.NewString()))
	assert.Equal(t, http.StatusNoContent, do(r, req).Code)
}

func TestRequireManagerPIN(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("4321"), bcrypt.MinCost)
	require.NoError(t, err)

	r := gin.New()
	r.DELETE("/guarded", RequireManagerPIN(string(hash)), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.DELETE("/unconfigured", RequireManagerPIN(""), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodDelete, "/guarded", nil)
	assert.Equal(t, http.StatusForbidden, do(r, req).Code)

	req = httptest.NewRequest(http.MethodDelete, "/guarded", nil)
	req.Header.Set(ManagerPINHeader, "0000")
	assert.Equal(t, http.StatusForbidden, do(r, req).Code)

	req = httptest.NewRequest(http.MethodDelete, "/guarded", nil)
	req.Header.Set(ManagerPINHeader, "4321")
	assert.Equal(t, http.StatusNoContent, do(r, req).Code)

	req = httptest.NewRequest(http.MethodDelete, "/unconfigured", nil)
	req.Header.Set(ManagerPINHeader, "4321")
	assert.Equal(t, http.StatusForbidden, do(r, req).Code)
}

func TestRateLimiter_WindowResets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newRateLimiter(2, time.Minute, func() time.Time { return now })

	_, ok := l.allow("1.2.3.4")
	assert.True(t, ok)
	_, ok = l.allow("1.2.3.4")
	assert.True(t, ok)
	wait, ok := l.allow("1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, wait)

	_, ok = l.allow("5.6.7.8")
	assert.True(t, ok)

	now = now.Add(61 * time.Second)
	_, ok = l.allow("1.2.3.4")
	assert.True(t, ok)
}

func TestRateLimiter_Handler(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(1, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })
	w := do(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "kaboom")
}
