package middleware

import (
	"net/http"
	"strings"
	"time"

	"rentalcash/internal/apierror"
	"rentalcash/internal/tenant"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	ClaimsKey = "claims"
	ScopeKey  = "store_scope"

	StoreHeader      = "X-Store-ID"
	ManagerPINHeader = "X-Manager-PIN"
)

// JWTClaims are the custom claims embedded in every access token.
// StoreID is empty for super_admin.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	StoreID  string `json:"store_id,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs claims with HS256.
func IssueToken(secret string, claims JWTClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if claims.Subject == "" {
		claims.Subject = claims.UserID
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// JWTAuth validates the Bearer token on every protected route.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
			return
		}
		if _, err := uuid.Parse(claims.UserID); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("token has no valid user_id"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// StoreScope resolves the tenant.Scope of the request. Store users are pinned
// to the store in their token; super_admin picks one with X-Store-ID (or
// ?store_id=) and otherwise sees every store.
func StoreScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}

		var scope tenant.Scope
		switch claims.Role {
		case tenant.RoleSuperAdmin:
			pick := c.GetHeader(StoreHeader)
			if pick == "" {
				pick = c.Query("store_id")
			}
			if pick == "" {
				scope = tenant.Platform()
				break
			}
			id, err := uuid.Parse(pick)
			if err != nil || id == uuid.Nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, apierror.New("invalid store id"))
				return
			}
			scope = tenant.ForStore(id)
		case tenant.RoleAdmin, tenant.RoleCashier:
			id, err := uuid.Parse(claims.StoreID)
			if err != nil || id == uuid.Nil {
				c.AbortWithStatusJSON(http.StatusForbidden, apierror.WithCode("STORE_SCOPE_REQUIRED", "user is not assigned to a store", nil))
				return
			}
			scope = tenant.ForStore(id)
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("unknown role"))
			return
		}

		c.Set(ScopeKey, scope)
		c.Request = c.Request.WithContext(tenant.WithScope(c.Request.Context(), scope))
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !allowed[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("insufficient permissions"))
			return
		}
		c.Next()
	}
}

// RequireManagerPIN checks X-Manager-PIN against a bcrypt hash. An empty hash
// disables the guarded routes.
func RequireManagerPIN(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hash == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("manager authorization is not configured"))
			return
		}
		pin := c.GetHeader(ManagerPINHeader)
		if pin == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("manager authorization failed"))
			return
		}
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}

// GetScope returns the scope set by StoreScope, or the invalid zero Scope.
func GetScope(c *gin.Context) tenant.Scope {
	v, _ := c.Get(ScopeKey)
	scope, _ := v.(tenant.Scope)
	return scope
}

// UserID returns the authenticated user, uuid.Nil when absent.
func UserID(c *gin.Context) uuid.UUID {
	claims := GetClaims(c)
	if claims == nil {
		return uuid.Nil
	}
	id, _ := uuid.Parse(claims.UserID)
	return id
}
