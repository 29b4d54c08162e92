// Mints a development access token signed with JWT_SECRET.
// Usage: go run ./cmd/gentoken -role cashier -store <uuid>
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"rentalcash/internal/config"
	"rentalcash/internal/middleware"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
)

func main() {
	role := flag.String("role", tenant.RoleCashier, "super_admin | admin | cashier")
	store := flag.String("store", "", "store id (required unless super_admin)")
	user := flag.String("user", "", "user id (random when empty)")
	username := flag.String("username", "dev", "username claim")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	if cfg.JWTSecret == "" {
		fail(fmt.Errorf("JWT_SECRET is not set"))
	}

	claims := middleware.JWTClaims{Username: *username, Role: *role, UserID: *user}
	if claims.UserID == "" {
		claims.UserID = uuid.NewString()
	}
	switch *role {
	case tenant.RoleSuperAdmin:
	case tenant.RoleAdmin, tenant.RoleCashier:
		if _, err := uuid.Parse(*store); err != nil {
			fail(fmt.Errorf("-store must be a uuid for role %s", *role))
		}
		claims.StoreID = *store
	default:
		fail(fmt.Errorf("unknown role %q", *role))
	}

	tok, err := middleware.IssueToken(cfg.JWTSecret, claims, time.Duration(cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		fail(err)
	}
	fmt.Println(tok)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "gentoken:", err)
	os.Exit(1)
}
