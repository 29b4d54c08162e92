// Package tenant carries the store scope of a request down to the data-access
// layer. Every repository method takes a Scope; there is no unscoped query path.
package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Roles understood by the store context.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleCashier    = "cashier"
)

var (
	// ErrNoScope is returned when a repository is called with the zero Scope.
	ErrNoScope = errors.New("tenant: missing store scope")
	// ErrStoreRequired is returned when a write is attempted with a platform-wide scope.
	ErrStoreRequired = errors.New("tenant: operation requires a concrete store")
)

// Scope is either a single store or the platform-wide view reserved for
// super_admin. The zero value is invalid.
type Scope struct {
	storeID  uuid.UUID
	platform bool
}

// ForStore restricts every query to one store. uuid.Nil yields an invalid scope.
func ForStore(storeID uuid.UUID) Scope {
	return Scope{storeID: storeID}
}

// Platform is the empty store filter (cross-store visibility).
func Platform() Scope {
	return Scope{platform: true}
}

// Valid reports whether the scope was built through ForStore or Platform.
func (s Scope) Valid() bool {
	return s.platform || s.storeID != uuid.Nil
}

// IsPlatform reports whether the scope spans every store.
func (s Scope) IsPlatform() bool { return s.platform }

// StoreID returns the store and true for a store scope.
func (s Scope) StoreID() (uuid.UUID, bool) {
	if s.platform || s.storeID == uuid.Nil {
		return uuid.Nil, false
	}
	return s.storeID, true
}

// Check returns ErrNoScope for the zero value.
func (s Scope) Check() error {
	if !s.Valid() {
		return ErrNoScope
	}
	return nil
}

// RequireStore returns the concrete store id or an error for writes.
func (s Scope) RequireStore() (uuid.UUID, error) {
	if err := s.Check(); err != nil {
		return uuid.Nil, err
	}
	id, ok := s.StoreID()
	if !ok {
		return uuid.Nil, ErrStoreRequired
	}
	return id, nil
}

// Allows reports whether a record owned by storeID is visible in this scope.
func (s Scope) Allows(storeID uuid.UUID) bool {
	if s.platform {
		return true
	}
	return s.storeID != uuid.Nil && s.storeID == storeID
}

func (s Scope) String() string {
	switch {
	case s.platform:
		return "platform"
	case s.storeID != uuid.Nil:
		return s.storeID.String()
	default:
		return "none"
	}
}

type scopeKey struct{}

// WithScope stores the scope in ctx.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the scope stored by WithScope.
func FromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok && s.Valid()
}
