// Package auth holds API key identity and scope checks.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no active key matches the presented hash.
// Lookup infrastructure failures are returned as distinct errors so callers
// can tell an unknown key from an outage.
var ErrNotFound = errors.New("api key not found")

// Scopes gating the HTTP surface.
const (
	// ScopeOrders allows placing, reading and cancelling own orders.
	ScopeOrders = "orders"
	// ScopeAdmin allows status transitions and reporting endpoints.
	ScopeAdmin = "admin"
)

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key carries the given scope. Admin keys imply
// every other scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope || s == ScopeAdmin {
			return true
		}
	}
	return false
}

// Repository provides lookup of API keys by their HMAC-SHA256 hash. Lookup is
// a direct indexed fetch; no scan-and-compare over the key table.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
