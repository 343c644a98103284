// Package token owns bearer token custody for the SOC console.
//
// The token is process-wide mutable state shared by every authenticated call.
// Readers must tolerate concurrent external mutation: a logout elsewhere is
// observed on the next Get, not instantly.
package token

import (
	"context"
	"errors"
)

// ErrNoToken is returned by Get when no token is stored.
// Storage being unavailable is reported the same way; callers treat both
// identically to "not authenticated".
var ErrNoToken = errors.New("no stored token")

// Store provides bearer token persistence.
// This interface is defined in the domain to avoid circular imports.
// Implementations: OS keyring with file fallback (prod), in-memory (test).
type Store interface {
	// Get returns the stored token.
	// Returns ErrNoToken if no token is stored or storage is unavailable.
	Get(ctx context.Context) (string, error)

	// Set stores the token, replacing any previous value.
	// The token shape is not validated.
	Set(ctx context.Context, token string) error

	// Clear removes the stored token. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
