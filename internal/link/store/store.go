package store

import (
	"context"
	"errors"

	"github.com/ledgerworks/stitchlink/internal/link/domain"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface. Concrete drivers (memory, sqlite,
// redis) implement this. Both repositories are keyed by user id and hold at
// most one record per user; Save always replaces.
type Store interface {
	PendingAuthorizations() PendingAuthorizations
	UserTokens() UserTokens

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing store is still reachable.
	Ping(ctx context.Context) error
}

type PendingAuthorizations interface {
	// Save writes the pending request for a user, replacing any existing one.
	// Starting a new flow deliberately invalidates the old state value.
	Save(ctx context.Context, p domain.PendingAuthorization) error

	// Load returns the pending request for a user, or ErrNotFound.
	Load(ctx context.Context, userID string) (domain.PendingAuthorization, error)

	// Delete removes the pending request for a user. Deleting a missing
	// record is not an error.
	Delete(ctx context.Context, userID string) error
}

type UserTokens interface {
	// Save writes the token record for a user, replacing any existing one.
	Save(ctx context.Context, t domain.UserToken) error

	// Load returns the token record for a user, or ErrNotFound.
	Load(ctx context.Context, userID string) (domain.UserToken, error)

	// Delete removes the token record for a user. Deleting a missing record
	// is not an error.
	Delete(ctx context.Context, userID string) error
}
