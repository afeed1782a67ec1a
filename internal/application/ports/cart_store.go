package ports

import (
	"context"
)

// CartStore holds the session-scoped carts. Carts are confined to one
// session, so no cross-session synchronization is required; entries expire
// with the session.
type CartStore interface {
	Items(ctx context.Context, sessionID string) ([]string, error)
	// Add reports false when the listing is already staged in the cart.
	Add(ctx context.Context, sessionID, listingID string) (bool, error)
	Remove(ctx context.Context, sessionID string, listingIDs ...string) error
	Clear(ctx context.Context, sessionID string) error
}
