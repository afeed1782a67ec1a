package ports

import (
	"context"
	"time"
)

type Cache interface {
	// Sold-listing bloom filter: a fast, probabilistic "already sold"
	// check consulted before hitting the store. Positive answers are
	// always re-verified against the authoritative record.
	AddListingToSoldFilter(ctx context.Context, listingID string) error
	ListingInSoldFilter(ctx context.Context, listingID string) (bool, error)

	GetSessionCurrency(ctx context.Context, sessionID string) (string, error)
	SetSessionCurrency(ctx context.Context, sessionID, currency string, expiration time.Duration) error

	AcquireLock(ctx context.Context, key string, expiration time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}
