package commands

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resexchange/marketplace/internal/application/ports"
	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
	"github.com/resexchange/marketplace/internal/domain/listing"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

type stubListings struct {
	ports.ListingRepository
	listings map[string]*listing.Listing
}

func (s *stubListings) GetByID(ctx context.Context, id string) (*listing.Listing, error) {
	l, ok := s.listings[id]
	if !ok {
		return nil, domainErrors.ErrListingNotFound
	}
	return l, nil
}

type stubCarts struct {
	ports.CartStore
	staged map[string]bool
}

func (s *stubCarts) Add(ctx context.Context, sessionID, listingID string) (bool, error) {
	if s.staged[listingID] {
		return false, nil
	}
	if s.staged == nil {
		s.staged = make(map[string]bool)
	}
	s.staged[listingID] = true
	return true, nil
}

type stubCache struct {
	sold      map[string]bool
	filterErr error
}

func (c *stubCache) AddListingToSoldFilter(ctx context.Context, listingID string) error {
	if c.sold == nil {
		c.sold = make(map[string]bool)
	}
	c.sold[listingID] = true
	return nil
}

func (c *stubCache) ListingInSoldFilter(ctx context.Context, listingID string) (bool, error) {
	if c.filterErr != nil {
		return false, c.filterErr
	}
	return c.sold[listingID], nil
}

func (c *stubCache) GetSessionCurrency(ctx context.Context, sessionID string) (string, error) {
	return "", nil
}

func (c *stubCache) SetSessionCurrency(ctx context.Context, sessionID, currency string, _ time.Duration) error {
	return nil
}

func (c *stubCache) AcquireLock(ctx context.Context, key string, _ time.Duration) (bool, error) {
	return true, nil
}

func (c *stubCache) ReleaseLock(ctx context.Context, key string) error {
	return nil
}

func unsoldListing(t *testing.T, id, seller string) *listing.Listing {
	t.Helper()
	l, err := listing.NewListing(id, "mat-1", seller, "scrap copper", 3, decimal.RequireFromString("4.50"))
	require.NoError(t, err)
	return l
}

func newAddToCartFixture(t *testing.T) (*AddToCartHandler, *stubListings, *stubCarts, *stubCache) {
	t.Helper()
	listings := &stubListings{listings: map[string]*listing.Listing{
		"lst-1": unsoldListing(t, "lst-1", "seller-1"),
	}}
	carts := &stubCarts{staged: make(map[string]bool)}
	cache := &stubCache{}
	h := NewAddToCartHandler(carts, listings, cache, logger.NewLogger())
	return h, listings, carts, cache
}

func TestAddToCart(t *testing.T) {
	h, _, carts, _ := newAddToCartFixture(t)

	err := h.Handle(context.Background(), AddToCartCommand{
		SessionID: "s1", UserID: "buyer-1", ListingID: "lst-1",
	})
	require.NoError(t, err)
	assert.True(t, carts.staged["lst-1"])
}

func TestAddToCartSoldListing(t *testing.T) {
	h, listings, carts, cache := newAddToCartFixture(t)
	require.NoError(t, listings.listings["lst-1"].MarkSold("someone-else"))

	err := h.Handle(context.Background(), AddToCartCommand{
		SessionID: "s1", UserID: "buyer-1", ListingID: "lst-1",
	})

	assert.ErrorIs(t, err, domainErrors.ErrAlreadySold)
	assert.False(t, carts.staged["lst-1"])
	assert.True(t, cache.sold["lst-1"], "a filter miss on a sold listing backfills the filter")
}

func TestAddToCartOwnListing(t *testing.T) {
	h, _, _, _ := newAddToCartFixture(t)

	err := h.Handle(context.Background(), AddToCartCommand{
		SessionID: "s1", UserID: "seller-1", ListingID: "lst-1",
	})
	assert.ErrorIs(t, err, domainErrors.ErrValidation)
}

func TestAddToCartDuplicate(t *testing.T) {
	h, _, _, _ := newAddToCartFixture(t)
	cmd := AddToCartCommand{SessionID: "s1", UserID: "buyer-1", ListingID: "lst-1"}

	require.NoError(t, h.Handle(context.Background(), cmd))
	err := h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, domainErrors.ErrDuplicateListing)
}

func TestAddToCartUnknownListing(t *testing.T) {
	h, _, _, _ := newAddToCartFixture(t)

	err := h.Handle(context.Background(), AddToCartCommand{
		SessionID: "s1", UserID: "buyer-1", ListingID: "lst-missing",
	})
	assert.ErrorIs(t, err, domainErrors.ErrListingNotFound)
}

func TestAddToCartFilterFailureFallsBackToStore(t *testing.T) {
	h, _, carts, cache := newAddToCartFixture(t)
	cache.filterErr = fmt.Errorf("filter backend unavailable")

	err := h.Handle(context.Background(), AddToCartCommand{
		SessionID: "s1", UserID: "buyer-1", ListingID: "lst-1",
	})
	require.NoError(t, err, "a broken filter must not block staging")
	assert.True(t, carts.staged["lst-1"])
}
