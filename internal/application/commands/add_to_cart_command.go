package commands

import (
	"context"
	"fmt"

	"github.com/resexchange/marketplace/internal/application/ports"
	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

type AddToCartCommand struct {
	SessionID string
	UserID    string
	ListingID string
}

type AddToCartHandler struct {
	carts    ports.CartStore
	listings ports.ListingRepository
	cache    ports.Cache
	log      *logger.Logger
}

func NewAddToCartHandler(
	carts ports.CartStore,
	listings ports.ListingRepository,
	cache ports.Cache,
	log *logger.Logger,
) *AddToCartHandler {
	return &AddToCartHandler{carts: carts, listings: listings, cache: cache, log: log}
}

// Handle stages a listing in the session's cart. The sold filter gives a
// cheap first answer; a hit is re-verified against the store because the
// filter is probabilistic. Staging never reserves the listing.
func (h *AddToCartHandler) Handle(ctx context.Context, cmd AddToCartCommand) error {
	inFilter, err := h.cache.ListingInSoldFilter(ctx, cmd.ListingID)
	if err != nil {
		h.log.Warn("Sold filter check failed, falling back to store", "error", err, "listing_id", cmd.ListingID)
		inFilter = false
	}

	l, err := h.listings.GetByID(ctx, cmd.ListingID)
	if err != nil {
		return err
	}
	if l.IsSold() {
		if !inFilter {
			if err := h.cache.AddListingToSoldFilter(ctx, cmd.ListingID); err != nil {
				h.log.Warn("Failed to record sold listing in filter", "error", err, "listing_id", cmd.ListingID)
			}
		}
		return domainErrors.ErrAlreadySold
	}
	if l.CreatedBy == cmd.UserID {
		return fmt.Errorf("%w: cannot add own listing to cart", domainErrors.ErrValidation)
	}

	added, err := h.carts.Add(ctx, cmd.SessionID, cmd.ListingID)
	if err != nil {
		return err
	}
	if !added {
		return domainErrors.ErrDuplicateListing
	}

	h.log.Info("Listing added to cart", "session_id", cmd.SessionID, "listing_id", cmd.ListingID)
	return nil
}

type RemoveFromCartCommand struct {
	SessionID string
	ListingID string
}

type RemoveFromCartHandler struct {
	carts ports.CartStore
}

func NewRemoveFromCartHandler(carts ports.CartStore) *RemoveFromCartHandler {
	return &RemoveFromCartHandler{carts: carts}
}

// Handle removes a listing from the cart. Removing an absent listing is a
// no-op, not an error.
func (h *RemoveFromCartHandler) Handle(ctx context.Context, cmd RemoveFromCartCommand) error {
	return h.carts.Remove(ctx, cmd.SessionID, cmd.ListingID)
}
