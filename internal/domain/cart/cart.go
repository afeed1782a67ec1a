package cart

import (
	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
)

// Cart is the session-scoped staging area for listings pending purchase.
// It holds references only; listing state is never mutated through the
// cart, which is what lets several sessions stage the same unsold listing
// at once. The conflict is resolved at mark-sold time.
type Cart struct {
	SessionID  string
	ListingIDs []string
}

func New(sessionID string) *Cart {
	return &Cart{SessionID: sessionID}
}

func (c *Cart) Add(listingID string) error {
	for _, id := range c.ListingIDs {
		if id == listingID {
			return domainErrors.ErrDuplicateListing
		}
	}
	c.ListingIDs = append(c.ListingIDs, listingID)
	return nil
}

func (c *Cart) Remove(listingID string) {
	for i, id := range c.ListingIDs {
		if id == listingID {
			c.ListingIDs = append(c.ListingIDs[:i], c.ListingIDs[i+1:]...)
			return
		}
	}
}

func (c *Cart) Contains(listingID string) bool {
	for _, id := range c.ListingIDs {
		if id == listingID {
			return true
		}
	}
	return false
}

func (c *Cart) Items() []string {
	return c.ListingIDs
}

func (c *Cart) IsEmpty() bool {
	return len(c.ListingIDs) == 0
}

func (c *Cart) Clear() {
	c.ListingIDs = nil
}
