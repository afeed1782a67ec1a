package chat

import (
	"fmt"
	"time"

	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
)

// Chat is keyed by (listing, creator, initiator); at most one row exists
// per key, enforced by a unique constraint in the store.
type Chat struct {
	ID          string
	ListingID   string
	CreatorID   string
	InitiatorID string
	CreatedAt   time.Time
}

func NewChat(id, listingID, creatorID, initiatorID string) (*Chat, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: chat id cannot be empty", domainErrors.ErrValidation)
	}
	if listingID == "" || creatorID == "" || initiatorID == "" {
		return nil, fmt.Errorf("%w: chat key cannot have empty components", domainErrors.ErrValidation)
	}
	if creatorID == initiatorID {
		return nil, fmt.Errorf("%w: creator cannot open a chat with themselves", domainErrors.ErrValidation)
	}

	return &Chat{
		ID:          id,
		ListingID:   listingID,
		CreatorID:   creatorID,
		InitiatorID: initiatorID,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Involves reports whether the user is a party to this chat.
func (c *Chat) Involves(userID string) bool {
	return c.CreatorID == userID || c.InitiatorID == userID
}
