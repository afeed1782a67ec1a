package ports

import (
	"context"

	"github.com/resexchange/marketplace/internal/domain/chat"
)

type ChatRepository interface {
	// GetOrCreate resolves the (listing, creator, initiator) triple to its
	// single chat, inserting candidate when absent. Concurrent first
	// access from both parties must converge on exactly one row, so
	// implementations back this with a unique constraint, not a
	// read-then-insert pair.
	GetOrCreate(ctx context.Context, candidate *chat.Chat) (*chat.Chat, error)
	GetByID(ctx context.Context, id string) (*chat.Chat, error)
	ListByUser(ctx context.Context, userID string) ([]*chat.Chat, error)
	DeleteByListing(ctx context.Context, listingID string) error
}
