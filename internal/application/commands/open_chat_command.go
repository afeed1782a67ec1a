package commands

import (
	"context"

	"github.com/resexchange/marketplace/internal/application/ports"
	"github.com/resexchange/marketplace/internal/domain/chat"
	"github.com/resexchange/marketplace/internal/pkg/generator"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

type OpenChatCommand struct {
	ListingID   string
	InitiatorID string
}

type OpenChatHandler struct {
	chats    ports.ChatRepository
	listings ports.ListingRepository
	notifier ports.Notifier
	log      *logger.Logger
	idGen    *generator.IDGenerator
}

func NewOpenChatHandler(
	chats ports.ChatRepository,
	listings ports.ListingRepository,
	notifier ports.Notifier,
	log *logger.Logger,
) *OpenChatHandler {
	return &OpenChatHandler{
		chats:    chats,
		listings: listings,
		notifier: notifier,
		log:      log,
		idGen:    generator.NewIDGenerator(),
	}
}

// Handle returns the single chat for (listing, creator, initiator),
// creating it on first access. Both parties racing to open the same
// conversation converge on one chat; the seller is notified only when the
// chat is actually new.
func (h *OpenChatHandler) Handle(ctx context.Context, cmd OpenChatCommand) (*chat.Chat, error) {
	l, err := h.listings.GetByID(ctx, cmd.ListingID)
	if err != nil {
		return nil, err
	}

	candidate, err := chat.NewChat(h.idGen.ChatID(), l.ID, l.CreatedBy, cmd.InitiatorID)
	if err != nil {
		return nil, err
	}

	c, err := h.chats.GetOrCreate(ctx, candidate)
	if err != nil {
		return nil, err
	}

	// The candidate id survives only when this call inserted the row.
	if c.ID == candidate.ID {
		h.notifier.Notify(ctx, l.CreatedBy, "New chat about your listing", "chat/"+c.ID)
		h.log.Info("Chat created", "chat_id", c.ID, "listing_id", l.ID, "initiator_id", cmd.InitiatorID)
	}

	return c, nil
}
