package handlers

import (
	"net/http"
	"time"

	"github.com/resexchange/marketplace/internal/application/commands"
	"github.com/resexchange/marketplace/internal/application/ports"
	"github.com/resexchange/marketplace/internal/domain/chat"
	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
	"github.com/resexchange/marketplace/internal/infrastructure/http/response"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

type ChatHandler struct {
	openHandler *commands.OpenChatHandler
	chats       ports.ChatRepository
	log         *logger.Logger
}

func NewChatHandler(openHandler *commands.OpenChatHandler, chats ports.ChatRepository, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		openHandler: openHandler,
		chats:       chats,
		log:         log,
	}
}

type chatView struct {
	ID          string `json:"id"`
	ListingID   string `json:"listing_id"`
	CreatorID   string `json:"creator_id"`
	InitiatorID string `json:"initiator_id"`
	CreatedAt   string `json:"created_at"`
}

func toChatView(c *chat.Chat) chatView {
	return chatView{
		ID:          c.ID,
		ListingID:   c.ListingID,
		CreatorID:   c.CreatorID,
		InitiatorID: c.InitiatorID,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
}

func (h *ChatHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	listingID := r.URL.Query().Get("listing_id")

	errs := make(map[string]string)
	if userID == "" {
		errs["X-User-ID"] = "user header is required"
	}
	if listingID == "" {
		errs["listing_id"] = "listing_id is required"
	}
	if len(errs) > 0 {
		response.WriteValidationError(w, "Validation failed", errs)
		return
	}

	c, err := h.openHandler.Handle(r.Context(), commands.OpenChatCommand{
		ListingID:   listingID,
		InitiatorID: userID,
	})
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteSuccess(w, toChatView(c))
}

func (h *ChatHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{"X-User-ID": "user header is required"})
		return
	}

	chats, err := h.chats.ListByUser(r.Context(), userID)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	views := make([]chatView, 0, len(chats))
	for _, c := range chats {
		views = append(views, toChatView(c))
	}

	response.WriteSuccess(w, views)
}

func (h *ChatHandler) HandleGet(w http.ResponseWriter, r *http.Request, chatID string) {
	userID := r.Header.Get("X-User-ID")

	c, err := h.chats.GetByID(r.Context(), chatID)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	// Outsiders get the same answer as for a missing chat.
	if !c.Involves(userID) {
		response.WriteDomainError(w, domainErrors.ErrChatNotFound)
		return
	}

	response.WriteSuccess(w, toChatView(c))
}
