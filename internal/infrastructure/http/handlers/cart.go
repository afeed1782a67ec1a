package handlers

import (
	"net/http"

	"github.com/resexchange/marketplace/internal/application/commands"
	"github.com/resexchange/marketplace/internal/application/ports"
	"github.com/resexchange/marketplace/internal/infrastructure/http/response"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

type CartHandler struct {
	carts         ports.CartStore
	addHandler    *commands.AddToCartHandler
	removeHandler *commands.RemoveFromCartHandler
	log           *logger.Logger
}

func NewCartHandler(
	carts ports.CartStore,
	addHandler *commands.AddToCartHandler,
	removeHandler *commands.RemoveFromCartHandler,
	log *logger.Logger,
) *CartHandler {
	return &CartHandler{
		carts:         carts,
		addHandler:    addHandler,
		removeHandler: removeHandler,
		log:           log,
	}
}

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get("X-Session-ID")
	if id == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{"X-Session-ID": "session header is required"})
		return "", false
	}
	return id, true
}

type cartView struct {
	ListingIDs []string `json:"listing_ids"`
}

func (h *CartHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}

	items, err := h.carts.Items(r.Context(), session)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	if items == nil {
		items = []string{}
	}

	response.WriteSuccess(w, cartView{ListingIDs: items})
}

func (h *CartHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}

	listingID := r.URL.Query().Get("listing_id")
	if listingID == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{"listing_id": "listing_id is required"})
		return
	}

	err := h.addHandler.Handle(r.Context(), commands.AddToCartCommand{
		SessionID: session,
		UserID:    r.Header.Get("X-User-ID"),
		ListingID: listingID,
	})
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) HandleRemove(w http.ResponseWriter, r *http.Request, listingID string) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}

	err := h.removeHandler.Handle(r.Context(), commands.RemoveFromCartCommand{
		SessionID: session,
		ListingID: listingID,
	})
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}

	if err := h.carts.Clear(r.Context(), session); err != nil {
		response.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
