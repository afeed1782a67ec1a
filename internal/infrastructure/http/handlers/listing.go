package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/resexchange/marketplace/internal/application/commands"
	"github.com/resexchange/marketplace/internal/application/ports"
	"github.com/resexchange/marketplace/internal/application/queries"
	"github.com/resexchange/marketplace/internal/domain/listing"
	"github.com/resexchange/marketplace/internal/infrastructure/http/response"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

type ListingHandler struct {
	listings              ports.ListingRepository
	createHandler         *commands.CreateListingHandler
	updateHandler         *commands.UpdateListingHandler
	deleteHandler         *commands.DeleteListingHandler
	bookmarkHandler       *commands.BookmarkHandler
	removeBookmarkHandler *commands.RemoveBookmarkHandler
	searchHandler         *queries.SearchListingsHandler
	log                   *logger.Logger
}

func NewListingHandler(
	listings ports.ListingRepository,
	createHandler *commands.CreateListingHandler,
	updateHandler *commands.UpdateListingHandler,
	deleteHandler *commands.DeleteListingHandler,
	bookmarkHandler *commands.BookmarkHandler,
	removeBookmarkHandler *commands.RemoveBookmarkHandler,
	searchHandler *queries.SearchListingsHandler,
	log *logger.Logger,
) *ListingHandler {
	return &ListingHandler{
		listings:              listings,
		createHandler:         createHandler,
		updateHandler:         updateHandler,
		deleteHandler:         deleteHandler,
		bookmarkHandler:       bookmarkHandler,
		removeBookmarkHandler: removeBookmarkHandler,
		searchHandler:         searchHandler,
		log:                   log,
	}
}

type listingPayload struct {
	MaterialID  string `json:"material_id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
}

type listingView struct {
	ID          string   `json:"id"`
	MaterialID  string   `json:"material_id"`
	Description string   `json:"description"`
	Quantity    int      `json:"quantity"`
	Price       string   `json:"price"`
	Sold        bool     `json:"sold"`
	CreatedBy   string   `json:"created_by"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

func toListingView(l *listing.Listing) listingView {
	v := listingView{
		ID:          l.ID,
		MaterialID:  l.MaterialID,
		Description: l.Description,
		Quantity:    l.Quantity,
		Price:       l.Price.StringFixed(2),
		Sold:        l.Sold,
		CreatedBy:   l.CreatedBy,
		CreatedAt:   l.CreatedAt.Format(time.RFC3339),
	}
	if l.Location != nil {
		v.Latitude = &l.Location.Latitude
		v.Longitude = &l.Location.Longitude
	}
	return v
}

func (h *ListingHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{"X-User-ID": "user header is required"})
		return
	}

	var payload listingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.WriteValidationError(w, "Invalid request body", map[string]string{"body": err.Error()})
		return
	}

	l, err := h.createHandler.Handle(r.Context(), commands.CreateListingCommand{
		SellerID:    userID,
		MaterialID:  payload.MaterialID,
		Description: payload.Description,
		Quantity:    payload.Quantity,
		Price:       payload.Price,
	})
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteCreated(w, toListingView(l))
}

func (h *ListingHandler) HandleGet(w http.ResponseWriter, r *http.Request, listingID string) {
	l, err := h.listings.GetByID(r.Context(), listingID)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteSuccess(w, toListingView(l))
}

type materialView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *ListingHandler) HandleMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.listings.ListMaterials(r.Context())
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	views := make([]materialView, 0, len(materials))
	for _, m := range materials {
		views = append(views, materialView{ID: m.ID, Name: m.Name})
	}
	response.WriteSuccess(w, views)
}

func (h *ListingHandler) HandleUpdate(w http.ResponseWriter, r *http.Request, listingID string) {
	userID := r.Header.Get("X-User-ID")

	var payload listingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.WriteValidationError(w, "Invalid request body", map[string]string{"body": err.Error()})
		return
	}

	l, err := h.updateHandler.Handle(r.Context(), commands.UpdateListingCommand{
		ListingID:   listingID,
		SellerID:    userID,
		MaterialID:  payload.MaterialID,
		Description: payload.Description,
		Quantity:    payload.Quantity,
		Price:       payload.Price,
	})
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteSuccess(w, toListingView(l))
}

func (h *ListingHandler) HandleDelete(w http.ResponseWriter, r *http.Request, listingID string) {
	err := h.deleteHandler.Handle(r.Context(), commands.DeleteListingCommand{
		ListingID: listingID,
		SellerID:  r.Header.Get("X-User-ID"),
		IsAdmin:   r.Header.Get("X-User-Role") == "admin",
	})
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ListingHandler) HandleBookmark(w http.ResponseWriter, r *http.Request, listingID string) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{"X-User-ID": "user header is required"})
		return
	}

	var err error
	if r.Method == http.MethodDelete {
		err = h.removeBookmarkHandler.Handle(r.Context(), commands.RemoveBookmarkCommand{
			UserID:    userID,
			ListingID: listingID,
		})
	} else {
		err = h.bookmarkHandler.Handle(r.Context(), commands.BookmarkCommand{
			UserID:    userID,
			ListingID: listingID,
		})
	}
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type pageView struct {
	Listings   []listingView `json:"listings"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
	TotalItems int           `json:"total_items"`
}

func (h *ListingHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	q := queries.SearchListingsQuery{
		Keyword:        params.Get("keyword"),
		MaterialID:     params.Get("material_id"),
		OwnerID:        params.Get("owner_id"),
		UserID:         r.Header.Get("X-User-ID"),
		Sold:           params.Get("sold") == "true",
		BookmarkedOnly: params.Get("bookmarked") == "true",
	}

	if v := params.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			response.WriteValidationError(w, "Validation failed", map[string]string{"page": "must be an integer"})
			return
		}
		q.Page = page
	}

	var parseErr error
	q.MinPrice, parseErr = floatParam(params.Get("min_price"), parseErr)
	q.MaxPrice, parseErr = floatParam(params.Get("max_price"), parseErr)
	q.MinQuantity, parseErr = intParam(params.Get("min_quantity"), parseErr)
	q.MaxQuantity, parseErr = intParam(params.Get("max_quantity"), parseErr)
	if parseErr != nil {
		response.WriteValidationError(w, "Validation failed", map[string]string{"filters": parseErr.Error()})
		return
	}

	page, err := h.searchHandler.Handle(r.Context(), q)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	view := pageView{
		Listings:   make([]listingView, 0, len(page.Listings)),
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		TotalItems: page.TotalItems,
	}
	for _, l := range page.Listings {
		view.Listings = append(view.Listings, toListingView(l))
	}

	response.WriteSuccess(w, view)
}

func floatParam(raw string, prev error) (*float64, error) {
	if prev != nil || raw == "" {
		return nil, prev
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func intParam(raw string, prev error) (*int, error) {
	if prev != nil || raw == "" {
		return nil, prev
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
