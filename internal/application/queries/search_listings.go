package queries

import (
	"context"
	"strings"

	"github.com/resexchange/marketplace/internal/application/ports"
	"github.com/resexchange/marketplace/internal/domain/listing"
)

const DefaultPageSize = 8

// SearchListingsQuery carries the raw request parameters. Page is
// 1-indexed as seen by callers; translation to a store offset happens here
// and nowhere else.
type SearchListingsQuery struct {
	Keyword        string
	MaterialID     string
	Sold           bool
	BookmarkedOnly bool
	UserID         string // empty for anonymous callers
	MinPrice       *float64
	MaxPrice       *float64
	MinQuantity    *int
	MaxQuantity    *int
	OwnerID        string
	Page           int
}

type SearchListingsHandler struct {
	listings ports.ListingRepository
	pageSize int
}

func NewSearchListingsHandler(listings ports.ListingRepository, pageSize int) *SearchListingsHandler {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &SearchListingsHandler{listings: listings, pageSize: pageSize}
}

// Handle runs a filtered, paginated listing search. A non-empty keyword
// switches to keyword mode and every structured filter is dropped, the
// sold flag included; in structured mode sold listings stay hidden unless
// explicitly requested. The bookmark filter silently degrades for
// anonymous callers instead of erroring.
func (h *SearchListingsHandler) Handle(ctx context.Context, q SearchListingsQuery) (*listing.Page, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}

	sq := h.normalize(q)
	sq.Offset = (page - 1) * h.pageSize
	sq.Limit = h.pageSize

	items, total, err := h.listings.Search(ctx, sq)
	if err != nil {
		return nil, err
	}

	totalPages := total / h.pageSize
	if total%h.pageSize != 0 {
		totalPages++
	}

	return &listing.Page{
		Listings:   items,
		Page:       page,
		PageSize:   h.pageSize,
		TotalPages: totalPages,
		TotalItems: total,
	}, nil
}

func (h *SearchListingsHandler) normalize(q SearchListingsQuery) listing.SearchQuery {
	keyword := strings.TrimSpace(q.Keyword)
	if keyword != "" {
		return listing.SearchQuery{Keyword: keyword}
	}

	sq := listing.SearchQuery{
		MaterialID:  q.MaterialID,
		Sold:        q.Sold,
		MinPrice:    q.MinPrice,
		MaxPrice:    q.MaxPrice,
		MinQuantity: q.MinQuantity,
		MaxQuantity: q.MaxQuantity,
		OwnerID:     q.OwnerID,
	}
	if q.BookmarkedOnly && q.UserID != "" {
		sq.BookmarkedBy = q.UserID
	}
	return sq
}
