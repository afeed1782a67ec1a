package listing

// SearchQuery carries the normalized search parameters. Keyword search and
// structured filtering are mutually exclusive: a non-empty Keyword wins and
// the structured fields are ignored.
type SearchQuery struct {
	Keyword string

	MaterialID   string
	Sold         bool
	BookmarkedBy string // applied only when non-empty
	MinPrice     *float64
	MaxPrice     *float64
	MinQuantity  *int
	MaxQuantity  *int
	OwnerID      string // applied only when non-empty

	Offset int
	Limit  int
}

func (q SearchQuery) KeywordMode() bool {
	return q.Keyword != ""
}

type Page struct {
	Listings   []*Listing
	Page       int // 1-indexed
	PageSize   int
	TotalPages int
	TotalItems int
}
