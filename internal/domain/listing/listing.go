package listing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
)

// Geolocation is optional on a listing; a nil value means the seller's
// address could not be geocoded.
type Geolocation struct {
	Latitude  float64
	Longitude float64
}

type Listing struct {
	ID          string
	MaterialID  string
	Description string
	Quantity    int
	Price       decimal.Decimal
	Location    *Geolocation
	Sold        bool
	CreatedBy   string
	BuyerID     string
	CreatedAt   time.Time
	SoldAt      *time.Time
}

func NewListing(id, materialID, createdBy, description string, quantity int, price decimal.Decimal) (*Listing, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: listing id cannot be empty", domainErrors.ErrValidation)
	}
	if materialID == "" {
		return nil, fmt.Errorf("%w: material must be selected", domainErrors.ErrValidation)
	}
	if createdBy == "" {
		return nil, fmt.Errorf("%w: seller cannot be empty", domainErrors.ErrValidation)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be greater than zero", domainErrors.ErrValidation)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be greater than zero", domainErrors.ErrValidation)
	}

	return &Listing{
		ID:          id,
		MaterialID:  materialID,
		Description: description,
		Quantity:    quantity,
		Price:       price,
		CreatedBy:   createdBy,
		Sold:        false,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// MarkSold records the buyer on the entity. The authoritative transition
// happens in the store's conditional update; this mirror exists so a
// loaded entity reflects the outcome without a re-read.
func (l *Listing) MarkSold(buyerID string) error {
	if l.Sold {
		return domainErrors.ErrAlreadySold
	}
	l.Sold = true
	l.BuyerID = buyerID
	now := time.Now().UTC()
	l.SoldAt = &now
	return nil
}

func (l *Listing) IsSold() bool {
	return l.Sold
}

// Editable reports whether seller-side mutation is still permitted.
// Once a buyer exists the record is frozen.
func (l *Listing) Editable() bool {
	return !l.Sold
}

func (l *Listing) SetLocation(lat, lng float64) {
	l.Location = &Geolocation{Latitude: lat, Longitude: lng}
}

type Material struct {
	ID   string
	Name string
}
