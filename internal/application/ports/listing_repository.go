package ports

import (
	"context"

	"github.com/resexchange/marketplace/internal/domain/checkout"
	"github.com/resexchange/marketplace/internal/domain/listing"
)

// ListingRepository is the application-facing store contract. It extends
// the entity repository with checkout outcome persistence so that marking
// listings sold and recording the outcome can share one transaction.
type ListingRepository interface {
	Create(ctx context.Context, l *listing.Listing) error
	GetByID(ctx context.Context, id string) (*listing.Listing, error)
	Update(ctx context.Context, l *listing.Listing) error
	Delete(ctx context.Context, id string) error

	MarkSold(ctx context.Context, id, buyerID string) (bool, error)

	ListBySeller(ctx context.Context, sellerID string) ([]*listing.Listing, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]*listing.Listing, error)
	Search(ctx context.Context, q listing.SearchQuery) ([]*listing.Listing, int, error)

	GetMaterial(ctx context.Context, id string) (*listing.Material, error)
	ListMaterials(ctx context.Context) ([]*listing.Material, error)

	AddBookmark(ctx context.Context, userID, listingID string) (bool, error)
	RemoveBookmark(ctx context.Context, userID, listingID string) error

	SaveOutcome(ctx context.Context, intentID string, o *checkout.Outcome) error
	GetOutcome(ctx context.Context, intentID string) (*checkout.Outcome, error)

	BeginTx(ctx context.Context) (ListingRepository, error)
	CommitTx(ctx context.Context) error
	RollbackTx(ctx context.Context) error
}
