package ports

import (
	"context"

	"github.com/resexchange/marketplace/internal/domain/user"
)

// Notifier is the fire-and-forget notification dispatcher. Failures are
// the implementation's problem (logged, dropped); they must never block or
// fail the marketplace operation that triggered them.
type Notifier interface {
	Notify(ctx context.Context, recipientID, message, link string)
}

// Mailer delivers transactional mail, best effort.
type Mailer interface {
	SendPurchaseConfirmation(toMail string, listingIDs []string, total, currency string) error
}

// Geocoder resolves a postal address to coordinates. A (nil, nil) result
// means the address could not be resolved; listing creation proceeds
// without coordinates in that case.
type Geocoder interface {
	Geocode(ctx context.Context, addr user.Address) (*Coordinates, error)
}

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// UserRepository is the read-side collaborator for user identity: display
// names for search joins, mail addresses for receipts, addresses for
// geocoding.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByMail(ctx context.Context, mail string) (*user.User, error)
}
