package ports

import (
	"context"
	"time"

	"github.com/resexchange/marketplace/internal/domain/checkout"
)

type CheckoutRepository interface {
	CreateAttempt(ctx context.Context, a *checkout.Attempt) error
	GetAttemptByID(ctx context.Context, id string) (*checkout.Attempt, error)
	// GetAttemptByIntentID fails with ErrIntentNotFound when the provider
	// callback references an intent this engine never created.
	GetAttemptByIntentID(ctx context.Context, intentID string) (*checkout.Attempt, error)
	UpdateAttempt(ctx context.Context, a *checkout.Attempt) error

	// CancelStaleAwaiting flips attempts stuck in awaiting_approval since
	// before the cutoff to cancelled and reports how many were affected.
	CancelStaleAwaiting(ctx context.Context, cutoff time.Time) (int, error)
}
