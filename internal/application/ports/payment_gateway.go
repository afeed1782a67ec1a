package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentIntent is the provider's representation of a pending charge. The
// listing set is fixed at creation and never resubmitted with mutated
// listings.
type PaymentIntent struct {
	ID          string
	ApprovalURL string
	Amount      decimal.Decimal
	Currency    string
	ListingIDs  []string
}

type CreateIntentRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	ListingIDs  []string
	CancelURL   string
	SuccessURL  string
}

type OutcomeState string

const (
	OutcomeApproved OutcomeState = "approved"
	OutcomeRejected OutcomeState = "rejected"
)

type PaymentOutcome struct {
	State   OutcomeState
	PayerID string
}

func (o PaymentOutcome) Approved() bool {
	return o.State == OutcomeApproved
}

// PaymentGateway is the thin client to the external payment provider.
// Both calls are blocking I/O against an external system; implementations
// apply a bounded timeout and surface timeouts as ErrGateway, never as
// approval. ConfirmIntent on an already-executed intent surfaces the
// provider-level error rather than swallowing it.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*PaymentIntent, error)
	ConfirmIntent(ctx context.Context, intentID, payerToken string) (PaymentOutcome, error)
}
