package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusInitiated        Status = "initiated"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusConfirmed        Status = "confirmed"
	StatusFailed           Status = "failed"
	StatusCancelled        Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed || s == StatusCancelled
}

// Attempt is one pass through the checkout state machine. The intent id is
// assigned by the payment provider when the attempt reaches
// AwaitingApproval and is the idempotency key for confirmation callbacks.
type Attempt struct {
	ID         string
	SessionID  string
	BuyerID    string
	IntentID   string
	Currency   string
	Total      decimal.Decimal
	ListingIDs []string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewAttempt(id, sessionID, buyerID, currency string, listingIDs []string, total decimal.Decimal) (*Attempt, error) {
	if id == "" {
		return nil, errors.New("attempt id cannot be empty")
	}
	if sessionID == "" {
		return nil, errors.New("session id cannot be empty")
	}
	if len(listingIDs) == 0 {
		return nil, errors.New("listing ids cannot be empty")
	}
	if currency == "" {
		return nil, errors.New("currency cannot be empty")
	}

	now := time.Now().UTC()
	return &Attempt{
		ID:         id,
		SessionID:  sessionID,
		BuyerID:    buyerID,
		Currency:   currency,
		Total:      total,
		ListingIDs: listingIDs,
		Status:     StatusInitiated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (a *Attempt) transition(to Status) error {
	if a.Status.Terminal() {
		return fmt.Errorf("attempt %s is %s, cannot transition to %s", a.ID, a.Status, to)
	}
	a.Status = to
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// AwaitApproval binds the provider's intent id and parks the attempt until
// the provider's callback arrives.
func (a *Attempt) AwaitApproval(intentID string) error {
	if a.Status != StatusInitiated {
		return fmt.Errorf("attempt %s is %s, expected %s", a.ID, a.Status, StatusInitiated)
	}
	if intentID == "" {
		return errors.New("intent id cannot be empty")
	}
	a.IntentID = intentID
	return a.transition(StatusAwaitingApproval)
}

func (a *Attempt) Confirm() error {
	if a.Status != StatusAwaitingApproval {
		return fmt.Errorf("attempt %s is %s, expected %s", a.ID, a.Status, StatusAwaitingApproval)
	}
	return a.transition(StatusConfirmed)
}

func (a *Attempt) Fail() error {
	return a.transition(StatusFailed)
}

func (a *Attempt) Cancel() error {
	return a.transition(StatusCancelled)
}
