package use_cases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/resexchange/marketplace/internal/application/ports"
	"github.com/resexchange/marketplace/internal/domain/cart"
	"github.com/resexchange/marketplace/internal/domain/checkout"
	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
	"github.com/resexchange/marketplace/internal/pkg/generator"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

type CheckoutConfig struct {
	BaseCurrency string
	SuccessURL   string
	CancelURL    string
	LockTimeout  time.Duration
}

// CheckoutUseCase drives a checkout attempt from the cart through the
// payment provider to sold listings. Confirmation is safe under
// at-least-once callback delivery: a per-intent lock serializes concurrent
// callbacks and the recorded outcome is replayed for intents that already
// reached confirmed.
type CheckoutUseCase struct {
	listings ports.ListingRepository
	attempts ports.CheckoutRepository
	carts    ports.CartStore
	gateway  ports.PaymentGateway
	cache    ports.Cache
	notifier ports.Notifier
	mailer   ports.Mailer
	users    ports.UserRepository
	idGen    *generator.IDGenerator
	log      *logger.Logger
	cfg      CheckoutConfig
}

func NewCheckoutUseCase(
	listings ports.ListingRepository,
	attempts ports.CheckoutRepository,
	carts ports.CartStore,
	gateway ports.PaymentGateway,
	cache ports.Cache,
	notifier ports.Notifier,
	mailer ports.Mailer,
	users ports.UserRepository,
	log *logger.Logger,
	cfg CheckoutConfig,
) *CheckoutUseCase {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 3 * time.Second
	}
	return &CheckoutUseCase{
		listings: listings,
		attempts: attempts,
		carts:    carts,
		gateway:  gateway,
		cache:    cache,
		notifier: notifier,
		mailer:   mailer,
		users:    users,
		idGen:    generator.NewIDGenerator(),
		log:      log,
		cfg:      cfg,
	}
}

type BeginCheckoutInput struct {
	SessionID string
	BuyerID   string
	// ListingID switches to single-listing buy; the cart is not consulted.
	ListingID string
	Currency  string
}

type BeginCheckoutResult struct {
	AttemptID   string   `json:"attempt_id"`
	IntentID    string   `json:"intent_id"`
	ApprovalURL string   `json:"approval_url"`
	Removed     []string `json:"removed_listings"`
	Total       string   `json:"total"`
	Currency    string   `json:"currency"`
}

// BeginCheckout re-validates the cart against the listing store, evicting
// entries that sold while staged (the eviction is reported, never silent),
// then creates a payment intent for the remainder. A gateway failure here
// has no side effects beyond a failed attempt record, so the caller may
// retry from scratch.
func (uc *CheckoutUseCase) BeginCheckout(ctx context.Context, in BeginCheckoutInput) (*BeginCheckoutResult, error) {
	staged, err := uc.stagedListings(ctx, in)
	if err != nil {
		return nil, err
	}
	if staged.IsEmpty() {
		return nil, domainErrors.ErrEmptyCart
	}

	currency, err := uc.resolveCurrency(ctx, in)
	if err != nil {
		return nil, err
	}

	kept := make([]string, 0, len(staged.ListingIDs))
	removed := make([]string, 0)
	total := decimal.Zero
	for _, id := range staged.Items() {
		l, err := uc.listings.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domainErrors.ErrListingNotFound) {
				removed = append(removed, id)
				continue
			}
			return nil, err
		}
		if l.IsSold() {
			removed = append(removed, id)
			if err := uc.cache.AddListingToSoldFilter(ctx, id); err != nil {
				uc.log.Warn("Failed to record sold listing in filter", "error", err, "listing_id", id)
			}
			continue
		}
		kept = append(kept, id)
		total = total.Add(l.Price)
	}

	if len(removed) > 0 && in.ListingID == "" {
		if err := uc.carts.Remove(ctx, in.SessionID, removed...); err != nil {
			uc.log.Warn("Failed to evict sold listings from cart", "error", err, "session_id", in.SessionID)
		}
	}

	if len(kept) == 0 {
		return nil, domainErrors.ErrAllListingsSold
	}

	attempt, err := checkout.NewAttempt(uc.idGen.AttemptID(), in.SessionID, in.BuyerID, currency, kept, total)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrValidation, err)
	}

	intent, err := uc.gateway.CreateIntent(ctx, ports.CreateIntentRequest{
		Amount:      total,
		Currency:    currency,
		Description: checkoutDescription(kept),
		ListingIDs:  kept,
		CancelURL:   fmt.Sprintf("%s?attempt_id=%s", uc.cfg.CancelURL, attempt.ID),
		SuccessURL:  uc.cfg.SuccessURL,
	})
	if err != nil {
		uc.log.Error("Payment intent creation failed", "error", err, "attempt_id", attempt.ID)
		if failErr := attempt.Fail(); failErr == nil {
			if saveErr := uc.attempts.CreateAttempt(ctx, attempt); saveErr != nil {
				uc.log.Warn("Failed to record failed attempt", "error", saveErr, "attempt_id", attempt.ID)
			}
		}
		return nil, err
	}

	if err := attempt.AwaitApproval(intent.ID); err != nil {
		return nil, err
	}
	if err := uc.attempts.CreateAttempt(ctx, attempt); err != nil {
		uc.log.Error("Failed to persist checkout attempt", "error", err, "attempt_id", attempt.ID, "intent_id", intent.ID)
		return nil, err
	}

	uc.log.Info("Checkout awaiting provider approval",
		"attempt_id", attempt.ID,
		"intent_id", intent.ID,
		"listings", len(kept),
		"removed", len(removed),
		"total", total.StringFixed(2),
		"currency", currency,
	)

	return &BeginCheckoutResult{
		AttemptID:   attempt.ID,
		IntentID:    intent.ID,
		ApprovalURL: intent.ApprovalURL,
		Removed:     removed,
		Total:       total.StringFixed(2),
		Currency:    currency,
	}, nil
}

// ConfirmCheckout resumes the state machine on the provider's success
// callback. Re-invocation with an intent that already reached confirmed is
// a no-op returning the previously recorded outcome. A gateway failure
// leaves the attempt awaiting approval so the callback can be retried; a
// rejected payment is terminal.
func (uc *CheckoutUseCase) ConfirmCheckout(ctx context.Context, intentID, payerToken, buyerID string) (*checkout.Outcome, error) {
	lockKey := fmt.Sprintf("confirm:%s", intentID)
	locked, err := uc.cache.AcquireLock(ctx, lockKey, uc.cfg.LockTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire confirmation lock: %w", err)
	}
	if !locked {
		return nil, domainErrors.ErrCheckoutInProgress
	}
	defer func() {
		if err := uc.cache.ReleaseLock(ctx, lockKey); err != nil {
			uc.log.Error("Failed to release confirmation lock", "error", err, "lock_key", lockKey)
		}
	}()

	attempt, err := uc.attempts.GetAttemptByIntentID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	// The provider's redirect carries no caller identity; the attempt does.
	if buyerID == "" {
		buyerID = attempt.BuyerID
	}

	switch attempt.Status {
	case checkout.StatusConfirmed:
		outcome, err := uc.listings.GetOutcome(ctx, intentID)
		if err != nil {
			return nil, err
		}
		if outcome == nil {
			return nil, domainErrors.ErrIntentNotFound
		}
		return outcome, nil
	case checkout.StatusFailed:
		return nil, domainErrors.ErrPaymentRejected
	case checkout.StatusCancelled:
		return nil, domainErrors.ErrIntentNotFound
	}

	// The recorded outcome, not the attempt status, is the source of
	// truth for replay: a failed status write after commit leaves the
	// attempt awaiting approval with the listings already sold, and
	// re-executing the intent at the provider would fail forever.
	if existing, err := uc.listings.GetOutcome(ctx, intentID); err != nil {
		return nil, err
	} else if existing != nil {
		if confirmErr := attempt.Confirm(); confirmErr == nil {
			if updErr := uc.attempts.UpdateAttempt(ctx, attempt); updErr != nil {
				uc.log.Error("Failed to persist confirmed attempt", "error", updErr, "attempt_id", attempt.ID)
			}
		}
		return existing, nil
	}

	providerOutcome, err := uc.gateway.ConfirmIntent(ctx, intentID, payerToken)
	if err != nil {
		// No transition: the attempt stays awaiting approval and the
		// at-least-once callback can be retried.
		uc.log.Error("Payment execution failed", "error", err, "intent_id", intentID)
		return nil, err
	}

	if !providerOutcome.Approved() {
		if failErr := attempt.Fail(); failErr != nil {
			return nil, failErr
		}
		if err := uc.attempts.UpdateAttempt(ctx, attempt); err != nil {
			uc.log.Error("Failed to persist failed attempt", "error", err, "attempt_id", attempt.ID)
		}
		return nil, domainErrors.ErrPaymentRejected
	}

	outcome, err := uc.commitApproved(ctx, attempt, buyerID)
	if err != nil {
		return nil, err
	}

	if err := attempt.Confirm(); err == nil {
		if updErr := uc.attempts.UpdateAttempt(ctx, attempt); updErr != nil {
			uc.log.Error("Failed to persist confirmed attempt", "error", updErr, "attempt_id", attempt.ID)
		}
	}

	uc.afterConfirm(ctx, attempt, outcome, buyerID)

	return outcome, nil
}

// commitApproved marks every listing bound to the intent inside one
// transaction and records the outcome alongside. Listings lost to a
// concurrent buyer are enumerated, not rolled back: the payment has
// already been executed and compensating it is outside this engine's
// authority.
func (uc *CheckoutUseCase) commitApproved(ctx context.Context, attempt *checkout.Attempt, buyerID string) (outcome *checkout.Outcome, err error) {
	tx, err := uc.listings.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", domainErrors.ErrTransactionFailed, err)
	}
	defer func() {
		if err != nil {
			_ = tx.RollbackTx(ctx)
		}
	}()

	existing, err := tx.GetOutcome(ctx, attempt.IntentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		_ = tx.RollbackTx(ctx)
		return existing, nil
	}

	purchased := make([]string, 0, len(attempt.ListingIDs))
	alreadySold := make([]string, 0)
	for _, listingID := range attempt.ListingIDs {
		won, markErr := tx.MarkSold(ctx, listingID, buyerID)
		if markErr != nil {
			err = fmt.Errorf("failed to mark listing %s as sold: %w", listingID, markErr)
			return nil, err
		}
		if won {
			purchased = append(purchased, listingID)
		} else {
			alreadySold = append(alreadySold, listingID)
		}
	}

	outcome = checkout.NewOutcome(attempt, purchased, alreadySold)

	if err = tx.SaveOutcome(ctx, attempt.IntentID, outcome); err != nil {
		return nil, fmt.Errorf("failed to save checkout outcome: %w", err)
	}
	if err = tx.CommitTx(ctx); err != nil {
		err = fmt.Errorf("%w: commit: %v", domainErrors.ErrTransactionFailed, err)
		return nil, err
	}

	if outcome.Partial {
		uc.log.Warn("Partial checkout: some listings sold to a concurrent buyer",
			"intent_id", attempt.IntentID,
			"purchased", len(purchased),
			"already_sold", alreadySold,
		)
	}

	return outcome, nil
}

// afterConfirm performs the best-effort side effects: cart cleanup, sold
// filter updates, seller notifications and the buyer's receipt. None of
// these can fail the confirmation.
func (uc *CheckoutUseCase) afterConfirm(ctx context.Context, attempt *checkout.Attempt, outcome *checkout.Outcome, buyerID string) {
	if err := uc.carts.Remove(ctx, attempt.SessionID, attempt.ListingIDs...); err != nil {
		uc.log.Warn("Failed to clear cart entries after checkout", "error", err, "session_id", attempt.SessionID)
	}

	for _, id := range attempt.ListingIDs {
		if err := uc.cache.AddListingToSoldFilter(ctx, id); err != nil {
			uc.log.Warn("Failed to record sold listing in filter", "error", err, "listing_id", id)
		}
	}

	for _, id := range outcome.Purchased {
		l, err := uc.listings.GetByID(ctx, id)
		if err != nil {
			uc.log.Warn("Failed to load sold listing for notification", "error", err, "listing_id", id)
			continue
		}
		uc.notifier.Notify(ctx, l.CreatedBy, "Your listing has been sold", "listing/"+l.ID)
	}

	buyer, err := uc.users.GetByID(ctx, buyerID)
	if err != nil {
		uc.log.Warn("Failed to load buyer for purchase confirmation", "error", err, "buyer_id", buyerID)
		return
	}
	if err := uc.mailer.SendPurchaseConfirmation(buyer.Mail, outcome.Purchased, outcome.Total, outcome.Currency); err != nil {
		uc.log.Warn("Failed to send purchase confirmation", "error", err, "buyer_id", buyerID)
	}
}

// CancelCheckout handles the provider's cancel notification; it carries no
// payment id, so the attempt id embedded in the cancel URL keys it. The
// cart is left untouched.
func (uc *CheckoutUseCase) CancelCheckout(ctx context.Context, attemptID string) error {
	attempt, err := uc.attempts.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return err
	}
	if attempt.Status.Terminal() {
		return nil
	}
	if err := attempt.Cancel(); err != nil {
		return err
	}
	return uc.attempts.UpdateAttempt(ctx, attempt)
}

// stagedListings materializes the cart, or a synthetic single-listing cart
// for direct buys.
func (uc *CheckoutUseCase) stagedListings(ctx context.Context, in BeginCheckoutInput) (*cart.Cart, error) {
	staged := cart.New(in.SessionID)
	if in.ListingID != "" {
		if err := staged.Add(in.ListingID); err != nil {
			return nil, err
		}
		return staged, nil
	}

	items, err := uc.carts.Items(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	staged.ListingIDs = items
	return staged, nil
}

func (uc *CheckoutUseCase) resolveCurrency(ctx context.Context, in BeginCheckoutInput) (string, error) {
	if in.Currency != "" {
		return strings.ToUpper(in.Currency), nil
	}
	currency, err := uc.cache.GetSessionCurrency(ctx, in.SessionID)
	if err != nil {
		uc.log.Warn("Failed to read session currency, using base", "error", err, "session_id", in.SessionID)
		return strings.ToUpper(uc.cfg.BaseCurrency), nil
	}
	if currency == "" {
		currency = uc.cfg.BaseCurrency
	}
	return strings.ToUpper(currency), nil
}

func checkoutDescription(listingIDs []string) string {
	if len(listingIDs) == 1 {
		return "Purchase of listing " + listingIDs[0]
	}
	return fmt.Sprintf("Purchase of %d listings", len(listingIDs))
}
