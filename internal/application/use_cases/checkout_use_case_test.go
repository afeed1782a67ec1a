package use_cases

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resexchange/marketplace/internal/application/ports"
	"github.com/resexchange/marketplace/internal/domain/checkout"
	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
	"github.com/resexchange/marketplace/internal/domain/listing"
	"github.com/resexchange/marketplace/internal/domain/user"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

type fakeListingRepo struct {
	mu        sync.Mutex
	listings  map[string]*listing.Listing
	outcomes  map[string]*checkout.Outcome
	commitErr error
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{
		listings: make(map[string]*listing.Listing),
		outcomes: make(map[string]*checkout.Outcome),
	}
}

func (r *fakeListingRepo) put(l *listing.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.listings[l.ID] = &cp
}

func (r *fakeListingRepo) Create(ctx context.Context, l *listing.Listing) error {
	r.put(l)
	return nil
}

func (r *fakeListingRepo) GetByID(ctx context.Context, id string) (*listing.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, domainErrors.ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *fakeListingRepo) Update(ctx context.Context, l *listing.Listing) error {
	r.put(l)
	return nil
}

func (r *fakeListingRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listings, id)
	return nil
}

func (r *fakeListingRepo) MarkSold(ctx context.Context, id, buyerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return false, domainErrors.ErrListingNotFound
	}
	if l.Sold {
		return false, nil
	}
	l.Sold = true
	l.BuyerID = buyerID
	now := time.Now().UTC()
	l.SoldAt = &now
	return true, nil
}

func (r *fakeListingRepo) ListBySeller(ctx context.Context, sellerID string) ([]*listing.Listing, error) {
	return nil, nil
}

func (r *fakeListingRepo) ListByBuyer(ctx context.Context, buyerID string) ([]*listing.Listing, error) {
	return nil, nil
}

func (r *fakeListingRepo) Search(ctx context.Context, q listing.SearchQuery) ([]*listing.Listing, int, error) {
	return nil, 0, nil
}

func (r *fakeListingRepo) GetMaterial(ctx context.Context, id string) (*listing.Material, error) {
	return &listing.Material{ID: id, Name: id}, nil
}

func (r *fakeListingRepo) ListMaterials(ctx context.Context) ([]*listing.Material, error) {
	return nil, nil
}

func (r *fakeListingRepo) AddBookmark(ctx context.Context, userID, listingID string) (bool, error) {
	return true, nil
}

func (r *fakeListingRepo) RemoveBookmark(ctx context.Context, userID, listingID string) error {
	return nil
}

func (r *fakeListingRepo) SaveOutcome(ctx context.Context, intentID string, o *checkout.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.outcomes[intentID]; exists {
		return nil
	}
	r.outcomes[intentID] = o
	return nil
}

func (r *fakeListingRepo) GetOutcome(ctx context.Context, intentID string) (*checkout.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[intentID], nil
}

func (r *fakeListingRepo) BeginTx(ctx context.Context) (ports.ListingRepository, error) {
	return r, nil
}

func (r *fakeListingRepo) CommitTx(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.commitErr
	r.commitErr = nil
	return err
}

func (r *fakeListingRepo) RollbackTx(ctx context.Context) error { return nil }

type fakeCheckoutRepo struct {
	mu        sync.Mutex
	attempts  map[string]*checkout.Attempt
	updateErr error
}

func newFakeCheckoutRepo() *fakeCheckoutRepo {
	return &fakeCheckoutRepo{attempts: make(map[string]*checkout.Attempt)}
}

func (r *fakeCheckoutRepo) CreateAttempt(ctx context.Context, a *checkout.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.attempts[a.ID] = &cp
	return nil
}

func (r *fakeCheckoutRepo) GetAttemptByID(ctx context.Context, id string) (*checkout.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return nil, domainErrors.ErrIntentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeCheckoutRepo) GetAttemptByIntentID(ctx context.Context, intentID string) (*checkout.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.attempts {
		if a.IntentID == intentID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domainErrors.ErrIntentNotFound
}

func (r *fakeCheckoutRepo) UpdateAttempt(ctx context.Context, a *checkout.Attempt) error {
	r.mu.Lock()
	if err := r.updateErr; err != nil {
		r.updateErr = nil
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()
	return r.CreateAttempt(ctx, a)
}

func (r *fakeCheckoutRepo) CancelStaleAwaiting(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.attempts {
		if a.Status == checkout.StatusAwaitingApproval && a.UpdatedAt.Before(cutoff) {
			a.Status = checkout.StatusCancelled
			n++
		}
	}
	return n, nil
}

type fakeCartStore struct {
	mu    sync.Mutex
	carts map[string]map[string]bool
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{carts: make(map[string]map[string]bool)}
}

func (s *fakeCartStore) Items(ctx context.Context, sessionID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []string
	for id := range s.carts[sessionID] {
		items = append(items, id)
	}
	return items, nil
}

func (s *fakeCartStore) Add(ctx context.Context, sessionID, listingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carts[sessionID] == nil {
		s.carts[sessionID] = make(map[string]bool)
	}
	if s.carts[sessionID][listingID] {
		return false, nil
	}
	s.carts[sessionID][listingID] = true
	return true, nil
}

func (s *fakeCartStore) Remove(ctx context.Context, sessionID string, listingIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range listingIDs {
		delete(s.carts[sessionID], id)
	}
	return nil
}

func (s *fakeCartStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
	return nil
}

type fakeGateway struct {
	mu             sync.Mutex
	createCalls    int
	confirmCalls   int
	createErr      error
	confirmErr     error
	confirmOutcome *ports.PaymentOutcome
	nextIntentID   string
}

func (g *fakeGateway) CreateIntent(ctx context.Context, req ports.CreateIntentRequest) (*ports.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	id := g.nextIntentID
	if id == "" {
		id = fmt.Sprintf("PAY-%d", g.createCalls)
	}
	return &ports.PaymentIntent{
		ID:          id,
		ApprovalURL: "https://provider.example/approve/" + id,
		Amount:      req.Amount,
		Currency:    req.Currency,
		ListingIDs:  req.ListingIDs,
	}, nil
}

func (g *fakeGateway) ConfirmIntent(ctx context.Context, intentID, payerToken string) (ports.PaymentOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.confirmCalls++
	if g.confirmErr != nil {
		return ports.PaymentOutcome{}, g.confirmErr
	}
	if g.confirmOutcome != nil {
		return *g.confirmOutcome, nil
	}
	return ports.PaymentOutcome{State: ports.OutcomeApproved, PayerID: payerToken}, nil
}

type fakeCache struct {
	mu       sync.Mutex
	sold     map[string]bool
	currency map[string]string
	locks    map[string]bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		sold:     make(map[string]bool),
		currency: make(map[string]string),
		locks:    make(map[string]bool),
	}
}

func (c *fakeCache) AddListingToSoldFilter(ctx context.Context, listingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sold[listingID] = true
	return nil
}

func (c *fakeCache) ListingInSoldFilter(ctx context.Context, listingID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sold[listingID], nil
}

func (c *fakeCache) GetSessionCurrency(ctx context.Context, sessionID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currency[sessionID], nil
}

func (c *fakeCache) SetSessionCurrency(ctx context.Context, sessionID, currency string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currency[sessionID] = currency
	return nil
}

func (c *fakeCache) AcquireLock(ctx context.Context, key string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[key] {
		return false, nil
	}
	c.locks[key] = true
	return true, nil
}

func (c *fakeCache) ReleaseLock(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, key)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(ctx context.Context, recipientID, message, link string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, recipientID+": "+message)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent int
}

func (m *fakeMailer) SendPurchaseConfirmation(toMail string, listingIDs []string, total, currency string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
	return nil
}

type fakeUserRepo struct{}

func (fakeUserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	return &user.User{ID: id, Mail: id + "@example.com", Kind: user.KindPrivate}, nil
}

func (fakeUserRepo) GetByMail(ctx context.Context, mail string) (*user.User, error) {
	return &user.User{ID: mail, Mail: mail, Kind: user.KindPrivate}, nil
}

type checkoutFixture struct {
	uc       *CheckoutUseCase
	listings *fakeListingRepo
	attempts *fakeCheckoutRepo
	carts    *fakeCartStore
	gateway  *fakeGateway
	cache    *fakeCache
	notifier *fakeNotifier
	mailer   *fakeMailer
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		listings: newFakeListingRepo(),
		attempts: newFakeCheckoutRepo(),
		carts:    newFakeCartStore(),
		gateway:  &fakeGateway{},
		cache:    newFakeCache(),
		notifier: &fakeNotifier{},
		mailer:   &fakeMailer{},
	}
	f.uc = NewCheckoutUseCase(
		f.listings, f.attempts, f.carts, f.gateway, f.cache,
		f.notifier, f.mailer, fakeUserRepo{}, logger.NewLogger(),
		CheckoutConfig{
			BaseCurrency: "USD",
			SuccessURL:   "https://shop.example/checkout/success",
			CancelURL:    "https://shop.example/checkout/cancel",
		},
	)
	return f
}

func (f *checkoutFixture) addListing(t *testing.T, id, seller, price string) {
	t.Helper()
	p, err := decimal.NewFromString(price)
	require.NoError(t, err)
	l, err := listing.NewListing(id, "mat-1", seller, "", 1, p)
	require.NoError(t, err)
	f.listings.put(l)
}

func (f *checkoutFixture) stage(t *testing.T, session string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := f.carts.Add(context.Background(), session, id)
		require.NoError(t, err)
	}
}

func TestBeginCheckoutEmptyCart(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.uc.BeginCheckout(context.Background(), BeginCheckoutInput{
		SessionID: "s1", BuyerID: "buyer-1",
	})

	assert.ErrorIs(t, err, domainErrors.ErrEmptyCart)
	assert.Zero(t, f.gateway.createCalls, "gateway must not be called for an empty cart")
}

func TestBeginCheckoutDecimalTotal(t *testing.T) {
	f := newCheckoutFixture()
	f.addListing(t, "lst-big", "seller-1", "10.00")
	ids := []string{"lst-big"}
	for i := 0; i < 9; i++ {
		id := fmt.Sprintf("lst-%d", i)
		f.addListing(t, id, "seller-1", "0.10")
		ids = append(ids, id)
	}
	f.stage(t, "s1", ids...)

	result, err := f.uc.BeginCheckout(context.Background(), BeginCheckoutInput{
		SessionID: "s1", BuyerID: "buyer-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "10.90", result.Total)
	assert.Equal(t, "USD", result.Currency)
	assert.NotEmpty(t, result.ApprovalURL)
	assert.Empty(t, result.Removed)
}

func TestBeginCheckoutEvictsSoldListings(t *testing.T) {
	f := newCheckoutFixture()
	f.addListing(t, "lst-1", "seller-1", "5.00")
	f.addListing(t, "lst-2", "seller-1", "7.00")
	f.stage(t, "s1", "lst-1", "lst-2")

	won, err := f.listings.MarkSold(context.Background(), "lst-2", "someone-else")
	require.NoError(t, err)
	require.True(t, won)

	result, err := f.uc.BeginCheckout(context.Background(), BeginCheckoutInput{
		SessionID: "s1", BuyerID: "buyer-1",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"lst-2"}, result.Removed)
	assert.Equal(t, "5.00", result.Total)

	items, err := f.carts.Items(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"lst-1"}, items, "sold listing must be evicted from the cart")
}

func TestBeginCheckoutAllSold(t *testing.T) {
	f := newCheckoutFixture()
	f.addListing(t, "lst-1", "seller-1", "5.00")
	f.stage(t, "s1", "lst-1")

	_, err := f.listings.MarkSold(context.Background(), "lst-1", "someone-else")
	require.NoError(t, err)

	_, err = f.uc.BeginCheckout(context.Background(), BeginCheckoutInput{
		SessionID: "s1", BuyerID: "buyer-1",
	})

	assert.ErrorIs(t, err, domainErrors.ErrAllListingsSold)
	assert.Zero(t, f.gateway.createCalls)
}

func TestBeginCheckoutSessionCurrency(t *testing.T) {
	f := newCheckoutFixture()
	f.addListing(t, "lst-1", "seller-1", "5.00")
	f.stage(t, "s1", "lst-1")
	require.NoError(t, f.cache.SetSessionCurrency(context.Background(), "s1", "EUR", time.Hour))

	result, err := f.uc.BeginCheckout(context.Background(), BeginCheckoutInput{
		SessionID: "s1", BuyerID: "buyer-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "EUR", result.Currency)
}

func TestBeginCheckoutGatewayFailure(t *testing.T) {
	f := newCheckoutFixture()
	f.addListing(t, "lst-1", "seller-1", "5.00")
	f.stage(t, "s1", "lst-1")
	f.gateway.createErr = fmt.Errorf("%w: provider down", domainErrors.ErrGateway)

	_, err := f.uc.BeginCheckout(context.Background(), BeginCheckoutInput{
		SessionID: "s1", BuyerID: "buyer-1",
	})

	assert.ErrorIs(t, err, domainErrors.ErrGateway)

	l, err := f.listings.GetByID(context.Background(), "lst-1")
	require.NoError(t, err)
	assert.False(t, l.Sold, "a gateway failure must not touch listings")
}

func beginAndGetIntent(t *testing.T, f *checkoutFixture, session, buyer string) string {
	t.Helper()
	result, err := f.uc.BeginCheckout(context.Background(), BeginCheckoutInput{
		SessionID: session, BuyerID: buyer,
	})
	require.NoError(t, err)
	return result.IntentID
}

func TestConfirmCheckout(t *testing.T) {
	f := newCheckoutFixture()
	f.addListing(t, "lst-1", "seller-1", "5.00")
	f.addListing(t, "lst-2", "seller-2", "7.00")
	f.stage(t, "s1", "lst-1", "lst-2")
	intentID := beginAndGetIntent(t, f, "s1", "buyer-1")

	outcome, err := f.uc.ConfirmCheckout(context.Background(), intentID, "payer-token", "buyer-1")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"lst-1", "lst-2"}, outcome.Purchased)
	assert.Empty(t, outcome.AlreadySold)
	assert.False(t, outcome.Partial)
	assert.Equal(t, "12.00", outcome.Total)

	for _, id := range []string{"lst-1", "lst-2"} {
		l, err := f.listings.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, l.Sold)
		assert.Equal(t, "buyer-1", l.BuyerID)
	}

	items, err := f.carts.Items(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, items, "purchased listings must leave the cart")

	a, err := f.attempts.GetAttemptByIntentID(context.Background(), intentID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StatusConfirmed, a.Status)

	assert.Equal(t, 1, f.mailer.sent)
	assert.Len(t, f.notifier.messages, 2)
}

func TestConfirmCheckoutIdempotent(t *testing.T) {
	f := newCheckoutFixture()
	f.addListing(t, "lst-1", "seller-1", "5.00")
	f.stage(t, "s1", "lst-1")
	intentID := beginAndGetIntent(t, f, "s1", "buyer-1")

	first, err := f.uc.ConfirmCheckout(context.Background(), intentID, "payer-token", "buyer-1")
	require.NoError(t, err)

	second, err := f.uc.ConfirmCheckout(context.Background(), intentID, "payer-token", "buyer-1")
	require.NoError(t, err)

	assert.Equal(t, first.Purchased, second.Purchased)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, 1, f.gateway.confirmCalls, "replayed confirmation must not hit the provider again")
}

func TestConfirmCheckoutReplaysAfterLostStatusWrite(t *testing.T) {
	f := newCheckoutFixture()
	f.addListing(t, "lst-1", "seller-1", "5.00")
	f.stage(t, "s1", "lst-1")
	intentID := beginAndGetIntent(t, f, "s1", "buyer-1")

	// The outcome commits but the confirmed status write is lost.
	f.attempts.updateErr = fmt.Errorf("connection reset")
	first, err := f.uc.ConfirmCheckout(context.Background(), intentID, "payer-token", "buyer-1")
	require.NoError(t, err)

	a, err := f.attempts.GetAttemptByIntentID(context.Background(), intentID)
	require.NoError(t, err)
	require.Equal(t, checkout.StatusAwaitingApproval, a.Status)

	// The provider refuses to execute the same intent twice; the retry
	// must answer from the recorded outcome instead.
	f.gateway.confirmErr = fmt.Errorf("%w: payment already done", domainErrors.ErrGateway)
	second, err := f.uc.ConfirmCheckout(context.Background(), intentID, "payer-token", "buyer-1")
	require.NoError(t, err)

	assert.Equal(t, first.Purchased, second.Purchased)
	assert.Equal(t, 1, f.gateway.confirmCalls, "the retry must not re-execute the intent")

	a, err = f.attempts.GetAttemptByIntentID(context.Background(), intentID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StatusConfirmed, a.Status, "the retry repairs the lost status write")
}

func TestConfirmCheckoutCommitFailure(t *testing.T) {
	f := newCheckoutFixture()
	f.addListing(t, "lst-1", "seller-1", "5.00")
	f.stage(t, "s1", "lst-1")
	intentID := beginAndGetIntent(t, f, "s1", "buyer-1")

	f.listings.commitErr = fmt.Errorf("serialization conflict")

	_, err := f.uc.ConfirmCheckout(context.Background(), intentID, "payer-token", "buyer-1")
	assert.ErrorIs(t, err, domainErrors.ErrTransactionFailed)
}

func TestConfirmCheckoutRejected(t *testing.T) {
	f := newCheckoutFixture()
	f.addListing(t, "lst-1", "seller-1", "5.00")
	f.stage(t, "s1", "lst-1")
	intentID := beginAndGetIntent(t, f, "s1", "buyer-1")

	f.gateway.confirmOutcome = &ports.PaymentOutcome{State: ports.OutcomeRejected}

	_, err := f.uc.ConfirmCheckout(context.Background(), intentID, "payer-token", "buyer-1")
	assert.ErrorIs(t, err, domainErrors.ErrPaymentRejected)

	l, err := f.listings.GetByID(context.Background(), "lst-1")
	require.NoError(t, err)
	assert.False(t, l.Sold)

	items, err := f.carts.Items(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"lst-1"}, items, "a rejected payment leaves the cart untouched")

	a, err := f.attempts.GetAttemptByIntentID(context.Background(), intentID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StatusFailed, a.Status)
}

func TestConfirmCheckoutGatewayErrorIsRetryable(t *testing.T) {
	f := newCheckoutFixture()
	f.addListing(t, "lst-1", "seller-1", "5.00")
	f.stage(t, "s1", "lst-1")
	intentID := beginAndGetIntent(t, f, "s1", "buyer-1")

	f.gateway.confirmErr = fmt.Errorf("%w: timeout", domainErrors.ErrGateway)
	_, err := f.uc.ConfirmCheckout(context.Background(), intentID, "payer-token", "buyer-1")
	assert.ErrorIs(t, err, domainErrors.ErrGateway)

	a, err := f.attempts.GetAttemptByIntentID(context.Background(), intentID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StatusAwaitingApproval, a.Status, "a transient provider error must keep the attempt retryable")

	f.gateway.confirmErr = nil
	outcome, err := f.uc.ConfirmCheckout(context.Background(), intentID, "payer-token", "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"lst-1"}, outcome.Purchased)
}

func TestConfirmCheckoutLockContention(t *testing.T) {
	f := newCheckoutFixture()
	f.addListing(t, "lst-1", "seller-1", "5.00")
	f.stage(t, "s1", "lst-1")
	intentID := beginAndGetIntent(t, f, "s1", "buyer-1")

	locked, err := f.cache.AcquireLock(context.Background(), "confirm:"+intentID, time.Minute)
	require.NoError(t, err)
	require.True(t, locked)

	_, err = f.uc.ConfirmCheckout(context.Background(), intentID, "payer-token", "buyer-1")
	assert.ErrorIs(t, err, domainErrors.ErrCheckoutInProgress)
}

func TestConfirmCheckoutPartial(t *testing.T) {
	f := newCheckoutFixture()
	f.addListing(t, "lst-1", "seller-1", "5.00")
	f.addListing(t, "lst-2", "seller-1", "7.00")
	f.addListing(t, "lst-3", "seller-1", "9.00")

	f.stage(t, "sA", "lst-1", "lst-2")
	f.stage(t, "sB", "lst-2", "lst-3")

	intentA := beginAndGetIntent(t, f, "sA", "buyer-a")
	intentB := beginAndGetIntent(t, f, "sB", "buyer-b")

	outcomeA, err := f.uc.ConfirmCheckout(context.Background(), intentA, "token-a", "buyer-a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lst-1", "lst-2"}, outcomeA.Purchased)

	outcomeB, err := f.uc.ConfirmCheckout(context.Background(), intentB, "token-b", "buyer-b")
	require.NoError(t, err)

	assert.Equal(t, []string{"lst-3"}, outcomeB.Purchased)
	assert.Equal(t, []string{"lst-2"}, outcomeB.AlreadySold)
	assert.True(t, outcomeB.Partial)

	l, err := f.listings.GetByID(context.Background(), "lst-2")
	require.NoError(t, err)
	assert.Equal(t, "buyer-a", l.BuyerID, "the first confirmed buyer keeps the listing")
}

func TestMarkSoldSingleWinner(t *testing.T) {
	f := newCheckoutFixture()
	f.addListing(t, "lst-1", "seller-1", "5.00")

	const buyers = 16
	var wg sync.WaitGroup
	wins := make(chan string, buyers)

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			buyer := fmt.Sprintf("buyer-%d", n)
			won, err := f.listings.MarkSold(context.Background(), "lst-1", buyer)
			if assert.NoError(t, err) && won {
				wins <- buyer
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	require.Len(t, winners, 1, "exactly one buyer may win the listing")

	l, err := f.listings.GetByID(context.Background(), "lst-1")
	require.NoError(t, err)
	assert.Equal(t, winners[0], l.BuyerID)
}

func TestCancelCheckout(t *testing.T) {
	f := newCheckoutFixture()
	f.addListing(t, "lst-1", "seller-1", "5.00")
	f.stage(t, "s1", "lst-1")

	result, err := f.uc.BeginCheckout(context.Background(), BeginCheckoutInput{
		SessionID: "s1", BuyerID: "buyer-1",
	})
	require.NoError(t, err)

	require.NoError(t, f.uc.CancelCheckout(context.Background(), result.AttemptID))

	a, err := f.attempts.GetAttemptByID(context.Background(), result.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StatusCancelled, a.Status)

	items, err := f.carts.Items(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"lst-1"}, items, "cancellation leaves the cart untouched")

	// cancelling again is a no-op
	require.NoError(t, f.uc.CancelCheckout(context.Background(), result.AttemptID))
}
