package commands

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resexchange/marketplace/internal/domain/chat"
	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
	"github.com/resexchange/marketplace/internal/domain/listing"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

// stubChats enforces the unique (listing, creator, initiator) key the way
// the real store does, so concurrent first access converges on one row.
type stubChats struct {
	mu   sync.Mutex
	rows map[string]*chat.Chat
}

func newStubChats() *stubChats {
	return &stubChats{rows: make(map[string]*chat.Chat)}
}

func chatKey(c *chat.Chat) string {
	return c.ListingID + "|" + c.CreatorID + "|" + c.InitiatorID
}

func (s *stubChats) GetOrCreate(ctx context.Context, candidate *chat.Chat) (*chat.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.rows[chatKey(candidate)]; ok {
		return existing, nil
	}
	s.rows[chatKey(candidate)] = candidate
	return candidate, nil
}

func (s *stubChats) GetByID(ctx context.Context, id string) (*chat.Chat, error) {
	return nil, domainErrors.ErrChatNotFound
}

func (s *stubChats) ListByUser(ctx context.Context, userID string) ([]*chat.Chat, error) {
	return nil, nil
}

func (s *stubChats) DeleteByListing(ctx context.Context, listingID string) error {
	return nil
}

type countingNotifier struct {
	mu       sync.Mutex
	notified []string
}

func (n *countingNotifier) Notify(ctx context.Context, recipientID, message, link string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, recipientID)
}

func newOpenChatFixture(t *testing.T) (*OpenChatHandler, *stubChats, *countingNotifier) {
	t.Helper()
	listings := &stubListings{listings: map[string]*listing.Listing{
		"lst-1": unsoldListing(t, "lst-1", "seller-1"),
	}}
	chats := newStubChats()
	notifier := &countingNotifier{}
	h := NewOpenChatHandler(chats, listings, notifier, logger.NewLogger())
	return h, chats, notifier
}

func TestOpenChatCreatesAndNotifies(t *testing.T) {
	h, chats, notifier := newOpenChatFixture(t)

	c, err := h.Handle(context.Background(), OpenChatCommand{
		ListingID: "lst-1", InitiatorID: "buyer-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "seller-1", c.CreatorID)
	assert.Equal(t, "buyer-1", c.InitiatorID)
	assert.Len(t, chats.rows, 1)
	assert.Equal(t, []string{"seller-1"}, notifier.notified, "the seller hears about a new chat once")
}

func TestOpenChatReturnsExistingWithoutNotifying(t *testing.T) {
	h, chats, notifier := newOpenChatFixture(t)
	existing, err := chat.NewChat("cht-existing", "lst-1", "seller-1", "buyer-1")
	require.NoError(t, err)
	chats.rows[chatKey(existing)] = existing

	c, err := h.Handle(context.Background(), OpenChatCommand{
		ListingID: "lst-1", InitiatorID: "buyer-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "cht-existing", c.ID)
	assert.Empty(t, notifier.notified, "reopening a chat must not re-notify the seller")
}

func TestOpenChatConcurrentFirstAccess(t *testing.T) {
	h, chats, notifier := newOpenChatFixture(t)

	const callers = 16
	var wg sync.WaitGroup
	ids := make(chan string, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := h.Handle(context.Background(), OpenChatCommand{
				ListingID: "lst-1", InitiatorID: "buyer-1",
			})
			if assert.NoError(t, err) {
				ids <- c.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1, "everyone converges on the same chat")
	assert.Len(t, chats.rows, 1)
	assert.Equal(t, []string{"seller-1"}, notifier.notified, "only the winning insert notifies")
}

func TestOpenChatBySellerRejected(t *testing.T) {
	h, _, notifier := newOpenChatFixture(t)

	_, err := h.Handle(context.Background(), OpenChatCommand{
		ListingID: "lst-1", InitiatorID: "seller-1",
	})
	assert.ErrorIs(t, err, domainErrors.ErrValidation)
	assert.Empty(t, notifier.notified)
}

func TestOpenChatUnknownListing(t *testing.T) {
	h, _, _ := newOpenChatFixture(t)

	_, err := h.Handle(context.Background(), OpenChatCommand{
		ListingID: "lst-missing", InitiatorID: "buyer-1",
	})
	assert.ErrorIs(t, err, domainErrors.ErrListingNotFound)
}
