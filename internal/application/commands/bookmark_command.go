package commands

import (
	"context"
	"fmt"

	"github.com/resexchange/marketplace/internal/application/ports"
	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

type BookmarkCommand struct {
	UserID    string
	ListingID string
}

type BookmarkHandler struct {
	listings ports.ListingRepository
	notifier ports.Notifier
	log      *logger.Logger
}

func NewBookmarkHandler(listings ports.ListingRepository, notifier ports.Notifier, log *logger.Logger) *BookmarkHandler {
	return &BookmarkHandler{listings: listings, notifier: notifier, log: log}
}

// Handle bookmarks a listing for a user and tells the seller somebody is
// interested. Bookmarking twice is a no-op without a second notification.
func (h *BookmarkHandler) Handle(ctx context.Context, cmd BookmarkCommand) error {
	l, err := h.listings.GetByID(ctx, cmd.ListingID)
	if err != nil {
		return err
	}
	if l.CreatedBy == cmd.UserID {
		return fmt.Errorf("%w: cannot bookmark own listing", domainErrors.ErrValidation)
	}

	created, err := h.listings.AddBookmark(ctx, cmd.UserID, cmd.ListingID)
	if err != nil {
		return err
	}
	if created {
		h.notifier.Notify(ctx, l.CreatedBy, "Someone bookmarked your listing", "listing/"+l.ID)
	}
	return nil
}

type RemoveBookmarkCommand struct {
	UserID    string
	ListingID string
}

type RemoveBookmarkHandler struct {
	listings ports.ListingRepository
}

func NewRemoveBookmarkHandler(listings ports.ListingRepository) *RemoveBookmarkHandler {
	return &RemoveBookmarkHandler{listings: listings}
}

func (h *RemoveBookmarkHandler) Handle(ctx context.Context, cmd RemoveBookmarkCommand) error {
	return h.listings.RemoveBookmark(ctx, cmd.UserID, cmd.ListingID)
}
