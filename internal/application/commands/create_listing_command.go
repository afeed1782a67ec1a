package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/resexchange/marketplace/internal/application/ports"
	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
	"github.com/resexchange/marketplace/internal/domain/listing"
	"github.com/resexchange/marketplace/internal/pkg/generator"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

type CreateListingCommand struct {
	SellerID    string
	MaterialID  string
	Description string
	Quantity    int
	Price       string
}

type CreateListingHandler struct {
	listings ports.ListingRepository
	users    ports.UserRepository
	geocoder ports.Geocoder
	log      *logger.Logger
	idGen    *generator.IDGenerator
}

func NewCreateListingHandler(
	listings ports.ListingRepository,
	users ports.UserRepository,
	geocoder ports.Geocoder,
	log *logger.Logger,
) *CreateListingHandler {
	return &CreateListingHandler{
		listings: listings,
		users:    users,
		geocoder: geocoder,
		log:      log,
		idGen:    generator.NewIDGenerator(),
	}
}

// Handle validates and persists a new listing. The seller's address is
// geocoded best effort: an unresolvable address produces a listing without
// coordinates, never an error.
func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (*listing.Listing, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(cmd.Price))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid price %q", domainErrors.ErrValidation, cmd.Price)
	}

	if _, err := h.listings.GetMaterial(ctx, cmd.MaterialID); err != nil {
		return nil, err
	}

	l, err := listing.NewListing(h.idGen.ListingID(), cmd.MaterialID, cmd.SellerID, cmd.Description, cmd.Quantity, price)
	if err != nil {
		return nil, err
	}

	h.locate(ctx, l, cmd.SellerID)

	if err := h.listings.Create(ctx, l); err != nil {
		h.log.Error("Failed to persist listing", "error", err, "seller_id", cmd.SellerID)
		return nil, err
	}

	h.log.Info("Listing created", "listing_id", l.ID, "material_id", l.MaterialID, "seller_id", cmd.SellerID)
	return l, nil
}

func (h *CreateListingHandler) locate(ctx context.Context, l *listing.Listing, sellerID string) {
	seller, err := h.users.GetByID(ctx, sellerID)
	if err != nil {
		h.log.Warn("Failed to load seller for geocoding", "error", err, "seller_id", sellerID)
		return
	}
	if seller.Address.Empty() {
		return
	}
	coords, err := h.geocoder.Geocode(ctx, seller.Address)
	if err != nil {
		h.log.Warn("Geocoding failed", "error", err, "seller_id", sellerID)
		return
	}
	if coords != nil {
		l.SetLocation(coords.Latitude, coords.Longitude)
	}
}

type UpdateListingCommand struct {
	ListingID   string
	SellerID    string
	MaterialID  string
	Description string
	Quantity    int
	Price       string
}

type UpdateListingHandler struct {
	listings ports.ListingRepository
	log      *logger.Logger
}

func NewUpdateListingHandler(listings ports.ListingRepository, log *logger.Logger) *UpdateListingHandler {
	return &UpdateListingHandler{listings: listings, log: log}
}

// Handle edits a listing in place. Sold listings are frozen: once a buyer
// exists the record is part of a completed transaction.
func (h *UpdateListingHandler) Handle(ctx context.Context, cmd UpdateListingCommand) (*listing.Listing, error) {
	l, err := h.listings.GetByID(ctx, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if l.CreatedBy != cmd.SellerID {
		return nil, fmt.Errorf("%w: only the seller may edit a listing", domainErrors.ErrValidation)
	}
	if !l.Editable() {
		return nil, domainErrors.ErrListingSoldEdit
	}

	price, err := decimal.NewFromString(strings.TrimSpace(cmd.Price))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid price %q", domainErrors.ErrValidation, cmd.Price)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be greater than zero", domainErrors.ErrValidation)
	}
	if cmd.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be greater than zero", domainErrors.ErrValidation)
	}
	if cmd.MaterialID != "" {
		if _, err := h.listings.GetMaterial(ctx, cmd.MaterialID); err != nil {
			return nil, err
		}
		l.MaterialID = cmd.MaterialID
	}

	l.Description = cmd.Description
	l.Quantity = cmd.Quantity
	l.Price = price

	if err := h.listings.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

type DeleteListingCommand struct {
	ListingID string
	SellerID  string
	IsAdmin   bool
}

type DeleteListingHandler struct {
	listings ports.ListingRepository
	chats    ports.ChatRepository
	log      *logger.Logger
}

func NewDeleteListingHandler(listings ports.ListingRepository, chats ports.ChatRepository, log *logger.Logger) *DeleteListingHandler {
	return &DeleteListingHandler{listings: listings, chats: chats, log: log}
}

func (h *DeleteListingHandler) Handle(ctx context.Context, cmd DeleteListingCommand) error {
	l, err := h.listings.GetByID(ctx, cmd.ListingID)
	if err != nil {
		return err
	}
	if !cmd.IsAdmin && l.CreatedBy != cmd.SellerID {
		return fmt.Errorf("%w: only the seller may delete a listing", domainErrors.ErrValidation)
	}
	if !l.Editable() {
		return domainErrors.ErrListingSoldEdit
	}

	if err := h.chats.DeleteByListing(ctx, cmd.ListingID); err != nil {
		h.log.Warn("Failed to delete chats for listing", "error", err, "listing_id", cmd.ListingID)
	}
	return h.listings.Delete(ctx, cmd.ListingID)
}
