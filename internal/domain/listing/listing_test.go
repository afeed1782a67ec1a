package listing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
)

func TestNewListing(t *testing.T) {
	l, err := NewListing("lst-1", "mat-1", "user-1", "Oak beams", 10, decimal.NewFromFloat(25.50))
	require.NoError(t, err)

	assert.Equal(t, "lst-1", l.ID)
	assert.False(t, l.Sold)
	assert.True(t, l.Editable())
	assert.Equal(t, "25.50", l.Price.StringFixed(2))
}

func TestNewListingValidation(t *testing.T) {
	tests := []struct {
		name     string
		material string
		seller   string
		quantity int
		price    decimal.Decimal
	}{
		{"missing material", "", "user-1", 1, decimal.NewFromInt(1)},
		{"missing seller", "mat-1", "", 1, decimal.NewFromInt(1)},
		{"zero quantity", "mat-1", "user-1", 0, decimal.NewFromInt(1)},
		{"negative quantity", "mat-1", "user-1", -3, decimal.NewFromInt(1)},
		{"zero price", "mat-1", "user-1", 1, decimal.Zero},
		{"negative price", "mat-1", "user-1", 1, decimal.NewFromInt(-5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewListing("lst-1", tt.material, tt.seller, "", tt.quantity, tt.price)
			assert.ErrorIs(t, err, domainErrors.ErrValidation)
		})
	}
}

func TestMarkSold(t *testing.T) {
	l, err := NewListing("lst-1", "mat-1", "user-1", "", 1, decimal.NewFromInt(10))
	require.NoError(t, err)

	require.NoError(t, l.MarkSold("buyer-1"))
	assert.True(t, l.Sold)
	assert.Equal(t, "buyer-1", l.BuyerID)
	assert.NotNil(t, l.SoldAt)
	assert.False(t, l.Editable())

	assert.ErrorIs(t, l.MarkSold("buyer-2"), domainErrors.ErrAlreadySold)
	assert.Equal(t, "buyer-1", l.BuyerID)
}

func TestSetLocation(t *testing.T) {
	l, err := NewListing("lst-1", "mat-1", "user-1", "", 1, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.Nil(t, l.Location)

	l.SetLocation(52.52, 13.405)
	require.NotNil(t, l.Location)
	assert.Equal(t, 52.52, l.Location.Latitude)
	assert.Equal(t, 13.405, l.Location.Longitude)
}
