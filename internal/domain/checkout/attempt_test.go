package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAttempt(t *testing.T) *Attempt {
	t.Helper()
	a, err := NewAttempt("att-1", "session-1", "buyer-1", "USD", []string{"lst-1", "lst-2"}, decimal.NewFromFloat(20.00))
	require.NoError(t, err)
	return a
}

func TestNewAttempt(t *testing.T) {
	a := newTestAttempt(t)
	assert.Equal(t, StatusInitiated, a.Status)
	assert.Empty(t, a.IntentID)
	assert.False(t, a.Status.Terminal())
}

func TestNewAttemptValidation(t *testing.T) {
	_, err := NewAttempt("", "session-1", "buyer-1", "USD", []string{"lst-1"}, decimal.Zero)
	assert.Error(t, err)

	_, err = NewAttempt("att-1", "session-1", "buyer-1", "USD", nil, decimal.Zero)
	assert.Error(t, err)

	_, err = NewAttempt("att-1", "session-1", "buyer-1", "", []string{"lst-1"}, decimal.Zero)
	assert.Error(t, err)
}

func TestAwaitApprovalBindsIntent(t *testing.T) {
	a := newTestAttempt(t)

	require.NoError(t, a.AwaitApproval("PAY-123"))
	assert.Equal(t, StatusAwaitingApproval, a.Status)
	assert.Equal(t, "PAY-123", a.IntentID)

	// cannot await twice
	assert.Error(t, a.AwaitApproval("PAY-456"))
	assert.Equal(t, "PAY-123", a.IntentID)
}

func TestAwaitApprovalRequiresIntentID(t *testing.T) {
	a := newTestAttempt(t)
	assert.Error(t, a.AwaitApproval(""))
	assert.Equal(t, StatusInitiated, a.Status)
}

func TestConfirmRequiresAwaitingApproval(t *testing.T) {
	a := newTestAttempt(t)
	assert.Error(t, a.Confirm())

	require.NoError(t, a.AwaitApproval("PAY-123"))
	require.NoError(t, a.Confirm())
	assert.Equal(t, StatusConfirmed, a.Status)
	assert.True(t, a.Status.Terminal())
}

func TestTerminalStatesAreFinal(t *testing.T) {
	a := newTestAttempt(t)
	require.NoError(t, a.AwaitApproval("PAY-123"))
	require.NoError(t, a.Confirm())

	assert.Error(t, a.Fail())
	assert.Error(t, a.Cancel())
	assert.Equal(t, StatusConfirmed, a.Status)

	b := newTestAttempt(t)
	require.NoError(t, b.Fail())
	assert.Error(t, b.Cancel())
	assert.Equal(t, StatusFailed, b.Status)
}

func TestOutcomePartialFlag(t *testing.T) {
	a := newTestAttempt(t)
	require.NoError(t, a.AwaitApproval("PAY-123"))

	full := NewOutcome(a, []string{"lst-1", "lst-2"}, nil)
	assert.False(t, full.Partial)
	assert.Empty(t, full.AlreadySold)

	partial := NewOutcome(a, []string{"lst-1"}, []string{"lst-2"})
	assert.True(t, partial.Partial)
	assert.Equal(t, []string{"lst-2"}, partial.AlreadySold)

	lost := NewOutcome(a, nil, []string{"lst-1", "lst-2"})
	assert.False(t, lost.Partial)
	assert.Empty(t, lost.Purchased)
	assert.Equal(t, "20.00", lost.Total)
}
