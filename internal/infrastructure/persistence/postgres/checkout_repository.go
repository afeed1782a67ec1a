package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/resexchange/marketplace/internal/domain/checkout"
	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
	"github.com/resexchange/marketplace/internal/infrastructure/monitoring"
)

type CheckoutRepository struct {
	db *sql.DB
}

func NewCheckoutRepository(conn *Connection) *CheckoutRepository {
	return &CheckoutRepository{db: conn.GetDB()}
}

const attemptColumns = `id, session_id, buyer_id, intent_id, currency, total, listing_ids, status, created_at, updated_at`

func scanAttempt(scan func(dest ...interface{}) error) (*checkout.Attempt, error) {
	var a checkout.Attempt
	var intentID sql.NullString
	var total string
	var listingIDs pq.StringArray
	var status string

	err := scan(
		&a.ID, &a.SessionID, &a.BuyerID, &intentID, &a.Currency,
		&total, &listingIDs, &status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if intentID.Valid {
		a.IntentID = intentID.String
	}
	a.Total, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("invalid total in attempt %s: %w", a.ID, err)
	}
	a.ListingIDs = []string(listingIDs)
	a.Status = checkout.Status(status)

	return &a, nil
}

func (r *CheckoutRepository) CreateAttempt(ctx context.Context, a *checkout.Attempt) error {
	query := `
		INSERT INTO checkout_attempts (id, session_id, buyer_id, intent_id, currency, total, listing_ids, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var intentID sql.NullString
	if a.IntentID != "" {
		intentID = sql.NullString{String: a.IntentID, Valid: true}
	}

	_, err := monitoring.InstrumentExec(ctx, r.db, "INSERT", "checkout_attempts", query,
		a.ID, a.SessionID, a.BuyerID, intentID, a.Currency, a.Total.String(),
		pq.Array(a.ListingIDs), string(a.Status), a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *CheckoutRepository) GetAttemptByID(ctx context.Context, id string) (*checkout.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM checkout_attempts WHERE id = $1`

	row := monitoring.InstrumentQueryRow(ctx, r.db, "SELECT", "checkout_attempts", query, id)
	a, err := scanAttempt(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrIntentNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *CheckoutRepository) GetAttemptByIntentID(ctx context.Context, intentID string) (*checkout.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM checkout_attempts WHERE intent_id = $1`

	row := monitoring.InstrumentQueryRow(ctx, r.db, "SELECT", "checkout_attempts", query, intentID)
	a, err := scanAttempt(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrIntentNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *CheckoutRepository) UpdateAttempt(ctx context.Context, a *checkout.Attempt) error {
	query := `
		UPDATE checkout_attempts
		SET intent_id = $2, status = $3, updated_at = $4
		WHERE id = $1
	`

	var intentID sql.NullString
	if a.IntentID != "" {
		intentID = sql.NullString{String: a.IntentID, Valid: true}
	}

	result, err := monitoring.InstrumentExec(ctx, r.db, "UPDATE", "checkout_attempts", query,
		a.ID, intentID, string(a.Status), a.UpdatedAt,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domainErrors.ErrIntentNotFound
	}

	return nil
}

// CancelStaleAwaiting cancels attempts stuck in awaiting_approval since
// before the cutoff. Users who abandon the provider's approval page never
// trigger a callback, so the expirer sweeps these up.
func (r *CheckoutRepository) CancelStaleAwaiting(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		UPDATE checkout_attempts
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND updated_at < $3
	`

	result, err := monitoring.InstrumentExec(ctx, r.db, "UPDATE", "checkout_attempts", query,
		string(checkout.StatusCancelled), string(checkout.StatusAwaitingApproval), cutoff,
	)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}
