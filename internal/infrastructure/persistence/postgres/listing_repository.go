package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/resexchange/marketplace/internal/application/ports"
	"github.com/resexchange/marketplace/internal/domain/checkout"
	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
	"github.com/resexchange/marketplace/internal/domain/listing"
	"github.com/resexchange/marketplace/internal/infrastructure/monitoring"
)

type ListingRepository struct {
	db   *sql.DB
	tx   *sql.Tx
	isTx bool
}

func NewListingRepository(conn *Connection) *ListingRepository {
	return &ListingRepository{
		db:   conn.GetDB(),
		isTx: false,
	}
}

const listingColumns = `id, material_id, description, quantity, price, latitude, longitude, sold, created_by, buyer_id, created_at, sold_at`

func (r *ListingRepository) scanListing(scan func(dest ...interface{}) error) (*listing.Listing, error) {
	var l listing.Listing
	var price string
	var lat, lng sql.NullFloat64
	var buyerID sql.NullString
	var soldAt sql.NullTime

	err := scan(
		&l.ID, &l.MaterialID, &l.Description, &l.Quantity, &price,
		&lat, &lng, &l.Sold, &l.CreatedBy, &buyerID, &l.CreatedAt, &soldAt,
	)
	if err != nil {
		return nil, err
	}

	l.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price in row %s: %w", l.ID, err)
	}
	if lat.Valid && lng.Valid {
		l.Location = &listing.Geolocation{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	if buyerID.Valid {
		l.BuyerID = buyerID.String
	}
	if soldAt.Valid {
		l.SoldAt = &soldAt.Time
	}

	return &l, nil
}

func (r *ListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	query := `
		INSERT INTO listings (id, material_id, description, quantity, price, latitude, longitude, sold, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var lat, lng sql.NullFloat64
	if l.Location != nil {
		lat = sql.NullFloat64{Float64: l.Location.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: l.Location.Longitude, Valid: true}
	}

	var err error
	if r.isTx {
		_, err = r.tx.ExecContext(ctx, query,
			l.ID, l.MaterialID, l.Description, l.Quantity, l.Price.String(), lat, lng, l.Sold, l.CreatedBy, l.CreatedAt,
		)
	} else {
		_, err = monitoring.InstrumentExec(ctx, r.db, "INSERT", "listings", query,
			l.ID, l.MaterialID, l.Description, l.Quantity, l.Price.String(), lat, lng, l.Sold, l.CreatedBy, l.CreatedAt,
		)
	}

	return err
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (*listing.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	var l *listing.Listing
	var err error

	if r.isTx {
		row := r.tx.QueryRowContext(ctx, query, id)
		l, err = r.scanListing(row.Scan)
	} else {
		row := monitoring.InstrumentQueryRow(ctx, r.db, "SELECT", "listings", query, id)
		l, err = r.scanListing(row.Scan)
	}

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrListingNotFound
		}
		return nil, err
	}

	return l, nil
}

func (r *ListingRepository) Update(ctx context.Context, l *listing.Listing) error {
	// Sold rows are frozen; the guard repeats here so a stale entity
	// cannot overwrite a concurrent sale.
	query := `
		UPDATE listings
		SET material_id = $2, description = $3, quantity = $4, price = $5, latitude = $6, longitude = $7
		WHERE id = $1 AND sold = FALSE
	`

	var lat, lng sql.NullFloat64
	if l.Location != nil {
		lat = sql.NullFloat64{Float64: l.Location.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: l.Location.Longitude, Valid: true}
	}

	var result sql.Result
	var err error
	if r.isTx {
		result, err = r.tx.ExecContext(ctx, query,
			l.ID, l.MaterialID, l.Description, l.Quantity, l.Price.String(), lat, lng,
		)
	} else {
		result, err = monitoring.InstrumentExec(ctx, r.db, "UPDATE", "listings", query,
			l.ID, l.MaterialID, l.Description, l.Quantity, l.Price.String(), lat, lng,
		)
	}
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domainErrors.ErrListingSoldEdit
	}

	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM listings WHERE id = $1`

	var err error
	if r.isTx {
		_, err = r.tx.ExecContext(ctx, query, id)
	} else {
		_, err = monitoring.InstrumentExec(ctx, r.db, "DELETE", "listings", query, id)
	}
	return err
}

// MarkSold is the compare-and-set at the heart of the at-most-one-buyer
// guarantee: the WHERE sold = FALSE clause makes the transition atomic, and
// rows-affected reports whether this caller won.
func (r *ListingRepository) MarkSold(ctx context.Context, id, buyerID string) (bool, error) {
	query := `
		UPDATE listings
		SET sold = TRUE, buyer_id = $2, sold_at = NOW()
		WHERE id = $1 AND sold = FALSE
	`

	var result sql.Result
	var err error

	if r.isTx {
		result, err = r.tx.ExecContext(ctx, query, id, buyerID)
	} else {
		result, err = monitoring.InstrumentExec(ctx, r.db, "UPDATE", "listings", query, id, buyerID)
	}
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	won := affected > 0
	if won {
		monitoring.RecordListingSold(id)
	}

	return won, nil
}

func (r *ListingRepository) ListBySeller(ctx context.Context, sellerID string) ([]*listing.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE created_by = $1 ORDER BY created_at DESC`
	return r.queryListings(ctx, query, sellerID)
}

func (r *ListingRepository) ListByBuyer(ctx context.Context, buyerID string) ([]*listing.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE buyer_id = $1 ORDER BY sold_at DESC`
	return r.queryListings(ctx, query, buyerID)
}

func (r *ListingRepository) queryListings(ctx context.Context, query string, args ...interface{}) ([]*listing.Listing, error) {
	var rows *sql.Rows
	var err error

	if r.isTx {
		rows, err = r.tx.QueryContext(ctx, query, args...)
	} else {
		rows, err = monitoring.InstrumentQuery(ctx, r.db, "SELECT", "listings", query, args...)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*listing.Listing
	for rows.Next() {
		l, err := r.scanListing(rows.Scan)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}

	return listings, rows.Err()
}

// Search runs the filtered listing query plus a matching count. Keyword
// mode matches the description, the material name and the seller's
// display name, and ignores every structured filter, sold included.
func (r *ListingRepository) Search(ctx context.Context, q listing.SearchQuery) ([]*listing.Listing, int, error) {
	where, args := buildSearchWhere(q)

	const joins = `JOIN materials m ON m.id = l.material_id JOIN users u ON u.id = l.created_by`

	countQuery := `SELECT COUNT(*) FROM listings l ` + joins + ` ` + where

	var total int
	var err error
	if r.isTx {
		err = r.tx.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	} else {
		row := monitoring.InstrumentQueryRow(ctx, r.db, "SELECT", "listings", countQuery, args...)
		err = row.Scan(&total)
	}
	if err != nil {
		return nil, 0, err
	}

	cols := make([]string, 0, 12)
	for _, c := range strings.Split(listingColumns, ", ") {
		cols = append(cols, "l."+c)
	}
	query := fmt.Sprintf(
		`SELECT %s FROM listings l %s %s ORDER BY l.created_at DESC LIMIT $%d OFFSET $%d`,
		strings.Join(cols, ", "), joins, where, len(args)+1, len(args)+2,
	)
	args = append(args, q.Limit, q.Offset)

	listings, err := r.queryListings(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}

	return listings, total, nil
}

// sellerNameExpr mirrors user.DisplayName in SQL so keyword search can
// match what is actually rendered next to the listing.
const sellerNameExpr = `CASE u.kind WHEN 'company' THEN u.company_name WHEN 'admin' THEN 'Administrator' ELSE COALESCE(NULLIF(TRIM(CONCAT(u.first_name, ' ', u.last_name)), ''), u.mail) END`

func buildSearchWhere(q listing.SearchQuery) (string, []interface{}) {
	conds := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.KeywordMode() {
		// Keyword mode drops every structured predicate, the sold flag
		// included: a match on the name surfaces sold rows too.
		p := arg("%" + q.Keyword + "%")
		return fmt.Sprintf("WHERE (l.description ILIKE %s OR m.name ILIKE %s OR %s ILIKE %s)", p, p, sellerNameExpr, p), args
	}

	conds = append(conds, "l.sold = "+arg(q.Sold))

	if q.MaterialID != "" {
		conds = append(conds, "l.material_id = "+arg(q.MaterialID))
	}
	if q.OwnerID != "" {
		conds = append(conds, "l.created_by = "+arg(q.OwnerID))
	}
	if q.MinPrice != nil {
		conds = append(conds, "l.price >= "+arg(*q.MinPrice))
	}
	if q.MaxPrice != nil {
		conds = append(conds, "l.price <= "+arg(*q.MaxPrice))
	}
	if q.MinQuantity != nil {
		conds = append(conds, "l.quantity >= "+arg(*q.MinQuantity))
	}
	if q.MaxQuantity != nil {
		conds = append(conds, "l.quantity <= "+arg(*q.MaxQuantity))
	}
	if q.BookmarkedBy != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM bookmarks b WHERE b.listing_id = l.id AND b.user_id = "+arg(q.BookmarkedBy)+")")
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r *ListingRepository) GetMaterial(ctx context.Context, id string) (*listing.Material, error) {
	query := `SELECT id, name FROM materials WHERE id = $1`

	var m listing.Material
	var err error
	if r.isTx {
		err = r.tx.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.Name)
	} else {
		row := monitoring.InstrumentQueryRow(ctx, r.db, "SELECT", "materials", query, id)
		err = row.Scan(&m.ID, &m.Name)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrMaterialNotFound
		}
		return nil, err
	}

	return &m, nil
}

func (r *ListingRepository) ListMaterials(ctx context.Context) ([]*listing.Material, error) {
	query := `SELECT id, name FROM materials ORDER BY name`

	var rows *sql.Rows
	var err error
	if r.isTx {
		rows, err = r.tx.QueryContext(ctx, query)
	} else {
		rows, err = monitoring.InstrumentQuery(ctx, r.db, "SELECT", "materials", query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var materials []*listing.Material
	for rows.Next() {
		var m listing.Material
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, err
		}
		materials = append(materials, &m)
	}

	return materials, rows.Err()
}

// AddBookmark reports false when the bookmark already existed, so callers
// can suppress duplicate notifications.
func (r *ListingRepository) AddBookmark(ctx context.Context, userID, listingID string) (bool, error) {
	query := `
		INSERT INTO bookmarks (user_id, listing_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, listing_id) DO NOTHING
	`

	var result sql.Result
	var err error
	if r.isTx {
		result, err = r.tx.ExecContext(ctx, query, userID, listingID)
	} else {
		result, err = monitoring.InstrumentExec(ctx, r.db, "INSERT", "bookmarks", query, userID, listingID)
	}
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *ListingRepository) RemoveBookmark(ctx context.Context, userID, listingID string) error {
	query := `DELETE FROM bookmarks WHERE user_id = $1 AND listing_id = $2`

	var err error
	if r.isTx {
		_, err = r.tx.ExecContext(ctx, query, userID, listingID)
	} else {
		_, err = monitoring.InstrumentExec(ctx, r.db, "DELETE", "bookmarks", query, userID, listingID)
	}
	return err
}

// SaveOutcome records the outcome keyed by intent id. ON CONFLICT DO
// NOTHING keeps the first write authoritative under duplicate confirmation
// delivery.
func (r *ListingRepository) SaveOutcome(ctx context.Context, intentID string, o *checkout.Outcome) error {
	query := `
		INSERT INTO checkout_outcomes (intent_id, outcome, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (intent_id) DO NOTHING
	`

	outcomeJSON, err := json.Marshal(o)
	if err != nil {
		return err
	}

	if r.isTx {
		_, err = r.tx.ExecContext(ctx, query, intentID, outcomeJSON)
	} else {
		_, err = monitoring.InstrumentExec(ctx, r.db, "INSERT", "checkout_outcomes", query, intentID, outcomeJSON)
	}
	return err
}

func (r *ListingRepository) GetOutcome(ctx context.Context, intentID string) (*checkout.Outcome, error) {
	query := `SELECT outcome FROM checkout_outcomes WHERE intent_id = $1`

	var outcomeJSON []byte
	var err error
	if r.isTx {
		err = r.tx.QueryRowContext(ctx, query, intentID).Scan(&outcomeJSON)
	} else {
		row := monitoring.InstrumentQueryRow(ctx, r.db, "SELECT", "checkout_outcomes", query, intentID)
		err = row.Scan(&outcomeJSON)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var o checkout.Outcome
	if err := json.Unmarshal(outcomeJSON, &o); err != nil {
		return nil, err
	}

	return &o, nil
}

func (r *ListingRepository) BeginTx(ctx context.Context) (ports.ListingRepository, error) {
	if r.isTx {
		return nil, errors.New("transaction already started")
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return nil, err
	}

	return &ListingRepository{
		db:   r.db,
		tx:   tx,
		isTx: true,
	}, nil
}

func (r *ListingRepository) CommitTx(ctx context.Context) error {
	if !r.isTx || r.tx == nil {
		return errors.New("no transaction to commit")
	}
	return r.tx.Commit()
}

func (r *ListingRepository) RollbackTx(ctx context.Context) error {
	if !r.isTx || r.tx == nil {
		return errors.New("no transaction to rollback")
	}
	return r.tx.Rollback()
}
