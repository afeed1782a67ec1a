package postgres

import (
	"context"
	"database/sql"
	"errors"

	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
	"github.com/resexchange/marketplace/internal/domain/user"
	"github.com/resexchange/marketplace/internal/infrastructure/monitoring"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{db: conn.GetDB()}
}

const userColumns = `id, mail, kind, first_name, last_name, company_name, street, city, postal_code, country, latitude, longitude`

func scanUser(scan func(dest ...interface{}) error) (*user.User, error) {
	var u user.User
	var kind string
	var firstName, lastName, companyName sql.NullString
	var street, city, postalCode, country sql.NullString
	var lat, lng sql.NullFloat64

	err := scan(
		&u.ID, &u.Mail, &kind, &firstName, &lastName, &companyName,
		&street, &city, &postalCode, &country, &lat, &lng,
	)
	if err != nil {
		return nil, err
	}

	u.Kind = user.Kind(kind)
	u.FirstName = firstName.String
	u.LastName = lastName.String
	u.CompanyName = companyName.String
	u.Address = user.Address{
		Street:     street.String,
		City:       city.String,
		PostalCode: postalCode.String,
		Country:    country.String,
	}
	if lat.Valid {
		u.Latitude = &lat.Float64
	}
	if lng.Valid {
		u.Longitude = &lng.Float64
	}

	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	row := monitoring.InstrumentQueryRow(ctx, r.db, "SELECT", "users", query, id)
	u, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) GetByMail(ctx context.Context, mail string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE mail = $1`

	row := monitoring.InstrumentQueryRow(ctx, r.db, "SELECT", "users", query, mail)
	u, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
