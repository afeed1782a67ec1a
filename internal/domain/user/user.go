package user

import (
	"strings"
)

// Kind tags the account variant. Kind-specific behavior is a pure
// function over the tag; only the fields matching the tag are populated.
type Kind string

const (
	KindPrivate Kind = "private"
	KindCompany Kind = "company"
	KindAdmin   Kind = "admin"
)

type Address struct {
	Street     string
	City       string
	PostalCode string
	Country    string
}

func (a Address) Empty() bool {
	return a.Street == "" && a.City == "" && a.PostalCode == "" && a.Country == ""
}

type User struct {
	ID   string
	Mail string
	Kind Kind

	// Kind-specific fields; only the ones matching Kind are populated.
	FirstName   string // private
	LastName    string // private
	CompanyName string // company

	Address   Address
	Latitude  *float64
	Longitude *float64
}

// DisplayName maps kind to the name shown on listings and in chats.
func DisplayName(u *User) string {
	switch u.Kind {
	case KindCompany:
		return u.CompanyName
	case KindAdmin:
		return "Administrator"
	default:
		name := strings.TrimSpace(u.FirstName + " " + u.LastName)
		if name == "" {
			return u.Mail
		}
		return name
	}
}
