package mailer

import (
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(cfg Config) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *Mailer) SendPurchaseConfirmation(toMail string, listingIDs []string, total, currency string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", toMail)
	msg.SetHeader("Subject", "Purchase confirmation")

	var b strings.Builder
	b.WriteString("Thank you for your purchase.\n\n")
	b.WriteString("Listings:\n")
	for _, id := range listingIDs {
		fmt.Fprintf(&b, "  - %s\n", id)
	}
	fmt.Fprintf(&b, "\nTotal: %s %s\n", total, currency)
	msg.SetBody("text/plain", b.String())

	return m.dialer.DialAndSend(msg)
}
