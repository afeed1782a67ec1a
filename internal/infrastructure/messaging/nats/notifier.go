package nats

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/resexchange/marketplace/internal/infrastructure/monitoring"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

const subject = "marketplace.notifications"

type notification struct {
	RecipientID string    `json:"recipient_id"`
	Message     string    `json:"message"`
	Link        string    `json:"link,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notifier publishes user notifications to NATS, fire and forget: publish
// failures are logged and dropped so that a broker outage never fails the
// operation that triggered the notification.
type Notifier struct {
	conn *nats.Conn
	log  *logger.Logger
}

func NewNotifier(url string, log *logger.Logger) (*Notifier, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	return &Notifier{conn: conn, log: log}, nil
}

func (n *Notifier) Notify(ctx context.Context, recipientID, message, link string) {
	payload, err := json.Marshal(notification{
		RecipientID: recipientID,
		Message:     message,
		Link:        link,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		n.log.Error("Failed to marshal notification", "error", err, "recipient_id", recipientID)
		monitoring.RecordNotification("error")
		return
	}

	if err := n.conn.Publish(subject, payload); err != nil {
		n.log.Warn("Failed to publish notification", "error", err, "recipient_id", recipientID)
		monitoring.RecordNotification("error")
		return
	}

	monitoring.RecordNotification("published")
}

func (n *Notifier) Close() {
	n.conn.Close()
}
