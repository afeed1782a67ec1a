package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/resexchange/marketplace/internal/domain/chat"
	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
	"github.com/resexchange/marketplace/internal/infrastructure/monitoring"
)

type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(conn *Connection) *ChatRepository {
	return &ChatRepository{db: conn.GetDB()}
}

const chatColumns = `id, listing_id, creator_id, initiator_id, created_at`

// GetOrCreate inserts the candidate and re-selects by the
// (listing, creator, initiator) key. The unique constraint absorbs the
// race: when two parties open the same conversation concurrently, one
// insert is a no-op and both read back the same row.
func (r *ChatRepository) GetOrCreate(ctx context.Context, candidate *chat.Chat) (*chat.Chat, error) {
	insert := `
		INSERT INTO chats (id, listing_id, creator_id, initiator_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (listing_id, creator_id, initiator_id) DO NOTHING
	`

	result, err := monitoring.InstrumentExec(ctx, r.db, "INSERT", "chats", insert,
		candidate.ID, candidate.ListingID, candidate.CreatorID, candidate.InitiatorID, candidate.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if inserted, err := result.RowsAffected(); err == nil && inserted > 0 {
		monitoring.RecordChatCreated()
	}

	query := `SELECT ` + chatColumns + ` FROM chats WHERE listing_id = $1 AND creator_id = $2 AND initiator_id = $3`

	var c chat.Chat
	row := monitoring.InstrumentQueryRow(ctx, r.db, "SELECT", "chats", query,
		candidate.ListingID, candidate.CreatorID, candidate.InitiatorID,
	)
	if err := row.Scan(&c.ID, &c.ListingID, &c.CreatorID, &c.InitiatorID, &c.CreatedAt); err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *ChatRepository) GetByID(ctx context.Context, id string) (*chat.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE id = $1`

	var c chat.Chat
	row := monitoring.InstrumentQueryRow(ctx, r.db, "SELECT", "chats", query, id)
	err := row.Scan(&c.ID, &c.ListingID, &c.CreatorID, &c.InitiatorID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrChatNotFound
		}
		return nil, err
	}

	return &c, nil
}

func (r *ChatRepository) ListByUser(ctx context.Context, userID string) ([]*chat.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE creator_id = $1 OR initiator_id = $1 ORDER BY created_at DESC`

	rows, err := monitoring.InstrumentQuery(ctx, r.db, "SELECT", "chats", query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []*chat.Chat
	for rows.Next() {
		var c chat.Chat
		if err := rows.Scan(&c.ID, &c.ListingID, &c.CreatorID, &c.InitiatorID, &c.CreatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, &c)
	}

	return chats, rows.Err()
}

func (r *ChatRepository) DeleteByListing(ctx context.Context, listingID string) error {
	query := `DELETE FROM chats WHERE listing_id = $1`
	_, err := monitoring.InstrumentExec(ctx, r.db, "DELETE", "chats", query, listingID)
	return err
}
