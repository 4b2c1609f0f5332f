package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the pool surface the store needs; pgxmock satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists conversations and their transcripts.
type Store struct {
	pool PgxPool
}

// NewStore initializes a store backed by pgxpool.
func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("conversation: pgx pool required")
	}
	return &Store{pool: pool}
}

const conversationColumns = `id, tenant_id, customer_id, status, unread_count,
	last_message_at, created_at, updated_at`

func scanConversation(row pgx.Row) (*Conversation, error) {
	var c Conversation
	err := row.Scan(
		&c.ID, &c.TenantID, &c.CustomerID, &c.Status, &c.UnreadCount,
		&c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("conversation: scan: %w", err)
	}
	return &c, nil
}

// Ensure returns the customer's conversation, creating it on first contact.
func (s *Store) Ensure(ctx context.Context, tenantID, customerID uuid.UUID) (*Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, tenant_id, customer_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, customer_id) DO UPDATE SET updated_at = now()
		RETURNING `+conversationColumns,
		uuid.New(), tenantID, customerID)
	return scanConversation(row)
}

// GetForTenant fetches a conversation scoped to the tenant.
func (s *Store) GetForTenant(ctx context.Context, tenantID, conversationID uuid.UUID) (*Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE id = $1 AND tenant_id = $2`, conversationID, tenantID)
	return scanConversation(row)
}

// ListByTenant returns conversations most recently active first.
func (s *Store) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Conversation, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE tenant_id = $1
		ORDER BY last_message_at DESC
		LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("conversation: list: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AppendMessage writes one transcript entry and bumps the conversation's
// activity columns in the same round trip. Inbound messages increment the
// unread counter atomically.
func (s *Store) AppendMessage(ctx context.Context, conversationID uuid.UUID, direction, messageType, content string, metadata json.RawMessage, whatsappMessageID string) (*Message, error) {
	var m Message
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (id, conversation_id, direction, message_type, content, metadata_json, whatsapp_message_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''))
		RETURNING id, conversation_id, direction, message_type, COALESCE(content, ''),
			metadata_json, COALESCE(whatsapp_message_id, ''), status, created_at`,
		uuid.New(), conversationID, direction, messageType, content, metadata, whatsappMessageID).Scan(
		&m.ID, &m.ConversationID, &m.Direction, &m.MessageType, &m.Content,
		&m.Metadata, &m.WhatsAppMessageID, &m.Status, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("conversation: append message: %w", err)
	}

	unreadDelta := 0
	if direction == DirectionInbound {
		unreadDelta = 1
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE conversations SET
			unread_count = unread_count + $2,
			last_message_at = now(),
			updated_at = now()
		WHERE id = $1`, conversationID, unreadDelta)
	if err != nil {
		return nil, fmt.Errorf("conversation: bump activity: %w", err)
	}
	return &m, nil
}

// ListMessages returns a conversation's transcript oldest first.
func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, direction, message_type, COALESCE(content, ''),
			metadata_json, COALESCE(whatsapp_message_id, ''), status, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at
		LIMIT $2`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: list messages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Direction, &m.MessageType,
			&m.Content, &m.Metadata, &m.WhatsAppMessageID, &m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: scan message: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// MarkRead resets the unread counter when the owner opens the thread.
func (s *Store) MarkRead(ctx context.Context, tenantID, conversationID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE conversations SET unread_count = 0, updated_at = now()
		WHERE id = $1 AND tenant_id = $2`, conversationID, tenantID)
	if err != nil {
		return fmt.Errorf("conversation: mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// RecentHistory returns up to limit latest messages oldest first, for the
// agent's prompt window.
func (s *Store) RecentHistory(ctx context.Context, conversationID uuid.UUID, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, direction, message_type, COALESCE(content, ''),
			metadata_json, COALESCE(whatsapp_message_id, ''), status, created_at
		FROM (
			SELECT * FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) latest
		ORDER BY created_at`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: recent history: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Direction, &m.MessageType,
			&m.Content, &m.Metadata, &m.WhatsAppMessageID, &m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: scan message: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
