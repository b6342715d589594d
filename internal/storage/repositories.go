package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// MessageRepository handles chat message persistence.
type MessageRepository struct {
	db DB
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(db DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new chat message.
func (r *MessageRepository) Create(ctx context.Context, msg *ChatMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO chat_messages (id, session_id, user_id, role, content, message_type, model_used, tokens_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		msg.ID.String(), msg.SessionID, msg.UserID, msg.Role, msg.Content,
		msg.MessageType, msg.ModelUsed, msg.TokensUsed, msg.CreatedAt,
	)
	return err
}

// GetByID retrieves one chat message.
func (r *MessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*ChatMessage, error) {
	query := `
		SELECT id, session_id, user_id, role, content, message_type, model_used, tokens_used, created_at
		FROM chat_messages WHERE id = $1
	`
	msg, err := scanMessage(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return msg, err
}

// ListBySession returns a session's messages in chronological order.
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*ChatMessage, error) {
	query := `
		SELECT id, session_id, user_id, role, content, message_type, model_used, tokens_used, created_at
		FROM chat_messages WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

// ListByUser returns a page of a user's messages across sessions,
// newest first.
func (r *MessageRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*ChatMessage, error) {
	query := `
		SELECT id, session_id, user_id, role, content, message_type, model_used, tokens_used, created_at
		FROM chat_messages WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

// CountByUser returns how many messages a user has stored.
func (r *MessageRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM chat_messages WHERE user_id = $1`
	var count int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*ChatMessage, error) {
	msg := &ChatMessage{}
	var id string
	err := row.Scan(
		&id, &msg.SessionID, &msg.UserID, &msg.Role, &msg.Content,
		&msg.MessageType, &msg.ModelUsed, &msg.TokensUsed, &msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	msg.ID, err = uuid.Parse(id)
	return msg, err
}

func collectMessages(rows *sql.Rows) ([]*ChatMessage, error) {
	var messages []*ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
