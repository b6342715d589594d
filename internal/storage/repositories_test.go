package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, EnsureSchema(context.Background(), db))
	return db
}

func seedMessage(t *testing.T, repo *MessageRepository, sessionID, userID string, role MessageRole, content string, at time.Time) *ChatMessage {
	t.Helper()
	msg := &ChatMessage{
		SessionID:   sessionID,
		UserID:      userID,
		Role:        role,
		Content:     content,
		MessageType: MessageTypeFreeform,
		CreatedAt:   at,
	}
	require.NoError(t, repo.Create(context.Background(), msg))
	return msg
}

func TestCreateAssignsIDAndTimestamp(t *testing.T) {
	repo := NewMessageRepository(openTestDB(t))

	msg := &ChatMessage{
		SessionID:   "s1",
		UserID:      "u1",
		Role:        RoleUser,
		Content:     "hello",
		MessageType: MessageTypeFreeform,
	}
	require.NoError(t, repo.Create(context.Background(), msg))

	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())

	got, err := repo.GetByID(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, RoleUser, got.Role)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewMessageRepository(openTestDB(t))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListBySessionChronological(t *testing.T) {
	repo := NewMessageRepository(openTestDB(t))
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seedMessage(t, repo, "s1", "u1", RoleUser, "first", base)
	seedMessage(t, repo, "s1", "u1", RoleAssistant, "second", base.Add(time.Second))
	seedMessage(t, repo, "s2", "u1", RoleUser, "other session", base.Add(2*time.Second))

	messages, err := repo.ListBySession(context.Background(), "s1", 50)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
}

func TestListBySessionHonorsLimit(t *testing.T) {
	repo := NewMessageRepository(openTestDB(t))
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		seedMessage(t, repo, "s1", "u1", RoleUser, "msg", base.Add(time.Duration(i)*time.Second))
	}

	messages, err := repo.ListBySession(context.Background(), "s1", 3)
	require.NoError(t, err)
	assert.Len(t, messages, 3)
}

func TestListByUserNewestFirst(t *testing.T) {
	repo := NewMessageRepository(openTestDB(t))
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seedMessage(t, repo, "s1", "u1", RoleUser, "old", base)
	seedMessage(t, repo, "s2", "u1", RoleUser, "new", base.Add(time.Minute))
	seedMessage(t, repo, "s3", "u2", RoleUser, "someone else", base.Add(2*time.Minute))

	messages, err := repo.ListByUser(context.Background(), "u1", 50, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "new", messages[0].Content)
	assert.Equal(t, "old", messages[1].Content)
}

func TestListByUserOffsetPaginates(t *testing.T) {
	repo := NewMessageRepository(openTestDB(t))
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		seedMessage(t, repo, "s1", "u1", RoleUser, string(rune('a'+i)), base.Add(time.Duration(i)*time.Second))
	}

	page, err := repo.ListByUser(context.Background(), "u1", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	// Newest first, skipping the two most recent.
	assert.Equal(t, "c", page[0].Content)
	assert.Equal(t, "b", page[1].Content)
}

func TestCountByUser(t *testing.T) {
	repo := NewMessageRepository(openTestDB(t))
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seedMessage(t, repo, "s1", "u1", RoleUser, "a", base)
	seedMessage(t, repo, "s1", "u1", RoleAssistant, "b", base.Add(time.Second))

	count, err := repo.CountByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.CountByUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
