// Package storage provides database models and repositories for chat
// persistence.
package storage

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole identifies who produced a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// MessageType classifies how a user message was handled.
type MessageType string

const (
	MessageTypeStructured MessageType = "structured"
	MessageTypeFreeform   MessageType = "freeform"
)

// ChatMessage is one persisted turn of a conversation.
type ChatMessage struct {
	ID          uuid.UUID   `json:"id"`
	SessionID   string      `json:"session_id"`
	UserID      string      `json:"user_id"`
	Role        MessageRole `json:"role"`
	Content     string      `json:"content"`
	MessageType MessageType `json:"message_type"`
	ModelUsed   string      `json:"model_used,omitempty"`
	TokensUsed  int         `json:"tokens_used,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
