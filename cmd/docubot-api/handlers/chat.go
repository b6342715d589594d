// Package handlers provides HTTP handlers for the chat API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/docubot-ai/docubot/internal/chat"
	"github.com/docubot-ai/docubot/internal/domain"
	"github.com/docubot-ai/docubot/internal/observability"
	"github.com/docubot-ai/docubot/internal/storage"
)

// ChatService is the business layer the handlers delegate to.
type ChatService interface {
	HandleMessage(ctx context.Context, req chat.Request) (*chat.Reply, error)
	History(ctx context.Context, userID string, limit, offset int) ([]*storage.ChatMessage, error)
	SessionHistory(ctx context.Context, sessionID string, limit int) ([]*storage.ChatMessage, error)
}

// ChatHandler handles chat message and history requests.
type ChatHandler struct {
	logger  *observability.Logger
	service ChatService
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(logger *observability.Logger, service ChatService) *ChatHandler {
	return &ChatHandler{
		logger:  logger,
		service: service,
	}
}

// ChatMessageRequestDTO represents the API request for a chat message.
type ChatMessageRequestDTO struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatMessageResponseDTO represents the API response for a chat message.
type ChatMessageResponseDTO struct {
	Reply       string `json:"reply"`
	SessionID   string `json:"session_id"`
	MessageType string `json:"message_type"`
	ModelUsed   string `json:"model_used,omitempty"`
	TokensUsed  int    `json:"tokens_used,omitempty"`
}

// ChatHistoryResponseDTO represents the API response for chat history.
type ChatHistoryResponseDTO struct {
	Messages  []ChatMessageDTO `json:"messages"`
	Total     int              `json:"total"`
	SessionID string           `json:"session_id,omitempty"`
}

// ChatMessageDTO represents one stored message.
type ChatMessageDTO struct {
	ID          string `json:"id"`
	SessionID   string `json:"session_id"`
	Role        string `json:"role"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	ModelUsed   string `json:"model_used,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// SendMessage handles POST /chat/message.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO ChatMessageRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if reqDTO.Message == "" {
		h.writeError(w, http.StatusBadRequest, "message is required", "")
		return
	}

	reply, err := h.service.HandleMessage(ctx, chat.Request{
		Message:   reqDTO.Message,
		UserID:    reqDTO.UserID,
		SessionID: reqDTO.SessionID,
	})
	if err != nil {
		if domain.IsType(err, domain.ErrorTypeValidation) {
			h.writeError(w, http.StatusBadRequest, "invalid message", err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Chat message failed")
		h.writeError(w, http.StatusInternalServerError, "message handling failed", err.Error())
		return
	}

	respDTO := ChatMessageResponseDTO{
		Reply:       reply.Text,
		SessionID:   reply.SessionID,
		MessageType: string(reply.MessageType),
		ModelUsed:   reply.ModelUsed,
		TokensUsed:  reply.TokensUsed,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(respDTO); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// GetHistory handles GET /chat/history. One of user_id or session_id
// is required; session_id wins when both are present.
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.URL.Query().Get("user_id")
	sessionID := r.URL.Query().Get("session_id")
	if userID == "" && sessionID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id or session_id is required", "")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "invalid limit", "")
			return
		}
		limit = parsed
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid offset", "")
			return
		}
		offset = parsed
	}

	var messages []*storage.ChatMessage
	var err error
	if sessionID != "" {
		messages, err = h.service.SessionHistory(ctx, sessionID, limit)
	} else {
		messages, err = h.service.History(ctx, userID, limit, offset)
	}
	if err != nil {
		if domain.IsType(err, domain.ErrorTypeValidation) {
			h.writeError(w, http.StatusBadRequest, "invalid history request", err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("History lookup failed")
		h.writeError(w, http.StatusInternalServerError, "history lookup failed", err.Error())
		return
	}

	respDTO := ChatHistoryResponseDTO{
		Messages:  make([]ChatMessageDTO, 0, len(messages)),
		Total:     len(messages),
		SessionID: sessionID,
	}
	for _, msg := range messages {
		respDTO.Messages = append(respDTO.Messages, ChatMessageDTO{
			ID:          msg.ID.String(),
			SessionID:   msg.SessionID,
			Role:        string(msg.Role),
			Content:     msg.Content,
			MessageType: string(msg.MessageType),
			ModelUsed:   msg.ModelUsed,
			CreatedAt:   msg.CreatedAt.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(respDTO); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *ChatHandler) writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]string{
		"error": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	json.NewEncoder(w).Encode(resp)
}
