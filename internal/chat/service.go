package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/docubot-ai/docubot/internal/cache"
	"github.com/docubot-ai/docubot/internal/domain"
	"github.com/docubot-ai/docubot/internal/llm"
	"github.com/docubot-ai/docubot/internal/observability"
	"github.com/docubot-ai/docubot/internal/storage"
)

const helpText = "I answer questions about your documents. Ask anything, " +
	"or use /history to see recent messages and /clear to start a fresh conversation."

// Completer answers a prepared message sequence.
// Satisfied by llm.Client.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (*llm.Answer, error)
	Model() string
}

// MessageStore persists chat turns. Satisfied by
// storage.MessageRepository.
type MessageStore interface {
	Create(ctx context.Context, msg *storage.ChatMessage) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*storage.ChatMessage, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*storage.ChatMessage, error)
}

// Request is one incoming chat message.
type Request struct {
	Message   string
	UserID    string
	SessionID string
}

// Reply is the outcome of handling one chat message.
type Reply struct {
	Text        string
	SessionID   string
	MessageType storage.MessageType
	ModelUsed   string
	TokensUsed  int
}

// ServiceConfig holds chat service settings.
type ServiceConfig struct {
	HistoryLimit int
	ContextTurns int
}

// Service routes chat messages: structured commands are handled
// locally, freeform questions go to the language model with the
// session's recent context.
type Service struct {
	classifier *Classifier
	completer  Completer
	prompts    *llm.PromptBuilder
	messages   MessageStore
	sessions   *cache.SessionStore
	logger     *observability.Logger
	cfg        ServiceConfig
}

// NewService creates a chat service.
func NewService(completer Completer, prompts *llm.PromptBuilder, messages MessageStore, sessions *cache.SessionStore, cfg ServiceConfig, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = 6
	}
	return &Service{
		classifier: NewClassifier(),
		completer:  completer,
		prompts:    prompts,
		messages:   messages,
		sessions:   sessions,
		logger:     logger.WithComponent("chat"),
		cfg:        cfg,
	}
}

// HandleMessage processes one chat message and returns the reply. A
// missing session identifier starts a new session.
func (s *Service) HandleMessage(ctx context.Context, req Request) (*Reply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, domain.ValidationError("Message must not be empty", nil)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	userID := req.UserID
	if userID == "" {
		userID = "anonymous"
	}

	queryType, command, confidence := s.classifier.Classify(message)
	s.logger.Debug().
		Str("session_id", sessionID).
		Str("query_type", string(queryType)).
		Str("command", string(command)).
		Float64("confidence", confidence).
		Msg("Message classified")

	var reply *Reply
	var err error
	if queryType == QueryTypeStructured {
		reply, err = s.handleStructured(ctx, sessionID, userID, command)
	} else {
		reply, err = s.handleFreeform(ctx, sessionID, message)
	}
	if err != nil {
		return nil, err
	}
	reply.SessionID = sessionID

	if err := s.persistTurn(ctx, sessionID, userID, message, reply); err != nil {
		// The reply already exists; losing the record is not worth
		// failing the request over.
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to persist chat turn")
	}

	return reply, nil
}

// History returns a page of a user's messages, newest first.
func (s *Service) History(ctx context.Context, userID string, limit, offset int) ([]*storage.ChatMessage, error) {
	if userID == "" {
		return nil, domain.ValidationError("User identifier must not be empty", nil)
	}
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.messages.ListByUser(ctx, userID, limit, offset)
}

// SessionHistory returns a session's messages in order.
func (s *Service) SessionHistory(ctx context.Context, sessionID string, limit int) ([]*storage.ChatMessage, error) {
	if sessionID == "" {
		return nil, domain.ValidationError("Session identifier must not be empty", nil)
	}
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.messages.ListBySession(ctx, sessionID, limit)
}

func (s *Service) handleStructured(ctx context.Context, sessionID, userID string, command Command) (*Reply, error) {
	reply := &Reply{MessageType: storage.MessageTypeStructured}

	switch command {
	case CommandClear:
		if err := s.sessions.Clear(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("clear session: %w", err)
		}
		reply.Text = "Conversation cleared. What would you like to talk about?"
	case CommandHistory:
		recent, err := s.messages.ListByUser(ctx, userID, s.cfg.ContextTurns, 0)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		reply.Text = renderHistory(recent)
	default:
		reply.Text = helpText
	}
	return reply, nil
}

func (s *Service) handleFreeform(ctx context.Context, sessionID, message string) (*Reply, error) {
	history, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Session context unavailable, answering without it")
		history = nil
	}

	answer, err := s.completer.Complete(ctx, s.prompts.ChatMessages(history, message))
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Append(ctx, sessionID,
		llm.Message{Role: "user", Content: message},
		llm.Message{Role: "assistant", Content: answer.Text},
	); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to cache session context")
	}

	return &Reply{
		Text:        answer.Text,
		MessageType: storage.MessageTypeFreeform,
		ModelUsed:   answer.Model,
		TokensUsed:  answer.TokensUsed,
	}, nil
}

func (s *Service) persistTurn(ctx context.Context, sessionID, userID, message string, reply *Reply) error {
	userMsg := &storage.ChatMessage{
		SessionID:   sessionID,
		UserID:      userID,
		Role:        storage.RoleUser,
		Content:     message,
		MessageType: reply.MessageType,
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return err
	}

	assistantMsg := &storage.ChatMessage{
		SessionID:   sessionID,
		UserID:      userID,
		Role:        storage.RoleAssistant,
		Content:     reply.Text,
		MessageType: reply.MessageType,
		ModelUsed:   reply.ModelUsed,
		TokensUsed:  reply.TokensUsed,
	}
	return s.messages.Create(ctx, assistantMsg)
}

// renderHistory formats recent messages for a history command reply.
func renderHistory(messages []*storage.ChatMessage) string {
	if len(messages) == 0 {
		return "No messages yet."
	}

	var sb strings.Builder
	sb.WriteString("Your recent messages:\n")
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role != storage.RoleUser {
			continue
		}
		sb.WriteString("- ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
