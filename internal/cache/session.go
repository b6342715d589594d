package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/docubot-ai/docubot/internal/llm"
)

// SessionStore keeps the recent conversation turns of each chat
// session so follow-up questions carry context without rereading the
// database on every request.
type SessionStore struct {
	client Client
	ttl    time.Duration
	turns  int
}

// NewSessionStore creates a SessionStore. turns bounds how many
// messages are retained per session.
func NewSessionStore(client Client, ttl time.Duration, turns int) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if turns <= 0 {
		turns = 12
	}
	return &SessionStore{client: client, ttl: ttl, turns: turns}
}

// History returns the cached conversation for a session, oldest first.
// A missing session yields an empty history.
func (s *SessionStore) History(ctx context.Context, sessionID string) ([]llm.Message, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID))
	if errors.Is(err, ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var messages []llm.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("decode session history: %w", err)
	}
	return messages, nil
}

// Append adds a turn to the session history, trims it to the retained
// window, and refreshes the TTL.
func (s *SessionStore) Append(ctx context.Context, sessionID string, messages ...llm.Message) error {
	history, err := s.History(ctx, sessionID)
	if err != nil {
		return err
	}

	history = append(history, messages...)
	if len(history) > s.turns {
		history = history[len(history)-s.turns:]
	}

	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode session history: %w", err)
	}
	return s.client.Set(ctx, sessionKey(sessionID), data, s.ttl)
}

// Clear forgets a session's conversation context.
func (s *SessionStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Delete(ctx, sessionKey(sessionID))
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}
