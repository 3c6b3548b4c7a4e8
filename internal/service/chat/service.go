package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zhouzirui/tgl-chat/backend/internal/model/chat"
)

var (
	ErrSessionRequired = errors.New("session id is required")
	ErrSessionNotFound = errors.New("session not found")
)

// Service keeps the gateway-side conversation bound to each widget session.
type Service struct {
	mu            sync.RWMutex
	conversations map[string]chat.Conversation
	messages      map[string][]chat.Message
}

// NewService bootstraps the in-memory conversation store.
func NewService() *Service {
	return &Service{
		conversations: make(map[string]chat.Conversation),
		messages:      make(map[string][]chat.Message),
	}
}

// Bind returns the conversation for sessionID, creating it on first use.
// created reports whether a new conversation was opened.
func (s *Service) Bind(_ context.Context, sessionID string) (conv chat.Conversation, created bool, err error) {
	if sessionID == "" {
		return chat.Conversation{}, false, ErrSessionRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.conversations[sessionID]; ok {
		return existing, false, nil
	}

	conv = chat.Conversation{
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}
	s.conversations[sessionID] = conv
	s.messages[sessionID] = make([]chat.Message, 0, 16)
	return conv, true, nil
}

// SaveMessage appends a message to the session history.
func (s *Service) SaveMessage(_ context.Context, sessionID string, message chat.Message) error {
	if sessionID == "" {
		return ErrSessionRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[sessionID]; !ok {
		return ErrSessionNotFound
	}

	if message.ID == "" {
		message.ID = chat.NewMessageID()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}

	s.messages[sessionID] = append(s.messages[sessionID], message)
	return nil
}

// GetConversation retrieves a conversation by session id.
func (s *Service) GetConversation(_ context.Context, sessionID string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[sessionID]
	if !ok {
		return chat.Conversation{}, ErrSessionNotFound
	}
	return conv, nil
}

// LoadTranscript returns stored messages for the provided session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}
