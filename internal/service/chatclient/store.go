package chatclient

import (
	"sync"

	"github.com/zhouzirui/tgl-chat/backend/internal/model/chat"
)

// MessageStore is the append-only, insertion-ordered chat transcript.
type MessageStore struct {
	mu       sync.RWMutex
	messages []chat.Message
}

// NewMessageStore returns an empty transcript.
func NewMessageStore() *MessageStore {
	return &MessageStore{messages: make([]chat.Message, 0, 16)}
}

// Append adds a message at the end of the transcript.
func (s *MessageStore) Append(message chat.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, message)
	s.mu.Unlock()
}

// Snapshot returns a copy of the transcript in insertion order.
func (s *MessageStore) Snapshot() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]chat.Message, len(s.messages))
	copy(copied, s.messages)
	return copied
}

// Len reports the number of stored messages.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Clear discards the transcript.
func (s *MessageStore) Clear() {
	s.mu.Lock()
	s.messages = make([]chat.Message, 0, 16)
	s.mu.Unlock()
}
