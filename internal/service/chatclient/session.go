package chatclient

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session identifies one mounted widget towards the remote conversation.
// It is created once and reused by every reconnect of the same manager.
type Session struct {
	ID        string
	CreatedAt time.Time
}

// NewSession builds a session id from the current time and a random suffix.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        fmt.Sprintf("session_%d_%s", now.UnixMilli(), randomSuffix()),
		CreatedAt: now,
	}
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}
