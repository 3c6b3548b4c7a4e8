package chat

import "time"

// Conversation is the gateway-side context bound to a widget session id.
type Conversation struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}
