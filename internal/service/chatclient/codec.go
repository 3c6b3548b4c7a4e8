package chatclient

import (
	"encoding/json"

	"github.com/zhouzirui/tgl-chat/backend/internal/model/chat"
)

// Outbound frame types.
const (
	FrameInit    = "init"
	FrameMessage = "message"
)

// InitFrame binds the remote conversation to a session.
type InitFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// MessageFrame carries one user turn to the server.
type MessageFrame struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	Message   string    `json:"message"`
	Role      chat.Role `json:"role"`
}

// EncodeInit serialises the init control frame.
func EncodeInit(sessionID string) ([]byte, error) {
	return json.Marshal(InitFrame{Type: FrameInit, SessionID: sessionID})
}

// EncodeMessage serialises a user message frame.
func EncodeMessage(sessionID, content string) ([]byte, error) {
	return json.Marshal(MessageFrame{
		Type:      FrameMessage,
		SessionID: sessionID,
		Message:   content,
		Role:      chat.RoleUser,
	})
}

// inboundFrame is the loose server shape; every field is optional.
type inboundFrame struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content string `json:"content"`
	Message string `json:"message"`
}

// Inbound is a decoded server turn.
type Inbound struct {
	Role    chat.Role
	Content string
}

// DecodeInbound turns a server payload into a chat turn.
//
// A payload counts when its type is "message" or its role is "assistant".
// The text is content, falling back to message. Role defaults to assistant.
// ok is false for anything else, including invalid JSON.
func DecodeInbound(payload []byte) (in Inbound, ok bool) {
	var frame inboundFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return Inbound{}, false
	}

	if frame.Type != FrameMessage && frame.Role != string(chat.RoleAssistant) {
		return Inbound{}, false
	}

	text := frame.Content
	if text == "" {
		text = frame.Message
	}
	if text == "" {
		return Inbound{}, false
	}

	role := chat.Role(frame.Role)
	if role == "" {
		role = chat.RoleAssistant
	}

	return Inbound{Role: role, Content: text}, true
}
