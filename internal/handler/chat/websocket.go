package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/tgl-chat/backend/internal/model/chat"
	"github.com/zhouzirui/tgl-chat/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/tgl-chat/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
)

// WebSocketHandler WebSocket聊天处理器
type WebSocketHandler struct {
	chatSvc   *chatservice.Service
	responder ai.Responder
	logger    *zap.Logger
	upgrader  websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatservice.Service, responder ai.Responder, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		chatSvc:   chatSvc,
		responder: responder,
		logger:    logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chat", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Role      string `json:"role"`
}

type replyMessage struct {
	Type    string    `json:"type"`
	Role    chat.Role `json:"role"`
	Content string    `json:"content"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type connectionState struct {
	sessionID string
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.chatSvc == nil || h.responder == nil {
		http.Error(w, "chat service unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("websocket connected", zap.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	state := &connectionState{}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.String("session", state.sessionID), zap.Error(err))
			}
			h.logger.Info("websocket closed", zap.String("session", state.sessionID))
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(conn, "invalid payload")
			continue
		}

		h.handleMessage(ctx, conn, state, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "init":
		h.handleInit(ctx, conn, state, msg)
	case "message":
		h.handleUserMessage(ctx, conn, state, msg)
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) handleInit(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	if err := h.bind(ctx, state, msg.SessionID); err != nil {
		h.sendError(conn, err.Error())
	}
}

func (h *WebSocketHandler) bind(ctx context.Context, state *connectionState, sessionID string) error {
	if state.sessionID != "" {
		if sessionID != "" && sessionID != state.sessionID {
			return errors.New("session mismatch")
		}
		return nil
	}

	_, created, err := h.chatSvc.Bind(ctx, sessionID)
	if err != nil {
		return err
	}
	state.sessionID = sessionID
	h.logger.Info("session bound", zap.String("session", sessionID), zap.Bool("created", created))
	return nil
}

func (h *WebSocketHandler) handleUserMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	if err := h.bind(ctx, state, msg.SessionID); err != nil {
		h.sendError(conn, err.Error())
		return
	}
	if msg.Message == "" {
		h.sendError(conn, "message is empty")
		return
	}

	history, err := h.chatSvc.LoadTranscript(ctx, state.sessionID)
	if err != nil {
		h.sendError(conn, "load transcript failed")
		return
	}

	userMsg := chat.NewMessage(chat.RoleUser, msg.Message)
	if err := h.chatSvc.SaveMessage(ctx, state.sessionID, userMsg); err != nil {
		h.sendError(conn, "save message failed")
		return
	}

	reply, err := h.responder.Reply(ctx, state.sessionID, history, msg.Message)
	if err != nil {
		h.logger.Error("reply generation failed", zap.String("session", state.sessionID), zap.Error(err))
		h.sendError(conn, "assistant unavailable")
		return
	}

	assistantMsg := chat.NewMessage(chat.RoleAssistant, reply)
	if err := h.chatSvc.SaveMessage(ctx, state.sessionID, assistantMsg); err != nil {
		h.logger.Warn("save assistant message failed", zap.Error(err))
	}

	h.write(conn, replyMessage{Type: "message", Role: chat.RoleAssistant, Content: reply})
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	h.write(conn, errorMessage{Type: "error", Message: message})
}

func (h *WebSocketHandler) write(conn *websocket.Conn, payload any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(payload); err != nil {
		h.logger.Warn("websocket write failed", zap.Error(err))
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
