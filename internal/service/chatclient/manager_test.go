package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zhouzirui/tgl-chat/backend/internal/model/chat"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// chatServer is a minimal remote endpoint that records what clients send.
type chatServer struct {
	*httptest.Server
	upgrader websocket.Upgrader
	frames   chan []byte
	accepted atomic.Int32
	reject   atomic.Bool

	mu      sync.Mutex
	current *websocket.Conn
}

func newChatServer(t *testing.T) *chatServer {
	t.Helper()
	s := &chatServer{frames: make(chan []byte, 64)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *chatServer) handle(w http.ResponseWriter, r *http.Request) {
	if s.reject.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.accepted.Add(1)

	s.mu.Lock()
	s.current = conn
	s.mu.Unlock()

	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.frames <- data
	}
}

func (s *chatServer) url() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *chatServer) push(t *testing.T, payload string) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotNil(t, s.current)
	require.NoError(t, s.current.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func (s *chatServer) drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		_ = s.current.Close()
		s.current = nil
	}
}

func (s *chatServer) nextFrame(t *testing.T) map[string]any {
	t.Helper()
	select {
	case data := <-s.frames:
		var frame map[string]any
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for client frame")
		return nil
	}
}

func (s *chatServer) assertNoFrame(t *testing.T) {
	t.Helper()
	select {
	case data := <-s.frames:
		t.Fatalf("unexpected client frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func startManager(t *testing.T, url string, opts ...Option) *Manager {
	t.Helper()
	m := NewManager(url, NewSession(), opts...)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func waitConnected(t *testing.T, m *Manager) {
	t.Helper()
	require.Eventually(t, func() bool { return m.Status().Connected }, waitFor, tick)
}

func TestManagerSendsInitOnOpen(t *testing.T) {
	srv := newChatServer(t)
	m := startManager(t, srv.url())

	frame := srv.nextFrame(t)
	assert.Equal(t, map[string]any{"type": "init", "sessionId": m.Session().ID}, frame)

	waitConnected(t, m)
	status := m.Status()
	assert.Equal(t, StateOpen, status.State)
	assert.Empty(t, status.Error)
	assert.Equal(t, 1, status.Attempts)
}

func TestManagerAppendsAssistantReply(t *testing.T) {
	srv := newChatServer(t)
	m := startManager(t, srv.url())
	srv.nextFrame(t)
	waitConnected(t, m)

	srv.push(t, `{"role":"assistant","content":"Hello"}`)

	require.Eventually(t, func() bool { return len(m.Messages()) == 1 }, waitFor, tick)
	msg := m.Messages()[0]
	assert.Equal(t, chat.RoleAssistant, msg.Role)
	assert.Equal(t, "Hello", msg.Content)
	assert.True(t, strings.HasPrefix(msg.ID, "msg_"))
}

func TestManagerSendEchoesAndTransmits(t *testing.T) {
	srv := newChatServer(t)
	m := startManager(t, srv.url())
	srv.nextFrame(t)
	waitConnected(t, m)

	require.NoError(t, m.Send("track my package"))

	messages := m.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, chat.RoleUser, messages[0].Role)
	assert.Equal(t, "track my package", messages[0].Content)

	frame := srv.nextFrame(t)
	assert.Equal(t, map[string]any{
		"type":      "message",
		"sessionId": m.Session().ID,
		"message":   "track my package",
		"role":      "user",
	}, frame)
	srv.assertNoFrame(t)
}

func TestManagerKeepsSendOrderBeforeReplies(t *testing.T) {
	srv := newChatServer(t)
	m := startManager(t, srv.url())
	srv.nextFrame(t)
	waitConnected(t, m)

	sent := []string{"one", "two", "three", "four"}
	for _, text := range sent {
		require.NoError(t, m.Send(text))
	}
	for _, text := range sent {
		assert.Equal(t, text, srv.nextFrame(t)["message"])
	}

	srv.push(t, `{"type":"message","message":"reply"}`)
	require.Eventually(t, func() bool { return len(m.Messages()) == len(sent)+1 }, waitFor, tick)

	messages := m.Messages()
	for i, text := range sent {
		assert.Equal(t, chat.RoleUser, messages[i].Role)
		assert.Equal(t, text, messages[i].Content)
	}
	assert.Equal(t, "reply", messages[len(sent)].Content)
	assert.Equal(t, chat.RoleAssistant, messages[len(sent)].Role)
}

func TestManagerSendWhileDisconnected(t *testing.T) {
	m := NewManager("ws://127.0.0.1:1/ws/chat", NewSession())
	defer m.Close()

	err := m.Send("hello")
	require.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, m.Messages())
	assert.Equal(t, "Not connected to chat server", m.Status().Error)
	assert.False(t, m.Status().Connected)
}

func TestManagerIgnoresBlankSend(t *testing.T) {
	srv := newChatServer(t)
	m := startManager(t, srv.url())
	srv.nextFrame(t)
	waitConnected(t, m)

	for _, text := range []string{"", "   ", "\n\t "} {
		require.ErrorIs(t, m.Send(text), ErrEmptyMessage)
	}
	assert.Empty(t, m.Messages())
	assert.Empty(t, m.Status().Error)
	srv.assertNoFrame(t)
}

func TestManagerDropsUnusablePayloads(t *testing.T) {
	srv := newChatServer(t)
	m := startManager(t, srv.url())
	srv.nextFrame(t)
	waitConnected(t, m)

	for _, payload := range []string{
		`not json`,
		`{"foo":1}`,
		`{"role":"user","content":"echo"}`,
		`{"type":"message"}`,
		`[1,2,3]`,
		`{"type":"message","content":42}`,
	} {
		srv.push(t, payload)
	}
	srv.push(t, `{"type":"message","content":"kept"}`)

	require.Eventually(t, func() bool { return len(m.Messages()) > 0 }, waitFor, tick)
	messages := m.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "kept", messages[0].Content)

	status := m.Status()
	assert.True(t, status.Connected)
	assert.Empty(t, status.Error)
}

func TestManagerReconnectsWithSameSession(t *testing.T) {
	srv := newChatServer(t)
	delay := 100 * time.Millisecond
	m := startManager(t, srv.url(), WithReconnectDelay(delay))
	first := srv.nextFrame(t)
	waitConnected(t, m)

	srv.drop()

	require.Eventually(t, func() bool {
		st := m.Status()
		return !st.Connected && st.ReconnectPending
	}, waitFor, tick)
	assert.Equal(t, "Disconnected from chat server", m.Status().Error)

	second := srv.nextFrame(t)
	assert.Equal(t, "init", second["type"])
	assert.Equal(t, first["sessionId"], second["sessionId"])

	waitConnected(t, m)
	status := m.Status()
	assert.Empty(t, status.Error)
	assert.False(t, status.ReconnectPending)
	assert.Equal(t, 2, status.Attempts)

	time.Sleep(3 * delay)
	assert.EqualValues(t, 2, srv.accepted.Load())
}

func TestManagerRetriesWhileEndpointDown(t *testing.T) {
	srv := newChatServer(t)
	srv.reject.Store(true)
	delay := 40 * time.Millisecond
	m := startManager(t, srv.url(), WithReconnectDelay(delay))

	require.Eventually(t, func() bool { return m.Status().Attempts >= 3 }, waitFor, tick)
	status := m.Status()
	assert.False(t, status.Connected)
	assert.NotEmpty(t, status.Error)

	srv.reject.Store(false)
	srv.nextFrame(t)
	waitConnected(t, m)
}

func TestManagerCloseCancelsPendingReconnect(t *testing.T) {
	srv := newChatServer(t)
	delay := 150 * time.Millisecond
	m := NewManager(srv.url(), NewSession(), WithReconnectDelay(delay))
	require.NoError(t, m.Start(context.Background()))
	srv.nextFrame(t)
	waitConnected(t, m)

	srv.drop()
	require.Eventually(t, func() bool { return m.Status().ReconnectPending }, waitFor, tick)

	require.NoError(t, m.Close())
	status := m.Status()
	assert.Equal(t, StateStopped, status.State)
	assert.False(t, status.ReconnectPending)

	time.Sleep(3 * delay)
	assert.EqualValues(t, 1, srv.accepted.Load())
	assert.Equal(t, 1, m.Status().Attempts)
}

func TestManagerCloseIsIdempotent(t *testing.T) {
	srv := newChatServer(t)
	m := NewManager(srv.url(), NewSession())
	require.NoError(t, m.Start(context.Background()))
	srv.nextFrame(t)
	waitConnected(t, m)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	require.ErrorIs(t, m.Start(context.Background()), ErrManagerClosed)
	require.ErrorIs(t, m.Send("late"), ErrNotConnected)
}

func TestManagerStopsWhenContextCancelled(t *testing.T) {
	srv := newChatServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager(srv.url(), NewSession())
	require.NoError(t, m.Start(ctx))
	srv.nextFrame(t)
	waitConnected(t, m)

	cancel()
	require.Eventually(t, func() bool { return m.Status().State == StateStopped }, waitFor, tick)
	require.NoError(t, m.Close())
}

func TestManagerClearHistory(t *testing.T) {
	srv := newChatServer(t)
	var changes atomic.Int32
	m := startManager(t, srv.url(), WithOnChange(func(Status) { changes.Add(1) }))
	srv.nextFrame(t)
	waitConnected(t, m)

	require.NoError(t, m.Send("hello"))
	require.Len(t, m.Messages(), 1)

	m.ClearHistory()
	assert.Empty(t, m.Messages())
	assert.Greater(t, changes.Load(), int32(0))
}
