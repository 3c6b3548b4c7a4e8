// Package chatclient keeps one chat widget connected to the remote
// assistant endpoint: it owns the socket, the session id, the reconnect
// timer and the local transcript.
package chatclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/tgl-chat/backend/internal/model/chat"
)

// User-facing error strings surfaced through Status.Error.
const (
	ErrTextConnection   = "Connection error. Please check if the server is running."
	ErrTextDisconnected = "Disconnected from chat server"
	ErrTextNotConnected = "Not connected to chat server"
	ErrTextSendFailed   = "Failed to send message"
)

var (
	ErrEmptyMessage  = errors.New("message is empty")
	ErrNotConnected  = errors.New("not connected to chat server")
	ErrManagerClosed = errors.New("chat manager closed")
)

const (
	DefaultReconnectDelay   = 3 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	closeGracePeriod        = time.Second
)

// State is the lifecycle position of the connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Status is a point-in-time view for the UI layer.
type Status struct {
	SessionID        string
	State            State
	Connected        bool
	Error            string
	ReconnectPending bool
	Attempts         int
}

// Option customises a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for connection events and dropped payloads.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithReconnectDelay sets the fixed wait between a close and the next attempt.
func WithReconnectDelay(delay time.Duration) Option {
	return func(m *Manager) {
		if delay > 0 {
			m.reconnectDelay = delay
		}
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(dialer *websocket.Dialer) Option {
	return func(m *Manager) {
		if dialer != nil {
			m.dialer = dialer
		}
	}
}

// WithHandshakeTimeout bounds each connection attempt.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.dialer.HandshakeTimeout = timeout
		}
	}
}

// WithWriteTimeout bounds each outbound frame.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.writeTimeout = timeout
		}
	}
}

// WithOnChange registers a callback fired after every status or transcript
// change. The callback must not call Close.
func WithOnChange(fn func(Status)) Option {
	return func(m *Manager) {
		m.onChange = fn
	}
}

// Manager owns a single logical connection to the chat endpoint.
type Manager struct {
	url            string
	session        *Session
	store          *MessageStore
	dialer         *websocket.Dialer
	logger         *zap.Logger
	reconnectDelay time.Duration
	writeTimeout   time.Duration
	onChange       func(Status)

	emitMu sync.Mutex

	mu        sync.Mutex
	state     State
	connected bool
	conn      *websocket.Conn
	errText   string
	timer     *time.Timer
	timerSeq  uint64
	attempts  int
	started   bool
	stopped   bool
	cancel    context.CancelFunc
	ctx       context.Context
	stopWatch func() bool

	wg sync.WaitGroup
}

// NewManager prepares a manager for url. session must outlive the manager;
// a nil session gets a fresh one.
func NewManager(url string, session *Session, opts ...Option) *Manager {
	if session == nil {
		session = NewSession()
	}

	m := &Manager{
		url:     url,
		session: session,
		store:   NewMessageStore(),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		logger:         zap.NewNop(),
		reconnectDelay: DefaultReconnectDelay,
		writeTimeout:   defaultWriteTimeout,
		state:          StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(zap.String("session", session.ID))
	return m
}

// Session returns the session bound to this manager.
func (m *Manager) Session() *Session {
	return m.session
}

// Start opens the first connection in the background. Cancelling ctx has the
// same effect as Close.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.stopWatch = context.AfterFunc(ctx, func() {
		_ = m.Close()
	})
	m.beginConnectLocked()
	m.mu.Unlock()

	m.notify()
	return nil
}

// Close tears the manager down: the pending reconnect is invalidated, an
// in-flight dial is aborted and the socket is closed. It returns once every
// goroutine started by the manager has exited.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		m.wg.Wait()
		return nil
	}
	m.stopped = true

	if m.timer != nil {
		if m.timer.Stop() {
			m.wg.Done()
		}
		m.timer = nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	if m.stopWatch != nil {
		m.stopWatch()
	}

	conn := m.conn
	m.conn = nil
	m.state = StateStopped
	m.connected = false
	m.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(closeGracePeriod)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}

	m.wg.Wait()
	m.logger.Info("chat manager stopped")
	return nil
}

// Send trims text, echoes it into the transcript and transmits it.
// Nothing is queued while disconnected.
func (m *Manager) Send(text string) error {
	content := strings.TrimSpace(text)
	if content == "" {
		return ErrEmptyMessage
	}

	m.mu.Lock()
	if m.state != StateOpen || !m.connected || m.conn == nil {
		m.errText = ErrTextNotConnected
		m.mu.Unlock()
		m.notify()
		return ErrNotConnected
	}

	m.store.Append(chat.NewMessage(chat.RoleUser, content))

	frame, err := EncodeMessage(m.session.ID, content)
	if err == nil {
		err = m.writeLocked(frame)
	}
	if err != nil {
		m.errText = ErrTextSendFailed
		m.mu.Unlock()
		m.logger.Warn("chat send failed", zap.Error(err))
		m.notify()
		return fmt.Errorf("send chat message: %w", err)
	}
	m.mu.Unlock()

	m.notify()
	return nil
}

// Messages returns the transcript in arrival order.
func (m *Manager) Messages() []chat.Message {
	return m.store.Snapshot()
}

// ClearHistory discards the local transcript.
func (m *Manager) ClearHistory() {
	m.store.Clear()
	m.notify()
}

// Status reports the current connection view.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *Manager) statusLocked() Status {
	return Status{
		SessionID:        m.session.ID,
		State:            m.state,
		Connected:        m.connected,
		Error:            m.errText,
		ReconnectPending: m.timer != nil,
		Attempts:         m.attempts,
	}
}

func (m *Manager) notify() {
	if m.onChange == nil {
		return
	}
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	m.onChange(m.Status())
}

func (m *Manager) beginConnectLocked() {
	m.state = StateConnecting
	m.attempts++
	m.wg.Add(1)
	go m.connect(m.ctx, m.attempts)
}

func (m *Manager) connect(ctx context.Context, attempt int) {
	defer m.wg.Done()

	m.logger.Debug("dialing chat endpoint", zap.String("url", m.url), zap.Int("attempt", attempt))
	conn, _, err := m.dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Warn("chat dial failed", zap.String("url", m.url), zap.Int("attempt", attempt), zap.Error(err))
		m.handleError(nil, err)
		m.handleClose(nil)
		return
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}

	m.conn = conn
	m.state = StateOpen
	m.connected = true
	m.errText = ""

	frame, err := EncodeInit(m.session.ID)
	if err == nil {
		err = m.writeLocked(frame)
	}
	if err != nil {
		m.logger.Warn("chat init failed", zap.Error(err))
	}

	m.wg.Add(1)
	go m.readLoop(conn)
	m.mu.Unlock()

	m.logger.Info("chat connected", zap.String("url", m.url), zap.Int("attempt", attempt))
	m.notify()
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	defer m.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.handleError(conn, err)
			}
			m.handleClose(conn)
			return
		}
		m.handleInbound(data)
	}
}

func (m *Manager) handleInbound(data []byte) {
	in, ok := DecodeInbound(data)
	if !ok {
		m.logger.Warn("dropping unusable chat payload", zap.Int("bytes", len(data)))
		return
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.store.Append(chat.NewMessage(in.Role, in.Content))
	m.mu.Unlock()

	m.notify()
}

// handleError records a transport failure. conn is nil for dial failures.
func (m *Manager) handleError(conn *websocket.Conn, err error) {
	m.mu.Lock()
	if m.stopped || m.conn != conn {
		m.mu.Unlock()
		return
	}
	m.connected = false
	m.errText = ErrTextConnection
	m.mu.Unlock()

	m.logger.Warn("chat transport error", zap.Error(err))
	m.notify()
}

// handleClose moves to Closed and arms the reconnect. conn is nil for dial
// failures; a conn that is no longer current is ignored.
func (m *Manager) handleClose(conn *websocket.Conn) {
	m.mu.Lock()
	if m.stopped || m.conn != conn {
		m.mu.Unlock()
		return
	}
	if conn != nil {
		_ = conn.Close()
	}
	m.conn = nil
	m.state = StateClosed
	m.connected = false
	m.errText = ErrTextDisconnected
	m.scheduleReconnectLocked()
	m.mu.Unlock()

	m.logger.Info("chat disconnected", zap.Duration("retryIn", m.reconnectDelay))
	m.notify()
}

func (m *Manager) scheduleReconnectLocked() {
	if m.timer != nil {
		return
	}
	m.timerSeq++
	seq := m.timerSeq
	m.wg.Add(1)
	m.timer = time.AfterFunc(m.reconnectDelay, func() {
		m.fireReconnect(seq)
	})
}

func (m *Manager) fireReconnect(seq uint64) {
	defer m.wg.Done()

	m.mu.Lock()
	if m.stopped || m.timer == nil || m.timerSeq != seq {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.beginConnectLocked()
	m.mu.Unlock()

	m.notify()
}

func (m *Manager) writeLocked(frame []byte) error {
	if err := m.conn.SetWriteDeadline(time.Now().Add(m.writeTimeout)); err != nil {
		return err
	}
	return m.conn.WriteMessage(websocket.TextMessage, frame)
}
