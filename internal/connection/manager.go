package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/chatlink/internal/backoff"
	"github.com/rickgao/chatlink/internal/protocol"
	"github.com/rickgao/chatlink/internal/router"
)

// Manager orchestrates the channel lifecycle for one conversation:
//
//	Idle --Connect--> Connecting --open-success--> Open
//	Open --unexpected-close--> Connecting (after backoff) | Closed (exhausted)
//	Open --Disconnect--> Closing --closed--> Closed (terminal)
//
// Any transition out of Open stops the heartbeat first, unconditionally.
// One Manager owns one underlying channel; multiple Managers (one per
// conversation) are fully independent.
type Manager struct {
	cfg            ManagerConfig
	conversationID string
	endpoint       string
	logger         *slog.Logger
	policy         backoff.Policy
	router         *router.Router
	handlers       router.Handlers
	heartbeat      *monitor

	// newClient is a seam for tests; defaults to NewClient.
	newClient func(ClientConfig, *slog.Logger) Client

	mu             sync.Mutex
	state          State
	client         Client
	connDone       chan struct{} // closed to release the read loop for the current client
	attempts       int
	manual         bool
	reconnectTimer *time.Timer
	gen            int // connection generation; stale close events are ignored
	lastPong       time.Time
}

// ManagerStats is a snapshot of manager and dispatch state.
type ManagerStats struct {
	State    string
	Attempts int
	Router   router.Stats
}

// NewManager creates a Connection Manager bound to one conversation. The
// handler table is fixed here and read-only thereafter.
func NewManager(cfg ManagerConfig, conversationID string, handlers router.Handlers, logger *slog.Logger) (*Manager, error) {
	cfg = cfg.applyDefaults()

	endpoint, err := Endpoint(cfg.WSBaseURL, conversationID)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("conversation_id", conversationID)

	m := &Manager{
		cfg:            cfg,
		conversationID: conversationID,
		endpoint:       endpoint,
		logger:         logger,
		policy:         backoff.New(cfg.BackoffBase, cfg.BackoffCap),
		handlers:       handlers,
		heartbeat:      newMonitor(cfg.HeartbeatInterval, logger),
		newClient:      NewClient,
		state:          StateIdle,
	}

	// Intercept pong so the manager can track liveness before chaining to
	// the caller's hook.
	routed := handlers
	userPong := handlers.OnPong
	routed.OnPong = func(p protocol.Pong) {
		m.mu.Lock()
		m.lastPong = time.Now()
		m.mu.Unlock()
		if userPong != nil {
			userPong(p)
		}
	}
	m.router = router.New(routed, logger)

	return m, nil
}

// ConversationID returns the conversation this manager is bound to.
func (m *Manager) ConversationID() string { return m.conversationID }

// Endpoint returns the derived channel address.
func (m *Manager) Endpoint() string { return m.endpoint }

// Connect opens the channel. A call while already Connecting or Open is a
// no-op, never a queued second attempt. A failed open surfaces through the
// error callback and follows the normal reconnect decision.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateConnecting, StateOpen, StateClosing:
		m.logger.Info("connect ignored", "state", m.state.String())
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnecting
	m.manual = false
	m.attempts = 0
	m.mu.Unlock()

	return m.open(ctx)
}

// open dials the endpoint and, on success, transitions to Open. Shared by
// Connect and the reconnect timer.
func (m *Manager) open(ctx context.Context) error {
	cli := m.newClient(ClientConfig{
		URL:              m.endpoint,
		AuthToken:        m.cfg.AuthToken,
		HandshakeTimeout: m.cfg.HandshakeTimeout,
		WriteTimeout:     m.cfg.WriteTimeout,
		BufferSize:       m.cfg.BufferSize,
	}, m.logger)

	if err := cli.Connect(ctx); err != nil {
		m.logger.Warn("channel open failed", "endpoint", m.endpoint, "error", err)
		m.emitError(err)
		m.scheduleReconnect()
		return err
	}

	m.mu.Lock()
	if m.manual {
		// Disconnected while the dial was in flight.
		m.mu.Unlock()
		cli.Close()
		return ErrAlreadyClosed
	}
	m.client = cli
	m.state = StateOpen
	m.attempts = 0
	m.gen++
	gen := m.gen
	done := make(chan struct{})
	m.connDone = done
	m.lastPong = time.Now()
	m.mu.Unlock()

	m.heartbeat.Start(m.heartbeatTick)
	go m.readLoop(cli, gen, done)

	m.logger.Info("channel open", "endpoint", m.endpoint)
	if m.handlers.OnConnect != nil {
		m.handlers.OnConnect()
	}
	return nil
}

// readLoop pumps inbound frames into the router until the connection dies
// or the manager releases it.
func (m *Manager) readLoop(cli Client, gen int, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return

		case err := <-cli.Errors():
			// Abnormal errors are surfaced; a clean server close is not.
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.emitError(err)
			}
			m.handleClose(gen)
			return

		case data := <-cli.Messages():
			m.router.Dispatch(data)
		}
	}
}

// handleClose reacts to the underlying channel's close notification, the
// sole trigger for the reconnection decision.
func (m *Manager) handleClose(gen int) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}

	// Heartbeat stops on every transition out of Open, before anything
	// else happens.
	m.heartbeat.Stop()

	if m.connDone != nil {
		close(m.connDone)
		m.connDone = nil
	}
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.mu.Unlock()

	m.scheduleReconnect()
}

// scheduleReconnect increments the attempt counter and arms the reconnect
// timer, or retires the manager once attempts are exhausted.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if m.manual || m.state == StateClosed || m.state == StateClosing {
		m.mu.Unlock()
		return
	}

	m.attempts++
	attempt := m.attempts

	if attempt > m.cfg.MaxAttempts {
		m.state = StateClosed
		m.mu.Unlock()
		// Distinct from a single failed attempt: the caller can surface
		// give-up UX off this.
		m.logger.Error("reconnect attempts exhausted, channel retired",
			"max_attempts", m.cfg.MaxAttempts,
		)
		if m.handlers.OnDisconnect != nil {
			m.handlers.OnDisconnect(true)
		}
		return
	}

	m.state = StateConnecting
	delay := m.policy.Delay(attempt)

	// Never two reconnect timers at once.
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
	}
	m.reconnectTimer = time.AfterFunc(delay, m.retry)
	m.mu.Unlock()

	m.logger.Info("reconnect scheduled",
		"attempt", attempt,
		"max_attempts", m.cfg.MaxAttempts,
		"delay", delay,
	)
	if m.handlers.OnDisconnect != nil {
		m.handlers.OnDisconnect(false)
	}
}

// retry is the reconnect timer callback.
func (m *Manager) retry() {
	m.mu.Lock()
	if m.manual || m.state != StateConnecting {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HandshakeTimeout)
	defer cancel()
	m.open(ctx) // failure re-enters scheduleReconnect
}

// Disconnect closes the channel and suppresses automatic reconnection. It
// is the cancellation entry point: idempotent, and it leaves no armed
// heartbeat or reconnect timer behind.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	prev := m.state
	m.manual = true
	m.gen++ // invalidate in-flight close events

	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	m.heartbeat.Stop()

	if m.connDone != nil {
		close(m.connDone)
		m.connDone = nil
	}
	cli := m.client
	m.client = nil
	if cli != nil {
		m.state = StateClosing
	}
	m.mu.Unlock()

	if cli != nil {
		cli.Close()
	}

	m.mu.Lock()
	m.state = StateClosed
	m.mu.Unlock()

	if prev != StateIdle && prev != StateClosed {
		m.logger.Info("channel closed by caller")
		if m.handlers.OnDisconnect != nil {
			m.handlers.OnDisconnect(true)
		}
	}
}

// heartbeatTick sends one liveness probe. Under strict liveness a probe
// unanswered for two intervals force-closes the channel, which then follows
// the normal unexpected-close path.
func (m *Manager) heartbeatTick() {
	m.SendPing()

	if !m.cfg.StrictLiveness {
		return
	}

	m.mu.Lock()
	last := m.lastPong
	gen := m.gen
	m.mu.Unlock()

	if time.Since(last) > 2*m.cfg.HeartbeatInterval {
		m.logger.Warn("liveness probe unanswered, forcing close", "last_pong", last)
		m.handleClose(gen)
	}
}

// Send serializes and transmits an envelope. It only transmits while Open;
// otherwise it logs and reports false. The caller owns any retry or
// queueing policy.
func (m *Manager) Send(out protocol.Outbound) bool {
	m.mu.Lock()
	cli := m.client
	state := m.state
	m.mu.Unlock()

	if state != StateOpen || cli == nil {
		m.logger.Debug("send dropped, channel not open", "state", state.String())
		return false
	}

	data, err := protocol.Encode(out)
	if err != nil {
		m.logger.Warn("encode outbound frame", "error", err)
		return false
	}

	if err := cli.Send(data); err != nil {
		m.logger.Warn("send failed", "error", err)
		m.emitError(err)
		return false
	}
	return true
}

// SendMessage sends a chat message. When tempID is empty a fresh
// correlation id is generated so the caller can match the eventual echo.
// Returns the correlation id used and whether the frame was transmitted.
func (m *Manager) SendMessage(content, tempID string) (string, bool) {
	if tempID == "" {
		tempID = uuid.NewString()
	}
	return tempID, m.Send(protocol.NewChat(content, tempID))
}

// SendTyping reports the local user's typing state.
func (m *Manager) SendTyping(isTyping bool) bool {
	return m.Send(protocol.NewTyping(isTyping))
}

// SendPing sends one liveness probe.
func (m *Manager) SendPing() bool {
	return m.Send(protocol.NewPing())
}

// SendEdit rewrites an earlier message's content.
func (m *Manager) SendEdit(messageID protocol.FlexID, content string) bool {
	return m.Send(protocol.NewEdit(messageID, content))
}

// SendDelete removes an earlier message.
func (m *Manager) SendDelete(messageID protocol.FlexID) bool {
	return m.Send(protocol.NewDelete(messageID))
}

// State returns the current lifecycle state, derived from the underlying
// channel's readiness when one exists.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateOpen && (m.client == nil || !m.client.IsConnected()) {
		return StateClosed
	}
	return m.state
}

// IsConnected reports whether the channel is Open.
func (m *Manager) IsConnected() bool {
	return m.State() == StateOpen
}

// Stats returns a snapshot of manager and dispatch counters.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	attempts := m.attempts
	m.mu.Unlock()

	return ManagerStats{
		State:    m.State().String(),
		Attempts: attempts,
		Router:   m.router.Stats(),
	}
}

func (m *Manager) emitError(err error) {
	if m.handlers.OnError != nil {
		m.handlers.OnError(err)
	}
}
