package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pbel78/scratch2/internal/infrastructure/config"
)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MessageObserver receives inbound messages unmodified.
//
// Observers run on the transport's goroutine and should not block.
type MessageObserver func(topic string, payload []byte)

// StateObserver receives every applied session transition.
//
// Observers are called while the manager's lock is held, in transition
// order. They must not call back into the Manager.
type StateObserver func(StateChange)

// Manager owns the single broker session and its state machine.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - The transport handle never leaves the manager except through Gateway
//     calls made while Connected.
type Manager struct {
	cfg    config.MQTTConfig
	dialer Dialer

	// unavailable is latched at construction when the transport could not be
	// initialised.
	unavailable error

	mu             sync.Mutex
	session        *session
	msgObservers   []MessageObserver
	stateObservers []StateObserver

	logger   Logger
	loggerMu sync.RWMutex

	now func() time.Time
}

// NewManager creates a session manager on top of dialer. A nil dialer makes
// every connect fail with ErrTransportUnavailable.
func NewManager(cfg config.MQTTConfig, dialer Dialer) *Manager {
	m := &Manager{
		cfg:    cfg,
		dialer: dialer,
		logger: noopLogger{},
		now:    time.Now,
	}
	if dialer == nil {
		m.unavailable = ErrTransportUnavailable
	}
	return m
}

// NewPahoManager creates a session manager using the paho transport. When the
// transport cannot be prepared the failure is logged and latched.
func NewPahoManager(cfg config.MQTTConfig, logger Logger) *Manager {
	dialer, err := NewPahoDialer(cfg.TLS)
	if err != nil {
		m := NewManager(cfg, nil)
		m.unavailable = err
		m.SetLogger(logger)
		m.getLogger().Error("mqtt transport unavailable", "error", err)
		return m
	}

	m := NewManager(cfg, dialer)
	m.SetLogger(logger)
	return m
}

// SetLogger sets a logger for session lifecycle logging. It is forwarded to
// the dialer when the dialer accepts one.
func (m *Manager) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	m.loggerMu.Lock()
	m.logger = logger
	m.loggerMu.Unlock()

	if d, ok := m.dialer.(interface{ SetLogger(Logger) }); ok {
		d.SetLogger(logger)
	}
}

func (m *Manager) getLogger() Logger {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	return m.logger
}

// OnMessage registers an observer for inbound messages.
func (m *Manager) OnMessage(observer MessageObserver) {
	if observer == nil {
		return
	}
	m.mu.Lock()
	m.msgObservers = append(m.msgObservers, observer)
	m.mu.Unlock()
}

// OnStateChange registers an observer for session transitions.
func (m *Manager) OnStateChange(observer StateObserver) {
	if observer == nil {
		return
	}
	m.mu.Lock()
	m.stateObservers = append(m.stateObservers, observer)
	m.mu.Unlock()
}

// Available returns the latched transport error, or nil.
func (m *Manager) Available() error {
	return m.unavailable
}

// Connect starts a new session to target and returns without waiting for the
// broker. Completion is observed as the Connected transition.
//
// Any existing session is closed and its handle released before the new one
// is dialled.
//
// Returns:
//   - ErrTransportUnavailable if the transport failed to initialise
//   - ErrInvalidTarget if the URL cannot be dialled
//   - the dialer's error if the attempt could not be started
func (m *Manager) Connect(target Target, creds Credentials) error {
	if m.unavailable != nil {
		m.getLogger().Error("mqtt connect refused", "url", target.URL, "error", m.unavailable)
		return m.unavailable
	}

	if err := validateTarget(target); err != nil {
		m.getLogger().Warn("mqtt connect rejected", "url", target.URL, "error", err)
		return err
	}

	opts := connectOptionsFromConfig(m.cfg, target, creds)
	s := &session{
		id:          uuid.NewString(),
		target:      target,
		credentials: creds,
		clientID:    opts.ClientID,
		state:       StateDisconnected,
		dialing:     true,
		createdAt:   m.now(),
	}

	m.mu.Lock()
	var oldConn Conn
	if old := m.session; old != nil {
		oldConn = m.retire(old)
	}
	m.session = s
	m.setState(s, StateConnecting)
	m.mu.Unlock()

	if oldConn != nil {
		oldConn.Close(nil)
	}

	m.getLogger().Info("mqtt connecting",
		"session_id", s.id,
		"url", target.URL,
		"client_id", opts.ClientID,
	)

	conn, err := m.dialer.Dial(opts, func(ev Event) { m.handleEvent(s, ev) })

	m.mu.Lock()
	if err != nil {
		s.dialing = false
		s.pending = nil
		s.released = true
		if m.session == s && !s.closing {
			m.setState(s, StateDisconnected)
		}
		m.mu.Unlock()
		m.getLogger().Error("mqtt dial failed", "session_id", s.id, "error", err)
		return err
	}

	if m.session != s || !s.active() {
		// Disconnected or superseded while dialling.
		s.dialing = false
		s.pending = nil
		m.mu.Unlock()
		conn.Close(nil)
		m.getLogger().Debug("mqtt discarded late connection", "session_id", s.id)
		return nil
	}
	s.conn = conn
	m.mu.Unlock()

	m.drainPending(s)
	return nil
}

// drainPending replays events queued while Dial was running.
func (m *Manager) drainPending(s *session) {
	for {
		m.mu.Lock()
		if len(s.pending) == 0 {
			s.dialing = false
			m.mu.Unlock()
			return
		}
		ev := s.pending[0]
		s.pending = s.pending[1:]
		m.mu.Unlock()

		m.apply(s, ev)
	}
}

// Disconnect gracefully shuts down the current session. done is invoked once
// the session reaches Closed (immediately if there is nothing to close).
//
// A disconnect issued while a connect is in flight closes the session now;
// the late transport handle is closed as soon as Dial returns.
func (m *Manager) Disconnect(done func()) {
	if done == nil {
		done = func() {}
	}

	m.mu.Lock()
	s := m.session
	if s == nil || s.closing || s.state == StateClosed {
		m.mu.Unlock()
		done()
		return
	}

	s.closing = true
	conn := s.conn
	s.conn = nil

	if conn == nil {
		m.setState(s, StateClosed)
		m.mu.Unlock()
		m.getLogger().Info("mqtt session closed", "session_id", s.id)
		done()
		return
	}
	m.mu.Unlock()

	conn.Close(func() {
		m.mu.Lock()
		m.setState(s, StateClosed)
		m.mu.Unlock()
		m.getLogger().Info("mqtt session closed", "session_id", s.id)
		done()
	})
}

// Close disconnects and waits for the session to close, bounded by ctx.
func (m *Manager) Close(ctx context.Context) error {
	closed := make(chan struct{})
	m.Disconnect(func() { close(closed) })

	select {
	case <-closed:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mqtt close: %w", ctx.Err())
	}
}

// IsConnected reports whether the current session is Connected and usable.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session
	return s != nil && s.state == StateConnected && s.active() && s.conn != nil
}

// State returns the current session's state, Disconnected when there is none.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return StateDisconnected
	}
	return m.session.state
}

// SessionID returns the current session's ID, or "" when there is none.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.id
}

// Session returns a snapshot of the current session.
func (m *Manager) Session() (SessionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return SessionInfo{State: StateDisconnected}, false
	}
	return m.session.info(), true
}

// HealthCheck verifies the session is connected.
func (m *Manager) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if m.unavailable != nil {
		return m.unavailable
	}
	if !m.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// connected returns the live handle when the session is Connected.
func (m *Manager) connected() (Conn, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session
	if s == nil || s.state != StateConnected || !s.active() || s.conn == nil {
		return nil, "", false
	}
	return s.conn, s.id, true
}

// handleEvent is the emit callback bound to one session.
func (m *Manager) handleEvent(s *session, ev Event) {
	m.mu.Lock()
	if s.dialing {
		s.pending = append(s.pending, ev)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.apply(s, ev)
}

// apply drives the state machine for one event.
func (m *Manager) apply(s *session, ev Event) {
	log := m.getLogger()

	m.mu.Lock()
	if m.session != s || !s.active() {
		m.mu.Unlock()
		log.Debug("mqtt ignoring event for inactive session", "session_id", s.id, "event", fmt.Sprintf("%T", ev))
		return
	}

	switch e := ev.(type) {
	case ConnectEvent:
		s.reconnects = 0
		s.connectedAt = m.now()
		m.setState(s, StateConnected)
		m.mu.Unlock()
		log.Info("mqtt connected", "session_id", s.id, "url", s.target.URL)

	case ErrorEvent:
		conn := m.release(s)
		m.mu.Unlock()
		log.Error("mqtt session error", "session_id", s.id, "error", e.Err)
		closeQuietly(conn)

	case CloseEvent:
		conn := m.release(s)
		m.mu.Unlock()
		log.Warn("mqtt connection closed", "session_id", s.id, "error", e.Err)
		closeQuietly(conn)

	case ReconnectEvent:
		s.reconnects++
		attempt := s.reconnects
		if limit := m.cfg.Reconnect.MaxAttempts; limit > 0 && attempt > limit {
			conn := m.release(s)
			m.mu.Unlock()
			log.Warn("mqtt reconnect attempts exhausted", "session_id", s.id, "max_attempts", limit)
			closeQuietly(conn)
			return
		}
		m.setState(s, StateReconnecting)
		m.mu.Unlock()
		log.Info("mqtt reconnecting", "session_id", s.id, "attempt", attempt)

	case MessageEvent:
		if s.state != StateConnected {
			m.mu.Unlock()
			log.Debug("mqtt dropping message outside connected state", "topic", e.Topic)
			return
		}
		observers := append([]MessageObserver(nil), m.msgObservers...)
		m.mu.Unlock()

		if len(observers) == 0 {
			log.Debug("mqtt dropping message with no observer", "topic", e.Topic)
			return
		}
		for _, observer := range observers {
			m.deliver(observer, e)
		}

	default:
		m.mu.Unlock()
		log.Warn("mqtt unknown event", "event", fmt.Sprintf("%T", ev))
	}
}

// retire closes a superseded session. Caller holds m.mu.
func (m *Manager) retire(s *session) Conn {
	s.closing = true
	conn := s.conn
	s.conn = nil
	m.setState(s, StateClosed)
	return conn
}

// release tears down the handle after an error, close, or exhausted
// reconnects. Caller holds m.mu.
func (m *Manager) release(s *session) Conn {
	s.released = true
	conn := s.conn
	s.conn = nil
	m.setState(s, StateDisconnected)
	return conn
}

// setState applies a transition if it is allowed. Caller holds m.mu.
func (m *Manager) setState(s *session, to State) bool {
	from := s.state
	if from == to {
		return false
	}
	if !CanTransition(from, to) {
		m.getLogger().Warn("mqtt refusing illegal session transition",
			"session_id", s.id,
			"from", from.String(),
			"to", to.String(),
		)
		return false
	}

	s.state = to
	change := StateChange{SessionID: s.id, From: from, To: to, At: m.now()}
	for _, observer := range m.stateObservers {
		m.notify(observer, change)
	}
	return true
}

// notify calls a state observer with panic recovery.
func (m *Manager) notify(observer StateObserver, change StateChange) {
	defer func() {
		if r := recover(); r != nil {
			m.getLogger().Error("mqtt state observer panic recovered", "panic", r)
		}
	}()
	observer(change)
}

// deliver calls a message observer with panic recovery.
func (m *Manager) deliver(observer MessageObserver, msg MessageEvent) {
	defer func() {
		if r := recover(); r != nil {
			m.getLogger().Error("mqtt message observer panic recovered",
				"topic", msg.Topic,
				"panic", r,
			)
		}
	}()
	observer(msg.Topic, msg.Payload)
}

func closeQuietly(conn Conn) {
	if conn != nil {
		conn.Close(nil)
	}
}
