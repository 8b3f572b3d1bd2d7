package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pbel78/scratch2/internal/command"
	"github.com/pbel78/scratch2/internal/history"
	"github.com/pbel78/scratch2/internal/infrastructure/config"
	"github.com/pbel78/scratch2/internal/infrastructure/logging"
	"github.com/pbel78/scratch2/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// defaultOutcomeWait bounds how long a command handler waits for the
// broker's verdict before answering with the provisional status.
const defaultOutcomeWait = 5 * time.Second

// Event channels relayed over the WebSocket.
const (
	ChannelMessage           = "mqtt.message"
	ChannelSessionState      = "session.state_changed"
	ChannelTransitionSettled = "lamp.transition_settled"
)

// SessionService is the session manager as seen by the API.
type SessionService interface {
	Connect(target mqtt.Target, creds mqtt.Credentials) error
	Disconnect(done func())
	Session() (mqtt.SessionInfo, bool)
	State() mqtt.State
	Available() error
	OnMessage(observer mqtt.MessageObserver)
	OnStateChange(observer mqtt.StateObserver)
}

// CommandService is the command dispatcher as seen by the API.
type CommandService interface {
	Dispatch(cmd command.Command) command.Result
	Send(topic, message string) command.Result
	Subscribe(filter string) command.Result
	OnTransitionSettled(observer command.TransitionObserver)
	Stats() command.Stats
}

// HealthChecker is implemented by optional backends reported on /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Sessions SessionService
	Commands CommandService
	History  history.Repository       // optional
	Checks   map[string]HealthChecker // optional, keyed by name
	Panel    http.Handler             // optional, served at "/"
	Version  string
}

// Server is the HTTP API server.
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	sessions    SessionService
	commands    CommandService
	history     history.Repository
	checks      map[string]HealthChecker
	panel       http.Handler
	version     string
	outcomeWait time.Duration
	startTime   time.Time
	server      *http.Server
	listener    net.Listener
	hub         *Hub
	cancel      context.CancelFunc
}

// New creates a server and registers its event relays with the session
// manager and dispatcher. It does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session service is required")
	}
	if deps.Commands == nil {
		return nil, fmt.Errorf("command service is required")
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		secCfg:      deps.Security,
		logger:      deps.Logger,
		sessions:    deps.Sessions,
		commands:    deps.Commands,
		history:     deps.History,
		checks:      deps.Checks,
		panel:       deps.Panel,
		version:     deps.Version,
		outcomeWait: defaultOutcomeWait,
		startTime:   time.Now(),
		hub:         NewHub(deps.WS, deps.Logger),
	}
	s.relayEvents()

	return s, nil
}

// relayEvents forwards bridge events to WebSocket subscribers.
func (s *Server) relayEvents() {
	s.sessions.OnMessage(func(topic string, payload []byte) {
		s.hub.Broadcast(ChannelMessage, map[string]any{
			"topic":   topic,
			"payload": string(payload),
		})
	})
	s.sessions.OnStateChange(func(change mqtt.StateChange) {
		s.hub.Broadcast(ChannelSessionState, map[string]any{
			"session_id": change.SessionID,
			"from":       change.From,
			"to":         change.To,
		})
	})
	s.commands.OnTransitionSettled(func(settled command.TransitionSettled) {
		s.hub.Broadcast(ChannelTransitionSettled, map[string]any{
			"command_id": settled.CommandID,
			"device_id":  settled.DeviceID,
			"action":     settled.Action,
			"seconds":    settled.Seconds,
		})
	})
}

// Handler returns the routed handler. Start uses it; tests may serve it
// directly.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	if s.secCfg.JWT.Secret == "" {
		s.logger.Warn("API authentication disabled: security.jwt.secret is empty")
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.listener = ln
	s.logger.Info("API server listening", "address", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
