package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pbel78/scratch2/internal/bridges/zigbee"
	"github.com/pbel78/scratch2/internal/command"
	"github.com/pbel78/scratch2/internal/history"
	"github.com/pbel78/scratch2/internal/infrastructure/config"
	"github.com/pbel78/scratch2/internal/infrastructure/logging"
	"github.com/pbel78/scratch2/internal/infrastructure/mqtt"
)

// fakeSessions stands in for the session manager.
type fakeSessions struct {
	mu             sync.Mutex
	state          mqtt.State
	info           *mqtt.SessionInfo
	unavailable    error
	connectErr     error
	targets        []mqtt.Target
	creds          []mqtt.Credentials
	msgObservers   []mqtt.MessageObserver
	stateObservers []mqtt.StateObserver
}

func (f *fakeSessions) Connect(target mqtt.Target, creds mqtt.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.targets = append(f.targets, target)
	f.creds = append(f.creds, creds)
	f.state = mqtt.StateConnecting
	f.info = &mqtt.SessionInfo{ID: "sess-test", URL: target.URL, Username: creds.Username, State: mqtt.StateConnecting}
	return nil
}

func (f *fakeSessions) Disconnect(done func()) {
	f.mu.Lock()
	f.state = mqtt.StateClosed
	if f.info != nil {
		f.info.State = mqtt.StateClosed
	}
	f.mu.Unlock()
	if done != nil {
		done()
	}
}

func (f *fakeSessions) Session() (mqtt.SessionInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.info == nil {
		return mqtt.SessionInfo{}, false
	}
	return *f.info, true
}

func (f *fakeSessions) State() mqtt.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSessions) Available() error {
	return f.unavailable
}

func (f *fakeSessions) SessionID() string {
	return "sess-test"
}

func (f *fakeSessions) OnMessage(observer mqtt.MessageObserver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgObservers = append(f.msgObservers, observer)
}

func (f *fakeSessions) OnStateChange(observer mqtt.StateObserver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateObservers = append(f.stateObservers, observer)
}

func (f *fakeSessions) emitMessage(topic string, payload []byte) {
	f.mu.Lock()
	observers := append([]mqtt.MessageObserver(nil), f.msgObservers...)
	f.mu.Unlock()
	for _, o := range observers {
		o(topic, payload)
	}
}

func (f *fakeSessions) emitState(from, to mqtt.State) {
	f.mu.Lock()
	observers := append([]mqtt.StateObserver(nil), f.stateObservers...)
	f.mu.Unlock()
	for _, o := range observers {
		o(mqtt.StateChange{SessionID: "sess-test", From: from, To: to, At: time.Now()})
	}
}

// published is one recorded publish call.
type published struct {
	topic   string
	payload string
}

// fakePublisher mirrors the gateway's connected gate and reports outcomes
// synchronously.
type fakePublisher struct {
	mu         sync.Mutex
	connected  bool
	failWith   error
	publishes  []published
	subscribes []string
}

func (p *fakePublisher) Publish(topic string, payload []byte, cb mqtt.OutcomeFunc) error {
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return mqtt.ErrNotConnected
	}
	p.publishes = append(p.publishes, published{topic: topic, payload: string(payload)})
	fail := p.failWith
	p.mu.Unlock()

	p.complete(mqtt.OpPublish, topic, fail, cb)
	return nil
}

func (p *fakePublisher) Subscribe(filter string, cb mqtt.OutcomeFunc) error {
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return mqtt.ErrNotConnected
	}
	p.subscribes = append(p.subscribes, filter)
	fail := p.failWith
	p.mu.Unlock()

	p.complete(mqtt.OpSubscribe, filter, fail, cb)
	return nil
}

func (p *fakePublisher) complete(op mqtt.Op, topic string, fail error, cb mqtt.OutcomeFunc) {
	o := mqtt.Outcome{Op: op, Topic: topic}
	if fail != nil {
		o.Err = &mqtt.OpError{Op: op, Topic: topic, Err: fail}
	}
	if cb != nil {
		cb(o)
	}
}

func (p *fakePublisher) calls() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.publishes...)
}

// fakeHistory is an in-memory history.Repository.
type fakeHistory struct {
	entries []history.Entry
	filters []history.Filter
	err     error
}

func (h *fakeHistory) Record(_ context.Context, e *history.Entry) error {
	h.entries = append(h.entries, *e)
	return nil
}

func (h *fakeHistory) List(_ context.Context, filter history.Filter) (*history.ListResult, error) {
	h.filters = append(h.filters, filter)
	if h.err != nil {
		return nil, h.err
	}
	return &history.ListResult{Entries: h.entries, Total: len(h.entries), Limit: filter.Limit, Offset: filter.Offset}, nil
}

// fakeCheck is a HealthChecker returning err.
type fakeCheck struct{ err error }

func (c fakeCheck) HealthCheck(context.Context) error { return c.err }

// testEnv bundles a server with its fakes.
type testEnv struct {
	srv        *Server
	handler    http.Handler
	sessions   *fakeSessions
	publisher  *fakePublisher
	dispatcher *command.Dispatcher
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()

	sessions := &fakeSessions{}
	publisher := &fakePublisher{connected: true}
	dispatcher := command.New(sessions, publisher, zigbee.DefaultTopics())
	t.Cleanup(dispatcher.Close)

	deps := Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS:       testWSConfig(),
		Logger:   logging.Discard(),
		Sessions: sessions,
		Commands: dispatcher,
		Version:  "test",
	}
	if mutate != nil {
		mutate(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	srv.outcomeWait = time.Second

	return &testEnv{
		srv:        srv,
		handler:    srv.Handler(),
		sessions:   sessions,
		publisher:  publisher,
		dispatcher: dispatcher,
	}
}

// do performs a request against the router.
func (e *testEnv) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
