package mqtt

import (
	"sync"
	"testing"
	"time"

	"github.com/pbel78/scratch2/internal/infrastructure/config"
)

// testConfig returns an MQTT configuration for tests using the fake dialer.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			ClientID:       "scratch2-test",
			ConnectTimeout: 1,
		},
		QoS:       0,
		KeepAlive: 30,
		Reconnect: config.MQTTReconnectConfig{
			Enabled:  true,
			MaxDelay: 5,
		},
	}
}

var testTarget = Target{URL: "wss://myserver:8883"}

type publishCall struct {
	topic   string
	qos     byte
	payload string
}

// fakeConn records every transport call and completes them synchronously.
type fakeConn struct {
	mu           sync.Mutex
	published    []publishCall
	subscribed   []string
	closed       int
	publishErr   error
	subscribeErr error
}

func (c *fakeConn) Publish(topic string, qos byte, payload []byte, done func(error)) {
	c.mu.Lock()
	c.published = append(c.published, publishCall{topic: topic, qos: qos, payload: string(payload)})
	err := c.publishErr
	c.mu.Unlock()
	done(err)
}

func (c *fakeConn) Subscribe(topic string, _ byte, done func(error)) {
	c.mu.Lock()
	c.subscribed = append(c.subscribed, topic)
	err := c.subscribeErr
	c.mu.Unlock()
	done(err)
}

func (c *fakeConn) Close(done func()) {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
	if done != nil {
		done()
	}
}

func (c *fakeConn) wireCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.published) + len(c.subscribed)
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) publishes() []publishCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]publishCall(nil), c.published...)
}

// fakeDialer hands out fakeConns and keeps each emit callback so tests can
// inject transport events.
type fakeDialer struct {
	mu    sync.Mutex
	opts  []ConnectOptions
	conns []*fakeConn
	emits []func(Event)
	err   error

	// onDial runs inside Dial before it returns.
	onDial func(emit func(Event))

	// started and release make Dial block until the test lets it return.
	started chan struct{}
	release chan struct{}
}

func (d *fakeDialer) Dial(opts ConnectOptions, emit func(Event)) (Conn, error) {
	d.mu.Lock()
	if d.err != nil {
		err := d.err
		d.mu.Unlock()
		return nil, err
	}
	conn := &fakeConn{}
	d.opts = append(d.opts, opts)
	d.conns = append(d.conns, conn)
	d.emits = append(d.emits, emit)
	hook, started, release := d.onDial, d.started, d.release
	d.mu.Unlock()

	if hook != nil {
		hook(emit)
	}
	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

// emit injects ev into the i-th dialled connection.
func (d *fakeDialer) emit(i int, ev Event) {
	d.mu.Lock()
	fn := d.emits[i]
	d.mu.Unlock()
	fn(ev)
}

// stateRecorder collects state changes from a manager.
type stateRecorder struct {
	mu      sync.Mutex
	changes []StateChange
}

func (r *stateRecorder) observe(c StateChange) {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
}

func (r *stateRecorder) path() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		return nil
	}
	out := []State{r.changes[0].From}
	for _, c := range r.changes {
		out = append(out, c.To)
	}
	return out
}

func newTestManager(t *testing.T, d *fakeDialer) (*Manager, *stateRecorder) {
	t.Helper()
	m := NewManager(testConfig(), d)
	rec := &stateRecorder{}
	m.OnStateChange(rec.observe)
	return m, rec
}

// connectedManager returns a manager whose first session is Connected.
func connectedManager(t *testing.T) (*Manager, *fakeDialer) {
	t.Helper()
	d := &fakeDialer{}
	m, _ := newTestManager(t, d)
	if err := m.Connect(testTarget, Credentials{}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	d.emit(0, ConnectEvent{})
	if !m.IsConnected() {
		t.Fatalf("State() = %v, want connected", m.State())
	}
	return m, d
}

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

func statesEqual(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
