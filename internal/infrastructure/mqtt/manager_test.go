package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateDisconnected, StateConnecting, true},
		{StateDisconnected, StateConnected, false},
		{StateDisconnected, StateClosed, true},
		{StateConnecting, StateConnected, true},
		{StateConnecting, StateReconnecting, true},
		{StateConnecting, StateDisconnected, true},
		{StateConnected, StateReconnecting, true},
		{StateConnected, StateDisconnected, true},
		{StateConnected, StateConnecting, false},
		{StateReconnecting, StateConnected, true},
		{StateReconnecting, StateDisconnected, true},
		{StateReconnecting, StateClosed, true},
		{StateClosed, StateConnecting, false},
		{StateClosed, StateDisconnected, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestManager_ConnectLifecycle(t *testing.T) {
	d := &fakeDialer{}
	m, rec := newTestManager(t, d)

	if m.State() != StateDisconnected {
		t.Fatalf("initial State() = %v, want disconnected", m.State())
	}

	if err := m.Connect(testTarget, Credentials{Username: "scratch", Password: "pw"}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if m.State() != StateConnecting {
		t.Errorf("State() after Connect = %v, want connecting", m.State())
	}
	if m.IsConnected() {
		t.Error("IsConnected() = true before ConnectEvent")
	}

	d.emit(0, ConnectEvent{})

	if !m.IsConnected() {
		t.Errorf("IsConnected() = false after ConnectEvent, state %v", m.State())
	}

	want := []State{StateDisconnected, StateConnecting, StateConnected}
	if got := rec.path(); !statesEqual(got, want) {
		t.Errorf("transitions = %v, want %v", got, want)
	}

	opts := d.opts[0]
	if opts.Target.URL != testTarget.URL || opts.Credentials.Username != "scratch" {
		t.Errorf("dial options = %+v", opts)
	}

	info, ok := m.Session()
	if !ok || info.ID == "" || info.ID != m.SessionID() {
		t.Errorf("Session() = %+v, %v", info, ok)
	}
}

func TestManager_ConnectEventDuringDial(t *testing.T) {
	d := &fakeDialer{
		onDial: func(emit func(Event)) { emit(ConnectEvent{}) },
	}
	m, rec := newTestManager(t, d)

	if err := m.Connect(testTarget, Credentials{}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if !m.IsConnected() {
		t.Fatalf("State() = %v, want connected", m.State())
	}
	want := []State{StateDisconnected, StateConnecting, StateConnected}
	if got := rec.path(); !statesEqual(got, want) {
		t.Errorf("transitions = %v, want %v", got, want)
	}
}

func TestManager_TransportUnavailable(t *testing.T) {
	m := NewManager(testConfig(), nil)

	for i := 0; i < 2; i++ {
		err := m.Connect(testTarget, Credentials{})
		if !errors.Is(err, ErrTransportUnavailable) {
			t.Fatalf("Connect() #%d error = %v, want ErrTransportUnavailable", i+1, err)
		}
	}

	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
	if err := m.HealthCheck(context.Background()); !errors.Is(err, ErrTransportUnavailable) {
		t.Errorf("HealthCheck() error = %v, want ErrTransportUnavailable", err)
	}
}

func TestManager_InvalidTarget(t *testing.T) {
	urls := []string{"", "   ", "ftp://myserver", "wss://", "://nope"}

	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			d := &fakeDialer{}
			m, _ := newTestManager(t, d)

			err := m.Connect(Target{URL: u}, Credentials{})
			if !errors.Is(err, ErrInvalidTarget) {
				t.Errorf("Connect(%q) error = %v, want ErrInvalidTarget", u, err)
			}
			if d.dialCount() != 0 {
				t.Error("dialer was called for an invalid target")
			}
		})
	}
}

func TestManager_DialError(t *testing.T) {
	dialErr := errors.New("boom")
	d := &fakeDialer{err: dialErr}
	m, rec := newTestManager(t, d)

	err := m.Connect(testTarget, Credentials{})
	if !errors.Is(err, dialErr) {
		t.Fatalf("Connect() error = %v, want %v", err, dialErr)
	}

	want := []State{StateDisconnected, StateConnecting, StateDisconnected}
	if got := rec.path(); !statesEqual(got, want) {
		t.Errorf("transitions = %v, want %v", got, want)
	}
}

func TestManager_ErrorEventReleasesHandle(t *testing.T) {
	m, d := connectedManager(t)

	d.emit(0, ErrorEvent{Err: errors.New("broker refused")})

	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
	if got := d.conn(0).closeCount(); got != 1 {
		t.Errorf("conn closed %d times, want 1", got)
	}

	// No automatic retry and no resurrection by late events.
	d.emit(0, ConnectEvent{})
	if m.State() != StateDisconnected {
		t.Errorf("State() after late ConnectEvent = %v, want disconnected", m.State())
	}
	if d.dialCount() != 1 {
		t.Errorf("dialCount = %d, want 1", d.dialCount())
	}
}

func TestManager_ErrorWhileConnecting(t *testing.T) {
	d := &fakeDialer{}
	m, rec := newTestManager(t, d)

	if err := m.Connect(testTarget, Credentials{}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	d.emit(0, ErrorEvent{Err: ErrConnectionFailed})

	want := []State{StateDisconnected, StateConnecting, StateDisconnected}
	if got := rec.path(); !statesEqual(got, want) {
		t.Errorf("transitions = %v, want %v", got, want)
	}
}

func TestManager_CloseEvent(t *testing.T) {
	m, d := connectedManager(t)

	var got []string
	m.OnMessage(func(topic string, _ []byte) { got = append(got, topic) })

	d.emit(0, CloseEvent{})
	d.emit(0, MessageEvent{Topic: "zigbee2mqtt/lamp-01", Payload: []byte(`{}`)})

	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
	if len(got) != 0 {
		t.Errorf("message delivered after close: %v", got)
	}
}

func TestManager_Reconnect(t *testing.T) {
	d := &fakeDialer{}
	m, rec := newTestManager(t, d)
	if err := m.Connect(testTarget, Credentials{}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	d.emit(0, ConnectEvent{})
	d.emit(0, ReconnectEvent{})
	if m.State() != StateReconnecting {
		t.Errorf("State() = %v, want reconnecting", m.State())
	}
	if m.IsConnected() {
		t.Error("IsConnected() = true while reconnecting")
	}

	d.emit(0, ReconnectEvent{})
	d.emit(0, ConnectEvent{})

	want := []State{StateDisconnected, StateConnecting, StateConnected, StateReconnecting, StateConnected}
	if got := rec.path(); !statesEqual(got, want) {
		t.Errorf("transitions = %v, want %v", got, want)
	}

	info, _ := m.Session()
	if info.Reconnects != 0 {
		t.Errorf("Reconnects = %d after reconnect succeeded, want 0", info.Reconnects)
	}
}

func TestManager_MaxReconnectAttempts(t *testing.T) {
	cfg := testConfig()
	cfg.Reconnect.MaxAttempts = 2
	d := &fakeDialer{}
	m := NewManager(cfg, d)

	if err := m.Connect(testTarget, Credentials{}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	d.emit(0, ConnectEvent{})

	d.emit(0, ReconnectEvent{})
	d.emit(0, ReconnectEvent{})
	if m.State() != StateReconnecting {
		t.Fatalf("State() = %v, want reconnecting", m.State())
	}

	d.emit(0, ReconnectEvent{})
	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
	if got := d.conn(0).closeCount(); got != 1 {
		t.Errorf("conn closed %d times, want 1", got)
	}
}

func TestManager_ConnectReplacesSession(t *testing.T) {
	m, d := connectedManager(t)
	firstID := m.SessionID()

	if err := m.Connect(Target{URL: "tcp://127.0.0.1:1883"}, Credentials{}); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}

	if got := d.conn(0).closeCount(); got != 1 {
		t.Errorf("old conn closed %d times, want 1", got)
	}
	if m.SessionID() == firstID {
		t.Error("second Connect() reused the session ID")
	}
	if m.State() != StateConnecting {
		t.Errorf("State() = %v, want connecting", m.State())
	}

	// Events from the superseded connection are ignored.
	d.emit(0, ConnectEvent{})
	if m.State() != StateConnecting {
		t.Errorf("State() after stale event = %v, want connecting", m.State())
	}

	d.emit(1, ConnectEvent{})
	if !m.IsConnected() {
		t.Errorf("State() = %v, want connected", m.State())
	}
}

func TestManager_Disconnect(t *testing.T) {
	m, d := connectedManager(t)

	called := 0
	m.Disconnect(func() { called++ })

	if m.State() != StateClosed {
		t.Errorf("State() = %v, want closed", m.State())
	}
	if called != 1 {
		t.Errorf("done called %d times, want 1", called)
	}
	if got := d.conn(0).closeCount(); got != 1 {
		t.Errorf("conn closed %d times, want 1", got)
	}

	// Closed is terminal; a second disconnect only completes.
	m.Disconnect(func() { called++ })
	if called != 2 {
		t.Errorf("done called %d times, want 2", called)
	}

	d.emit(0, ConnectEvent{})
	if m.State() != StateClosed {
		t.Errorf("State() after late event = %v, want closed", m.State())
	}
}

func TestManager_DisconnectWithoutSession(t *testing.T) {
	m := NewManager(testConfig(), &fakeDialer{})

	done := false
	m.Disconnect(func() { done = true })
	if !done {
		t.Error("done not called")
	}
	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
}

func TestManager_DisconnectDuringConnect(t *testing.T) {
	tests := []struct {
		name   string
		onDial func(emit func(Event))
	}{
		{name: "no events"},
		{name: "connect event queued", onDial: func(emit func(Event)) { emit(ConnectEvent{}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDialer{
				onDial:  tt.onDial,
				started: make(chan struct{}),
				release: make(chan struct{}),
			}
			m, rec := newTestManager(t, d)

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := m.Connect(testTarget, Credentials{}); err != nil {
					t.Errorf("Connect() error = %v", err)
				}
			}()

			<-d.started
			closed := make(chan struct{})
			m.Disconnect(func() { close(closed) })
			<-closed

			close(d.release)
			wg.Wait()

			if m.State() != StateClosed {
				t.Errorf("State() = %v, want closed", m.State())
			}
			if got := d.conn(0).closeCount(); got != 1 {
				t.Errorf("late conn closed %d times, want 1", got)
			}

			d.emit(0, ConnectEvent{})
			want := []State{StateDisconnected, StateConnecting, StateClosed}
			if got := rec.path(); !statesEqual(got, want) {
				t.Errorf("transitions = %v, want %v", got, want)
			}
		})
	}
}

func TestManager_ConnectAfterClose(t *testing.T) {
	m, d := connectedManager(t)
	m.Disconnect(nil)

	if err := m.Connect(testTarget, Credentials{}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	d.emit(1, ConnectEvent{})

	if !m.IsConnected() {
		t.Errorf("State() = %v, want connected", m.State())
	}
}

func TestManager_MessageForwarding(t *testing.T) {
	d := &fakeDialer{}
	m, _ := newTestManager(t, d)

	type msg struct {
		topic   string
		payload string
	}
	var got []msg
	m.OnMessage(func(topic string, payload []byte) {
		got = append(got, msg{topic, string(payload)})
	})

	if err := m.Connect(testTarget, Credentials{}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	// Not yet connected: dropped.
	d.emit(0, MessageEvent{Topic: "early", Payload: []byte("x")})

	d.emit(0, ConnectEvent{})
	d.emit(0, MessageEvent{Topic: "zigbee2mqtt/lamp-01", Payload: []byte(`{"state":"ON"}`)})

	if len(got) != 1 {
		t.Fatalf("delivered %d messages, want 1: %v", len(got), got)
	}
	if got[0].topic != "zigbee2mqtt/lamp-01" || got[0].payload != `{"state":"ON"}` {
		t.Errorf("delivered %+v", got[0])
	}
}

func TestManager_MessageWithoutObserver(t *testing.T) {
	_, d := connectedManager(t)

	// Must not panic.
	d.emit(0, MessageEvent{Topic: "zigbee2mqtt/lamp-01", Payload: []byte("{}")})
}

func TestManager_ObserverPanicRecovered(t *testing.T) {
	m, d := connectedManager(t)

	delivered := false
	m.OnMessage(func(string, []byte) { panic("observer bug") })
	m.OnMessage(func(string, []byte) { delivered = true })

	d.emit(0, MessageEvent{Topic: "t", Payload: nil})

	if !delivered {
		t.Error("second observer not called after first panicked")
	}
}

func TestManager_IllegalTransitionRefused(t *testing.T) {
	m := NewManager(testConfig(), &fakeDialer{})
	s := &session{id: "s-1", state: StateDisconnected}

	m.mu.Lock()
	applied := m.setState(s, StateConnected)
	m.mu.Unlock()

	if applied {
		t.Error("setState(disconnected -> connected) applied, want refused")
	}
	if s.state != StateDisconnected {
		t.Errorf("state = %v, want disconnected", s.state)
	}
}

func TestManager_HealthCheck(t *testing.T) {
	m, _ := connectedManager(t)

	if err := m.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}

	m.Disconnect(nil)
	if err := m.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestManager_Close(t *testing.T) {
	m, _ := connectedManager(t)

	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if m.State() != StateClosed {
		t.Errorf("State() = %v, want closed", m.State())
	}
}
