package command

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pbel78/scratch2/internal/bridges/zigbee"
	"github.com/pbel78/scratch2/internal/infrastructure/mqtt"
)

// recordTimeout bounds a single Recorder call.
const recordTimeout = 5 * time.Second

// Session is the part of the session manager the dispatcher drives.
type Session interface {
	Connect(target mqtt.Target, creds mqtt.Credentials) error
	Disconnect(done func())
	SessionID() string
}

// Publisher issues publish and subscribe requests over the active session.
type Publisher interface {
	Publish(topic string, payload []byte, cb mqtt.OutcomeFunc) error
	Subscribe(filter string, cb mqtt.OutcomeFunc) error
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Stats holds dispatcher counters.
type Stats struct {
	CommandsSent       uint64 `json:"commands_sent"`
	CommandsFailed     uint64 `json:"commands_failed"`
	MessagesReceived   uint64 `json:"messages_received"`
	TransitionsPending int    `json:"transitions_pending"`
}

// Dispatcher builds and publishes lamp commands.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Dispatcher struct {
	session Session
	gateway Publisher
	topics  zigbee.Topics

	mu          sync.Mutex
	recorders   []Recorder
	observers   []TransitionObserver
	transitions map[uint64]*time.Timer
	nextTimer   uint64
	closed      bool

	sent     atomic.Uint64
	failed   atomic.Uint64
	received atomic.Uint64

	logger   Logger
	loggerMu sync.RWMutex

	now func() time.Time
}

// New creates a dispatcher over an explicitly owned session and gateway.
func New(session Session, gateway Publisher, topics zigbee.Topics) *Dispatcher {
	return &Dispatcher{
		session:     session,
		gateway:     gateway,
		topics:      topics,
		transitions: make(map[uint64]*time.Timer),
		now:         time.Now,
	}
}

// SetLogger sets the logger for command logging.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.loggerMu.Lock()
	d.logger = logger
	d.loggerMu.Unlock()
}

// AddRecorder registers a recorder for every dispatched command.
func (d *Dispatcher) AddRecorder(r Recorder) {
	if r == nil {
		return
	}
	d.mu.Lock()
	d.recorders = append(d.recorders, r)
	d.mu.Unlock()
}

// OnTransitionSettled registers a transition observer.
func (d *Dispatcher) OnTransitionSettled(observer TransitionObserver) {
	if observer == nil {
		return
	}
	d.mu.Lock()
	d.observers = append(d.observers, observer)
	d.mu.Unlock()
}

// Connect starts a new broker session. Completion is observed through the
// session's state, not this call.
func (d *Dispatcher) Connect(target mqtt.Target, creds mqtt.Credentials) error {
	return d.session.Connect(target, creds)
}

// Disconnect closes the broker session; done runs once it is closed.
func (d *Dispatcher) Disconnect(done func()) {
	d.session.Disconnect(done)
}

// PowerOn switches a lamp on.
func (d *Dispatcher) PowerOn(deviceID string, transitionSeconds float64) Result {
	return d.Dispatch(Command{DeviceID: deviceID, Action: ActionPowerOn, TransitionSeconds: transitionSeconds})
}

// PowerOff switches a lamp off.
func (d *Dispatcher) PowerOff(deviceID string, transitionSeconds float64) Result {
	return d.Dispatch(Command{DeviceID: deviceID, Action: ActionPowerOff, TransitionSeconds: transitionSeconds})
}

// SetBrightness sends a brightness base state such as {"brightness":128}.
func (d *Dispatcher) SetBrightness(deviceID, state string, transitionSeconds float64) Result {
	return d.Dispatch(Command{
		DeviceID:          deviceID,
		Action:            ActionSetBrightness,
		Parameter:         state,
		TransitionSeconds: transitionSeconds,
	})
}

// SetColor sends a color base state such as {"color":{"r":255,"g":0,"b":0}}.
func (d *Dispatcher) SetColor(deviceID, state string, transitionSeconds float64) Result {
	return d.Dispatch(Command{
		DeviceID:          deviceID,
		Action:            ActionSetColor,
		Parameter:         state,
		TransitionSeconds: transitionSeconds,
	})
}

// Dispatch validates cmd, builds its topic and payload, and publishes it.
//
// The call never waits for the broker or for the transition. Exactly one
// publish is issued for a valid command while connected, none otherwise.
func (d *Dispatcher) Dispatch(cmd Command) Result {
	if cmd.ID == "" {
		cmd.ID = newCommandID()
	}
	res := Result{CommandID: cmd.ID, Action: cmd.Action, DeviceID: cmd.DeviceID}

	if err := cmd.Validate(); err != nil {
		return d.reject(res, cmd.Source, err)
	}

	base, err := baseState(cmd)
	if err != nil {
		return d.reject(res, cmd.Source, err)
	}

	topic, err := d.topics.Command(cmd.DeviceID)
	if err != nil {
		return d.reject(res, cmd.Source, err)
	}
	res.Topic = topic

	payload, err := zigbee.BuildPayload(base, cmd.TransitionSeconds)
	if err != nil {
		return d.reject(res, cmd.Source, err)
	}
	res.Payload = payload

	return d.publish(res, cmd.Source, cmd.TransitionSeconds)
}

// baseState picks the base object for the command's action.
func baseState(cmd Command) (string, error) {
	switch cmd.Action {
	case ActionPowerOn:
		return zigbee.StateOn, nil
	case ActionPowerOff:
		return zigbee.StateOff, nil
	case ActionSetBrightness:
		return cmd.Parameter, zigbee.ValidateBrightnessState(cmd.Parameter)
	case ActionSetColor:
		return cmd.Parameter, zigbee.ValidateColorState(cmd.Parameter)
	default:
		return "", ErrInvalidCommand
	}
}

// Send publishes a raw message to topic.
func (d *Dispatcher) Send(topic, message string) Result {
	res := Result{CommandID: newCommandID(), Action: ActionPublish, Topic: topic, Payload: message}
	return d.publish(res, "", 0)
}

// Subscribe asks the broker for messages on filter. Delivered messages reach
// the session manager's message observers.
func (d *Dispatcher) Subscribe(filter string) Result {
	res := Result{CommandID: newCommandID(), Action: ActionSubscribe, Topic: filter}

	outcome := make(chan mqtt.Outcome, 1)
	sessionID := d.session.SessionID()
	err := d.gateway.Subscribe(filter, func(o mqtt.Outcome) {
		d.settle(res, "", sessionID, 0, o)
		outcome <- o
	})
	if err != nil {
		return d.reject(res, "", err)
	}

	res.Status = StatusSent
	res.Outcome = outcome
	return res
}

// ObserveMessage counts and logs an inbound message. Register it with the
// session manager's OnMessage.
func (d *Dispatcher) ObserveMessage(topic string, payload []byte) {
	d.received.Add(1)
	d.logDebug("message received", "topic", topic, "bytes", len(payload))
}

// publish hands a built message to the gateway.
func (d *Dispatcher) publish(res Result, source string, transition float64) Result {
	outcome := make(chan mqtt.Outcome, 1)
	sessionID := d.session.SessionID()

	err := d.gateway.Publish(res.Topic, []byte(res.Payload), func(o mqtt.Outcome) {
		d.settle(res, source, sessionID, transition, o)
		outcome <- o
	})
	if err != nil {
		return d.reject(res, source, err)
	}

	d.sent.Add(1)
	d.logInfo("command sent",
		"command_id", res.CommandID,
		"action", string(res.Action),
		"topic", res.Topic,
	)

	res.Status = StatusSent
	res.Outcome = outcome
	return res
}

// reject converts a synchronous failure into an Error result.
func (d *Dispatcher) reject(res Result, source string, err error) Result {
	d.failed.Add(1)
	d.logWarn("command rejected",
		"command_id", res.CommandID,
		"action", string(res.Action),
		"device_id", res.DeviceID,
		"error", err,
	)

	res.Status = StatusError
	res.Err = err
	d.record(res, source, d.session.SessionID())
	return res
}

// settle handles the broker's outcome for an issued request.
func (d *Dispatcher) settle(res Result, source, sessionID string, transition float64, o mqtt.Outcome) {
	if o.OK() {
		res.Status = StatusSent
		if transition > 0 && res.Action.IsDeviceAction() {
			d.scheduleTransition(res, transition)
		}
	} else {
		d.failed.Add(1)
		res.Status = StatusError
		res.Err = o.Err
	}
	d.record(res, source, sessionID)
}

// scheduleTransition arms a one-shot timer for the transition notification.
func (d *Dispatcher) scheduleTransition(res Result, seconds float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	// Timers are keyed per dispatch; caller-supplied command IDs may repeat.
	d.nextTimer++
	key := d.nextTimer
	delay := time.Duration(seconds * float64(time.Second))
	d.transitions[key] = time.AfterFunc(delay, func() {
		d.mu.Lock()
		if _, ok := d.transitions[key]; !ok {
			d.mu.Unlock()
			return
		}
		delete(d.transitions, key)
		observers := append([]TransitionObserver(nil), d.observers...)
		d.mu.Unlock()

		settled := TransitionSettled{
			CommandID: res.CommandID,
			DeviceID:  res.DeviceID,
			Action:    res.Action,
			Seconds:   seconds,
			At:        d.now(),
		}
		for _, observer := range observers {
			observer(settled)
		}
	})
}

// record passes the final result to every recorder.
func (d *Dispatcher) record(res Result, source, sessionID string) {
	d.mu.Lock()
	recorders := append([]Recorder(nil), d.recorders...)
	d.mu.Unlock()
	if len(recorders) == 0 {
		return
	}

	rec := Record{
		CommandID: res.CommandID,
		SessionID: sessionID,
		Action:    res.Action,
		DeviceID:  res.DeviceID,
		Topic:     res.Topic,
		Payload:   res.Payload,
		Status:    res.Status,
		Source:    source,
		At:        d.now().UTC(),
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	for _, r := range recorders {
		if err := r.RecordCommand(ctx, rec); err != nil {
			d.logError("recording command failed", "command_id", rec.CommandID, "error", err)
		}
	}
}

// Stats returns current counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	pending := len(d.transitions)
	d.mu.Unlock()

	return Stats{
		CommandsSent:       d.sent.Load(),
		CommandsFailed:     d.failed.Load(),
		MessagesReceived:   d.received.Load(),
		TransitionsPending: pending,
	}
}

// Close stops pending transition timers. Commands can still be dispatched
// but no further transition notifications fire.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for key, t := range d.transitions {
		t.Stop()
		delete(d.transitions, key)
	}
}

func (d *Dispatcher) getLogger() Logger {
	d.loggerMu.RLock()
	defer d.loggerMu.RUnlock()
	return d.logger
}

func (d *Dispatcher) logDebug(msg string, args ...any) {
	if l := d.getLogger(); l != nil {
		l.Debug(msg, args...)
	}
}

func (d *Dispatcher) logInfo(msg string, args ...any) {
	if l := d.getLogger(); l != nil {
		l.Info(msg, args...)
	}
}

func (d *Dispatcher) logWarn(msg string, args ...any) {
	if l := d.getLogger(); l != nil {
		l.Warn(msg, args...)
	}
}

func (d *Dispatcher) logError(msg string, args ...any) {
	if l := d.getLogger(); l != nil {
		l.Error(msg, args...)
	}
}
