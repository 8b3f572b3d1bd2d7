package command

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/pbel78/scratch2/internal/bridges/zigbee"
	"github.com/pbel78/scratch2/internal/infrastructure/mqtt"
)

// Action identifies what a command does.
type Action string

// Device actions.
const (
	ActionPowerOn       Action = "power-on"
	ActionPowerOff      Action = "power-off"
	ActionSetBrightness Action = "set-brightness"
	ActionSetColor      Action = "set-color"
)

// Raw relay actions. They appear in results and history but are not valid
// in a Command.
const (
	ActionPublish   Action = "publish"
	ActionSubscribe Action = "subscribe"
)

// IsDeviceAction reports whether a is one of the four lamp actions.
func (a Action) IsDeviceAction() bool {
	switch a {
	case ActionPowerOn, ActionPowerOff, ActionSetBrightness, ActionSetColor:
		return true
	default:
		return false
	}
}

// needsParameter reports whether the action takes a caller-supplied base state.
func (a Action) needsParameter() bool {
	return a == ActionSetBrightness || a == ActionSetColor
}

// Command is one lamp command. It is consumed immediately and never stored.
type Command struct {
	// ID correlates the command with its result; generated when empty.
	ID string `json:"id,omitempty"`

	// DeviceID is the zigbee2mqtt friendly name of a lamp or group.
	DeviceID string `json:"device_id"`

	Action Action `json:"action"`

	// Parameter is the serialized base state for set-brightness and
	// set-color, e.g. {"brightness":128}. Empty for power actions.
	Parameter string `json:"parameter,omitempty"`

	// TransitionSeconds is the fade time; 0 means immediate.
	TransitionSeconds float64 `json:"transition_seconds"`

	// Source names the command source (api, cli) for history.
	Source string `json:"source,omitempty"`
}

// Validate checks the command's shape. Payload content is checked by the codec.
func (c Command) Validate() error {
	if !c.Action.IsDeviceAction() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, c.Action)
	}
	if c.DeviceID == "" {
		return fmt.Errorf("%w: device id is required", ErrInvalidCommand)
	}
	if c.Action.needsParameter() && c.Parameter == "" {
		return fmt.Errorf("%w: %s requires a parameter", ErrInvalidCommand, c.Action)
	}
	if !c.Action.needsParameter() && c.Parameter != "" {
		return fmt.Errorf("%w: %s takes no parameter", ErrInvalidCommand, c.Action)
	}
	if math.IsNaN(c.TransitionSeconds) || math.IsInf(c.TransitionSeconds, 0) || c.TransitionSeconds < 0 {
		return fmt.Errorf("%w: transition must be a non-negative number of seconds", ErrInvalidCommand)
	}
	if c.TransitionSeconds > zigbee.MaxTransitionSeconds {
		return fmt.Errorf("%w: transition exceeds %v seconds", ErrInvalidCommand, zigbee.MaxTransitionSeconds)
	}
	return nil
}

// newCommandID generates a short correlation ID.
func newCommandID() string {
	return "cmd-" + uuid.NewString()[:8]
}

// Status is the short token returned to command sources.
type Status string

// Result statuses.
const (
	StatusSent  Status = "Sent"
	StatusError Status = "Error"
)

// Result describes what happened to one command or raw relay request.
type Result struct {
	Status    Status
	CommandID string
	Action    Action
	DeviceID  string
	Topic     string
	Payload   string
	Err       error

	// Outcome delivers the broker's verdict exactly once. It is nil when
	// Status is StatusError.
	Outcome <-chan mqtt.Outcome
}

// OK reports whether the result is StatusSent.
func (r Result) OK() bool {
	return r.Status == StatusSent
}

// Await waits up to timeout for the outcome and folds it into the result.
// A failed outcome turns the status into StatusError. When the timeout
// elapses first the result is returned unchanged.
func (r Result) Await(timeout time.Duration) Result {
	if r.Outcome == nil {
		return r
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case o := <-r.Outcome:
		r.Outcome = nil
		if !o.OK() {
			r.Status = StatusError
			r.Err = o.Err
		}
	case <-timer.C:
	}
	return r
}

// TransitionSettled is delivered when a command's transition time has
// elapsed after a successful publish.
type TransitionSettled struct {
	CommandID string
	DeviceID  string
	Action    Action
	Seconds   float64
	At        time.Time
}

// TransitionObserver is notified of settled transitions. It runs on a timer
// goroutine.
type TransitionObserver func(TransitionSettled)
