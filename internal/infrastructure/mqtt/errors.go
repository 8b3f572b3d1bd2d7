package mqtt

import (
	"errors"
	"fmt"
)

// Domain-specific errors for MQTT operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrTransportUnavailable is returned when the MQTT transport could not be
	// initialised. It is latched: every session operation fails with it until
	// the process restarts.
	ErrTransportUnavailable = errors.New("mqtt: transport unavailable")

	// ErrNotConnected is returned when publish or subscribe is attempted
	// outside the Connected state. Nothing reaches the wire on this path.
	ErrNotConnected = errors.New("mqtt: session not connected")

	// ErrInvalidTarget is returned when a connect request names a broker URL
	// that cannot be dialled (unparseable, no host, or unsupported scheme).
	ErrInvalidTarget = errors.New("mqtt: invalid connection target")

	// ErrConnectionFailed is reported through an ErrorEvent when the broker
	// refuses or never acknowledges a connection attempt.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed matches publish outcomes the broker or transport rejected.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed matches subscribe outcomes the broker or transport rejected.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidQoS is returned when an invalid QoS level is specified.
	// Valid QoS levels are 0, 1, or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for an empty topic, a wildcard in a publish
	// topic, or a malformed subscription filter.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrPayloadTooLarge is returned when a payload exceeds maxPayloadSize.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")

	// ErrTimeout is reported when the transport does not acknowledge an
	// operation in time.
	ErrTimeout = errors.New("mqtt: operation timed out")
)

// Op names the gateway operation an outcome belongs to.
type Op string

// Gateway operations.
const (
	OpPublish   Op = "publish"
	OpSubscribe Op = "subscribe"
)

// OpError describes a failed publish or subscribe. It matches ErrPublishFailed
// or ErrSubscribeFailed via errors.Is depending on Op, and unwraps to the
// transport's cause.
type OpError struct {
	Op    Op
	Topic string
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("mqtt: %s to %q failed: %v", e.Op, e.Topic, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this operation.
func (e *OpError) Is(target error) bool {
	switch e.Op {
	case OpPublish:
		return target == ErrPublishFailed
	case OpSubscribe:
		return target == ErrSubscribeFailed
	default:
		return false
	}
}
