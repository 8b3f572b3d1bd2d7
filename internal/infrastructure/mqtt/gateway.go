package mqtt

import "fmt"

// Outcome is the asynchronous result of a publish or subscribe.
type Outcome struct {
	Op    Op
	Topic string

	// Err is nil on success, otherwise an *OpError.
	Err error
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// OutcomeFunc receives the outcome of one operation. It may be nil.
type OutcomeFunc func(Outcome)

// Gateway issues publish and subscribe requests over the manager's active
// session. It holds no subscription table and never retries.
type Gateway struct {
	manager *Manager
	qos     byte
}

// NewGateway creates a gateway publishing and subscribing at qos.
func NewGateway(manager *Manager, qos int) (*Gateway, error) {
	if qos < 0 || qos > maxQoS {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQoS, qos)
	}
	return &Gateway{manager: manager, qos: byte(qos)}, nil
}

// QoS returns the quality of service used for every operation.
func (g *Gateway) QoS() byte {
	return g.qos
}

// complete wraps a transport result into an Outcome and reports it.
func (g *Gateway) complete(op Op, topic string, cb OutcomeFunc, err error) {
	out := Outcome{Op: op, Topic: topic}
	if err != nil {
		out.Err = &OpError{Op: op, Topic: topic, Err: err}
		g.manager.getLogger().Warn("mqtt operation failed", "op", string(op), "topic", topic, "error", err)
	}
	if cb != nil {
		cb(out)
	}
}
