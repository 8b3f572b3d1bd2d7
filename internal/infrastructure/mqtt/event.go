package mqtt

// Event is a transport notification delivered to the session manager.
//
// The set of variants is closed: ConnectEvent, ErrorEvent, CloseEvent,
// ReconnectEvent and MessageEvent.
type Event interface {
	event()
}

// ConnectEvent reports that the broker acknowledged the connection.
type ConnectEvent struct{}

// ErrorEvent reports a transport failure. The manager tears the handle down
// and does not retry.
type ErrorEvent struct {
	Err error
}

// CloseEvent reports that the connection ended. It is terminal for the
// connection instance; no further events follow it.
type CloseEvent struct {
	Err error
}

// ReconnectEvent reports that the transport is attempting to re-establish a
// dropped connection.
type ReconnectEvent struct{}

// MessageEvent carries an inbound publish. It is only emitted after the
// ConnectEvent of the same connection instance.
type MessageEvent struct {
	Topic   string
	Payload []byte
}

func (ConnectEvent) event()   {}
func (ErrorEvent) event()     {}
func (CloseEvent) event()     {}
func (ReconnectEvent) event() {}
func (MessageEvent) event()   {}
