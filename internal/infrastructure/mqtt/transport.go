package mqtt

import "time"

// Target identifies the broker a session connects to.
type Target struct {
	// URL is the broker address, e.g. "wss://myserver:8883" or "tcp://127.0.0.1:1883".
	URL string

	// SkipVerify disables TLS certificate verification for this connection.
	SkipVerify bool
}

// Credentials are optional broker login details.
type Credentials struct {
	Username string
	Password string
}

// ConnectOptions is everything a Dialer needs for one connection instance.
type ConnectOptions struct {
	Target      Target
	Credentials Credentials
	ClientID    string

	ConnectTimeout time.Duration
	KeepAlive      time.Duration

	// AutoReconnect lets the transport retry a dropped connection on its own,
	// reporting each attempt as a ReconnectEvent.
	AutoReconnect        bool
	MaxReconnectInterval time.Duration
}

// Dialer opens transport connections. It is the seam that lets tests replace
// the MQTT library.
//
// Dial must return without waiting for the broker. The outcome of the
// connection attempt is reported through emit as a ConnectEvent or
// ErrorEvent. emit may be called before Dial returns.
type Dialer interface {
	Dial(opts ConnectOptions, emit func(Event)) (Conn, error)
}

// Conn is a live transport handle. It is owned exclusively by the Manager.
//
// Completion callbacks may run on any goroutine, including synchronously
// inside the call.
type Conn interface {
	Publish(topic string, qos byte, payload []byte, done func(error))
	Subscribe(topic string, qos byte, done func(error))
	Close(done func())
}
