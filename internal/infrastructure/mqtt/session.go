package mqtt

import "time"

// session is one connection instance. A new one is created for every connect
// request; a session never returns from Closed.
type session struct {
	id          string
	target      Target
	credentials Credentials
	clientID    string

	state State
	conn  Conn

	// dialing is true until Dial returns; events that arrive earlier are
	// queued in pending and replayed in order.
	dialing bool
	pending []Event

	// closing is set by Disconnect or when a newer session supersedes this
	// one. released is set when an error or close event tore the handle down.
	// Events for a closing or released session are ignored.
	closing  bool
	released bool

	reconnects  int
	createdAt   time.Time
	connectedAt time.Time
}

func (s *session) active() bool {
	return !s.closing && !s.released
}

// SessionInfo is a read-only snapshot of the current session.
type SessionInfo struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Username    string    `json:"username,omitempty"`
	ClientID    string    `json:"client_id"`
	State       State     `json:"state"`
	Reconnects  int       `json:"reconnects"`
	CreatedAt   time.Time `json:"created_at"`
	ConnectedAt time.Time `json:"connected_at,omitzero"`
}

func (s *session) info() SessionInfo {
	return SessionInfo{
		ID:          s.id,
		URL:         s.target.URL,
		Username:    s.credentials.Username,
		ClientID:    s.clientID,
		State:       s.state,
		Reconnects:  s.reconnects,
		CreatedAt:   s.createdAt,
		ConnectedAt: s.connectedAt,
	}
}
