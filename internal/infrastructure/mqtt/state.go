package mqtt

import (
	"fmt"
	"time"
)

// State is the lifecycle state of a session.
type State int

// Session states. Disconnected is the zero value.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

// String returns the state name used in logs and API responses.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// transitions lists the allowed successors of each state. Closed has none.
var transitions = map[State][]State{
	StateDisconnected: {StateConnecting, StateClosed},
	StateConnecting:   {StateConnected, StateReconnecting, StateDisconnected, StateClosed},
	StateConnected:    {StateReconnecting, StateDisconnected, StateClosed},
	StateReconnecting: {StateConnected, StateDisconnected, StateClosed},
}

// CanTransition reports whether a session may move from one state to another.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StateChange is delivered to state observers after every applied transition.
type StateChange struct {
	SessionID string
	From      State
	To        State
	At        time.Time
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateDisconnected; st <= StateClosed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("mqtt: unknown state %q", text)
}
