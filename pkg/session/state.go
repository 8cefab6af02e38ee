// Package session implements the stateful login/handshake sequence against
// the alerting service and the supervisor that keeps the session alive
// forever with bounded exponential backoff.
package session

// State is the handshake state of one connection attempt. State is owned by a
// single supervisor iteration and discarded in full when the session ends; it
// is never reused across reconnect attempts.
type State int

const (
	// StateNotConnected is the initial state before credentials are sent.
	StateNotConnected State = iota
	// StateLoggingIn is entered after the username has been written.
	StateLoggingIn
	// StateAwaitingGreeting waits for the service greeting line.
	StateAwaitingGreeting
	// StateAwaitingJSONAck waits for the command prompt, then for the
	// confirmation that structured-output mode is active.
	StateAwaitingJSONAck
	// StateReady is the terminal success state: records may flow.
	StateReady
	// StateFailed is the terminal failure state.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNotConnected:
		return "not_connected"
	case StateLoggingIn:
		return "logging_in"
	case StateAwaitingGreeting:
		return "awaiting_greeting"
	case StateAwaitingJSONAck:
		return "awaiting_json_ack"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
