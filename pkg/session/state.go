package session

// State is a session lifecycle state.
type State uint8

const (
	// StateInit is the state before a transport is attached.
	StateInit State = iota

	// StateTCPConnected indicates a connected transport, no handshake yet.
	StateTCPConnected

	// StateHandshaking indicates the handshake is in progress.
	StateHandshaking

	// StateEstablished indicates application data may flow.
	StateEstablished

	// StateClosing indicates close-notify is being sent.
	StateClosing

	// StateClosed is terminal after an orderly close.
	StateClosed

	// StateFailed is terminal after an unrecoverable error.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateTCPConnected:
		return "TCP_CONNECTED"
	case StateHandshaking:
		return "HANDSHAKING"
	case StateEstablished:
		return "ESTABLISHED"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}
