package stream

// ConnState is the externally observable connection state. It is owned
// exclusively by the Client; every other component reads it through the
// Client and never writes it.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateError
)

// String returns the wire/API name of the state.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so ConnState serializes as
// its name in JSON API responses.
func (s ConnState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
