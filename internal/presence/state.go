package presence

// State is the connection state of a Publisher's transport handle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateRetrying
	StateReady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateRetrying:
		return "retrying"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}
