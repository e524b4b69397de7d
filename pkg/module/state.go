package module

// State represents the lifecycle state of a managed module.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateStopped
	StateError
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}
