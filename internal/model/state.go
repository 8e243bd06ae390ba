package model

// State is the lifecycle state of a crawl run.
//
//	Idle -> Running -> Completed
//	Idle -> Aborted
type State int

const (
	// StateIdle is the state before the configuration has been validated.
	StateIdle State = iota

	// StateRunning is the state while workers are processing the frontier.
	StateRunning

	// StateCompleted is reached when the frontier drained, the page budget
	// was reached, or the run was cancelled.
	StateCompleted

	// StateAborted is reached only on an unrecoverable failure before any
	// fetch began (invalid configuration or storage initialization).
	StateAborted
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so that JSON reports carry
// the state name rather than its integer value.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StopReason explains why a completed run stopped.
type StopReason string

const (
	// StopDrained means the frontier was empty with no work in flight.
	StopDrained StopReason = "drained"

	// StopBudget means the page budget was reached.
	StopBudget StopReason = "budget"

	// StopCancelled means the run context was cancelled or timed out.
	StopCancelled StopReason = "cancelled"
)
