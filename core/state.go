package core

// State is the application state of the duty cycle.
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StateWaitTx
	StateSleep
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateWaitTx:
		return "wait_tx"
	case StateSleep:
		return "sleep"
	default:
		return "unknown"
	}
}
