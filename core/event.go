package core

// EventKind identifies what happened. The set is closed; Machine.Handle
// switches over it exhaustively.
type EventKind uint8

const (
	EventStartUp EventKind = iota
	EventTimerTick
	EventHardwareComplete
	EventOrderKick
	EventTransmitComplete
	EventNewState
)

// WakeReason tells a StartUp handler how the device came out of reset.
type WakeReason uint8

const (
	// ColdStart is a full power-on or reset: nothing survived.
	ColdStart WakeReason = iota
	// WarmRamHeldWake is a wake timer firing while RAM was retained.
	WarmRamHeldWake
)

// SourceID identifies the hardware block reporting completion.
type SourceID uint8

const (
	SourceTickTimer SourceID = iota
	SourceADC
	SourcePressure
)

// Event is one logical occurrence delivered to the state machine.
// Only the payload field matching Kind is meaningful.
type Event struct {
	Kind   EventKind
	Wake   WakeReason // EventStartUp
	Source SourceID   // EventHardwareComplete
	TxID   uint8      // EventTransmitComplete
	TxOK   bool       // EventTransmitComplete
}

// StartUp builds the event delivered after reset or wake.
func StartUp(reason WakeReason) Event {
	return Event{Kind: EventStartUp, Wake: reason}
}

// TimerTick builds the periodic system tick event.
func TimerTick() Event {
	return Event{Kind: EventTimerTick, Source: SourceTickTimer}
}

// HardwareComplete builds a completion interrupt event for src.
func HardwareComplete(src SourceID) Event {
	return Event{Kind: EventHardwareComplete, Source: src}
}

// OrderKick builds the internal "go look again" event.
func OrderKick() Event {
	return Event{Kind: EventOrderKick}
}

// TransmitComplete builds the radio callback event for callback id.
func TransmitComplete(id uint8, ok bool) Event {
	return Event{Kind: EventTransmitComplete, TxID: id, TxOK: ok}
}

func newStateEntered() Event {
	return Event{Kind: EventNewState}
}

// IsWarm reports whether a StartUp event came from a RAM-held wake.
func (e Event) IsWarm() bool {
	return e.Kind == EventStartUp && e.Wake == WarmRamHeldWake
}

func (k EventKind) String() string {
	switch k {
	case EventStartUp:
		return "start_up"
	case EventTimerTick:
		return "tick_timer"
	case EventHardwareComplete:
		return "hw_complete"
	case EventOrderKick:
		return "order_kick"
	case EventTransmitComplete:
		return "tx_complete"
	case EventNewState:
		return "new_state"
	default:
		return "unknown"
	}
}

func (r WakeReason) String() string {
	if r == WarmRamHeldWake {
		return "warm"
	}
	return "cold"
}
