package core

// WakeTimer selects the hardware wake timer.
type WakeTimer uint8

const (
	// WakeTimer0 keeps counting for the periodic duty cycle.
	WakeTimer0 WakeTimer = iota
	// WakeTimer1 is free for short in-cycle naps.
	WakeTimer1
)

// SleepRequest describes one trip into low-power sleep.
type SleepRequest struct {
	Timer    WakeTimer
	Duration uint32 // ticks
	// Periodic anchors Duration to the previous wake instead of now.
	Periodic bool
	// KeepState holds RAM; the wake lands back in the state that slept.
	KeepState bool
}

// SleepScheduler arms a wake timer and halts. On wake the platform delivers
// StartUp(WarmRamHeldWake) to the machine.
type SleepScheduler interface {
	Sleep(req SleepRequest)
}

// Clock reports the free-running system tick count.
type Clock interface {
	Ticks() uint32
}
