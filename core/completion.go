package core

// CompletionFlag names one sensor that has finished for the current cycle.
type CompletionFlag uint8

const (
	AdcDone      CompletionFlag = 1 << 0
	PressureDone CompletionFlag = 1 << 1

	allDone = AdcDone | PressureDone
)

// CompletionTracker records which sensor polls finished this wake cycle.
// Reaching IsAllDone is the only thing that moves Running to WaitTx.
type CompletionTracker struct {
	bits CompletionFlag
}

// Set marks flag as done.
func (c *CompletionTracker) Set(flag CompletionFlag) {
	c.bits |= flag & allDone
}

// Has reports whether flag has been set since the last Reset.
func (c CompletionTracker) Has(flag CompletionFlag) bool {
	return c.bits&flag == flag
}

// IsAllDone reports whether both sensors have completed.
func (c CompletionTracker) IsAllDone() bool {
	return c.bits == allDone
}

// Reset clears both flags. Called on every Idle to Running attempt.
func (c *CompletionTracker) Reset() {
	c.bits = 0
}

// Flags returns the raw set, for logging and tests.
func (c CompletionTracker) Flags() CompletionFlag {
	return c.bits
}

func (c CompletionTracker) String() string {
	switch c.bits {
	case 0:
		return "none"
	case AdcDone:
		return "adc"
	case PressureDone:
		return "pressure"
	default:
		return "adc+pressure"
	}
}
