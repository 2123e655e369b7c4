//go:build tinygo

package core

import "runtime/interrupt"

// irqState is the saved interrupt mask of the event queue critical section.
type irqState = interrupt.State

func disableInterrupts() irqState {
	return interrupt.Disable()
}

func restoreInterrupts(state irqState) {
	interrupt.Restore(state)
}
