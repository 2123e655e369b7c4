package core

import "errors"

// ErrSensorAbsent marks a pressure poll that completed immediately because
// the device did not answer on the bus.
var ErrSensorAbsent = errors.New("sensor absent")

// SensorPoll is one asynchronous, possibly multi-phase measurement. The state
// machine feeds it events and checks for completion; it never blocks.
type SensorPoll interface {
	// Reset re-arms the poll for a new measurement and clears completion.
	Reset()

	// Advance feeds one event. Zero or more further events may be needed
	// before the poll completes.
	Advance(ev Event)

	// IsComplete is true once a result is available, including the
	// degraded "sensor absent" result.
	IsComplete() bool
}

// PressurePoll is a SensorPoll producing a pressure reading in hPa.
type PressurePoll interface {
	SensorPoll

	// Result returns the last reading, or PressureError when the sensor
	// failed. Only valid once IsComplete.
	Result() int16

	// Err returns why the last measurement degraded, or nil.
	Err() error
}

var (
	_ SensorPoll   = (*ADCPoll)(nil)
	_ PressurePoll = (*MPL115A2Poll)(nil)
	_ PressurePoll = (*BMP180Poll)(nil)
)
