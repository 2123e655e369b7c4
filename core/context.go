package core

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// Defaults for Settings
const (
	DefaultSleepTicks          = 5000
	DefaultStateTimeoutTicks   = 100
	DefaultMicroSleepTicks     = 50
	DefaultSupercapThresholdMV = 1300
)

// Settings is the persisted device configuration. Read-only to the machine.
type Settings struct {
	DeviceID          uint8
	SleepTicks        uint32
	StateTimeoutTicks uint32
	MicroSleepTicks   uint32

	RCClock  uint16 // stored RC oscillator trim, 0 = calibrate
	EncKey   uint32
	Secure   bool
	ToRouter bool // address reports to the neighbour above
	Tree     TreeParams

	PacketType uint8

	// ADC1 at or above this level connects the supercap directly.
	SupercapThresholdMV uint16
}

// DefaultSettings returns the settings of an unconfigured node.
func DefaultSettings() Settings {
	return Settings{
		SleepTicks:          DefaultSleepTicks,
		StateTimeoutTicks:   DefaultStateTimeoutTicks,
		MicroSleepTicks:     DefaultMicroSleepTicks,
		PacketType:          PacketTypePressure,
		SupercapThresholdMV: DefaultSupercapThresholdMV,
	}
}

// Destination returns where reports go for these settings.
func (s Settings) Destination() Destination {
	if s.ToRouter {
		return DestNeighbourAbove
	}
	return DestParent
}

// DeviceContext is the process-wide state of the node. It lives from power
// on to power loss; RAM-held sleeps keep it, cold starts recreate it.
type DeviceContext struct {
	Settings Settings

	// FrameCount is bumped once per transmit attempt and is the report
	// sequence number.
	FrameCount uint16
	Sensors    SensorValues
	RCClock    uint16 // trim in use after the last calibration

	Log        logrus.FieldLogger
	Clock      Clock
	Network    NetworkGateway
	Sleeper    SleepScheduler
	Calibrator RCCalibrator // optional
	Power      *PowerLines  // optional

	ADC      *ADCPoll
	Pressure PressurePoll

	nwk NetworkContext
}

// Validate checks the required collaborators are present.
func (d *DeviceContext) Validate() error {
	switch {
	case d.Clock == nil:
		return errors.New("device context: clock is required")
	case d.Network == nil:
		return errors.New("device context: network gateway is required")
	case d.Sleeper == nil:
		return errors.New("device context: sleep scheduler is required")
	case d.ADC == nil:
		return errors.New("device context: adc poll is required")
	case d.Pressure == nil:
		return errors.New("device context: pressure poll is required")
	}
	return nil
}

// NetworkStarted reports whether the network context has been created.
func (d *DeviceContext) NetworkStarted() bool {
	return d.nwk != nil
}
