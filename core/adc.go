// ADC group sampling
// Samples battery, ADC1 and ADC2 (or the on-die temperature sensor) one
// channel at a time, chaining each conversion off the previous completion
// interrupt.
package core

import (
	"errors"
	"fmt"
)

// ADC poll phases
const (
	ADCPhaseIdle       = 0
	ADCPhaseConverting = 1
	ADCPhaseComplete   = 2
)

// ErrADCNotInitialized is returned by drivers asked to convert before Init.
var ErrADCNotInitialized = errors.New("adc not initialized")

// ADCPollConfig describes the channel group.
type ADCPollConfig struct {
	ReferenceMV        uint32 // full scale of ADC1/ADC2/temperature inputs
	BatteryReferenceMV uint32 // full scale of the supply channel, divider included
	Resolution         uint8
	UseTempForADC2     bool // report the temperature sensor in place of ADC2
}

// ADCResult holds the last completed group, in millivolts.
// Err is set when the group completed in degraded form.
type ADCResult struct {
	BatteryMV uint16
	ADC1MV    uint16
	ADC2MV    uint16
	Err       error
}

// ADCPoll drives one measurement of the whole channel group.
type ADCPoll struct {
	driver ADCDriver
	cfg    ADCPollConfig

	channels [3]ADCChannelID
	values   [3]uint16
	current  int

	phase       uint8
	initialized bool
	result      ADCResult
}

// NewADCPoll creates the ADC group poll. The driver is initialised lazily on
// the first kick and kept across wake cycles.
func NewADCPoll(driver ADCDriver, cfg ADCPollConfig) *ADCPoll {
	second := ADCChannelADC2
	if cfg.UseTempForADC2 {
		second = ADCChannelTemp
	}
	if cfg.BatteryReferenceMV == 0 {
		cfg.BatteryReferenceMV = cfg.ReferenceMV
	}
	return &ADCPoll{
		driver:   driver,
		cfg:      cfg,
		channels: [3]ADCChannelID{ADCChannelBattery, ADCChannelADC1, second},
	}
}

// Reset re-arms the poll for a new cycle.
func (a *ADCPoll) Reset() {
	a.phase = ADCPhaseIdle
	a.current = 0
	a.values = [3]uint16{}
	a.result = ADCResult{}
}

// Advance feeds one event. OrderKick starts the group; each
// HardwareComplete(SourceADC) collects one channel and starts the next.
func (a *ADCPoll) Advance(ev Event) {
	switch a.phase {
	case ADCPhaseIdle:
		if ev.Kind != EventOrderKick {
			return
		}
		if !a.initialized {
			err := a.driver.Init(ADCConfig{ReferenceMV: a.cfg.ReferenceMV, Resolution: a.cfg.Resolution})
			if err != nil {
				a.fail(fmt.Errorf("adc init: %w", err))
				return
			}
			a.initialized = true
		}
		a.phase = ADCPhaseConverting
		a.startCurrent()

	case ADCPhaseConverting:
		if ev.Kind != EventHardwareComplete || ev.Source != SourceADC {
			return
		}
		ch := a.channels[a.current]
		raw, err := a.driver.ReadRaw(ch)
		if err != nil {
			a.fail(fmt.Errorf("adc read channel %d: %w", ch, err))
			return
		}
		a.values[a.current] = rawToMillivolts(raw, a.referenceFor(ch))
		a.current++

		if a.current >= len(a.channels) {
			a.result = ADCResult{
				BatteryMV: a.values[0],
				ADC1MV:    a.values[1],
				ADC2MV:    a.values[2],
			}
			a.phase = ADCPhaseComplete
			return
		}
		a.startCurrent()
	}
}

// IsComplete reports whether a result (possibly degraded) is available.
func (a *ADCPoll) IsComplete() bool {
	return a.phase == ADCPhaseComplete
}

// Result returns the last group. Only valid once IsComplete.
func (a *ADCPoll) Result() ADCResult {
	return a.result
}

// Phase exposes the current phase for diagnostics.
func (a *ADCPoll) Phase() uint8 {
	return a.phase
}

func (a *ADCPoll) startCurrent() {
	ch := a.channels[a.current]
	if err := a.driver.Start(ch); err != nil {
		a.fail(fmt.Errorf("adc start channel %d: %w", ch, err))
	}
}

func (a *ADCPoll) referenceFor(ch ADCChannelID) uint32 {
	if ch == ADCChannelBattery {
		return a.cfg.BatteryReferenceMV
	}
	return a.cfg.ReferenceMV
}

// fail completes the poll with whatever was collected so far.
func (a *ADCPoll) fail(err error) {
	a.result = ADCResult{
		BatteryMV: a.values[0],
		ADC1MV:    a.values[1],
		ADC2MV:    a.values[2],
		Err:       err,
	}
	a.phase = ADCPhaseComplete
}
