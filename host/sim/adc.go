package sim

import (
	"errors"
	"fmt"

	"sensenode/core"
)

var errADCBusy = errors.New("adc: conversion in progress")

// ADC simulates the on-chip converter. A conversion takes ConversionTicks
// and ends with HardwareComplete(SourceADC).
type ADC struct {
	ConversionTicks uint32

	timers *TimerQueue
	clock  *Clock
	post   func(core.Event)

	referenceMV        uint32
	batteryReferenceMV uint32
	levels             map[core.ADCChannelID]uint16 // millivolts at the pin
	latched            map[core.ADCChannelID]core.ADCValue

	initialized bool
	busy        bool
	timer       Timer
	conversions int
}

func newADC(timers *TimerQueue, clock *Clock, post func(core.Event), refMV, battRefMV uint32) *ADC {
	return &ADC{
		ConversionTicks:    1,
		timers:             timers,
		clock:              clock,
		post:               post,
		referenceMV:        refMV,
		batteryReferenceMV: battRefMV,
		levels:             map[core.ADCChannelID]uint16{},
		latched:            map[core.ADCChannelID]core.ADCValue{},
	}
}

// SetLevel sets the voltage seen on ch.
func (a *ADC) SetLevel(ch core.ADCChannelID, mv uint16) {
	a.levels[ch] = mv
}

// Conversions returns how many conversions have completed.
func (a *ADC) Conversions() int {
	return a.conversions
}

func (a *ADC) Init(cfg core.ADCConfig) error {
	if cfg.ReferenceMV == 0 {
		return errors.New("adc: zero reference")
	}
	a.initialized = true
	return nil
}

func (a *ADC) Start(ch core.ADCChannelID) error {
	if !a.initialized {
		return core.ErrADCNotInitialized
	}
	if a.busy {
		return errADCBusy
	}
	a.busy = true
	a.timer = Timer{
		WakeTime: a.clock.Ticks() + a.ConversionTicks,
		Handler: func(*Timer) uint8 {
			a.busy = false
			a.latched[ch] = millivoltsToRaw(a.levels[ch], a.reference(ch))
			a.conversions++
			a.post(core.HardwareComplete(core.SourceADC))
			return TimerDone
		},
	}
	a.timers.Schedule(&a.timer)
	return nil
}

func (a *ADC) ReadRaw(ch core.ADCChannelID) (core.ADCValue, error) {
	v, ok := a.latched[ch]
	if !ok {
		return 0, fmt.Errorf("adc: channel %d never converted", ch)
	}
	return v, nil
}

// halt drops a conversion cut short by sleep.
func (a *ADC) halt() {
	a.busy = false
}

func (a *ADC) reference(ch core.ADCChannelID) uint32 {
	if ch == core.ADCChannelBattery {
		return a.batteryReferenceMV
	}
	return a.referenceMV
}

// millivoltsToRaw is the inverse of the core's scaling, rounded up so the
// core reads back exactly mv.
func millivoltsToRaw(mv uint16, referenceMV uint32) core.ADCValue {
	if referenceMV == 0 {
		return 0
	}
	raw := (uint32(mv)<<16 + referenceMV - 1) / referenceMV
	if raw > 0xFFFF {
		raw = 0xFFFF
	}
	return core.ADCValue(raw)
}
