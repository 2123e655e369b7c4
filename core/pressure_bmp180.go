package core

import (
	"fmt"

	"tinygo.org/x/drivers/bmp180"
)

// BMP180Poll measures pressure with a Bosch BMP180 through the TinyGo
// driver. The driver read blocks for the conversion time, so the poll only
// checks the sensor on the kick and reads on the following tick.
type BMP180Poll struct {
	dev        bmp180.Device
	configured bool

	phase  uint8
	result int16
	err    error
}

// NewBMP180Poll creates the poll on bus.
func NewBMP180Poll(bus I2CBus) *BMP180Poll {
	return &BMP180Poll{dev: bmp180.New(bus), result: PressureError}
}

func (p *BMP180Poll) Reset() {
	p.phase = PressurePhaseIdle
	p.result = PressureError
	p.err = nil
}

func (p *BMP180Poll) Advance(ev Event) {
	switch p.phase {
	case PressurePhaseIdle:
		if ev.Kind != EventOrderKick {
			return
		}
		if !p.dev.Connected() {
			p.complete(PressureError, ErrSensorAbsent)
			return
		}
		if !p.configured {
			p.dev.Configure()
			p.configured = true
		}
		p.phase = PressurePhaseConverting

	case PressurePhaseConverting:
		if ev.Kind != EventTimerTick && !ev.IsWarm() &&
			!(ev.Kind == EventHardwareComplete && ev.Source == SourcePressure) {
			return
		}
		mpa, err := p.dev.ReadPressure()
		if err != nil {
			p.complete(PressureError, fmt.Errorf("bmp180 read: %w", err))
			return
		}
		// milli-pascal to hPa
		p.complete(int16((mpa+50000)/100000), nil)
	}
}

func (p *BMP180Poll) IsComplete() bool {
	return p.phase == PressurePhaseComplete
}

func (p *BMP180Poll) Result() int16 {
	return p.result
}

func (p *BMP180Poll) Err() error {
	return p.err
}

func (p *BMP180Poll) complete(value int16, err error) {
	p.result = value
	p.err = err
	p.phase = PressurePhaseComplete
}
