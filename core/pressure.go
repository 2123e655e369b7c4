// MPL115A2 barometer poll
// Conversion is started on the kick, left to run across tick events (or a
// short RAM-held sleep) and collected once enough time has passed.
package core

import (
	"fmt"
	"math"
)

// MPL115A2 registers
const (
	MPL115A2Address I2CAddress = 0x60

	mplRegPadcMSB  = 0x00
	mplRegA0MSB    = 0x04
	mplRegConvert  = 0x12
	mplCoeffLength = 8
	mplADCLength   = 4
)

// Pressure poll phases
const (
	PressurePhaseIdle       = 0
	PressurePhaseConverting = 1
	PressurePhaseComplete   = 2
)

// MPL115A2Config tunes the poll.
type MPL115A2Config struct {
	Address I2CAddress
	// ConversionTicks is how many tick events to wait after starting a
	// conversion before reading it back.
	ConversionTicks uint8
}

type mplCoefficients struct {
	a0, b1, b2, c12 float64
}

// MPL115A2Poll measures pressure with a Freescale MPL115A2.
type MPL115A2Poll struct {
	bus I2CBus
	cfg MPL115A2Config

	coeff       mplCoefficients
	coeffLoaded bool

	phase  uint8
	ticks  uint8
	result int16
	err    error
}

// NewMPL115A2Poll creates the poll on bus.
func NewMPL115A2Poll(bus I2CBus, cfg MPL115A2Config) *MPL115A2Poll {
	if cfg.Address == 0 {
		cfg.Address = MPL115A2Address
	}
	if cfg.ConversionTicks == 0 {
		cfg.ConversionTicks = 2
	}
	return &MPL115A2Poll{bus: bus, cfg: cfg, result: PressureError}
}

func (p *MPL115A2Poll) Reset() {
	p.phase = PressurePhaseIdle
	p.ticks = 0
	p.result = PressureError
	p.err = nil
}

// Advance drives the measurement:
//   - OrderKick in idle starts a conversion; a bus error completes at once.
//   - TimerTick while converting counts towards ConversionTicks.
//   - A warm StartUp while converting means a micro-sleep passed, which is
//     longer than any conversion.
func (p *MPL115A2Poll) Advance(ev Event) {
	switch p.phase {
	case PressurePhaseIdle:
		if ev.Kind != EventOrderKick {
			return
		}
		if err := p.start(); err != nil {
			p.complete(PressureError, fmt.Errorf("%w: %v", ErrSensorAbsent, err))
			return
		}
		p.phase = PressurePhaseConverting

	case PressurePhaseConverting:
		switch {
		case ev.Kind == EventTimerTick:
			p.ticks++
			if p.ticks < p.cfg.ConversionTicks {
				return
			}
		case ev.IsWarm():
		case ev.Kind == EventHardwareComplete && ev.Source == SourcePressure:
		default:
			return
		}
		p.collect()
	}
}

func (p *MPL115A2Poll) IsComplete() bool {
	return p.phase == PressurePhaseComplete
}

func (p *MPL115A2Poll) Result() int16 {
	return p.result
}

func (p *MPL115A2Poll) Err() error {
	return p.err
}

func (p *MPL115A2Poll) start() error {
	if !p.coeffLoaded {
		buf := make([]byte, mplCoeffLength)
		if err := readRegisters(p.bus, p.cfg.Address, mplRegA0MSB, buf); err != nil {
			return fmt.Errorf("read coefficients: %w", err)
		}
		p.coeff = decodeMPLCoefficients(buf)
		p.coeffLoaded = true
	}
	if err := writeRegister(p.bus, p.cfg.Address, mplRegConvert, 0x00); err != nil {
		return fmt.Errorf("start conversion: %w", err)
	}
	return nil
}

func (p *MPL115A2Poll) collect() {
	buf := make([]byte, mplADCLength)
	if err := readRegisters(p.bus, p.cfg.Address, mplRegPadcMSB, buf); err != nil {
		p.complete(PressureError, fmt.Errorf("read conversion: %w", err))
		return
	}
	padc := (uint16(buf[0])<<8 | uint16(buf[1])) >> 6
	tadc := (uint16(buf[2])<<8 | uint16(buf[3])) >> 6
	p.complete(p.coeff.compensate(padc, tadc), nil)
}

func (p *MPL115A2Poll) complete(value int16, err error) {
	p.result = value
	p.err = err
	p.phase = PressurePhaseComplete
}

// decodeMPLCoefficients unpacks a0, b1, b2 and c12 (fixed point, see the
// MPL115A2 data sheet).
func decodeMPLCoefficients(b []byte) mplCoefficients {
	word := func(i int) int16 { return int16(uint16(b[i])<<8 | uint16(b[i+1])) }
	return mplCoefficients{
		a0:  float64(word(0)) / 8,
		b1:  float64(word(2)) / 8192,
		b2:  float64(word(4)) / 16384,
		c12: float64(word(6)>>2) / 4194304,
	}
}

// compensate converts the raw 10-bit ADC pair to hPa.
func (c mplCoefficients) compensate(padc, tadc uint16) int16 {
	pcomp := c.a0 + (c.b1+c.c12*float64(tadc))*float64(padc) + c.b2*float64(tadc)
	hpa := pcomp*650/1023 + 500
	return int16(math.Round(hpa))
}
