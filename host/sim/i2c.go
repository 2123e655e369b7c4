package sim

import (
	"errors"
	"fmt"
)

// ErrNoAck is returned for transfers to an address nobody answers.
var ErrNoAck = errors.New("i2c: no ack")

// I2CDevice is a peripheral on the simulated bus.
type I2CDevice interface {
	Tx(w, r []byte) error
}

// I2CBus implements drivers.I2C over emulated devices.
type I2CBus struct {
	devices   map[uint16]I2CDevice
	transfers int
}

func NewI2CBus() *I2CBus {
	return &I2CBus{devices: map[uint16]I2CDevice{}}
}

// Attach places d at addr.
func (b *I2CBus) Attach(addr uint16, d I2CDevice) {
	b.devices[addr] = d
}

// Detach unplugs whatever sits at addr.
func (b *I2CBus) Detach(addr uint16) {
	delete(b.devices, addr)
}

// Transfers counts the transactions seen on the bus.
func (b *I2CBus) Transfers() int {
	return b.transfers
}

func (b *I2CBus) Tx(addr uint16, w, r []byte) error {
	b.transfers++
	d, ok := b.devices[addr]
	if !ok {
		return fmt.Errorf("%w at 0x%02X", ErrNoAck, addr)
	}
	return d.Tx(w, r)
}

// MPL115A2 emulates the Freescale barometer. The default coefficients and
// ADC words compensate to 1013 hPa.
type MPL115A2 struct {
	Coefficients [8]byte
	PADC         uint16 // 10-bit
	TADC         uint16 // 10-bit

	converted   bool
	Conversions int
}

func NewMPL115A2(padc, tadc uint16) *MPL115A2 {
	return &MPL115A2{
		Coefficients: [8]byte{0x3E, 0xCE, 0xB3, 0xF9, 0xC5, 0x17, 0x33, 0xC8},
		PADC:         padc,
		TADC:         tadc,
	}
}

func (m *MPL115A2) Tx(w, r []byte) error {
	if len(w) == 0 {
		return errors.New("mpl115a2: missing register")
	}
	switch w[0] {
	case 0x12: // start both conversions
		m.converted = true
		m.Conversions++
	case 0x00: // Padc MSB, Padc LSB, Tadc MSB, Tadc LSB
		var p, t uint16
		if m.converted {
			p, t = m.PADC<<6, m.TADC<<6
		}
		copy(r, []byte{byte(p >> 8), byte(p), byte(t >> 8), byte(t)})
	case 0x04:
		copy(r, m.Coefficients[:])
	default:
		return fmt.Errorf("mpl115a2: register 0x%02X", w[0])
	}
	return nil
}

// BMP180 emulates the Bosch barometer with the data sheet calibration.
// UT/UP default to 27898/274440 (oss 3), about 1013 hPa.
type BMP180 struct {
	UT uint16
	UP uint32 // 19-bit at oss 3

	ctrl byte
}

func NewBMP180() *BMP180 {
	return &BMP180{UT: 27898, UP: 274440}
}

var bmp180Calibration = []byte{
	0x01, 0x98, 0xFF, 0xB8, 0xC7, 0xD1, 0x7F, 0xE5, 0x7F, 0xF5, 0x5A, 0x71,
	0x18, 0x2E, 0x00, 0x04, 0x80, 0x00, 0xDD, 0xF9, 0x0B, 0x34,
}

func (b *BMP180) Tx(w, r []byte) error {
	if len(w) == 0 {
		return errors.New("bmp180: missing register")
	}
	switch w[0] {
	case 0xD0:
		if len(r) > 0 {
			r[0] = 0x55
		}
	case 0xAA:
		copy(r, bmp180Calibration)
	case 0xF4:
		if len(w) > 1 {
			b.ctrl = w[1]
		}
	case 0xF6:
		if b.ctrl == 0x2E {
			copy(r, []byte{byte(b.UT >> 8), byte(b.UT)})
		} else {
			raw := b.UP << 5
			copy(r, []byte{byte(raw >> 16), byte(raw >> 8), byte(raw)})
		}
	default:
		return fmt.Errorf("bmp180: register 0x%02X", w[0])
	}
	return nil
}
