package core

import "tinygo.org/x/drivers"

// I2CAddress is a 7-bit I2C device address.
type I2CAddress uint8

// I2CBus is the bus the pressure sensor hangs off. machine.I2C satisfies it
// on hardware; the simulator provides an emulated bus.
type I2CBus = drivers.I2C

// readRegisters reads len(buf) bytes starting at reg.
func readRegisters(bus I2CBus, addr I2CAddress, reg uint8, buf []byte) error {
	return bus.Tx(uint16(addr&0x7F), []byte{reg}, buf)
}

// writeRegister writes data to reg.
func writeRegister(bus I2CBus, addr I2CAddress, reg uint8, data ...byte) error {
	w := make([]byte, 0, len(data)+1)
	w = append(w, reg)
	w = append(w, data...)
	return bus.Tx(uint16(addr&0x7F), w, nil)
}
