package sim

import (
	"fmt"

	"sensenode/core"
)

// PinChange is one recorded output write.
type PinChange struct {
	Tick  uint32
	Pin   core.GPIOPin
	Level bool
}

// GPIO records every output write with its tick.
type GPIO struct {
	clock   *Clock
	outputs map[core.GPIOPin]bool
	levels  map[core.GPIOPin]bool
	history []PinChange
}

func newGPIO(clock *Clock) *GPIO {
	return &GPIO{
		clock:   clock,
		outputs: map[core.GPIOPin]bool{},
		levels:  map[core.GPIOPin]bool{},
	}
}

func (g *GPIO) ConfigureOutput(pin core.GPIOPin) error {
	g.outputs[pin] = true
	return nil
}

func (g *GPIO) SetPin(pin core.GPIOPin, value bool) error {
	if !g.outputs[pin] {
		return fmt.Errorf("gpio %d is not an output", pin)
	}
	g.levels[pin] = value
	g.history = append(g.history, PinChange{Tick: g.clock.Ticks(), Pin: pin, Level: value})
	return nil
}

func (g *GPIO) GetPin(pin core.GPIOPin) (bool, error) {
	return g.levels[pin], nil
}

// History returns the writes to pin in order.
func (g *GPIO) History(pin core.GPIOPin) []PinChange {
	var out []PinChange
	for _, c := range g.history {
		if c.Pin == pin {
			out = append(out, c)
		}
	}
	return out
}
