package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensenode/core"
)

func TestI2CBusNoAck(t *testing.T) {
	bus := NewI2CBus()
	err := bus.Tx(0x60, []byte{0x04}, make([]byte, 8))
	assert.ErrorIs(t, err, ErrNoAck)

	bus.Attach(0x60, NewMPL115A2(375, 500))
	assert.NoError(t, bus.Tx(0x60, []byte{0x04}, make([]byte, 8)))

	bus.Detach(0x60)
	assert.ErrorIs(t, bus.Tx(0x60, []byte{0x04}, nil), ErrNoAck)
	assert.Equal(t, 3, bus.Transfers())
}

func TestMPL115A2Emulator(t *testing.T) {
	m := NewMPL115A2(375, 500)

	buf := make([]byte, 4)
	require.NoError(t, m.Tx([]byte{0x00}, buf))
	assert.Equal(t, []byte{0, 0, 0, 0}, buf, "nothing converted yet")

	require.NoError(t, m.Tx([]byte{0x12, 0x00}, nil))
	require.NoError(t, m.Tx([]byte{0x00}, buf))
	assert.Equal(t, uint16(375), (uint16(buf[0])<<8|uint16(buf[1]))>>6)
	assert.Equal(t, uint16(500), (uint16(buf[2])<<8|uint16(buf[3]))>>6)
	assert.Equal(t, 1, m.Conversions)

	assert.Error(t, m.Tx([]byte{0x42}, buf))
}

func TestBMP180Emulator(t *testing.T) {
	b := NewBMP180()
	id := make([]byte, 1)
	require.NoError(t, b.Tx([]byte{0xD0}, id))
	assert.Equal(t, byte(0x55), id[0])

	raw := make([]byte, 2)
	require.NoError(t, b.Tx([]byte{0xF4, 0x2E}, nil))
	require.NoError(t, b.Tx([]byte{0xF6}, raw))
	assert.Equal(t, []byte{0x6C, 0xFA}, raw)

	up := make([]byte, 3)
	require.NoError(t, b.Tx([]byte{0xF4, 0xF4}, nil))
	require.NoError(t, b.Tx([]byte{0xF6}, up))
	assert.Equal(t, []byte{0x86, 0x01, 0x00}, up)
}

func TestADCConversion(t *testing.T) {
	var q TimerQueue
	var clock Clock
	var events []core.Event
	adc := newADC(&q, &clock, func(ev core.Event) { events = append(events, ev) }, 2470, 3705)
	adc.SetLevel(core.ADCChannelADC1, 1200)

	assert.ErrorIs(t, adc.Start(core.ADCChannelADC1), core.ErrADCNotInitialized)
	require.NoError(t, adc.Init(core.ADCConfig{ReferenceMV: 2470, Resolution: 10}))
	require.NoError(t, adc.Start(core.ADCChannelADC1))
	assert.Error(t, adc.Start(core.ADCChannelADC2), "busy")

	_, err := adc.ReadRaw(core.ADCChannelADC1)
	assert.Error(t, err, "not converted yet")

	clock.set(1)
	q.Dispatch(1)
	require.Len(t, events, 1)
	assert.Equal(t, core.HardwareComplete(core.SourceADC), events[0])

	raw, err := adc.ReadRaw(core.ADCChannelADC1)
	require.NoError(t, err)
	assert.Equal(t, core.ADCValue(31840), raw)
	assert.Equal(t, 1, adc.Conversions())
}

func TestMillivoltsToRaw(t *testing.T) {
	for _, ref := range []uint32{2400, 2470, 3600, 3705} {
		for mv := uint16(0); uint32(mv) < ref; mv += 97 {
			raw := millivoltsToRaw(mv, ref)
			assert.Equal(t, mv, uint16((uint32(raw)*ref)>>16), "%d mV at %d", mv, ref)
		}
	}
	assert.Equal(t, core.ADCValue(0xFFFF), millivoltsToRaw(5000, 2470))
	assert.Zero(t, millivoltsToRaw(100, 0))
}

func TestGPIOHistory(t *testing.T) {
	var clock Clock
	g := newGPIO(&clock)
	assert.Error(t, g.SetPin(3, true))

	require.NoError(t, g.ConfigureOutput(3))
	require.NoError(t, g.SetPin(3, true))
	clock.set(7)
	require.NoError(t, g.SetPin(3, false))

	v, err := g.GetPin(3)
	require.NoError(t, err)
	assert.False(t, v)
	assert.Equal(t, []PinChange{{Tick: 0, Pin: 3, Level: true}, {Tick: 7, Pin: 3, Level: false}}, g.History(3))
}
