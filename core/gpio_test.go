package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSensorPowerPin GPIOPin = 3
	testSupercapPin    GPIOPin = 4
)

func TestPowerLinesActiveLow(t *testing.T) {
	g := newFakeGPIO()
	p, err := NewPowerLines(g, PowerConfig{
		SensorPower:          testSensorPowerPin,
		SensorPowerActiveLow: true,
		SupercapControl:      testSupercapPin,
		HasSupercap:          true,
	})
	require.NoError(t, err)

	assert.True(t, g.configured[testSensorPowerPin])
	assert.True(t, g.configured[testSupercapPin])
	assert.True(t, g.levels[testSensorPowerPin], "idle level of an active-low switch is high")
	assert.True(t, g.levels[testSupercapPin], "bypass starts disabled")

	require.NoError(t, p.SetSensorPower(true))
	assert.False(t, g.levels[testSensorPowerPin])

	require.NoError(t, p.EnableSupercap())
	assert.False(t, g.levels[testSupercapPin])
}

func TestPowerLinesWithoutSupercap(t *testing.T) {
	g := newFakeGPIO()
	p, err := NewPowerLines(g, PowerConfig{SensorPower: testSensorPowerPin})
	require.NoError(t, err)
	assert.False(t, g.configured[testSupercapPin])

	require.NoError(t, p.SetSensorPower(true))
	assert.True(t, g.levels[testSensorPowerPin])

	writes := g.writes
	require.NoError(t, p.EnableSupercap())
	assert.Equal(t, writes, g.writes)
}

func TestPowerLinesNil(t *testing.T) {
	var p *PowerLines
	assert.NoError(t, p.SetSensorPower(true))
	assert.NoError(t, p.EnableSupercap())
}
