package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeReport(t *testing.T) {
	payload := []byte{
		'T', 0x07, // marker, device id
		0x01, 0x02, // sequence 0x0102
		PacketTypePressure,
		0x55,       // battery code
		0x03, 0xE8, // adc1 = 1000
		0x07, 0xD0, // adc2 = 2000
		0x03, 0xF5, // pressure = 1013
	}

	r, err := DecodeReport(payload)
	require.NoError(t, err)
	assert.Equal(t, Report{
		DeviceID:    7,
		Sequence:    0x0102,
		PacketType:  PacketTypePressure,
		BatteryCode: 0x55,
		ADC1:        1000,
		ADC2:        2000,
		Pressure:    1013,
	}, r)
	assert.True(t, r.PressureValid())
}

func TestDecodeReportErrorSentinel(t *testing.T) {
	payload := []byte{'T', 1, 0, 1, PacketTypePressure, 0, 0, 0, 0, 0, 0x80, 0x00}

	r, err := DecodeReport(payload)
	require.NoError(t, err)
	assert.Equal(t, PressureError, r.Pressure)
	assert.False(t, r.PressureValid())
}

func TestDecodeReportRejectsMalformed(t *testing.T) {
	_, err := DecodeReport([]byte{'T', 1, 2})
	assert.True(t, errors.Is(err, ErrShortReport))

	bad := make([]byte, ReportLength)
	bad[0] = 'X'
	_, err = DecodeReport(bad)
	assert.True(t, errors.Is(err, ErrBadMarker))
}
