package monitor

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensenode/core"
	"sensenode/protocol"
)

func reportFrame(t *testing.T, device uint8, seq uint16, pressure int16) []byte {
	t.Helper()
	out := protocol.NewScratchOutput()
	err := protocol.EncodeFrame(out, protocol.Frame{
		Sequence: uint8(seq),
		Src:      0x81000000 | uint32(device),
		Dst:      protocol.AddrParent,
		Payload: core.BuildReport(core.ReportFields{
			Sequence:    seq,
			DeviceID:    device,
			PacketType:  protocol.PacketTypePressure,
			BatteryCode: 190,
			ADC1:        1200,
			ADC2:        600,
			Pressure:    pressure,
		}),
	})
	require.NoError(t, err)
	return append([]byte(nil), out.Result()...)
}

func TestMonitorDecodesReports(t *testing.T) {
	var got []Reading
	m, err := New(nil, func(r Reading) { got = append(got, r) }, nil)
	require.NoError(t, err)

	stream := append(reportFrame(t, 1, 1, 1013), reportFrame(t, 1, 2, core.PressureError)...)
	m.Feed(stream[:7])
	assert.Empty(t, got)
	m.Feed(stream[7:])

	require.Len(t, got, 2)
	assert.Equal(t, uint32(0x81000001), got[0].Src)
	assert.Equal(t, protocol.AddrParent, got[0].Dst)
	assert.Equal(t, int16(1013), got[0].Report.Pressure)
	assert.True(t, got[0].Report.PressureValid())
	assert.False(t, got[1].Report.PressureValid())
	assert.Equal(t, Stats{Reports: 2}, m.Stats())
}

func TestMonitorCountsMissedSequences(t *testing.T) {
	var got []Reading
	reg := prometheus.NewRegistry()
	m, err := New(nil, func(r Reading) { got = append(got, r) }, reg)
	require.NoError(t, err)

	var stream []byte
	for _, f := range [][]byte{
		reportFrame(t, 1, 1, 1000),
		reportFrame(t, 2, 7, 1000),
		reportFrame(t, 1, 4, 1000),
		reportFrame(t, 2, 8, 1000),
	} {
		stream = append(stream, f...)
	}
	m.Feed(stream)

	require.Len(t, got, 4)
	assert.Equal(t, uint16(0), got[1].Missed, "first report of a device")
	assert.Equal(t, uint16(2), got[2].Missed)
	assert.Equal(t, uint16(0), got[3].Missed)
	assert.Equal(t, 2, m.Stats().Missed)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reports.WithLabelValues("1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.missed))
}

func TestMonitorMissedAcrossWrap(t *testing.T) {
	var got []Reading
	m, err := New(nil, func(r Reading) { got = append(got, r) }, nil)
	require.NoError(t, err)

	var stream []byte
	for _, seq := range []uint16{65534, 1, 2, 0xFFF0, 3} {
		stream = append(stream, reportFrame(t, 5, seq, 1000)...)
	}
	m.Feed(stream)

	require.Len(t, got, 5)
	assert.Equal(t, uint16(2), got[1].Missed, "65535 and 0 never arrived")
	assert.Equal(t, uint16(0), got[2].Missed)
	assert.Equal(t, uint16(0), got[3].Missed, "a step backwards is a restart")
	assert.Equal(t, uint16(18), got[4].Missed, "0xFFF1..0xFFFF, 0, 1 and 2 were skipped")
	assert.Equal(t, 20, m.Stats().Missed)
}

func TestMonitorBadReport(t *testing.T) {
	m, err := New(nil, nil, nil)
	require.NoError(t, err)

	out := protocol.NewScratchOutput()
	require.NoError(t, protocol.EncodeFrame(out, protocol.Frame{Payload: []byte{'X', 1, 2}}))
	m.Feed(out.Result())
	m.Feed(reportFrame(t, 3, 1, 990))

	assert.Equal(t, Stats{Reports: 1, BadReports: 1}, m.Stats())
}

func TestMonitorRunUntilEOF(t *testing.T) {
	var got []Reading
	m, err := New(nil, func(r Reading) { got = append(got, r) }, nil)
	require.NoError(t, err)

	var stream []byte
	for seq := uint16(1); seq <= 20; seq++ {
		stream = append(stream, reportFrame(t, 1, seq, 1013)...)
	}
	require.NoError(t, m.Run(context.Background(), bytes.NewReader(stream)))
	assert.Len(t, got, 20)
	assert.Zero(t, m.Stats().Missed)
}

func TestMonitorRunCancelled(t *testing.T) {
	m, err := New(nil, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Run(ctx, bytes.NewReader(nil)), context.Canceled)
}
