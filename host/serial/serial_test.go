package serial

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPort struct {
	bytes.Buffer
	flushes int
}

func (p *recordingPort) Flush() error {
	p.flushes++
	return nil
}

func TestLogSinkBuffersUntilFlush(t *testing.T) {
	port := &recordingPort{}
	sink := NewLogSink(port, 256)

	n, err := sink.Write([]byte("cold start\n"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Zero(t, port.Len(), "nothing reaches the port before a flush")
	assert.Equal(t, 11, sink.Buffered())

	require.NoError(t, sink.Flush())
	assert.Equal(t, "cold start\n", port.String())
	assert.Equal(t, 1, port.flushes)
	assert.Zero(t, sink.Buffered())
}

func TestLogSinkSpillsWhenFull(t *testing.T) {
	var out bytes.Buffer
	sink := NewLogSink(&out, 16)

	_, err := sink.Write(bytes.Repeat([]byte{'x'}, 40))
	require.NoError(t, err)
	assert.Equal(t, 40, out.Len())
	require.NoError(t, sink.Flush())
}

func TestOpenRejectsMissingDevice(t *testing.T) {
	_, err := Open(nil)
	assert.Error(t, err)

	_, err = Open(DefaultConfig(""))
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyUSB0")
	assert.Equal(t, 115200, cfg.Baud)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Device)
}

type idleLine struct {
	data   []byte
	closed bool
}

func (l *idleLine) Read(b []byte) (int, error) {
	if len(l.data) == 0 {
		return 0, io.EOF
	}
	n := copy(b, l.data)
	l.data = l.data[n:]
	return n, nil
}

func (l *idleLine) Write(b []byte) (int, error) { return len(b), nil }

func (l *idleLine) Close() error {
	l.closed = true
	return nil
}

func TestUARTPortIdleTimeoutIsNotEOF(t *testing.T) {
	line := &idleLine{data: []byte{0x7E}}
	port := newUARTPort(line, DefaultConfig("/dev/ttyUSB0"))

	buf := make([]byte, 8)
	n, err := port.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = port.Read(buf)
	assert.NoError(t, err, "an idle line with a read timeout is an empty read")
	assert.Zero(t, n)

	require.NoError(t, port.Close())
	assert.True(t, line.closed)
}

func TestUARTPortBlockingPassesEOF(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyUSB0")
	cfg.ReadTimeout = 0
	port := newUARTPort(&idleLine{}, cfg)

	_, err := port.Read(make([]byte, 8))
	assert.ErrorIs(t, err, io.EOF)
}
