package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestFrame(t *testing.T, f Frame) []byte {
	t.Helper()
	out := NewScratchOutput()
	require.NoError(t, EncodeFrame(out, f))
	raw := make([]byte, out.CurPosition())
	copy(raw, out.Result())
	return raw
}

func TestEncodeFrameLayout(t *testing.T) {
	raw := encodeTestFrame(t, Frame{
		Sequence: 5,
		Src:      0x81000001,
		Dst:      AddrParent,
		Cmd:      2,
		Secure:   true,
		Payload:  []byte{0xAA, 0xBB},
	})

	require.Len(t, raw, FrameLengthMin+2)
	assert.Equal(t, byte(len(raw)), raw[0])
	assert.Equal(t, byte(5), raw[1])
	assert.Equal(t, []byte{0x81, 0x00, 0x00, 0x01}, raw[2:6])
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFE}, raw[6:10])
	assert.Equal(t, byte(2<<1|1), raw[10])
	assert.Equal(t, []byte{0xAA, 0xBB}, raw[11:13])
	assert.Equal(t, byte(FrameValueSync), raw[len(raw)-1])

	crc := CRC16(raw[:len(raw)-FrameTrailerSize])
	assert.Equal(t, byte(crc>>8), raw[len(raw)-3])
	assert.Equal(t, byte(crc), raw[len(raw)-2])
}

func TestEncodeFrameTooLarge(t *testing.T) {
	err := EncodeFrame(NewScratchOutput(), Frame{Payload: make([]byte, FrameLengthMax)})
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDecodeFrame(t *testing.T) {
	in := Frame{Sequence: 9, Src: 1, Dst: AddrNeighbourAbove, Cmd: 0, Payload: []byte{1, 2, 3}}
	raw := encodeTestFrame(t, in)

	got, err := DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	raw[FrameHeaderSize] ^= 0xFF
	_, err = DecodeFrame(raw)
	assert.ErrorIs(t, err, ErrBadCRC)
}

func TestFrameReaderSplitsStream(t *testing.T) {
	var got []Frame
	reader := NewFrameReader(func(f Frame) { got = append(got, f) })

	a := encodeTestFrame(t, Frame{Sequence: 1, Payload: []byte{0x10}})
	b := encodeTestFrame(t, Frame{Sequence: 2, Payload: []byte{0x20, 0x21}})

	fifo := NewFifoBuffer(256)
	fifo.Write(a)
	fifo.Write(b[:4])
	reader.Receive(fifo)

	require.Len(t, got, 1)
	assert.Equal(t, uint8(1), got[0].Sequence)
	assert.Equal(t, 4, fifo.Available(), "partial frame stays buffered")

	fifo.Write(b[4:])
	reader.Receive(fifo)
	require.Len(t, got, 2)
	assert.Equal(t, []byte{0x20, 0x21}, got[1].Payload)
	assert.True(t, fifo.IsEmpty())
}

func TestFrameReaderResyncsAfterGarbage(t *testing.T) {
	var got []Frame
	reader := NewFrameReader(func(f Frame) { got = append(got, f) })

	good := encodeTestFrame(t, Frame{Sequence: 3, Payload: []byte{0x33}})
	corrupt := encodeTestFrame(t, Frame{Sequence: 4, Payload: []byte{0x44}})
	corrupt[FrameHeaderSize] ^= 0x01

	stream := append(append([]byte{}, corrupt...), good...)
	reader.Receive(NewSliceInputBuffer(stream))

	require.Len(t, got, 1)
	assert.Equal(t, uint8(3), got[0].Sequence)
	assert.Equal(t, 1, reader.Dropped())
}
