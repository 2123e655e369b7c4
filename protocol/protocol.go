// Package protocol implements the byte layouts a sensor node puts on the air:
// the measurement report payload and the radio frame that carries it.
package protocol

// Version represents the sensenode wire format version
const Version = "0.1.0"

// Report layout constants
const (
	ReportMarker = 'T' // First payload byte of every report
	ReportLength = 12  // marker, id, seq(2), tag, batt, adc1(2), adc2(2), pressure(2)

	// PacketTypePressure tags a report carrying an MPL115A2/BMP180 pressure value
	PacketTypePressure = 0x33

	// PressureError is the pressure field value when the sensor read failed
	PressureError int16 = -32768
)

// Radio frame constants
const (
	FrameHeaderSize  = 11 // len, seq, src(4), dst(4), flags
	FrameTrailerSize = 3  // crc(2), sync
	FrameLengthMin   = FrameHeaderSize + FrameTrailerSize
	FrameLengthMax   = 96
	FrameValueSync   = 0x7E

	framePositionLen   = 0
	framePositionSeq   = 1
	framePositionSrc   = 2
	framePositionDst   = 6
	framePositionFlags = 10

	frameFlagSecure = 0x01
	frameCmdShift   = 1
	frameCmdMask    = 0x07
)

// Well-known destination addresses understood by the tree network
const (
	AddrParent         uint32 = 0xFFFFFFFE
	AddrNeighbourAbove uint32 = 0xFFFFFFFD
)
