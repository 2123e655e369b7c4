package protocol

import "errors"

var (
	ErrBadCRC        = errors.New("frame CRC mismatch")
	ErrFrameTooLarge = errors.New("frame payload too large")
)

// Frame is one radio transmission: addressing, sequence and the report payload.
type Frame struct {
	Sequence uint8
	Src      uint32
	Dst      uint32
	Cmd      uint8 // 0..7, application packet class
	Secure   bool
	Payload  []byte
}

// EncodeFrame writes f to output as
// len | seq | src | dst | flags | payload | crc16 | sync.
func EncodeFrame(output OutputBuffer, f Frame) error {
	total := FrameHeaderSize + len(f.Payload) + FrameTrailerSize
	if total > FrameLengthMax {
		return ErrFrameTooLarge
	}

	cursor := output.CurPosition()

	flags := (f.Cmd & frameCmdMask) << frameCmdShift
	if f.Secure {
		flags |= frameFlagSecure
	}

	PutOctet(output, uint8(total))
	PutOctet(output, f.Sequence)
	PutBE32(output, f.Src)
	PutBE32(output, f.Dst)
	PutOctet(output, flags)
	output.Output(f.Payload)

	trailer := frameTrailer(output.DataSince(cursor))
	output.Output(trailer[:])
	return nil
}

// FrameHandler receives every frame that passes length and CRC checks
type FrameHandler func(f Frame)

// FrameReader splits a byte stream into frames, resynchronising on the
// sync byte after any corruption.
type FrameReader struct {
	synchronized bool
	handler      FrameHandler
	dropped      int
}

// NewFrameReader creates a reader delivering frames to handler
func NewFrameReader(handler FrameHandler) *FrameReader {
	return &FrameReader{
		synchronized: true,
		handler:      handler,
	}
}

// Dropped returns how many times the reader lost sync
func (r *FrameReader) Dropped() int {
	return r.dropped
}

// Receive consumes complete frames from input, leaving a trailing partial
// frame in place for the next call.
func (r *FrameReader) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !r.synchronized {
			syncPos := -1
			for i, b := range data {
				if b == FrameValueSync {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				data = nil
				break
			}
			data = data[syncPos+1:]
			r.synchronized = true
			continue
		}

		if data[0] == FrameValueSync {
			data = data[1:]
			continue
		}

		if len(data) < FrameLengthMin {
			break
		}

		frameLen := int(data[framePositionLen])
		if frameLen < FrameLengthMin || frameLen > FrameLengthMax {
			r.desync()
			continue
		}

		if len(data) < frameLen {
			break
		}

		if data[frameLen-1] != FrameValueSync {
			r.desync()
			continue
		}

		f, err := decodeFrame(data[:frameLen])
		if err != nil {
			r.desync()
			continue
		}
		data = data[frameLen:]

		if r.handler != nil {
			r.handler(f)
		}
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

func (r *FrameReader) desync() {
	r.synchronized = false
	r.dropped++
}

// DecodeFrame parses a single complete frame
func DecodeFrame(raw []byte) (Frame, error) {
	if len(raw) < FrameLengthMin || int(raw[framePositionLen]) != len(raw) {
		return Frame{}, ErrBufferTooSmall
	}
	return decodeFrame(raw)
}

func decodeFrame(raw []byte) (Frame, error) {
	n := len(raw)
	if !trailerValid(raw) {
		return Frame{}, ErrBadCRC
	}

	hdr := raw[framePositionSrc:]
	src, _ := GetBE32(&hdr)
	dst, _ := GetBE32(&hdr)
	flags := raw[framePositionFlags]

	payload := make([]byte, n-FrameHeaderSize-FrameTrailerSize)
	copy(payload, raw[FrameHeaderSize:n-FrameTrailerSize])

	return Frame{
		Sequence: raw[framePositionSeq],
		Src:      src,
		Dst:      dst,
		Cmd:      (flags >> frameCmdShift) & frameCmdMask,
		Secure:   flags&frameFlagSecure != 0,
		Payload:  payload,
	}, nil
}
