package protocol

// CRC16 computes the CCITT-style checksum appended to every radio frame
// (initial value 0xFFFF, byte-wise reflected update).
func CRC16(data []byte) uint16 {
	return crc16Update(0xFFFF, data)
}

func crc16Update(crc uint16, data []byte) uint16 {
	for _, b := range data {
		b ^= uint8(crc)
		b ^= b << 4
		w := uint16(b)
		crc = (w<<8 | crc>>8) ^ (w >> 4) ^ (w << 3)
	}
	return crc
}

// frameTrailer is the crc (big endian) followed by the sync byte
func frameTrailer(body []byte) [FrameTrailerSize]byte {
	crc := CRC16(body)
	return [FrameTrailerSize]byte{uint8(crc >> 8), uint8(crc), FrameValueSync}
}

// trailerValid checks the crc of a complete frame, header through payload
func trailerValid(raw []byte) bool {
	n := len(raw) - FrameTrailerSize
	if n < 0 {
		return false
	}
	want := uint16(raw[n])<<8 | uint16(raw[n+1])
	return want == CRC16(raw[:n])
}
