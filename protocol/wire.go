package protocol

import "errors"

var (
	ErrBufferTooSmall = errors.New("buffer too small")
)

// PutOctet appends a single byte
func PutOctet(output OutputBuffer, v uint8) {
	output.Output([]byte{v})
}

// PutBE16 appends a 16-bit word, most significant byte first
func PutBE16(output OutputBuffer, v uint16) {
	output.Output([]byte{uint8(v >> 8), uint8(v)})
}

// PutBE32 appends a 32-bit word, most significant byte first
func PutBE32(output OutputBuffer, v uint32) {
	output.Output([]byte{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)})
}

// GetOctet consumes one byte from the front of data
func GetOctet(data *[]byte) (uint8, error) {
	if len(*data) < 1 {
		return 0, ErrBufferTooSmall
	}
	v := (*data)[0]
	*data = (*data)[1:]
	return v, nil
}

// GetBE16 consumes a big-endian 16-bit word from the front of data
func GetBE16(data *[]byte) (uint16, error) {
	if len(*data) < 2 {
		return 0, ErrBufferTooSmall
	}
	d := *data
	v := uint16(d[0])<<8 | uint16(d[1])
	*data = d[2:]
	return v, nil
}

// GetBE32 consumes a big-endian 32-bit word from the front of data
func GetBE32(data *[]byte) (uint32, error) {
	if len(*data) < 4 {
		return 0, ErrBufferTooSmall
	}
	d := *data
	v := uint32(d[0])<<24 | uint32(d[1])<<16 | uint32(d[2])<<8 | uint32(d[3])
	*data = d[4:]
	return v, nil
}
