package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrShortReport = errors.New("report too short")
	ErrBadMarker   = errors.New("report marker mismatch")
)

// Report is a decoded measurement payload as the parent sees it.
type Report struct {
	DeviceID    uint8
	Sequence    uint16
	PacketType  uint8
	BatteryCode uint8
	ADC1        uint16
	ADC2        uint16
	Pressure    int16
}

// PressureValid reports whether the sensor produced a reading this cycle
func (r Report) PressureValid() bool {
	return r.Pressure != PressureError
}

// DecodeReport parses a report payload produced by the node
func DecodeReport(payload []byte) (Report, error) {
	if len(payload) < ReportLength {
		return Report{}, fmt.Errorf("%w: %d bytes", ErrShortReport, len(payload))
	}
	if payload[0] != ReportMarker {
		return Report{}, fmt.Errorf("%w: 0x%02X", ErrBadMarker, payload[0])
	}

	data := payload[1:]
	var r Report
	// Length was checked above, none of these can fail.
	r.DeviceID, _ = GetOctet(&data)
	r.Sequence, _ = GetBE16(&data)
	r.PacketType, _ = GetOctet(&data)
	r.BatteryCode, _ = GetOctet(&data)
	r.ADC1, _ = GetBE16(&data)
	r.ADC2, _ = GetBE16(&data)
	p, _ := GetBE16(&data)
	r.Pressure = int16(p)

	return r, nil
}
