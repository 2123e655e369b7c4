// Measurement report encoding
package core

import "sensenode/protocol"

const (
	// PressureError is the pressure value of a failed or absent sensor.
	PressureError = protocol.PressureError

	// PacketTypePressure is the default packet type tag.
	PacketTypePressure = protocol.PacketTypePressure
)

// Battery code breakpoints (millivolts)
const (
	batteryFloorMV  = 1950
	batteryKneeMV   = 2800
	batteryCeilMV   = 3800
	batteryKneeCode = 170
)

// ReportFields are the inputs of one report.
type ReportFields struct {
	Sequence    uint16
	DeviceID    uint8
	PacketType  uint8
	BatteryCode uint8
	ADC1        uint16
	ADC2        uint16
	Pressure    int16
}

// SensorValues holds the last stored ADC group, as put on the air.
type SensorValues struct {
	BatteryCode uint8
	ADC1        uint16
	ADC2        uint16
}

// BuildReport encodes f in the fixed report layout. The result is a fresh
// slice owned by the caller.
func BuildReport(f ReportFields) []byte {
	out := protocol.NewScratchOutput()
	protocol.PutOctet(out, protocol.ReportMarker)
	protocol.PutOctet(out, f.DeviceID)
	protocol.PutBE16(out, f.Sequence)
	protocol.PutOctet(out, f.PacketType)
	protocol.PutOctet(out, f.BatteryCode)
	protocol.PutBE16(out, f.ADC1)
	protocol.PutBE16(out, f.ADC2)
	protocol.PutBE16(out, uint16(f.Pressure))

	report := make([]byte, out.CurPosition())
	copy(report, out.Result())
	return report
}

// EncodeBattery packs a supply voltage into one byte: 5 mV steps from
// 1950 mV up to 2800 mV (codes 0..170), 10 mV steps above that.
func EncodeBattery(mv uint16) uint8 {
	switch {
	case mv < batteryFloorMV:
		return 0
	case mv <= batteryKneeMV:
		return uint8((mv - batteryFloorMV) / 5)
	case mv <= batteryCeilMV:
		code := uint32(mv-batteryKneeMV)/10 + batteryKneeCode
		if code > 255 {
			code = 255
		}
		return uint8(code)
	default:
		return 255
	}
}

// DecodeBattery returns the lower bound in millivolts of a battery code.
func DecodeBattery(code uint8) uint16 {
	if code <= batteryKneeCode {
		return batteryFloorMV + 5*uint16(code)
	}
	return batteryKneeMV + uint16(code-batteryKneeCode)*10
}
