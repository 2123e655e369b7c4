package core

// ADCChannelID identifies a logical ADC channel.
type ADCChannelID uint8

// Channels sampled by the ADC group on this node.
const (
	ADCChannelBattery ADCChannelID = iota // supply voltage, internal divider
	ADCChannelADC1
	ADCChannelADC2
	ADCChannelTemp // on-die temperature sensor
)

// ADCValue is the raw reading as seen by the rest of the firmware.
// Convention here: 16-bit left-justified, whatever the hardware resolution.
type ADCValue uint16

// ADCConfig is the high-level config the core cares about.
type ADCConfig struct {
	ReferenceMV uint32 // full-scale input in millivolts
	Resolution  uint8  // hardware bits
}

// ADCDriver is the abstract ADC interface that core code uses.
// Conversions are asynchronous: Start returns immediately and the
// hardware raises HardwareComplete(SourceADC) when the result is ready.
type ADCDriver interface {
	// Init powers up and configures the ADC peripheral.
	Init(cfg ADCConfig) error

	// Start begins a conversion on ch.
	Start(ch ADCChannelID) error

	// ReadRaw returns the result of the last finished conversion on ch.
	ReadRaw(ch ADCChannelID) (ADCValue, error)
}

// rawToMillivolts scales a left-justified 16-bit reading to millivolts.
func rawToMillivolts(v ADCValue, referenceMV uint32) uint16 {
	return uint16((uint32(v) * referenceMV) >> 16)
}
