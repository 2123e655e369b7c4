package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	ConfigureOutput(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error

	// GetPin reads the current pin state
	GetPin(pin GPIOPin) (bool, error)
}

// PowerConfig names the output lines the application drives.
type PowerConfig struct {
	SensorPower          GPIOPin
	SensorPowerActiveLow bool
	SupercapControl      GPIOPin
	HasSupercap          bool
}

// PowerLines drives the sensor supply switch and the supercap bypass.
// The sensor supply is shared: ADC completion and sleep entry both switch it
// off, and sleep entry always wins.
type PowerLines struct {
	gpio GPIODriver
	cfg  PowerConfig
}

// NewPowerLines configures the lines as outputs and parks the sensor supply
// at its idle level.
func NewPowerLines(gpio GPIODriver, cfg PowerConfig) (*PowerLines, error) {
	if err := gpio.ConfigureOutput(cfg.SensorPower); err != nil {
		return nil, err
	}
	if cfg.HasSupercap {
		if err := gpio.ConfigureOutput(cfg.SupercapControl); err != nil {
			return nil, err
		}
		// bypass disabled until the cap has charged
		if err := gpio.SetPin(cfg.SupercapControl, true); err != nil {
			return nil, err
		}
	}
	p := &PowerLines{gpio: gpio, cfg: cfg}
	if err := p.SetSensorPower(false); err != nil {
		return nil, err
	}
	return p, nil
}

// SetSensorPower switches the sensor supply. A nil receiver is a board
// without a switched supply.
func (p *PowerLines) SetSensorPower(on bool) error {
	if p == nil {
		return nil
	}
	level := on
	if p.cfg.SensorPowerActiveLow {
		level = !on
	}
	return p.gpio.SetPin(p.cfg.SensorPower, level)
}

// EnableSupercap connects the supercap directly (control line low).
func (p *PowerLines) EnableSupercap() error {
	if p == nil || !p.cfg.HasSupercap {
		return nil
	}
	return p.gpio.SetPin(p.cfg.SupercapControl, false)
}
