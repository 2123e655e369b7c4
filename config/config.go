// Package config loads the node configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"sensenode/core"
)

// Pressure sensor models
const (
	ModelMPL115A2 = "mpl115a2"
	ModelBMP180   = "bmp180"
)

type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Pins     PinConfig      `yaml:"pins"`
	Network  NetworkConfig  `yaml:"network"`
	Pressure PressureConfig `yaml:"pressure"`
	ADC      ADCConfig      `yaml:"adc"`
	Log      LogConfig      `yaml:"log"`
	Sim      SimConfig      `yaml:"sim"`
}

type DeviceConfig struct {
	ID                  uint8  `yaml:"id"`
	SleepTicks          uint32 `yaml:"sleep_ticks"`
	StateTimeoutTicks   uint32 `yaml:"state_timeout_ticks"`
	MicroSleepTicks     uint32 `yaml:"micro_sleep_ticks"`
	RCClock             uint16 `yaml:"rc_clock"`
	EncKey              uint32 `yaml:"enc_key"`
	Secure              bool   `yaml:"secure"`
	ToRouter            bool   `yaml:"to_router"`
	PacketType          uint8  `yaml:"packet_type"`
	SupercapThresholdMV uint16 `yaml:"supercap_threshold_mv"`
}

type PinConfig struct {
	SensorPower          uint32 `yaml:"sensor_power"`
	SensorPowerActiveLow bool   `yaml:"sensor_power_active_low"`
	SupercapControl      uint32 `yaml:"supercap_control"`
	HasSupercap          bool   `yaml:"has_supercap"`
}

type NetworkConfig struct {
	AppID   uint32 `yaml:"app_id"`
	Channel uint8  `yaml:"channel"`
	Layer   uint8  `yaml:"layer"`
}

type PressureConfig struct {
	Model           string `yaml:"model"`
	Address         uint8  `yaml:"i2c_address"`
	ConversionTicks uint8  `yaml:"conversion_ticks"`
}

type ADCConfig struct {
	ReferenceMV        uint32 `yaml:"reference_mv"`
	BatteryReferenceMV uint32 `yaml:"battery_reference_mv"`
	Resolution         uint8  `yaml:"resolution"`
	UseTempForADC2     bool   `yaml:"use_temp_for_adc2"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"` // stderr, stdout, file or serial
	FilePath   string `yaml:"file_path"`
	SerialPort string `yaml:"serial_port"`
	SerialBaud int    `yaml:"serial_baud"`
}

// SimConfig describes the simulated hardware around the core.
type SimConfig struct {
	Cycles       int           `yaml:"cycles"`
	TickPeriod   uint32        `yaml:"tick_period"`   // ticks between TimerTick events
	TickDuration time.Duration `yaml:"tick_duration"` // wall time per tick, 0 runs flat out

	PressureAbsent bool   `yaml:"pressure_absent"`
	PADC           uint16 `yaml:"padc"`
	TADC           uint16 `yaml:"tadc"`
	BatteryMV      uint16 `yaml:"battery_mv"`
	ADC1MV         uint16 `yaml:"adc1_mv"`
	ADC2MV         uint16 `yaml:"adc2_mv"`
	TempMV         uint16 `yaml:"temp_mv"`

	TxLatencyTicks uint32 `yaml:"tx_latency_ticks"`
	TxFailEvery    int    `yaml:"tx_fail_every"` // reject every Nth send, 0 never
	TxLostEvery    int    `yaml:"tx_lost_every"` // never confirm every Nth send, 0 never

	RadioPort   string `yaml:"radio_port"` // serial device receiving frames, empty discards
	RadioBaud   int    `yaml:"radio_baud"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the configuration of an unconfigured node.
func Default() *Config {
	s := core.DefaultSettings()
	return &Config{
		Device: DeviceConfig{
			ID:                  1,
			SleepTicks:          s.SleepTicks,
			StateTimeoutTicks:   s.StateTimeoutTicks,
			MicroSleepTicks:     s.MicroSleepTicks,
			PacketType:          s.PacketType,
			SupercapThresholdMV: s.SupercapThresholdMV,
		},
		Pins: PinConfig{
			SensorPower:          3,
			SensorPowerActiveLow: true,
			SupercapControl:      4,
		},
		Network: NetworkConfig{
			AppID:   0x67720102,
			Channel: 18,
		},
		Pressure: PressureConfig{
			Model:           ModelMPL115A2,
			Address:         uint8(core.MPL115A2Address),
			ConversionTicks: 2,
		},
		ADC: ADCConfig{
			ReferenceMV:        2470,
			BatteryReferenceMV: 3705,
			Resolution:         10,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			SerialBaud: 115200,
		},
		Sim: SimConfig{
			Cycles:         10,
			TickPeriod:     4,
			PADC:           375,
			TADC:           500,
			BatteryMV:      3000,
			ADC1MV:         1200,
			ADC2MV:         600,
			TempMV:         750,
			TxLatencyTicks: 10,
			RadioBaud:      115200,
			MetricsAddr:    ":9100",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills values an explicit zero in the file would break
func applyDefaults(cfg *Config) {
	if cfg.Device.StateTimeoutTicks == 0 {
		cfg.Device.StateTimeoutTicks = core.DefaultStateTimeoutTicks
	}
	if cfg.Device.MicroSleepTicks == 0 {
		cfg.Device.MicroSleepTicks = core.DefaultMicroSleepTicks
	}
	if cfg.Device.PacketType == 0 {
		cfg.Device.PacketType = core.PacketTypePressure
	}
	if cfg.Pressure.Model == "" {
		cfg.Pressure.Model = ModelMPL115A2
	}
	if cfg.ADC.BatteryReferenceMV == 0 {
		cfg.ADC.BatteryReferenceMV = cfg.ADC.ReferenceMV
	}
	if cfg.Sim.TickPeriod == 0 {
		cfg.Sim.TickPeriod = 4
	}
}

// Validate rejects settings the node cannot run with.
func (c *Config) Validate() error {
	if c.Device.SleepTicks == 0 {
		return errors.New("device.sleep_ticks must be positive")
	}
	if c.Device.MicroSleepTicks >= c.Device.SleepTicks {
		return fmt.Errorf("device.micro_sleep_ticks (%d) must be shorter than sleep_ticks (%d)",
			c.Device.MicroSleepTicks, c.Device.SleepTicks)
	}
	switch c.Pressure.Model {
	case ModelMPL115A2, ModelBMP180:
	default:
		return fmt.Errorf("pressure.model %q: want %s or %s", c.Pressure.Model, ModelMPL115A2, ModelBMP180)
	}
	if c.Pressure.Address > 0x7F {
		return fmt.Errorf("pressure.i2c_address 0x%02X is not a 7-bit address", c.Pressure.Address)
	}
	if c.ADC.ReferenceMV == 0 {
		return errors.New("adc.reference_mv must be positive")
	}
	if c.Pins.HasSupercap && c.Pins.SupercapControl == c.Pins.SensorPower {
		return fmt.Errorf("pins: supercap_control and sensor_power share pin %d", c.Pins.SensorPower)
	}
	switch c.Log.Output {
	case "", "stderr", "stdout":
	case "file":
		if c.Log.FilePath == "" {
			return errors.New("log.file_path is required for file output")
		}
	case "serial":
		if c.Log.SerialPort == "" {
			return errors.New("log.serial_port is required for serial output")
		}
	default:
		return fmt.Errorf("log.output %q not supported", c.Log.Output)
	}
	if c.Sim.TxFailEvery < 0 || c.Sim.TxLostEvery < 0 {
		return errors.New("sim.tx_fail_every and sim.tx_lost_every must not be negative")
	}
	return nil
}

// Settings maps the device and network sections onto core.Settings.
func (c *Config) Settings() core.Settings {
	return core.Settings{
		DeviceID:          c.Device.ID,
		SleepTicks:        c.Device.SleepTicks,
		StateTimeoutTicks: c.Device.StateTimeoutTicks,
		MicroSleepTicks:   c.Device.MicroSleepTicks,
		RCClock:           c.Device.RCClock,
		EncKey:            c.Device.EncKey,
		Secure:            c.Device.Secure,
		ToRouter:          c.Device.ToRouter,
		Tree: core.TreeParams{
			AppID:   c.Network.AppID,
			Channel: c.Network.Channel,
			Layer:   c.Network.Layer,
		},
		PacketType:          c.Device.PacketType,
		SupercapThresholdMV: c.Device.SupercapThresholdMV,
	}
}

func (c *Config) PowerConfig() core.PowerConfig {
	return core.PowerConfig{
		SensorPower:          core.GPIOPin(c.Pins.SensorPower),
		SensorPowerActiveLow: c.Pins.SensorPowerActiveLow,
		SupercapControl:      core.GPIOPin(c.Pins.SupercapControl),
		HasSupercap:          c.Pins.HasSupercap,
	}
}

func (c *Config) ADCPollConfig() core.ADCPollConfig {
	return core.ADCPollConfig{
		ReferenceMV:        c.ADC.ReferenceMV,
		BatteryReferenceMV: c.ADC.BatteryReferenceMV,
		Resolution:         c.ADC.Resolution,
		UseTempForADC2:     c.ADC.UseTempForADC2,
	}
}

func (c *Config) MPL115A2Config() core.MPL115A2Config {
	return core.MPL115A2Config{
		Address:         core.I2CAddress(c.Pressure.Address),
		ConversionTicks: c.Pressure.ConversionTicks,
	}
}
