package core

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
)

var errNoAck = errors.New("i2c: no ack")

type fakeClock struct {
	now uint32
}

func (c *fakeClock) Ticks() uint32 { return c.now }

func (c *fakeClock) advance(n uint32) { c.now += n }

type fakeNetwork struct {
	configureErr error
	initErr      error
	sendErr      error
	keyErr       error

	calls []string
	sends []TxRequest
	keys  []uint32
}

type fakeNwkContext struct{ id int }

func (n *fakeNetwork) Configure(role Role, tree TreeParams) (NetworkContext, error) {
	n.calls = append(n.calls, "configure")
	if n.configureErr != nil {
		return nil, n.configureErr
	}
	return &fakeNwkContext{id: 1}, nil
}

func (n *fakeNetwork) Init(ctx NetworkContext) error {
	n.calls = append(n.calls, "init")
	return n.initErr
}

func (n *fakeNetwork) Start(ctx NetworkContext) error {
	n.calls = append(n.calls, "start")
	return nil
}

func (n *fakeNetwork) Pause(ctx NetworkContext) error {
	n.calls = append(n.calls, "pause")
	return nil
}

func (n *fakeNetwork) Resume(ctx NetworkContext) error {
	n.calls = append(n.calls, "resume")
	return nil
}

func (n *fakeNetwork) Send(ctx NetworkContext, req TxRequest) error {
	n.calls = append(n.calls, "send")
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sends = append(n.sends, req)
	return nil
}

func (n *fakeNetwork) RegisterKey(key uint32) error {
	n.keys = append(n.keys, key)
	return n.keyErr
}

func (n *fakeNetwork) Address() uint32 { return 0x81000042 }

func (n *fakeNetwork) count(call string) int {
	c := 0
	for _, s := range n.calls {
		if s == call {
			c++
		}
	}
	return c
}

type fakeSleeper struct {
	requests []SleepRequest
}

func (s *fakeSleeper) Sleep(req SleepRequest) {
	s.requests = append(s.requests, req)
}

func (s *fakeSleeper) last() SleepRequest {
	return s.requests[len(s.requests)-1]
}

type fakeADCDriver struct {
	raw     map[ADCChannelID]ADCValue
	initErr error
	readErr error

	inits   int
	started []ADCChannelID
}

func newFakeADCDriver() *fakeADCDriver {
	return &fakeADCDriver{
		raw: map[ADCChannelID]ADCValue{
			ADCChannelBattery: 0xC000, // 2700 mV at 3600 mV full scale
			ADCChannelADC1:    0x8000, // 1200 mV at 2400 mV full scale
			ADCChannelADC2:    0x4000, // 600 mV
			ADCChannelTemp:    0x2000, // 300 mV
		},
	}
}

func (d *fakeADCDriver) Init(cfg ADCConfig) error {
	d.inits++
	return d.initErr
}

func (d *fakeADCDriver) Start(ch ADCChannelID) error {
	d.started = append(d.started, ch)
	return nil
}

func (d *fakeADCDriver) ReadRaw(ch ADCChannelID) (ADCValue, error) {
	if d.readErr != nil {
		return 0, d.readErr
	}
	return d.raw[ch], nil
}

var testADCConfig = ADCPollConfig{
	ReferenceMV:        2400,
	BatteryReferenceMV: 3600,
	Resolution:         12,
}

// MPL115A2 coefficients of a real part: a0=2009.75 b1=-2.3759 b2=-0.9205
// c12=0.00079
var testMPLCoefficients = []byte{0x3E, 0xCE, 0xB3, 0xF9, 0xC5, 0x17, 0x33, 0xC8}

// fakeMPLBus answers like an MPL115A2 at 0x60.
type fakeMPLBus struct {
	absent   bool
	failRead bool
	padc     uint16 // 10-bit
	tadc     uint16 // 10-bit

	coeffReads int
	converts   int
	adcReads   int
}

func newFakeMPLBus() *fakeMPLBus {
	return &fakeMPLBus{padc: 375, tadc: 500} // 1013 hPa
}

func (b *fakeMPLBus) Tx(addr uint16, w, r []byte) error {
	if b.absent || addr != uint16(MPL115A2Address) || len(w) == 0 {
		return errNoAck
	}
	switch w[0] {
	case mplRegA0MSB:
		b.coeffReads++
		copy(r, testMPLCoefficients)
	case mplRegConvert:
		b.converts++
	case mplRegPadcMSB:
		if b.failRead {
			return errNoAck
		}
		b.adcReads++
		p := b.padc << 6
		t := b.tadc << 6
		copy(r, []byte{byte(p >> 8), byte(p), byte(t >> 8), byte(t)})
	}
	return nil
}

// stuckPressure never finishes a conversion.
type stuckPressure struct {
	kicked bool
}

func (p *stuckPressure) Reset()           { p.kicked = false }
func (p *stuckPressure) Advance(ev Event) { p.kicked = p.kicked || ev.Kind == EventOrderKick }
func (p *stuckPressure) IsComplete() bool { return false }
func (p *stuckPressure) Result() int16    { return PressureError }
func (p *stuckPressure) Err() error       { return nil }

type fakeGPIO struct {
	levels     map[GPIOPin]bool
	configured map[GPIOPin]bool
	writes     int
}

func newFakeGPIO() *fakeGPIO {
	return &fakeGPIO{levels: map[GPIOPin]bool{}, configured: map[GPIOPin]bool{}}
}

func (g *fakeGPIO) ConfigureOutput(pin GPIOPin) error {
	g.configured[pin] = true
	return nil
}

func (g *fakeGPIO) SetPin(pin GPIOPin, value bool) error {
	g.levels[pin] = value
	g.writes++
	return nil
}

func (g *fakeGPIO) GetPin(pin GPIOPin) (bool, error) {
	return g.levels[pin], nil
}

type fakeCalibrator struct {
	calls int
}

func (c *fakeCalibrator) CalibrateRC(stored uint16) uint16 {
	c.calls++
	if stored != 0 {
		return stored
	}
	return 0x1234
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
