package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"sensenode/config"
	"sensenode/core"
)

// BMP180Address is where the simulated BMP180 answers.
const BMP180Address = 0x77

// ErrNoWake is returned when the node sleeps with nothing left to wake it.
var ErrNoWake = errors.New("sim: no timer pending")

// Options wires the node to the outside world. Every field is optional.
type Options struct {
	Log        logrus.FieldLogger
	RadioOut   io.Writer // receives every framed report
	Registerer prometheus.Registerer
}

// Node is one simulated sensor node: the core state machine plus the
// hardware around it, driven by a discrete tick clock.
type Node struct {
	cfg *config.Config
	log logrus.FieldLogger

	clock  Clock
	timers TimerQueue
	tick   Timer
	wake   Timer

	ADC     *ADC
	Bus     *I2CBus
	GPIO    *GPIO
	Radio   *Radio
	MPL     *MPL115A2
	BMP     *BMP180
	Metrics *Metrics

	dev     *core.DeviceContext
	machine *core.Machine

	started    bool
	done       bool
	anchor     uint32 // tick of the last duty-cycle wake
	awakeSince uint32
	cycles     int
	sleeps     []core.SleepRequest
}

// NewNode builds a node from cfg.
func NewNode(cfg *config.Config, opts Options) (*Node, error) {
	if cfg == nil {
		return nil, errors.New("sim: nil config")
	}
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	n := &Node{cfg: cfg, log: log.WithField("node", cfg.Device.ID)}
	post := func(ev core.Event) {
		if !n.machine.Post(ev) {
			n.log.WithField("event", ev.Kind).Warn("event queue full")
		}
	}

	n.ADC = newADC(&n.timers, &n.clock, post, cfg.ADC.ReferenceMV, cfg.ADC.BatteryReferenceMV)
	n.ADC.SetLevel(core.ADCChannelBattery, cfg.Sim.BatteryMV)
	n.ADC.SetLevel(core.ADCChannelADC1, cfg.Sim.ADC1MV)
	n.ADC.SetLevel(core.ADCChannelADC2, cfg.Sim.ADC2MV)
	n.ADC.SetLevel(core.ADCChannelTemp, cfg.Sim.TempMV)

	n.Bus = NewI2CBus()
	var pressure core.PressurePoll
	switch cfg.Pressure.Model {
	case config.ModelBMP180:
		n.BMP = NewBMP180()
		if !cfg.Sim.PressureAbsent {
			n.Bus.Attach(BMP180Address, n.BMP)
		}
		pressure = core.NewBMP180Poll(n.Bus)
	default:
		n.MPL = NewMPL115A2(cfg.Sim.PADC, cfg.Sim.TADC)
		mcfg := cfg.MPL115A2Config()
		if !cfg.Sim.PressureAbsent {
			addr := uint16(mcfg.Address)
			if addr == 0 {
				addr = uint16(core.MPL115A2Address)
			}
			n.Bus.Attach(addr, n.MPL)
		}
		pressure = core.NewMPL115A2Poll(n.Bus, mcfg)
	}

	n.GPIO = newGPIO(&n.clock)
	power, err := core.NewPowerLines(n.GPIO, cfg.PowerConfig())
	if err != nil {
		return nil, fmt.Errorf("sim: power lines: %w", err)
	}

	n.Radio = newRadio(RadioConfig{
		Address:      0x81000000 | uint32(cfg.Device.ID),
		LatencyTicks: cfg.Sim.TxLatencyTicks,
		FailEvery:    cfg.Sim.TxFailEvery,
		LostEvery:    cfg.Sim.TxLostEvery,
	}, opts.RadioOut, n.log, &n.timers, &n.clock, post)

	n.dev = &core.DeviceContext{
		Settings:   cfg.Settings(),
		Log:        n.log,
		Clock:      &n.clock,
		Network:    n.Radio,
		Sleeper:    n,
		Calibrator: n.Radio,
		Power:      power,
		ADC:        core.NewADCPoll(n.ADC, cfg.ADCPollConfig()),
		Pressure:   pressure,
	}
	n.machine, err = core.NewMachine(n.dev)
	if err != nil {
		return nil, err
	}

	n.Metrics, err = NewMetrics(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("sim: metrics: %w", err)
	}
	return n, nil
}

// Machine returns the state machine under simulation.
func (n *Node) Machine() *core.Machine {
	return n.machine
}

// Device returns the device context shared with the machine.
func (n *Node) Device() *core.DeviceContext {
	return n.dev
}

// Ticks returns the simulated time.
func (n *Node) Ticks() uint32 {
	return n.clock.Ticks()
}

// Cycles returns how many duty-cycle sleeps the node has entered.
func (n *Node) Cycles() int {
	return n.cycles
}

// Sleeps returns every sleep request in order.
func (n *Node) Sleeps() []core.SleepRequest {
	return n.sleeps
}

// Done reports whether the configured number of cycles has run.
func (n *Node) Done() bool {
	return n.done
}

// Sleep implements core.SleepScheduler. Everything pending is dropped and
// the requested wake timer is armed.
func (n *Node) Sleep(req core.SleepRequest) {
	now := n.clock.Ticks()
	n.timers.Clear()
	n.ADC.halt()
	n.sleeps = append(n.sleeps, req)
	n.Metrics.observeSleep(req, now-n.awakeSince)

	wake := now + req.Duration
	if req.Timer == core.WakeTimer0 {
		n.cycles++
		n.Metrics.observeSensors(n.dev)
		if req.Periodic {
			wake = n.anchor + req.Duration
			for int32(wake-now) <= 0 {
				wake += req.Duration
			}
		}
		if n.cfg.Sim.Cycles > 0 && n.cycles >= n.cfg.Sim.Cycles {
			n.done = true
		}
	}

	n.log.WithFields(logrus.Fields{
		"timer":  req.Timer,
		"now":    now,
		"wake":   wake,
		"keep":   req.KeepState,
		"cycles": n.cycles,
	}).Debug("sleep")

	if n.done {
		return
	}
	timer := req.Timer
	n.wake = Timer{
		WakeTime: wake,
		Handler: func(t *Timer) uint8 {
			n.wakeUp(timer, t.WakeTime)
			return TimerDone
		},
	}
	n.timers.Schedule(&n.wake)
}

func (n *Node) wakeUp(timer core.WakeTimer, at uint32) {
	n.awakeSince = at
	if timer == core.WakeTimer0 {
		n.anchor = at
	}
	n.startTick()
	n.machine.Post(core.StartUp(core.WarmRamHeldWake))
}

func (n *Node) startTick() {
	period := n.cfg.Sim.TickPeriod
	if period == 0 {
		period = 1
	}
	n.tick = Timer{
		WakeTime: n.clock.Ticks() + period,
		Handler: func(t *Timer) uint8 {
			n.machine.Post(core.TimerTick())
			t.WakeTime += period
			return TimerReschedule
		},
	}
	n.timers.Schedule(&n.tick)
}

// Step cold starts the node on the first call, then advances the clock to
// the next timer and runs everything it produced.
func (n *Node) Step() error {
	if !n.started {
		n.started = true
		n.anchor = n.clock.Ticks()
		n.awakeSince = n.anchor
		n.startTick()
		n.machine.Handle(core.StartUp(core.ColdStart))
		n.observe()
		return nil
	}
	next, ok := n.timers.Next()
	if !ok {
		return ErrNoWake
	}
	n.clock.set(next)
	n.timers.Dispatch(next)
	n.machine.Drain()
	n.observe()
	return nil
}

// Run steps the node until the configured cycles are done or ctx ends.
// With a non-zero TickDuration each step waits the wall time of the ticks
// it skips.
func (n *Node) Run(ctx context.Context) error {
	tickDuration := n.cfg.Sim.TickDuration
	for !n.done {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tickDuration > 0 && n.started {
			if next, ok := n.timers.Next(); ok {
				if err := pace(ctx, time.Duration(next-n.clock.Ticks())*tickDuration); err != nil {
					return err
				}
			}
		}
		if err := n.Step(); err != nil {
			return err
		}
	}
	n.log.WithFields(logrus.Fields{
		"cycles": n.cycles,
		"ticks":  n.clock.Ticks(),
		"frames": n.Radio.Stats().Frames,
	}).Info("simulation finished")
	return nil
}

func (n *Node) observe() {
	n.Metrics.observe(n.machine.Stats(), n.machine.State())
}

func pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ core.SleepScheduler = (*Node)(nil)
