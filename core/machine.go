// Duty cycle state machine
// One wake cycle runs Idle -> Running -> WaitTx -> Sleep. Every failure path
// goes straight to Sleep and the next periodic wake starts over.
package core

import (
	"github.com/sirupsen/logrus"
)

// Stats counts what the machine did since it was created.
type Stats struct {
	Cycles           uint32 // Idle entries on StartUp
	Sends            uint32 // reports accepted by the network
	SendFailures     uint32 // network setup or Send errors
	Timeouts         uint32
	SensorErrors     uint32
	UnexpectedEvents uint32
	DroppedEvents    uint32
}

// Machine is the application state machine. It is not safe for concurrent
// use: interrupt sources hand it events through Post, and Handle drains them
// one at a time.
type Machine struct {
	dev *DeviceContext
	log logrus.FieldLogger

	state      State
	next       State
	entryTick  uint32
	tracker    CompletionTracker
	microSlept bool // a micro-sleep was armed since the last wake

	queue       eventQueue
	dispatching bool
	trace       traceRing
	stats       Stats
}

// NewMachine creates the machine in Idle, waiting for StartUp.
func NewMachine(dev *DeviceContext) (*Machine, error) {
	if err := dev.Validate(); err != nil {
		return nil, err
	}
	if dev.Log == nil {
		dev.Log = discardLogger()
	}
	m := &Machine{
		dev: dev,
		log: dev.Log,
	}
	m.entryTick = dev.Clock.Ticks()
	return m, nil
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Tracker returns a copy of the completion tracker.
func (m *Machine) Tracker() CompletionTracker {
	return m.tracker
}

// Stats returns a copy of the counters.
func (m *Machine) Stats() Stats {
	s := m.stats
	s.DroppedEvents = m.queue.dropped
	return s
}

// Transitions returns the recent state changes, oldest first.
func (m *Machine) Transitions() []Transition {
	return m.trace.snapshot()
}

// Post queues ev without dispatching it. Safe to call from an interrupt
// handler; the event runs on the next Handle or Drain.
func (m *Machine) Post(ev Event) bool {
	return m.queue.push(ev)
}

// Handle queues ev and, unless a handler is already running, dispatches the
// queue until it is empty.
func (m *Machine) Handle(ev Event) {
	if !m.queue.push(ev) {
		m.log.WithField("event", ev.Kind).Warn("event queue full, dropping")
	}
	m.Drain()
}

// Drain dispatches queued events. A no-op when called from inside a handler.
func (m *Machine) Drain() {
	if m.dispatching {
		return
	}
	m.dispatching = true
	defer func() { m.dispatching = false }()

	for {
		ev, ok := m.queue.pop()
		if !ok {
			return
		}
		m.deliver(ev)
	}
}

func (m *Machine) deliver(ev Event) {
	switch ev.Kind {
	case EventStartUp:
		m.wake(ev)
	case EventTimerTick:
		m.pollPressure(ev)
	case EventHardwareComplete:
		switch ev.Source {
		case SourcePressure:
			m.pollPressure(ev)
		case SourceADC:
			m.pollADC(ev)
		}
	case EventTransmitComplete:
		m.log.WithFields(logrus.Fields{
			"id": ev.TxID,
			"ok": ev.TxOK,
		}).Info("tx complete")
		if m.state != StateWaitTx {
			return
		}
		ev = OrderKick()
	}

	m.dispatch(ev)

	// A state change is announced to the new state before anything else.
	for m.next != m.state {
		from := m.state
		m.state = m.next
		m.entryTick = m.dev.Clock.Ticks()
		m.trace.record(Transition{From: from, To: m.state, Tick: m.entryTick, Cause: ev.Kind})
		m.log.WithFields(logrus.Fields{
			"from": from,
			"to":   m.state,
			"tick": m.entryTick,
		}).Debug("state change")

		ev = newStateEntered()
		m.dispatch(ev)
	}
}

func (m *Machine) dispatch(ev Event) {
	switch m.state {
	case StateIdle:
		m.idle(ev)
	case StateRunning:
		m.running(ev)
	case StateWaitTx:
		m.waitTx(ev)
	case StateSleep:
		m.sleep(ev)
	}
}

// setState requests a transition once the current handler returns.
func (m *Machine) setState(s State) {
	m.next = s
}

func (m *Machine) elapsed() uint32 {
	return m.dev.Clock.Ticks() - m.entryTick
}

func (m *Machine) timedOut() bool {
	return m.elapsed() > m.dev.Settings.StateTimeoutTicks
}

// wake runs before any state handler sees a StartUp. A cold boot or a wake
// out of Sleep starts the cycle over in Idle; any other StartUp reaches the
// current state unchanged, so a pending transmit is never overtaken.
func (m *Machine) wake(ev Event) {
	m.microSlept = false
	if ev.Wake != ColdStart && m.state != StateSleep {
		return
	}
	if ev.Wake == ColdStart {
		// nothing survives a cold boot
		m.dev.FrameCount = 0
		m.dev.Sensors = SensorValues{}
		m.dev.nwk = nil
	}
	if m.state != StateIdle {
		m.trace.record(Transition{From: m.state, To: StateIdle, Tick: m.dev.Clock.Ticks(), Cause: ev.Kind})
	}
	m.state = StateIdle
	m.next = StateIdle
	m.entryTick = m.dev.Clock.Ticks()
}

func (m *Machine) idle(ev Event) {
	if ev.Kind != EventStartUp {
		m.stats.UnexpectedEvents++
		m.log.WithField("event", ev.Kind).Warn("unexpected event in idle")
		m.setState(StateSleep)
		return
	}
	m.stats.Cycles++

	if ev.IsWarm() {
		m.log.Info("warm start, woke by timer")
	} else {
		m.log.WithField("device", m.dev.Settings.DeviceID).Info("cold start")
	}

	if m.dev.Calibrator != nil {
		m.dev.RCClock = m.dev.Calibrator.CalibrateRC(m.dev.Settings.RCClock)
		m.log.WithField("rc", m.dev.RCClock).Debug("rc clock calibrated")
	}

	if err := m.dev.Power.SetSensorPower(true); err != nil {
		m.log.WithError(err).Warn("sensor power on")
	}

	m.tracker.Reset()
	m.dev.Pressure.Reset()
	m.dev.Pressure.Advance(OrderKick())
	if m.dev.Pressure.IsComplete() {
		// no answer on the bus, nothing to measure this cycle
		m.tracker.Set(PressureDone)
		m.stats.SensorErrors++
		m.log.WithError(m.dev.Pressure.Err()).Warn("pressure sensor comm error")
		m.setState(StateSleep)
		return
	}

	m.dev.ADC.Reset()
	m.pollADC(OrderKick())
	m.setState(StateRunning)
}

func (m *Machine) running(ev Event) {
	if ev.IsWarm() {
		m.pollPressure(ev)
	}

	// ADC done, pressure still converting: nap on the spare wake timer
	// instead of spinning. Timer 0 keeps counting the duty cycle.
	if m.tracker.Has(AdcDone) && !m.tracker.IsAllDone() && !m.microSlept {
		m.microSlept = true
		m.dev.Sleeper.Sleep(SleepRequest{
			Timer:     WakeTimer1,
			Duration:  m.dev.Settings.MicroSleepTicks,
			KeepState: true,
		})
	}

	if m.tracker.IsAllDone() {
		m.setState(StateWaitTx)
		return
	}

	// A timeout supersedes a micro-sleep armed on the same delivery: Sleep
	// entry re-arms timer 0.
	if m.timedOut() {
		m.stats.Timeouts++
		m.log.WithFields(logrus.Fields{
			"state":     m.state,
			"completed": m.tracker.String(),
		}).Warn("time out")
		m.setState(StateSleep)
	}
}

func (m *Machine) waitTx(ev Event) {
	switch ev.Kind {
	case EventNewState:
		m.transmit()
		if m.next != m.state {
			return
		}
	case EventOrderKick:
		m.setState(StateSleep)
		return
	}

	if m.timedOut() {
		m.stats.Timeouts++
		m.log.WithField("state", m.state).Warn("time out")
		m.setState(StateSleep)
	}
}

// transmit makes the single send attempt of this WaitTx entry.
func (m *Machine) transmit() {
	dev := m.dev
	nw := dev.Network

	if dev.Settings.Secure {
		if err := nw.RegisterKey(dev.Settings.EncKey); err != nil {
			m.log.WithError(err).Warn("register key")
		}
	}

	if dev.nwk == nil {
		if err := m.startNetwork(); err != nil {
			m.stats.SendFailures++
			m.log.WithError(err).Warn("network init")
			m.setState(StateSleep)
			return
		}
	} else if err := nw.Resume(dev.nwk); err != nil {
		m.log.WithError(err).Warn("network resume")
	}

	dev.FrameCount++
	payload := BuildReport(ReportFields{
		Sequence:    dev.FrameCount,
		DeviceID:    dev.Settings.DeviceID,
		PacketType:  dev.Settings.PacketType,
		BatteryCode: dev.Sensors.BatteryCode,
		ADC1:        dev.Sensors.ADC1,
		ADC2:        dev.Sensors.ADC2,
		Pressure:    dev.Pressure.Result(),
	})

	req := TxRequest{
		Src:        nw.Address(),
		Dst:        dev.Settings.Destination(),
		Payload:    payload,
		CallbackID: uint8(dev.FrameCount),
		Sequence:   uint8(dev.FrameCount),
		Secure:     dev.Settings.Secure,
	}

	fields := logrus.Fields{
		"frame": dev.FrameCount,
		"dst":   req.Dst,
	}
	if err := nw.Send(dev.nwk, req); err != nil {
		m.stats.SendFailures++
		m.log.WithFields(fields).WithError(err).Warn("TxFl")
		m.setState(StateSleep)
		return
	}
	m.stats.Sends++
	m.log.WithFields(fields).Info("TxOk")
}

func (m *Machine) startNetwork() error {
	nw := m.dev.Network
	ctx, err := nw.Configure(RoleEndDevice, m.dev.Settings.Tree)
	if err != nil {
		return err
	}
	if ctx == nil {
		return ErrNetworkUnavailable
	}
	if err := nw.Init(ctx); err != nil {
		return err
	}
	if err := nw.Start(ctx); err != nil {
		return err
	}
	m.dev.nwk = ctx
	return nil
}

func (m *Machine) sleep(ev Event) {
	if ev.Kind != EventNewState {
		m.log.WithField("event", ev.Kind).Debug("ignored while sleeping")
		return
	}

	m.log.WithField("frame", m.dev.FrameCount).Info("sleeping")
	// nothing left to report a flush error on
	_ = flushLog(m.log)

	if m.dev.nwk != nil {
		if err := m.dev.Network.Pause(m.dev.nwk); err != nil {
			m.log.WithError(err).Debug("network pause")
		}
	}

	// Sleep entry always wins the sensor supply line.
	if err := m.dev.Power.SetSensorPower(false); err != nil {
		m.log.WithError(err).Warn("sensor power off")
	}

	// The first cycle sleeps the full period from now; later cycles
	// anchor to the previous wake so the period does not drift.
	m.dev.Sleeper.Sleep(SleepRequest{
		Timer:    WakeTimer0,
		Duration: m.dev.Settings.SleepTicks,
		Periodic: m.dev.FrameCount != 1,
	})
}

// pollPressure feeds the pressure poll until it completes.
func (m *Machine) pollPressure(ev Event) {
	p := m.dev.Pressure
	if p.IsComplete() {
		return
	}
	p.Advance(ev)
	if !p.IsComplete() {
		return
	}
	m.tracker.Set(PressureDone)
	if err := p.Err(); err != nil {
		m.stats.SensorErrors++
		m.log.WithError(err).Warn("pressure read failed")
		return
	}
	m.log.WithField("hpa", p.Result()).Info("pressure")
}

// pollADC feeds the ADC group and stores its values once complete.
func (m *Machine) pollADC(ev Event) {
	a := m.dev.ADC
	if a.IsComplete() {
		return
	}
	a.Advance(ev)
	if !a.IsComplete() {
		return
	}
	m.tracker.Set(AdcDone)
	m.storeSensorValues(a.Result())
}

func (m *Machine) storeSensorValues(r ADCResult) {
	if r.Err != nil {
		m.stats.SensorErrors++
		m.log.WithError(r.Err).Warn("adc group incomplete")
	}
	m.dev.Sensors = SensorValues{
		BatteryCode: EncodeBattery(r.BatteryMV),
		ADC1:        r.ADC1MV,
		ADC2:        r.ADC2MV,
	}
	m.log.WithFields(logrus.Fields{
		"batt_mv": r.BatteryMV,
		"adc1_mv": r.ADC1MV,
		"adc2_mv": r.ADC2MV,
	}).Debug("adc stored")

	if r.ADC1MV >= m.dev.Settings.SupercapThresholdMV {
		if err := m.dev.Power.EnableSupercap(); err != nil {
			m.log.WithError(err).Warn("supercap control")
		}
	}
	if err := m.dev.Power.SetSensorPower(false); err != nil {
		m.log.WithError(err).Warn("sensor power off")
	}
}
