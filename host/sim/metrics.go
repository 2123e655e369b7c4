package sim

import (
	"github.com/prometheus/client_golang/prometheus"

	"sensenode/core"
)

// Metrics exports the node counters. The node updates them between event
// batches, so scrapes never touch the machine directly.
type Metrics struct {
	Cycles           prometheus.Counter
	Transmits        *prometheus.CounterVec // result: sent, failed
	Timeouts         prometheus.Counter
	SensorErrors     prometheus.Counter
	UnexpectedEvents prometheus.Counter
	DroppedEvents    prometheus.Counter
	Sleeps           *prometheus.CounterVec // timer: duty, micro
	State            prometheus.Gauge
	CycleTicks       prometheus.Histogram
	Pressure         prometheus.Gauge
	BatteryMV        prometheus.Gauge

	last core.Stats
}

// NewMetrics creates the collectors and registers them on reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensenode_cycles_total",
			Help: "Wake cycles started.",
		}),
		Transmits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensenode_transmits_total",
			Help: "Report send attempts by result.",
		}, []string{"result"}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensenode_state_timeouts_total",
			Help: "Cycles abandoned on the state timeout.",
		}),
		SensorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensenode_sensor_errors_total",
			Help: "Degraded sensor measurements.",
		}),
		UnexpectedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensenode_unexpected_events_total",
			Help: "Events a state had no use for.",
		}),
		DroppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensenode_dropped_events_total",
			Help: "Events lost to a full queue.",
		}),
		Sleeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensenode_sleeps_total",
			Help: "Sleeps entered by wake timer.",
		}, []string{"timer"}),
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sensenode_state",
			Help: "Current machine state (0 idle, 1 running, 2 wait_tx, 3 sleep).",
		}),
		CycleTicks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sensenode_awake_ticks",
			Help:    "Ticks spent awake per duty cycle.",
			Buckets: prometheus.LinearBuckets(10, 20, 8),
		}),
		Pressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sensenode_pressure_hpa",
			Help: "Last reported pressure.",
		}),
		BatteryMV: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sensenode_battery_millivolts",
			Help: "Last reported battery voltage, decoded from the report code.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.Cycles, m.Transmits, m.Timeouts, m.SensorErrors, m.UnexpectedEvents,
		m.DroppedEvents, m.Sleeps, m.State, m.CycleTicks, m.Pressure, m.BatteryMV,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// observe adds whatever the machine counted since the last call.
func (m *Metrics) observe(s core.Stats, state core.State) {
	m.Cycles.Add(float64(s.Cycles - m.last.Cycles))
	m.Transmits.WithLabelValues("sent").Add(float64(s.Sends - m.last.Sends))
	m.Transmits.WithLabelValues("failed").Add(float64(s.SendFailures - m.last.SendFailures))
	m.Timeouts.Add(float64(s.Timeouts - m.last.Timeouts))
	m.SensorErrors.Add(float64(s.SensorErrors - m.last.SensorErrors))
	m.UnexpectedEvents.Add(float64(s.UnexpectedEvents - m.last.UnexpectedEvents))
	m.DroppedEvents.Add(float64(s.DroppedEvents - m.last.DroppedEvents))
	m.State.Set(float64(state))
	m.last = s
}

func (m *Metrics) observeSleep(req core.SleepRequest, awakeTicks uint32) {
	if req.Timer == core.WakeTimer1 {
		m.Sleeps.WithLabelValues("micro").Inc()
		return
	}
	m.Sleeps.WithLabelValues("duty").Inc()
	m.CycleTicks.Observe(float64(awakeTicks))
}

func (m *Metrics) observeSensors(dev *core.DeviceContext) {
	m.BatteryMV.Set(float64(core.DecodeBattery(dev.Sensors.BatteryCode)))
	if p := dev.Pressure.Result(); p != core.PressureError {
		m.Pressure.Set(float64(p))
	}
}
