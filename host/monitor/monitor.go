// Package monitor decodes the report frames a sensor node sends over a
// serial line.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"sensenode/protocol"
)

const readChunk = 256

// Reading is one decoded report with its frame addressing.
type Reading struct {
	Received time.Time
	Src      uint32
	Dst      uint32
	Secure   bool
	Report   protocol.Report
	// Missed counts sequence numbers skipped since the previous report
	// from the same device.
	Missed uint16
}

// Handler receives every decoded report.
type Handler func(r Reading)

// Stats counts what the monitor saw.
type Stats struct {
	Reports    int
	BadReports int
	Missed     int
	Desyncs    int
}

// Monitor reads a byte stream, splits it into frames and decodes the
// reports inside.
type Monitor struct {
	log     logrus.FieldLogger
	handler Handler
	now     func() time.Time

	fifo   *protocol.FifoBuffer
	reader *protocol.FrameReader

	mu      sync.Mutex
	lastSeq map[uint8]uint16
	stats   Stats

	reports *prometheus.CounterVec
	missed  prometheus.Counter
}

// New creates a monitor. reg may be nil.
func New(log logrus.FieldLogger, handler Handler, reg prometheus.Registerer) (*Monitor, error) {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	m := &Monitor{
		log:     log,
		handler: handler,
		now:     time.Now,
		fifo:    protocol.NewFifoBuffer(4 * protocol.FrameLengthMax),
		lastSeq: map[uint8]uint16{},
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensenode_monitor_reports_total",
			Help: "Reports received by device.",
		}, []string{"device"}),
		missed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensenode_monitor_missed_reports_total",
			Help: "Sequence numbers never received.",
		}),
	}
	m.reader = protocol.NewFrameReader(m.handleFrame)
	if reg != nil {
		if err := reg.Register(m.reports); err != nil {
			return nil, err
		}
		if err := reg.Register(m.missed); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Feed pushes raw bytes from the line through the decoder.
func (m *Monitor) Feed(data []byte) {
	for len(data) > 0 {
		n := m.fifo.Write(data)
		data = data[n:]
		m.reader.Receive(m.fifo)
		if n == 0 && m.fifo.Free() == 0 {
			// a full buffer that holds no frame is garbage
			m.fifo.Reset()
		}
	}
}

// Run reads from r until EOF or ctx ends. Closing r is the caller's job;
// a blocked Read only returns when r is closed or times out.
func (m *Monitor) Run(ctx context.Context, r io.Reader) error {
	buf := make([]byte, readChunk)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			m.Feed(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.log.WithError(err).Debug("serial read")
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// Stats returns the counters so far.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Desyncs = m.reader.Dropped()
	return s
}

func (m *Monitor) handleFrame(f protocol.Frame) {
	report, err := protocol.DecodeReport(f.Payload)
	if err != nil {
		m.mu.Lock()
		m.stats.BadReports++
		m.mu.Unlock()
		m.log.WithError(err).WithField("src", fmt.Sprintf("0x%08X", f.Src)).Warn("bad report")
		return
	}

	m.mu.Lock()
	var missed uint16
	if last, ok := m.lastSeq[report.DeviceID]; ok {
		// modular distance; a backwards step is a node reboot, not a gap
		if d := report.Sequence - last - 1; d < 0x8000 {
			missed = d
		}
	}
	m.lastSeq[report.DeviceID] = report.Sequence
	m.stats.Reports++
	m.stats.Missed += int(missed)
	m.mu.Unlock()

	m.reports.WithLabelValues(fmt.Sprint(report.DeviceID)).Inc()
	m.missed.Add(float64(missed))

	fields := logrus.Fields{
		"device": report.DeviceID,
		"seq":    report.Sequence,
		"batt":   report.BatteryCode,
		"adc1":   report.ADC1,
		"adc2":   report.ADC2,
	}
	if report.PressureValid() {
		fields["hpa"] = report.Pressure
	}
	m.log.WithFields(fields).Debug("report")

	if m.handler != nil {
		m.handler(Reading{
			Received: m.now(),
			Src:      f.Src,
			Dst:      f.Dst,
			Secure:   f.Secure,
			Report:   report,
			Missed:   missed,
		})
	}
}
