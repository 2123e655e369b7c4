// report-monitor listens on the serial line of a parent node and prints the
// sensor reports it receives.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"sensenode/core"
	"sensenode/host/monitor"
	"sensenode/host/serial"
)

var (
	device      = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud        = flag.Int("baud", 115200, "Baud rate")
	metricsAddr = flag.String("metrics", "", "Metrics listen address, empty disables")
	logLevel    = flag.String("log-level", "info", "Log level")
	logFormat   = flag.String("log-format", "text", "Log format: text or json")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "report-monitor: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	log := core.NewLogger(*logLevel, *logFormat, os.Stderr)

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	defer port.Close()

	reg := prometheus.NewRegistry()
	mon, err := monitor.New(log, func(r monitor.Reading) {
		fields := logrus.Fields{
			"device":  r.Report.DeviceID,
			"seq":     r.Report.Sequence,
			"batt_mv": core.DecodeBattery(r.Report.BatteryCode),
			"adc1_mv": r.Report.ADC1,
			"adc2_mv": r.Report.ADC2,
			"src":     fmt.Sprintf("0x%08X", r.Src),
		}
		if r.Report.PressureValid() {
			fields["hpa"] = r.Report.Pressure
		} else {
			fields["hpa"] = "error"
		}
		if r.Missed > 0 {
			fields["missed"] = r.Missed
		}
		log.WithFields(fields).Info("report")
	}, reg)
	if err != nil {
		return err
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server")
			}
		}()
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("device", *device).Info("listening for reports")
	err = mon.Run(ctx, port)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	s := mon.Stats()
	log.WithFields(logrus.Fields{
		"reports": s.Reports,
		"bad":     s.BadReports,
		"missed":  s.Missed,
		"desyncs": s.Desyncs,
	}).Info("stopped")
	return err
}
