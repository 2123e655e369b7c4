// node-sim runs the sensor node firmware core against simulated hardware,
// framing its reports onto a serial port.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"sensenode/config"
	"sensenode/core"
	"sensenode/host/serial"
	"sensenode/host/sim"
)

var (
	configPath  = flag.String("config", "sensenode.yaml", "Configuration file")
	cycles      = flag.Int("cycles", -1, "Duty cycles to run, 0 forever (overrides sim.cycles)")
	radioPort   = flag.String("radio", "", "Serial device receiving report frames (overrides sim.radio_port)")
	metricsAddr = flag.String("metrics", "", "Metrics listen address (overrides sim.metrics_addr)")
	logLevel    = flag.String("log-level", "", "Log level (overrides log.level)")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "node-sim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *cycles >= 0 {
		cfg.Sim.Cycles = *cycles
	}
	if *radioPort != "" {
		cfg.Sim.RadioPort = *radioPort
	}
	if *metricsAddr != "" {
		cfg.Sim.MetricsAddr = *metricsAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	out, closeLog, err := openLogOutput(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	log := core.NewLogger(cfg.Log.Level, cfg.Log.Format, out)

	var radioOut io.Writer = io.Discard
	if cfg.Sim.RadioPort != "" {
		sc := serial.DefaultConfig(cfg.Sim.RadioPort)
		sc.Baud = cfg.Sim.RadioBaud
		port, err := serial.Open(sc)
		if err != nil {
			return err
		}
		defer port.Close()
		radioOut = port
	}

	reg := prometheus.NewRegistry()
	node, err := sim.NewNode(cfg, sim.Options{
		Log:        log,
		RadioOut:   radioOut,
		Registerer: reg,
	})
	if err != nil {
		return err
	}

	if cfg.Sim.MetricsAddr != "" {
		srv := startMetricsServer(cfg.Sim.MetricsAddr, reg, log)
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"device":   cfg.Device.ID,
		"pressure": cfg.Pressure.Model,
		"cycles":   cfg.Sim.Cycles,
	}).Info("node simulation starting")

	err = node.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.WithField("cycles", node.Cycles()).Info("interrupted")
		return nil
	}
	return err
}

// openLogOutput resolves log.output. Serial output is buffered and flushed
// by the node right before each sleep.
func openLogOutput(cfg config.LogConfig) (io.Writer, func(), error) {
	switch cfg.Output {
	case "stdout":
		return os.Stdout, func() {}, nil
	case "file":
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return f, func() { f.Close() }, nil
	case "serial":
		sc := serial.DefaultConfig(cfg.SerialPort)
		if cfg.SerialBaud > 0 {
			sc.Baud = cfg.SerialBaud
		}
		port, err := serial.Open(sc)
		if err != nil {
			return nil, nil, err
		}
		sink := serial.NewLogSink(port, 1024)
		return sink, func() {
			sink.Flush()
			port.Close()
		}, nil
	default:
		return os.Stderr, func() {}, nil
	}
}

func startMetricsServer(addr string, reg *prometheus.Registry, log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	log.WithField("addr", addr).Info("metrics server listening")
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server")
		}
	}()
	return srv
}
