//go:build !wasm

package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// uartPort is a tarm/serial device. With a read timeout set, tarm reports an
// idle line as io.EOF; uartPort turns that into an empty read so a reader
// loop only ends when the device really goes away.
type uartPort struct {
	rw       io.ReadWriteCloser
	timeouts bool
}

// Open opens the UART named by cfg.Device
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("serial: nil config")
	}
	if cfg.Device == "" {
		return nil, fmt.Errorf("serial: no device given")
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return newUARTPort(port, cfg), nil
}

func newUARTPort(rw io.ReadWriteCloser, cfg *Config) *uartPort {
	return &uartPort{rw: rw, timeouts: cfg.ReadTimeout > 0}
}

func (p *uartPort) Read(b []byte) (int, error) {
	n, err := p.rw.Read(b)
	if n == 0 && p.timeouts && errors.Is(err, io.EOF) {
		return 0, nil
	}
	return n, err
}

func (p *uartPort) Write(b []byte) (int, error) {
	return p.rw.Write(b)
}

func (p *uartPort) Close() error {
	return p.rw.Close()
}

// Flush is a no-op: Write returns once the driver has taken the bytes.
// tarm's own Flush discards pending input, which is not what LogSink wants.
func (p *uartPort) Flush() error {
	return nil
}
