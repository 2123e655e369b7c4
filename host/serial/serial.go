// Package serial connects the simulated node and the monitor to UARTs.
package serial

import (
	"bufio"
	"io"
	"sync"
)

// Port represents a serial port.
// Implementations: native (github.com/tarm/serial) and in-memory fakes in
// tests.
type Port interface {
	io.ReadWriteCloser

	// Flush blocks until buffered output has been handed to the port.
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the 115200 baud setup of the node's UART0.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}

// LogSink buffers log lines for a UART so logging never waits on the wire.
// The node flushes it right before sleeping.
type LogSink struct {
	mu  sync.Mutex
	w   *bufio.Writer
	dst io.Writer
}

// NewLogSink wraps dst with a buffer of size bytes.
func NewLogSink(dst io.Writer, size int) *LogSink {
	return &LogSink{w: bufio.NewWriterSize(dst, size), dst: dst}
}

func (s *LogSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Flush drains the buffer into the port, then flushes the port itself if it
// can.
func (s *LogSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		return err
	}
	if f, ok := s.dst.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Buffered returns the number of bytes not yet written to the port.
func (s *LogSink) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Buffered()
}
