package core

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Flusher is implemented by log outputs that buffer, such as a UART.
type Flusher interface {
	Flush() error
}

// NewLogger builds the node logger. An unknown level falls back to info.
func NewLogger(level, format string, out io.Writer) *logrus.Logger {
	log := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if out != nil {
		log.SetOutput(out)
	}
	return log
}

// discardLogger is used when a DeviceContext has no logger.
func discardLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// flushLog drains the logger output before the CPU halts.
func flushLog(log logrus.FieldLogger) error {
	var out io.Writer
	switch l := log.(type) {
	case *logrus.Logger:
		out = l.Out
	case *logrus.Entry:
		out = l.Logger.Out
	}
	f, ok := out.(Flusher)
	if !ok {
		return nil
	}
	if err := f.Flush(); err != nil {
		return fmt.Errorf("flush log output: %w", err)
	}
	return nil
}
