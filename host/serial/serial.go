// Package serial connects the controller console to a serial port or any
// other byte stream.
package serial

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - Standard input/output for bench testing
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC ignores this)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the console defaults used by G-code senders
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}

// Console consumes the input stream a byte at a time and buffers responses
type Console interface {
	ProcessByte(b byte) error
	GetOutput() []byte
}

// Pump feeds everything read from rw into c and writes back whatever c
// produced. Errors from individual lines are already reported on the
// stream, so Pump only stops on ctx, a read error or EOF. A read that
// returns no data still flushes pending output.
func Pump(ctx context.Context, rw io.ReadWriter, c Console, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	buf := make([]byte, 64)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := flush(rw, c); err != nil {
			return err
		}

		n, err := rw.Read(buf)
		for _, b := range buf[:n] {
			if perr := c.ProcessByte(b); perr != nil {
				logger.Debug("console line rejected", "err", perr)
			}
		}
		if err != nil {
			if ferr := flush(rw, c); ferr != nil {
				return ferr
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func flush(w io.Writer, c Console) error {
	out := c.GetOutput()
	if len(out) == 0 {
		return nil
	}
	_, err := w.Write(out)
	return err
}
