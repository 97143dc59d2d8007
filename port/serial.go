package port

import (
	"fmt"
	"log/slog"

	"go.bug.st/serial"
)

// MIDIBaudRate is the standard MIDI DIN line speed.
const MIDIBaudRate = 31250

// Serial wraps a go.bug.st/serial port as a byte stream. Flush drains the
// transmit buffer so a message has left the UART before the next one is
// written.
type Serial struct {
	port   serial.Port
	name   string
	logger *slog.Logger
}

// OpenSerial opens the named serial device at the given baud rate.
func OpenSerial(name string, baud int, logger *slog.Logger) (*Serial, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %q at %d baud: %w", name, baud, err)
	}
	logger.Info("serial: port opened", "device", name, "baud", baud)
	return &Serial{port: p, name: name, logger: logger}, nil
}

func (s *Serial) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *Serial) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// Flush waits until all written bytes have been transmitted.
func (s *Serial) Flush() error {
	return s.port.Drain()
}

// Close closes the underlying serial port.
func (s *Serial) Close() error {
	s.logger.Info("serial: closing port", "device", s.name)
	return s.port.Close()
}

func (s *Serial) String() string {
	return s.name
}
