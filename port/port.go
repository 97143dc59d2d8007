// Package port opens MIDI devices by name: rtmidi ports, serial UARTs and
// raw character devices such as /dev/snd/midiC1D0.
package port

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.bug.st/serial"
)

// None is the device name for "no input".
const None = "-"

// Options controls how device names are opened.
type Options struct {
	// BaudRate > 0 opens plain paths as serial ports at that rate; zero
	// opens them as character devices.
	BaudRate int
	Logger   *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// IsNone reports whether name asks for no device.
func IsNone(name string) bool {
	return name == "" || name == None
}

// OpenOutput opens name for writing.
func OpenOutput(name string, opts Options) (io.WriteCloser, error) {
	w, err := openOutput(name, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot open MIDI OUT %q: %w", name, err)
	}
	return w, nil
}

func openOutput(name string, opts Options) (io.WriteCloser, error) {
	switch {
	case IsNone(name):
		return nil, fmt.Errorf("an output device is required")
	case strings.HasPrefix(name, RtMIDIPrefix):
		return openRtOut(strings.TrimPrefix(name, RtMIDIPrefix), opts.logger())
	case opts.BaudRate > 0:
		return OpenSerial(name, opts.BaudRate, opts.logger())
	}
	f, err := os.OpenFile(name, os.O_WRONLY, 0)
	if err != nil {
		return nil, err
	}
	opts.logger().Info("port: device opened for writing", "device", name)
	return f, nil
}

// OpenInput opens name for reading. It returns nil, nil for None.
func OpenInput(name string, opts Options) (io.ReadCloser, error) {
	if IsNone(name) {
		return nil, nil
	}
	r, err := openInput(name, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot open MIDI IN %q: %w", name, err)
	}
	return r, nil
}

func openInput(name string, opts Options) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(name, RtMIDIPrefix):
		return openRtIn(strings.TrimPrefix(name, RtMIDIPrefix), opts.logger())
	case opts.BaudRate > 0:
		return OpenSerial(name, opts.BaudRate, opts.logger())
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	opts.logger().Info("port: device opened for reading", "device", name)
	return f, nil
}

// Listing is the set of devices found on this machine.
type Listing struct {
	Serial     []string
	RawMIDI    []string // /dev/snd/midi* character devices
	RtMIDIIns  []string
	RtMIDIOuts []string
}

// rawMIDIGlob matches ALSA raw MIDI devices.
var rawMIDIGlob = "/dev/snd/midi*"

// List enumerates devices. A backend that cannot be enumerated is logged and
// skipped; an error is returned only when every backend failed.
func List(logger *slog.Logger) (Listing, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var l Listing
	var errs []error

	if ports, err := serial.GetPortsList(); err != nil {
		logger.Warn("port: cannot list serial ports", "err", err)
		errs = append(errs, err)
	} else {
		l.Serial = ports
	}

	if raw, err := filepath.Glob(rawMIDIGlob); err != nil {
		errs = append(errs, err)
	} else {
		l.RawMIDI = raw
	}

	if ins, outs, err := rtPortNames(); err != nil {
		logger.Warn("port: cannot list rtmidi ports", "err", err)
		errs = append(errs, err)
	} else {
		l.RtMIDIIns, l.RtMIDIOuts = ins, outs
	}

	if len(errs) == 3 {
		return l, fmt.Errorf("port: no device backend available: %v", errs[0])
	}
	return l, nil
}

// Write prints the listing, one section per backend.
func (l Listing) Write(w io.Writer) {
	section := func(title string, names []string) {
		fmt.Fprintf(w, "=== %s ===\n", title)
		if len(names) == 0 {
			fmt.Fprintln(w, "  (none)")
		}
		for _, n := range names {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}
	section("Serial ports", l.Serial)
	section("Raw MIDI devices", l.RawMIDI)
	section("rtmidi inputs", l.RtMIDIIns)
	section("rtmidi outputs", l.RtMIDIOuts)
}
