package port

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// -------------------- Driver --------------------

// RtMIDIPrefix selects an rtmidi port (ALSA sequencer, CoreMIDI, WinMM)
// instead of a device path, e.g. "rtmidi:USB MIDI Interface" or "rtmidi:2".
const RtMIDIPrefix = "rtmidi:"

var rt struct {
	once sync.Once
	drv  *rtmididrv.Driver
	err  error
}

// driver initialises the shared rtmidi driver on first use.
func driver() (*rtmididrv.Driver, error) {
	rt.once.Do(func() {
		rt.drv, rt.err = rtmididrv.New()
		if rt.err != nil {
			rt.err = fmt.Errorf("rtmididrv: %w", rt.err)
		}
	})
	return rt.drv, rt.err
}

// -------------------- Port adapters --------------------

// rtOut adapts an rtmidi out port to io.Writer. Each Write must carry exactly
// one complete message, which is what the thru writer guarantees.
type rtOut struct {
	out    drivers.Out
	logger *slog.Logger
}

func (w *rtOut) Write(b []byte) (int, error) {
	if err := w.out.Send(b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (w *rtOut) Close() error {
	w.logger.Info("midi: closing output", "device", w.out.String())
	return w.out.Close()
}

// rtIn turns the messages of an rtmidi in port back into a byte stream.
type rtIn struct {
	name      string
	pr        *io.PipeReader
	pw        *io.PipeWriter
	stopFn    func()
	closePort func() error
	logger    *slog.Logger
}

func (r *rtIn) Read(p []byte) (int, error) {
	return r.pr.Read(p)
}

func (r *rtIn) Close() error {
	r.logger.Info("midi: closing input", "device", r.name)
	// unblock a listener callback stuck in Write once nobody reads anymore;
	// stopping the listener waits for that callback to return
	r.pw.Close()
	if r.stopFn != nil {
		r.stopFn()
	}
	return r.closePort()
}

// -------------------- Opening ports --------------------

func openRtOut(name string, logger *slog.Logger) (io.WriteCloser, error) {
	drv, err := driver()
	if err != nil {
		return nil, err
	}
	outs, err := drv.Outs()
	if err != nil {
		return nil, err
	}
	var found drivers.Out
	for _, out := range outs {
		if matchPort(out.Number(), out.String(), name) {
			found = out
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("MIDI output %q not found", name)
	}
	if err := found.Open(); err != nil {
		return nil, fmt.Errorf("open %q: %w", found.String(), err)
	}
	logger.Info("midi: output connected", "device", found.String())
	return &rtOut{out: found, logger: logger}, nil
}

func openRtIn(name string, logger *slog.Logger) (io.ReadCloser, error) {
	drv, err := driver()
	if err != nil {
		return nil, err
	}
	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	var found drivers.In
	for _, in := range ins {
		if matchPort(in.Number(), in.String(), name) {
			found = in
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("MIDI input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return nil, fmt.Errorf("open %q: %w", found.String(), err)
	}

	// gomidi hands over whole messages; the pipe turns them back into bytes
	// so rtmidi input goes through the same framer as device files
	pr, pw := io.Pipe()
	r := &rtIn{name: found.String(), pr: pr, pw: pw, closePort: found.Close, logger: logger}
	stop, err := gomidi.ListenTo(found, func(msg gomidi.Message, _ int32) {
		if _, err := pw.Write(msg); err != nil {
			logger.Debug("midi: input message dropped", "err", err)
		}
	}, gomidi.UseSysEx(), gomidi.HandleError(func(listenErr error) {
		logger.Warn("midi: listener error, device likely disconnected", "device", found.String(), "err", listenErr)
		// surfaces as a read error, which ends thru
		pw.CloseWithError(listenErr)
	}))
	if err != nil {
		_ = found.Close()
		return nil, fmt.Errorf("listen %q: %w", found.String(), err)
	}
	r.stopFn = stop
	logger.Info("midi: input connected", "device", found.String())
	return r, nil
}

// -------------------- Lookup helpers --------------------

// matchPort matches a port by number or by case-insensitive name fragment.
func matchPort(number int, portName, want string) bool {
	if n, err := strconv.Atoi(want); err == nil {
		return n == number
	}
	return containsCI(portName, want)
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func rtPortNames() (ins, outs []string, err error) {
	drv, err := driver()
	if err != nil {
		return nil, nil, err
	}
	inPorts, err := drv.Ins()
	if err != nil {
		return nil, nil, err
	}
	for _, in := range inPorts {
		ins = append(ins, fmt.Sprintf("%s%d (%s)", RtMIDIPrefix, in.Number(), in.String()))
	}
	outPorts, err := drv.Outs()
	if err != nil {
		return nil, nil, err
	}
	for _, out := range outPorts {
		outs = append(outs, fmt.Sprintf("%s%d (%s)", RtMIDIPrefix, out.Number(), out.String()))
	}
	return ins, outs, nil
}
