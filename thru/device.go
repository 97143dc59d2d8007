package thru

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/chase3718/patchthru/midi"
	"github.com/chase3718/patchthru/patch"
)

// -------------------- Lifecycle --------------------

// State is the lifecycle stage of a Device.
type State int32

const (
	Constructing State = iota
	Running
	Terminated
)

func (s State) String() string {
	switch s {
	case Constructing:
		return "constructing"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// -------------------- Construction --------------------

// Config holds what a Device needs to run. Input and Output are already open;
// the caller closes them after the Device is closed.
type Config struct {
	Input   io.Reader // nil relays patch changes only
	Output  io.Writer
	Patches []patch.Patch

	// MaxSysEx bounds a single system exclusive message on the input.
	// Zero selects midi.DefaultMaxSysEx.
	MaxSysEx int

	Logger *slog.Logger

	// OnFatal is called once from the writer goroutine when the output can
	// no longer be written. The default logs and exits the process.
	OnFatal func(error)
}

// Device relays input to output and sends patch changes in between. All
// navigation methods must be called from a single goroutine.
type Device struct {
	book    *patch.Book
	queue   *Queue
	out     Producer
	logger  *slog.Logger
	onFatal func(error)

	state     atomic.Int32
	stats     stats
	inputDone chan struct{}
}

// New starts the writer and, when an input is configured, the reader, then
// sends the first patch before any thru traffic can reach the output.
func New(cfg Config) (*Device, error) {
	if cfg.Output == nil {
		return nil, ErrNoOutput
	}
	d := &Device{
		book:      patch.NewBook(cfg.Patches),
		queue:     NewQueue(),
		logger:    cfg.Logger,
		onFatal:   cfg.OnFatal,
		inputDone: make(chan struct{}),
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.onFatal == nil {
		d.onFatal = func(err error) {
			d.logger.Error("thru: output failed, terminating", "err", err)
			os.Exit(1)
		}
	}
	d.out = d.queue.Producer()
	d.state.Store(int32(Constructing))

	// queue the first patch ahead of the reader
	if sel, ok := d.book.Current(); ok {
		d.send(sel.Patch)
	}

	// the writer only returns on failure or after Close; fail tells them apart
	go func() {
		err := writeFromQueue(cfg.Output, d.queue.Messages(), d.logger)
		d.fail(err)
	}()

	if cfg.Input != nil {
		producer := d.queue.Producer()
		framer := midi.NewFramer(cfg.MaxSysEx)
		go func() {
			defer close(d.inputDone)
			err := readIntoQueue(cfg.Input, producer, framer, &d.stats, d.logger)
			if errors.Is(err, io.EOF) || errors.Is(err, ErrClosed) {
				d.logger.Info("thru: input device is not connected")
				return
			}
			d.logger.Warn("thru: input device is not connected", "err", err)
		}()
	} else {
		close(d.inputDone)
	}

	// an early write failure may already have terminated the device
	d.state.CompareAndSwap(int32(Constructing), int32(Running))
	d.logger.Info("thru: running", "patches", d.book.Len(), "input", cfg.Input != nil)
	return d, nil
}

// -------------------- Status --------------------

// State returns the current lifecycle stage.
func (d *Device) State() State {
	return State(d.state.Load())
}

// InputDone is closed once the reader has stopped, or immediately when the
// device has no input.
func (d *Device) InputDone() <-chan struct{} {
	return d.inputDone
}

// Stats returns traffic counters.
func (d *Device) Stats() Stats {
	return d.stats.snapshot()
}

// Close stops relaying. Messages still queued are dropped. Closing the input
// and output streams is left to their owner.
func (d *Device) Close() {
	d.state.Store(int32(Terminated))
	d.queue.Close()
}

func (d *Device) fail(err error) {
	if State(d.state.Swap(int32(Terminated))) == Terminated {
		d.logger.Debug("thru: writer stopped", "err", err)
		return
	}
	d.queue.Close()
	d.onFatal(err)
}

func (d *Device) send(p patch.Patch) {
	msgs := p.Messages()
	if len(msgs) == 0 {
		return
	}
	if err := d.out.Send(msgs...); err != nil {
		d.logger.Warn("thru: patch change not sent", "patch", p.Name, "err", err)
		return
	}
	d.stats.sent.Add(uint64(len(msgs)))
	d.logger.Info("thru: patch sent", "patch", p.Name, "messages", len(msgs))
}

// -------------------- Navigation --------------------

// HasPatches reports whether any patch is configured.
func (d *Device) HasPatches() bool {
	return d.book.Len() > 0
}

// Current returns the selected patch.
func (d *Device) Current() (patch.Selection, bool) {
	return d.book.Current()
}

// Increment moves the selection by delta and sends the new patch. It reports
// false, and sends nothing, when the selection is already at the boundary.
func (d *Device) Increment(delta int) (patch.Selection, bool) {
	sel, ok := d.book.Step(delta)
	if ok {
		d.send(sel.Patch)
	}
	return sel, ok
}

// Select moves the selection to the 0-based index, clamped into range, and
// sends the patch when the selection changed.
func (d *Device) Select(index int) (patch.Selection, bool) {
	sel, ok := d.book.Select(index)
	if ok {
		d.send(sel.Patch)
	}
	return sel, ok
}

// Reset selects the first patch and sends it even when it is already
// selected, to bring the instrument back to a known state.
func (d *Device) Reset() (patch.Selection, bool) {
	d.book.Select(0)
	sel, ok := d.book.Current()
	if ok {
		d.send(sel.Patch)
	}
	return sel, ok
}

// PeekNext returns the patch after the selection, if any.
func (d *Device) PeekNext() (patch.Patch, bool) {
	return d.book.PeekNext()
}

// PeekPrevious returns the patch before the selection, if any.
func (d *Device) PeekPrevious() (patch.Patch, bool) {
	return d.book.PeekPrevious()
}

// Patches returns a copy of the patch list.
func (d *Device) Patches() []patch.Patch {
	return d.book.Patches()
}
