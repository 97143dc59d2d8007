package thru

import (
	"io"
	"log/slog"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Flusher is implemented by outputs that buffer below the writer, such as a
// serial port that must drain its transmit buffer.
type Flusher interface {
	Flush() error
}

// writeFromQueue writes each message with a single Write and flushes before
// taking the next one, so the bytes of two messages never interleave. It only
// returns on failure or when the queue is closed.
func writeFromQueue(w io.Writer, msgs <-chan gomidi.Message, logger *slog.Logger) error {
	flusher, _ := w.(Flusher)
	for msg := range msgs {
		if _, err := w.Write(msg); err != nil {
			return &LoopError{Loop: "writer", Op: "write", Err: err}
		}
		if flusher != nil {
			if err := flusher.Flush(); err != nil {
				return &LoopError{Loop: "writer", Op: "flush", Err: err}
			}
		}
		logger.Debug("thru: message written", "bytes", len(msg), "message", msg)
	}
	return &LoopError{Loop: "writer", Op: "dequeue", Err: ErrClosed}
}
