package thru

import (
	"errors"
	"fmt"
)

// ErrNoOutput is returned by New when no output stream is configured.
var ErrNoOutput = errors.New("thru: no output device")

// LoopError reports why the reader or writer loop stopped.
type LoopError struct {
	Loop string // "reader" or "writer"
	Op   string // "read", "enqueue", "write", "flush", "dequeue"
	Err  error
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("thru: %s %s: %v", e.Loop, e.Op, e.Err)
}

func (e *LoopError) Unwrap() error {
	return e.Err
}
