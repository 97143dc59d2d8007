package midi

import (
	"errors"
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// DefaultMaxSysEx bounds how many bytes a single system exclusive message may
// accumulate before the framer gives up on it.
const DefaultMaxSysEx = 64 * 1024

var (
	ErrInvalid    = errors.New("midi: invalid byte sequence")
	ErrIncomplete = errors.New("midi: incomplete message")
)

// Outcome is the result of feeding one byte to a Framer.
type Outcome int

const (
	// Incomplete means more bytes are needed; the buffer is kept.
	Incomplete Outcome = iota
	// Complete means a message was produced.
	Complete
	// Invalid means the buffered bytes could not form a message and were
	// discarded. The next byte starts a new message.
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case Incomplete:
		return "incomplete"
	case Complete:
		return "complete"
	case Invalid:
		return "invalid"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Framer turns a byte stream into complete MIDI messages, one byte at a time.
// Running status is not supported: every message must start with its status
// byte. A Framer is not safe for concurrent use.
type Framer struct {
	buf      []byte
	need     int // data bytes expected after buf[0], or sysexLength
	maxSysEx int
}

// NewFramer returns a Framer. maxSysEx <= 0 selects DefaultMaxSysEx.
func NewFramer(maxSysEx int) *Framer {
	if maxSysEx <= 0 {
		maxSysEx = DefaultMaxSysEx
	}
	return &Framer{
		buf:      make([]byte, 0, 16),
		maxSysEx: maxSysEx,
	}
}

// Pending returns the number of bytes buffered towards the next message.
func (f *Framer) Pending() int {
	return len(f.buf)
}

// Reset drops any partially accumulated message.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.need = 0
}

// Feed appends b and tries to complete a message. The returned message is
// only set when the outcome is Complete and is never reused by the Framer.
//
// System real-time bytes are complete on their own. One arriving inside
// another message is returned immediately and the partial message is kept.
func (f *Framer) Feed(b byte) (gomidi.Message, Outcome) {
	if IsRealtime(b) {
		return gomidi.Message{b}, Complete
	}

	if len(f.buf) == 0 {
		n, ok := dataLength(b)
		if !ok {
			return nil, Invalid
		}
		f.buf = append(f.buf, b)
		f.need = n
		if n == 0 {
			return f.emit(), Complete
		}
		return nil, Incomplete
	}

	if f.need == sysexLength {
		switch {
		case b == StatusSysExEnd:
			f.buf = append(f.buf, b)
			return f.emit(), Complete
		case b >= 0x80, len(f.buf) >= f.maxSysEx:
			f.Reset()
			return nil, Invalid
		}
		f.buf = append(f.buf, b)
		return nil, Incomplete
	}

	// a status byte before the current message is complete
	if b >= 0x80 {
		f.Reset()
		return nil, Invalid
	}
	f.buf = append(f.buf, b)
	if len(f.buf)-1 == f.need {
		return f.emit(), Complete
	}
	return nil, Incomplete
}

func (f *Framer) emit() gomidi.Message {
	msg := make(gomidi.Message, len(f.buf))
	copy(msg, f.buf)
	f.Reset()
	return msg
}

// Split frames a finite byte sequence into messages. Bytes that cannot be
// framed, or a trailing partial message, are reported as errors.
//
// Unlike Feed, Split keeps the order it was given: a real-time byte inside
// another message is an error rather than being moved in front of it.
func Split(data []byte) ([]gomidi.Message, error) {
	f := NewFramer(len(data) + 1)
	var msgs []gomidi.Message
	for i, b := range data {
		if IsRealtime(b) && f.Pending() > 0 {
			return nil, fmt.Errorf("%w: real-time byte %d (0x%02X) inside a message", ErrInvalid, i, b)
		}
		msg, outcome := f.Feed(b)
		switch outcome {
		case Complete:
			msgs = append(msgs, msg)
		case Invalid:
			return nil, fmt.Errorf("%w: byte %d (0x%02X)", ErrInvalid, i, b)
		}
	}
	if f.Pending() > 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrIncomplete, f.Pending())
	}
	return msgs, nil
}
