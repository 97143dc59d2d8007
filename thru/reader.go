package thru

import (
	"bufio"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/chase3718/patchthru/midi"
)

// readIntoQueue feeds the input byte by byte through framer and forwards every
// complete message. It returns when the input fails or the queue is closed.
func readIntoQueue(r io.Reader, p Producer, framer *midi.Framer, st *stats, logger *slog.Logger) error {
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return &LoopError{Loop: "reader", Op: "read", Err: err}
		}
		msg, outcome := framer.Feed(b)
		switch outcome {
		case midi.Complete:
			if err := p.Send(msg); err != nil {
				return &LoopError{Loop: "reader", Op: "enqueue", Err: err}
			}
			st.forwarded.Add(1)
		case midi.Invalid:
			st.dropped.Add(1)
			logger.Debug("thru: input out of sync, resynchronizing", "byte", b)
		}
	}
}

type stats struct {
	forwarded atomic.Uint64
	dropped   atomic.Uint64
	sent      atomic.Uint64
}

// Stats counts traffic through a Device.
type Stats struct {
	Forwarded uint64 // thru messages queued from the input
	Dropped   uint64 // invalid framer results on the input
	Sent      uint64 // patch messages queued by navigation
}

func (s *stats) snapshot() Stats {
	return Stats{
		Forwarded: s.forwarded.Load(),
		Dropped:   s.dropped.Load(),
		Sent:      s.sent.Load(),
	}
}
