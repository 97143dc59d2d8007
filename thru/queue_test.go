package thru

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/chase3718/patchthru/midi"
)

// sink is an in-memory output that records every Write and Flush.
type sink struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	writes   [][]byte
	flushes  int
	err      error
	flushErr error
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.writes = append(s.writes, append([]byte(nil), p...))
	return s.buf.Write(p)
}

func (s *sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return s.flushErr
}

func (s *sink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf.Bytes()...)
}

func (s *sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	defer q.Close()
	p := q.Producer()

	const n = 500
	for i := 0; i < n; i++ {
		if err := p.Send(gomidi.Message{0xB0, 0x07, byte(i % 128)}); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < n; i++ {
		msg := <-q.Messages()
		if msg[2] != byte(i%128) {
			t.Fatalf("message %d out of order: % X", i, []byte(msg))
		}
	}
}

func TestQueueSendAfterClose(t *testing.T) {
	q := NewQueue()
	p := q.Producer()
	q.Close()
	q.Close()

	if err := p.Send(gomidi.Message{0xF8}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
	if _, ok := <-q.Messages(); ok {
		t.Error("consumer channel still open after Close")
	}
}

// tagged builds a sysex whose payload identifies the producer and sequence
// number; the length varies so that partial writes would be visible.
func tagged(producer, seq int) gomidi.Message {
	msg := gomidi.Message{midi.StatusSysExStart, byte(producer), byte(seq / 128), byte(seq % 128)}
	for i := 0; i < seq%13; i++ {
		msg = append(msg, 0x55)
	}
	return append(msg, midi.StatusSysExEnd)
}

func TestWriterDoesNotInterleaveProducers(t *testing.T) {
	q := NewQueue()
	defer q.Close()
	out := &sink{}
	go writeFromQueue(out, q.Messages(), quietLogger())

	const perProducer = 300
	want := 0
	for seq := 0; seq < perProducer; seq++ {
		want += len(tagged(0, seq)) * 2
	}

	var wg sync.WaitGroup
	for producer := 0; producer < 2; producer++ {
		wg.Add(1)
		go func(id int, p Producer) {
			defer wg.Done()
			for seq := 0; seq < perProducer; seq++ {
				if err := p.Send(tagged(id, seq)); err != nil {
					t.Error(err)
					return
				}
			}
		}(producer, q.Producer())
	}
	wg.Wait()
	waitFor(t, "all bytes written", func() bool { return out.Len() == want })

	msgs, err := midi.Split(out.Bytes())
	if err != nil {
		t.Fatalf("output does not frame cleanly: %v", err)
	}
	if len(msgs) != 2*perProducer {
		t.Fatalf("got %d messages, want %d", len(msgs), 2*perProducer)
	}
	next := [2]int{}
	for _, msg := range msgs {
		id := int(msg[1])
		seq := int(msg[2])*128 + int(msg[3])
		if seq != next[id] {
			t.Fatalf("producer %d: got seq %d, want %d", id, seq, next[id])
		}
		next[id]++
	}

	out.mu.Lock()
	defer out.mu.Unlock()
	if len(out.writes) != 2*perProducer {
		t.Errorf("%d writes for %d messages", len(out.writes), 2*perProducer)
	}
	if out.flushes != len(out.writes) {
		t.Errorf("%d flushes for %d writes", out.flushes, len(out.writes))
	}
}

func TestWriterStopsOnWriteError(t *testing.T) {
	q := NewQueue()
	defer q.Close()
	boom := errors.New("device unplugged")
	out := &sink{err: boom}

	done := make(chan error, 1)
	go func() { done <- writeFromQueue(out, q.Messages(), quietLogger()) }()
	if err := q.Producer().Send(gomidi.Message{0xC0, 0x01}); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		var le *LoopError
		if !errors.As(err, &le) || le.Loop != "writer" || le.Op != "write" {
			t.Fatalf("err = %v, want writer write LoopError", err)
		}
		if !errors.Is(err, boom) {
			t.Errorf("err does not wrap the device error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("writer did not stop")
	}
}
