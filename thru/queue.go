package thru

import (
	"errors"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// ErrClosed is returned when sending to a queue that has been torn down.
var ErrClosed = errors.New("thru: output queue closed")

// Queue is an unbounded FIFO of complete messages with any number of
// producers and exactly one consumer. Producers never wait on the consumer;
// a pump goroutine buffers whatever the consumer has not taken yet.
type Queue struct {
	in   chan gomidi.Message
	out  chan gomidi.Message
	done chan struct{}
	once sync.Once
}

// NewQueue creates a queue and starts its pump.
func NewQueue() *Queue {
	q := &Queue{
		in:   make(chan gomidi.Message, 64),
		out:  make(chan gomidi.Message),
		done: make(chan struct{}),
	}
	go q.pump()
	return q
}

func (q *Queue) pump() {
	defer close(q.out)
	var pending []gomidi.Message
	for {
		var out chan gomidi.Message
		var next gomidi.Message
		if len(pending) > 0 {
			out = q.out
			next = pending[0]
		}
		select {
		case msg := <-q.in:
			pending = append(pending, msg)
		case out <- next:
			pending[0] = nil
			pending = pending[1:]
		case <-q.done:
			return
		}
	}
}

// Producer returns a handle for enqueuing messages. Handles are cheap values
// and may be copied to any goroutine.
func (q *Queue) Producer() Producer {
	return Producer{q: q}
}

// Messages is the consumer side. Only one goroutine may receive from it. The
// channel is closed after Close.
func (q *Queue) Messages() <-chan gomidi.Message {
	return q.out
}

// Close tears the queue down. Messages not yet taken by the consumer are
// dropped and further sends fail with ErrClosed.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}

// Producer enqueues messages on a Queue.
type Producer struct {
	q *Queue
}

// Send enqueues msgs in order. Messages from one producer keep their relative
// order; messages from different producers are never split or interleaved.
func (p Producer) Send(msgs ...gomidi.Message) error {
	for _, msg := range msgs {
		select {
		case <-p.q.done:
			return ErrClosed
		default:
		}
		select {
		case p.q.in <- msg:
		case <-p.q.done:
			return ErrClosed
		}
	}
	return nil
}
