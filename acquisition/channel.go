package acquisition

import (
	"errors"
	"sync"
)

// ErrChannelClosed is returned by Send once the receiving end has been closed
var ErrChannelClosed = errors.New("sample channel closed")

// queue is the shared state behind a Sender/Receiver pair. It grows without
// bound; the device produces far slower than the poll loop consumes.
type queue struct {
	mu     sync.Mutex
	values []float64
	closed bool
}

// Sender is the producing end of a sample channel
type Sender struct {
	q *queue
}

// Receiver is the consuming end of a sample channel
type Receiver struct {
	q *queue
}

// NewChannel creates an unbounded, ordered, single-producer/single-consumer
// channel of sample values. Only the receiver can close it.
func NewChannel() (*Sender, *Receiver) {
	q := &queue{}
	return &Sender{q: q}, &Receiver{q: q}
}

// Send enqueues v. It fails with ErrChannelClosed after the receiver closed.
func (s *Sender) Send(v float64) error {
	s.q.mu.Lock()
	defer s.q.mu.Unlock()
	if s.q.closed {
		return ErrChannelClosed
	}
	s.q.values = append(s.q.values, v)
	return nil
}

// Closed reports whether the receiver has closed the channel
func (s *Sender) Closed() bool {
	s.q.mu.Lock()
	defer s.q.mu.Unlock()
	return s.q.closed
}

// TryRecv returns the oldest queued value without blocking
func (r *Receiver) TryRecv() (float64, bool) {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	if len(r.q.values) == 0 {
		return 0, false
	}
	v := r.q.values[0]
	r.q.values = r.q.values[1:]
	return v, true
}

// Drain hands every currently queued value to fn in send order and returns
// how many were delivered. It never waits for new values.
func (r *Receiver) Drain(fn func(float64)) int {
	r.q.mu.Lock()
	values := r.q.values
	r.q.values = nil
	r.q.mu.Unlock()

	for _, v := range values {
		fn(v)
	}
	return len(values)
}

// Len returns the number of queued values
func (r *Receiver) Len() int {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return len(r.q.values)
}

// Close discards queued values and makes further sends fail. Safe to call
// more than once.
func (r *Receiver) Close() {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	r.q.closed = true
	r.q.values = nil
}
