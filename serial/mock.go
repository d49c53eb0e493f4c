package serial

import (
	"sync"
	"time"
)

// MockPort implements Port for testing purposes. Queued chunks are returned
// by Read in order; once the queue is empty Read behaves like a timed-out
// read on a real port.
type MockPort struct {
	mu        sync.Mutex
	device    string
	isOpen    bool
	chunks    [][]byte
	readErr   error // returned once the queued chunks are consumed
	readDelay time.Duration
	reads     int
	closes    int
}

// NewMockPort creates a new mock port
func NewMockPort(device string) *MockPort {
	return &MockPort{
		device:    device,
		isOpen:    true,
		readDelay: time.Millisecond,
	}
}

// Feed queues data to be returned by subsequent reads
func (p *MockPort) Feed(data ...[]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range data {
		chunk := make([]byte, len(d))
		copy(chunk, d)
		p.chunks = append(p.chunks, chunk)
	}
}

// FeedString queues text to be returned by subsequent reads
func (p *MockPort) FeedString(lines ...string) {
	for _, l := range lines {
		p.Feed([]byte(l))
	}
}

// Write queues data on the read side, emulating a loopback jumper
func (p *MockPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	if !p.isOpen {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	p.mu.Unlock()
	p.Feed(data)
	return len(data), nil
}

// Read returns the next queued chunk, the injected error, or (0, nil) after
// the configured delay when nothing is queued
func (p *MockPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if !p.isOpen {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	p.reads++

	if len(p.chunks) > 0 {
		chunk := p.chunks[0]
		n := copy(buf, chunk)
		if n < len(chunk) {
			p.chunks[0] = chunk[n:]
		} else {
			p.chunks = p.chunks[1:]
		}
		p.mu.Unlock()
		return n, nil
	}

	if p.readErr != nil {
		err := p.readErr
		p.mu.Unlock()
		return 0, err
	}

	delay := p.readDelay
	p.mu.Unlock()
	time.Sleep(delay)
	return 0, nil
}

// Close closes the mock port
func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isOpen = false
	p.closes++
	return nil
}

// Device returns the mock device path
func (p *MockPort) Device() string {
	return p.device
}

// IsOpen returns true if the mock port is open
func (p *MockPort) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isOpen
}

// Pending returns the number of chunks not yet read
func (p *MockPort) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.chunks)
}

// Reads returns how many times Read was called while open
func (p *MockPort) Reads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}

// Closes returns how many times Close was called
func (p *MockPort) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

// SetReadError sets an error to be returned once queued data is consumed
func (p *MockPort) SetReadError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

// SetReadDelay sets how long an empty read blocks before returning
func (p *MockPort) SetReadDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readDelay = d
}

// Reopen reopens a closed mock port
func (p *MockPort) Reopen() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isOpen = true
}
