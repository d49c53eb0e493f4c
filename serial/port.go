package serial

import (
	"errors"
	"io"
	"os"
	"sync"
	"time"
)

// ErrTimeout is returned by ports that report an expired read deadline as an
// error instead of a zero-length read.
var ErrTimeout = errors.New("serial: read timeout")

// ErrClosed is returned when operating on a port that has been closed
var ErrClosed = errors.New("serial: port is closed")

// DefaultReadTimeout bounds a single Read call on a real port
const DefaultReadTimeout = 100 * time.Millisecond

// DefaultBaudRate is the rate preselected for new connections
const DefaultBaudRate = 115200

// BaudRates lists the rates offered to users when picking a connection
var BaudRates = []int{
	110, 300, 600, 1200, 2400, 4800, 9600, 14400, 19200, 38400, 57600, 115200, 128000, 256000,
}

// PortConfig contains serial port configuration settings
type PortConfig struct {
	Device      string
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      string // "none", "odd", "even", "mark", "space"
	ReadTimeout time.Duration
}

// Port defines the capabilities the acquisition layer needs from a
// connection: bounded reads, release, and an identifier.
//
// A Read that times out without data returns (0, nil) or an error for which
// IsTimeout reports true.
type Port interface {
	io.ReadCloser

	// Device returns the device path
	Device() string
}

// IsTimeout reports whether err signals an expired read rather than a
// failure of the connection.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded)
}

// Stats tracks statistics for a serial port
type Stats struct {
	BytesRead    int64
	Reads        int64
	Timeouts     int64
	Errors       int64
	LastReadTime time.Time
	OpenedAt     time.Time
}

// PortWithStats wraps a Port with statistics tracking
type PortWithStats struct {
	Port
	mu    sync.Mutex
	stats Stats
}

// NewPortWithStats creates a new port wrapper with statistics
func NewPortWithStats(port Port) *PortWithStats {
	return &PortWithStats{
		Port: port,
		stats: Stats{
			OpenedAt: time.Now(),
		},
	}
}

// Read reads from the port and tracks statistics
func (p *PortWithStats) Read(buf []byte) (int, error) {
	n, err := p.Port.Read(buf)

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case err != nil && IsTimeout(err):
		p.stats.Timeouts++
	case err != nil:
		p.stats.Errors++
	case n == 0:
		p.stats.Timeouts++
	default:
		p.stats.Reads++
		p.stats.BytesRead += int64(n)
		p.stats.LastReadTime = time.Now()
	}
	return n, err
}

// Stats returns a copy of the current statistics
func (p *PortWithStats) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
