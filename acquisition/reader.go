package acquisition

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"serialplotter/serial"
)

const (
	DefaultBufferSize = 1024
	DefaultIdleSleep  = 10 * time.Millisecond
)

// Target identifies the connection a session reads from
type Target struct {
	Device   string `json:"device"`
	BaudRate int    `json:"baud_rate"`
}

func (t Target) String() string {
	return fmt.Sprintf("%s@%d", t.Device, t.BaudRate)
}

// Label formats the target for people, "(none)" when no device is selected
func (t Target) Label() string {
	if t.Device == "" {
		return "(none)"
	}
	return t.String()
}

// Opener opens the connection for a target. The returned port must bound
// each Read by a timeout.
type Opener func(target Target) (serial.Port, error)

// SerialOpener returns an Opener backed by real serial ports. Device and baud
// rate come from the target; framing and read timeout from base.
func SerialOpener(base serial.PortConfig) Opener {
	return func(target Target) (serial.Port, error) {
		cfg := base
		cfg.Device = target.Device
		cfg.BaudRate = target.BaudRate
		return serial.Open(cfg)
	}
}

// ReaderConfig tunes the producer loop
type ReaderConfig struct {
	BufferSize int
	IdleSleep  time.Duration
}

func (c ReaderConfig) withDefaults() ReaderConfig {
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.IdleSleep <= 0 {
		c.IdleSleep = DefaultIdleSleep
	}
	return c
}

// Reader owns one connection for its lifetime and forwards every decoded
// value to a Sender. Closing the matching Receiver is the only way to stop it.
type Reader struct {
	target Target
	open   Opener
	out    *Sender
	config ReaderConfig
	logger *slog.Logger
}

// NewReader creates a producer for target
func NewReader(target Target, open Opener, out *Sender, cfg ReaderConfig, logger *slog.Logger) *Reader {
	return &Reader{
		target: target,
		open:   open,
		out:    out,
		config: cfg.withDefaults(),
		logger: logger.With("device", target.Device, "baud_rate", target.BaudRate),
	}
}

// Run opens the connection and streams values until the receiver closes
// (nil) or the connection fails (non-nil). The connection is released
// before Run returns.
func (r *Reader) Run() error {
	raw, err := r.open(r.target)
	if err != nil {
		r.logger.Error("Failed to open connection", "error", err)
		return fmt.Errorf("open %s: %w", r.target.Device, err)
	}
	port := serial.NewPortWithStats(raw)
	defer func() {
		if err := port.Close(); err != nil {
			r.logger.Warn("Failed to close connection", "error", err)
		}
		stats := port.Stats()
		r.logger.Debug("Connection released",
			"bytes_read", stats.BytesRead,
			"reads", stats.Reads,
			"timeouts", stats.Timeouts,
		)
	}()

	r.logger.Info("Receiving data")

	buf := make([]byte, r.config.BufferSize)
	for {
		n, err := port.Read(buf)
		switch {
		case n > 0:
			for _, v := range Decode(buf[:n]) {
				if err := r.out.Send(v); err != nil {
					if errors.Is(err, ErrChannelClosed) {
						r.logger.Debug("Receiver closed, stopping reader")
						return nil
					}
					return err
				}
			}
			// A device sending only unparsable lines never hits Send.
			if r.out.Closed() {
				r.logger.Debug("Receiver closed, stopping reader")
				return nil
			}
		case err == nil || serial.IsTimeout(err):
			if r.out.Closed() {
				r.logger.Debug("Receiver closed, stopping reader")
				return nil
			}
			time.Sleep(r.config.IdleSleep)
		default:
			r.logger.Error("Read failed", "error", err)
			return fmt.Errorf("read %s: %w", r.target.Device, err)
		}
	}
}
