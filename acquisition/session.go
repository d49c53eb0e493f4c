package acquisition

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"serialplotter/serial"
)

// ErrNoTarget is returned by Start when no device has been selected
var ErrNoTarget = errors.New("no serial port selected")

// State represents the lifecycle state of a session
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

const (
	DefaultWindowLength    = 10.0
	DefaultMinWindowLength = 4.0
	DefaultMaxWindowLength = 100.0
)

// Config contains the session settings
type Config struct {
	WindowLength    float64
	MinWindowLength float64
	MaxWindowLength float64
	Floor           int
	Reader          ReaderConfig
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		WindowLength:    DefaultWindowLength,
		MinWindowLength: DefaultMinWindowLength,
		MaxWindowLength: DefaultMaxWindowLength,
		Floor:           DefaultFloor,
		Reader: ReaderConfig{
			BufferSize: DefaultBufferSize,
			IdleSleep:  DefaultIdleSleep,
		},
	}
}

// Status is a point-in-time view of a session for external consumers
type Status struct {
	State           State     `json:"state"`
	RunID           string    `json:"run_id,omitempty"`
	Target          Target    `json:"target"`
	StartedAt       time.Time `json:"started_at"`
	WindowLength    float64   `json:"window_length_sec"`
	WindowSize      int       `json:"window_size"`
	SamplesReceived int64     `json:"samples_received"`
	LastValue       float64   `json:"last_value"`
	LastSampleTime  time.Time `json:"last_sample_time"`
	ProducerExits   int64     `json:"producer_exits"`
	LastError       string    `json:"last_error,omitempty"`
}

type statusFields Status

// MarshalJSON writes a non-finite last value as null
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		statusFields
		LastValue *float64 `json:"last_value"`
	}{statusFields(s), finite(s.LastValue)})
}

// Session runs one acquisition at a time: a producer goroutine reading the
// device and the window it feeds. Start, Stop, Poll and the setters must be
// called from a single controlling goroutine.
type Session struct {
	config Config
	open   Opener
	logger *slog.Logger
	now    func() time.Time
	window *Window

	state     State
	runID     string
	target    Target
	startedAt time.Time
	rx        *Receiver
	done      chan error

	samplesReceived int64
	lastValue       float64
	lastSampleTime  time.Time
	producerExits   int64
	lastErr         error
}

// NewSession creates an idle session that opens connections through open
func NewSession(cfg Config, open Opener, logger *slog.Logger) *Session {
	if cfg.MaxWindowLength <= 0 {
		cfg.MaxWindowLength = DefaultMaxWindowLength
	}
	if cfg.MinWindowLength <= 0 || cfg.MinWindowLength > cfg.MaxWindowLength {
		cfg.MinWindowLength = min(DefaultMinWindowLength, cfg.MaxWindowLength)
	}
	if cfg.WindowLength <= 0 {
		cfg.WindowLength = DefaultWindowLength
	}
	cfg.WindowLength = clamp(cfg.WindowLength, cfg.MinWindowLength, cfg.MaxWindowLength)
	if cfg.Floor <= 0 {
		cfg.Floor = DefaultFloor
	}

	return &Session{
		config: cfg,
		open:   open,
		logger: logger,
		now:    time.Now,
		window: NewWindow(cfg.WindowLength, cfg.Floor),
		state:  StateIdle,
	}
}

// ListConnections returns the serial ports present right now
func (s *Session) ListConnections() ([]serial.PortInfo, error) {
	return serial.ListDetailed()
}

// Start begins acquiring from target. It is a no-op while running.
func (s *Session) Start(target Target) error {
	if s.state == StateRunning {
		return nil
	}
	if target.Device == "" {
		s.logger.Warn("Cannot start acquisition", "error", ErrNoTarget)
		return ErrNoTarget
	}
	if target.BaudRate <= 0 {
		target.BaudRate = serial.DefaultBaudRate
	}

	tx, rx := NewChannel()
	done := make(chan error, 1)
	reader := NewReader(target, s.open, tx, s.config.Reader, s.logger)

	s.window.Reset()
	s.runID = uuid.NewString()
	s.target = target
	s.startedAt = s.now()
	s.rx = rx
	s.done = done
	s.samplesReceived = 0
	s.lastValue = 0
	s.lastSampleTime = time.Time{}
	s.lastErr = nil
	s.state = StateRunning

	go func() {
		done <- reader.Run()
	}()

	s.logger.Info("Acquisition started",
		"device", target.Device,
		"baud_rate", target.BaudRate,
		"run_id", s.runID,
	)
	return nil
}

// Stop closes the channel and waits for the producer to exit. It is a no-op
// while idle.
func (s *Session) Stop() {
	if s.state != StateRunning {
		return
	}

	s.rx.Close()
	if err := <-s.done; err != nil {
		s.lastErr = err
		s.producerExits++
	}
	s.teardown()

	s.logger.Info("Acquisition stopped",
		"device", s.target.Device,
		"samples_received", s.samplesReceived,
	)
}

// Poll moves every value the producer has sent so far into the window and
// returns a snapshot of it. It never blocks. If the producer has exited on
// its own the session is torn down and becomes idle; the samples already
// collected stay available.
func (s *Session) Poll() []Sample {
	if s.state != StateRunning {
		return s.window.Snapshot()
	}

	// Checked before draining so everything the producer sent is collected.
	var exited bool
	var exitErr error
	select {
	case exitErr = <-s.done:
		exited = true
	default:
	}

	s.rx.Drain(func(v float64) {
		now := s.now()
		s.window.Append(Sample{
			Elapsed: now.Sub(s.startedAt).Seconds(),
			Value:   v,
		})
		s.samplesReceived++
		s.lastValue = v
		s.lastSampleTime = now
	})

	if exited {
		s.rx.Close()
		s.lastErr = exitErr
		s.producerExits++
		s.teardown()
		s.logger.Warn("Producer exited, acquisition idle",
			"device", s.target.Device,
			"error", exitErr,
		)
	}

	return s.window.Snapshot()
}

// IsRunning reports whether a producer is attached
func (s *Session) IsRunning() bool {
	return s.state == StateRunning
}

// SetWindowLength changes the retained time span, clamped to the configured
// range, and returns the value applied
func (s *Session) SetWindowLength(seconds float64) float64 {
	seconds = clamp(seconds, s.config.MinWindowLength, s.config.MaxWindowLength)
	s.window.SetLength(seconds)
	return seconds
}

// WindowLength returns the retained time span in seconds
func (s *Session) WindowLength() float64 {
	return s.window.Length()
}

// WindowBounds returns the accepted window length range
func (s *Session) WindowBounds() (float64, float64) {
	return s.config.MinWindowLength, s.config.MaxWindowLength
}

// Err returns the error that ended the most recent producer, if any
func (s *Session) Err() error {
	return s.lastErr
}

// Status returns a copy of the session state
func (s *Session) Status() Status {
	st := Status{
		State:           s.state,
		RunID:           s.runID,
		Target:          s.target,
		StartedAt:       s.startedAt,
		WindowLength:    s.window.Length(),
		WindowSize:      s.window.Len(),
		SamplesReceived: s.samplesReceived,
		LastValue:       s.lastValue,
		LastSampleTime:  s.lastSampleTime,
		ProducerExits:   s.producerExits,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *Session) teardown() {
	s.rx = nil
	s.done = nil
	s.state = StateIdle
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
