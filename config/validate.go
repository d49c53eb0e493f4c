package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"serialplotter/serial"
)

// ValidationError contains details about configuration validation failures
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidBaudRates lists the rates a device may be opened at
var ValidBaudRates = serial.BaudRates

// Validate checks the configuration for errors. The device may be empty; the
// session then reports a missing target when asked to start.
func Validate(cfg *Config) error {
	var errors ValidationErrors

	errors = append(errors, validateSerial(cfg.Serial)...)
	errors = append(errors, validateWindow(cfg.Window)...)

	// Validate poll
	if cfg.Poll.IntervalMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "poll.interval_ms",
			Message: "must be at least 1 millisecond",
		})
	}

	// Validate plot
	if cfg.Plot.YMax <= cfg.Plot.YMin {
		errors = append(errors, ValidationError{
			Field:   "plot.y_max",
			Message: "must be greater than plot.y_min",
		})
	}

	// Validate logging
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level: %s", cfg.Logging.Level),
		})
	}
	if cfg.Logging.BasePath != "" {
		if info, err := os.Stat(cfg.Logging.BasePath); err != nil || !info.IsDir() {
			errors = append(errors, ValidationError{
				Field:   "logging.base_path",
				Message: fmt.Sprintf("directory does not exist: %s", cfg.Logging.BasePath),
			})
		}
	}

	// Validate monitoring
	if cfg.Monitoring.Port < 1 || cfg.Monitoring.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "monitoring.port",
			Message: "must be between 1 and 65535",
		})
	}

	// Validate recovery
	if cfg.Recovery.ReconnectDelaySec < 1 {
		errors = append(errors, ValidationError{
			Field:   "recovery.reconnect_delay_sec",
			Message: "must be at least 1 second",
		})
	}
	if cfg.Recovery.MaxReconnectDelaySec < cfg.Recovery.ReconnectDelaySec {
		errors = append(errors, ValidationError{
			Field:   "recovery.max_reconnect_delay_sec",
			Message: "must be greater than or equal to reconnect_delay_sec",
		})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func validateSerial(s SerialConfig) ValidationErrors {
	var errors ValidationErrors

	if !slices.Contains(ValidBaudRates, s.BaudRate) {
		errors = append(errors, ValidationError{
			Field:   "serial.baud_rate",
			Message: fmt.Sprintf("invalid baud rate: %d", s.BaudRate),
		})
	}

	if s.DataBits < 5 || s.DataBits > 8 {
		errors = append(errors, ValidationError{
			Field:   "serial.data_bits",
			Message: "must be between 5 and 8",
		})
	}

	if s.StopBits != 1 && s.StopBits != 2 {
		errors = append(errors, ValidationError{
			Field:   "serial.stop_bits",
			Message: "must be 1 or 2",
		})
	}

	validParity := []string{"none", "odd", "even", "mark", "space"}
	if !slices.Contains(validParity, strings.ToLower(s.Parity)) {
		errors = append(errors, ValidationError{
			Field:   "serial.parity",
			Message: fmt.Sprintf("invalid parity: %s (must be one of %s)", s.Parity, strings.Join(validParity, ", ")),
		})
	}

	if s.ReadTimeoutMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "serial.read_timeout_ms",
			Message: "must be at least 1 millisecond",
		})
	}

	if s.BufferSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "serial.buffer_size",
			Message: "must be greater than 0",
		})
	}

	if s.IdleSleepMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "serial.idle_sleep_ms",
			Message: "must not be negative",
		})
	}

	return errors
}

func validateWindow(w WindowConfig) ValidationErrors {
	var errors ValidationErrors

	if w.MinLengthSec <= 0 {
		errors = append(errors, ValidationError{
			Field:   "window.min_length_sec",
			Message: "must be greater than 0",
		})
	}

	if w.MaxLengthSec < w.MinLengthSec {
		errors = append(errors, ValidationError{
			Field:   "window.max_length_sec",
			Message: "must be greater than or equal to min_length_sec",
		})
	}

	if w.LengthSec < w.MinLengthSec || w.LengthSec > w.MaxLengthSec {
		errors = append(errors, ValidationError{
			Field:   "window.length_sec",
			Message: fmt.Sprintf("must be between %g and %g", w.MinLengthSec, w.MaxLengthSec),
		})
	}

	if w.Floor < 1 {
		errors = append(errors, ValidationError{
			Field:   "window.floor",
			Message: "must be at least 1",
		})
	}

	return errors
}
