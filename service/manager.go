package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"serialplotter/acquisition"
	"serialplotter/config"
	"serialplotter/notify"
)

// Publisher receives the session state after every poll
type Publisher interface {
	Update(status acquisition.Status, samples []acquisition.Sample)
}

// Notifier is told when a failure streak starts and when it ends
type Notifier interface {
	NotifyFailure(f notify.Failure) error
	NotifyRecovered(r notify.Recovery) error
}

// Options controls the poll cadence and restart behavior
type Options struct {
	PollInterval       time.Duration
	AutoRestart        bool
	ReconnectDelay     time.Duration
	MaxReconnectDelay  time.Duration
	ExponentialBackoff bool
}

// OptionsFromConfig builds Options from the application configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PollInterval:       cfg.Poll.GetInterval(),
		AutoRestart:        cfg.Recovery.AutoRestart,
		ReconnectDelay:     cfg.Recovery.GetReconnectDelay(),
		MaxReconnectDelay:  cfg.Recovery.GetMaxReconnectDelay(),
		ExponentialBackoff: cfg.Recovery.ExponentialBackoff,
	}
}

// Manager owns a session for a headless process. It is the session's only
// controller: every call into the session happens on the goroutine running
// Run.
type Manager struct {
	session   *acquisition.Session
	target    acquisition.Target
	opts      Options
	publisher Publisher
	notifier  Notifier
	logger    *slog.Logger

	delay     time.Duration
	attempt   int
	retryAt   time.Time
	failing   bool
	failedAt  time.Time
	completed int64
	restarts  int64
}

// NewManager creates a manager that acquires from target
func NewManager(
	session *acquisition.Session,
	target acquisition.Target,
	opts Options,
	publisher Publisher,
	notifier Notifier,
	logger *slog.Logger,
) *Manager {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 16 * time.Millisecond
	}
	if opts.MaxReconnectDelay < opts.ReconnectDelay {
		opts.MaxReconnectDelay = opts.ReconnectDelay
	}

	return &Manager{
		session:   session,
		target:    target,
		opts:      opts,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger.With("device", target.Device),
		delay:     opts.ReconnectDelay,
	}
}

// Run starts acquisition and polls the session until ctx is cancelled, then
// stops it and publishes the final state
func (m *Manager) Run(ctx context.Context) error {
	if err := m.session.Start(m.target); err != nil {
		if !errors.Is(err, acquisition.ErrNoTarget) {
			return err
		}
		m.logger.Info("No serial device configured, staying idle")
	}
	m.publisher.Update(m.session.Status(), m.session.Poll())

	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.session.Stop()
			m.publisher.Update(m.session.Status(), m.session.Poll())
			return nil
		case now := <-ticker.C:
			m.tick(now)
		}
	}
}

// TotalSamples returns the number of samples received across every restart.
// Call it after Run has returned.
func (m *Manager) TotalSamples() int64 {
	return m.completed + m.session.Status().SamplesReceived
}

// Restarts returns how many times the session was restarted after a
// producer failure
func (m *Manager) Restarts() int64 {
	return m.restarts
}

func (m *Manager) tick(now time.Time) {
	if !m.retryAt.IsZero() && !now.Before(m.retryAt) {
		m.retryAt = time.Time{}
		m.restart()
	}

	wasRunning := m.session.IsRunning()
	samples := m.session.Poll()
	status := m.session.Status()

	switch {
	case wasRunning && !m.session.IsRunning():
		m.producerDied(now, status)
	case m.failing && m.session.IsRunning() && status.SamplesReceived > 0:
		m.recovered(now, status)
	}

	m.publisher.Update(status, samples)
}

// producerDied schedules the next restart and reports the first failure of
// a streak
func (m *Manager) producerDied(now time.Time, status acquisition.Status) {
	failure := notify.Failure{Status: status}

	if m.opts.AutoRestart {
		m.attempt++
		m.retryAt = now.Add(m.delay)
		failure.Attempt = m.attempt
		failure.RetryIn = m.delay
		m.logger.Info("Scheduling restart", "attempt", m.attempt, "delay", m.delay)

		if m.opts.ExponentialBackoff {
			m.delay = min(m.delay*2, m.opts.MaxReconnectDelay)
		}
	}

	if m.failing {
		return
	}
	m.failing = true
	m.failedAt = now
	if err := m.notifier.NotifyFailure(failure); err != nil {
		m.logger.Warn("Failed to send failure notification", "error", err)
	}
}

func (m *Manager) recovered(now time.Time, status acquisition.Status) {
	recovery := notify.Recovery{
		Status:   status,
		Attempts: m.attempt,
		Downtime: now.Sub(m.failedAt),
	}
	m.logger.Info("Acquisition recovered", "attempts", m.attempt, "downtime", recovery.Downtime)

	m.failing = false
	m.attempt = 0
	m.delay = m.opts.ReconnectDelay

	if err := m.notifier.NotifyRecovered(recovery); err != nil {
		m.logger.Warn("Failed to send recovery notification", "error", err)
	}
}

func (m *Manager) restart() {
	m.completed += m.session.Status().SamplesReceived
	if err := m.session.Start(m.target); err != nil {
		m.logger.Error("Restart failed", "error", err)
		return
	}
	m.restarts++
}
