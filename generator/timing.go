package generator

import (
	"math/rand"
	"sync"
	"time"
)

// RateLimiter controls the rate of sample emission with optional jitter
type RateLimiter struct {
	mu               sync.Mutex
	samplesPerSecond float64
	jitterPercent    float64
	random           *rand.Rand
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(samplesPerSecond float64, jitterPercent float64) *RateLimiter {
	return &RateLimiter{
		samplesPerSecond: samplesPerSecond,
		jitterPercent:    jitterPercent,
		random:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NextInterval returns the duration to wait before the next sample
func (r *RateLimiter) NextInterval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.samplesPerSecond <= 0 {
		return time.Second // Default to 1 per second if not set
	}

	baseInterval := time.Duration(float64(time.Second) / r.samplesPerSecond)

	// Apply jitter if configured
	if r.jitterPercent > 0 {
		// Generate random value between -jitter% and +jitter%
		jitterFactor := (r.random.Float64()*2 - 1) * (r.jitterPercent / 100)
		jitterAmount := time.Duration(float64(baseInterval) * jitterFactor)
		return baseInterval + jitterAmount
	}

	return baseInterval
}

// SetSamplesPerSecond updates the rate
func (r *RateLimiter) SetSamplesPerSecond(sps float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samplesPerSecond = sps
}

// SetJitterPercent updates the jitter percentage
func (r *RateLimiter) SetJitterPercent(jp float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jitterPercent = jp
}

// Ticker creates a channel that sends at the configured rate with jitter
type Ticker struct {
	limiter *RateLimiter
	C       chan time.Time
	done    chan struct{}
	once    sync.Once
}

// NewTicker creates a new ticker that fires at the rate limiter's interval
func NewTicker(limiter *RateLimiter) *Ticker {
	t := &Ticker{
		limiter: limiter,
		C:       make(chan time.Time, 1),
		done:    make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Ticker) run() {
	for {
		interval := t.limiter.NextInterval()
		timer := time.NewTimer(interval)
		select {
		case <-timer.C:
			select {
			case t.C <- time.Now():
			default:
				// Channel full, skip this tick
			}
		case <-t.done:
			timer.Stop()
			return
		}
	}
}

// Stop stops the ticker
func (t *Ticker) Stop() {
	t.once.Do(func() { close(t.done) })
}
