package generator

import (
	"bufio"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Mode names a registered waveform, or replay
type Mode string

const (
	ModeSine   Mode = "sine"
	ModeRamp   Mode = "ramp"
	ModeNoise  Mode = "noise"
	ModeReplay Mode = "replay"
)

// Config describes the emulated device output
type Config struct {
	Mode             Mode
	Amplitude        float64
	Offset           float64
	PeriodSec        float64
	SamplesPerSecond float64
	JitterPercent    float64
	SampleFile       string // replay mode: one value per line
	Loop             bool
}

// Generator produces the values an emulated device writes, one per line
type Generator struct {
	config      Config
	rateLimiter *RateLimiter
	random      *rand.Rand
	waveform    Waveform

	mu     sync.Mutex
	index  int
	values []float64
}

// New creates a new generator for the given configuration
func New(cfg Config) (*Generator, error) {
	var waveform Waveform
	if cfg.Mode != ModeReplay {
		w, err := Get(string(cfg.Mode))
		if err != nil {
			return nil, fmt.Errorf("invalid mode: %w", err)
		}
		waveform = w
	}
	if cfg.SamplesPerSecond <= 0 {
		return nil, fmt.Errorf("samples per second must be greater than 0")
	}
	if cfg.PeriodSec <= 0 {
		cfg.PeriodSec = 1
	}

	g := &Generator{
		config:      cfg,
		rateLimiter: NewRateLimiter(cfg.SamplesPerSecond, cfg.JitterPercent),
		random:      rand.New(rand.NewSource(time.Now().UnixNano())),
		waveform:    waveform,
	}

	if cfg.Mode == ModeReplay {
		if err := g.loadSampleFile(); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// loadSampleFile loads the values to replay
func (g *Generator) loadSampleFile() error {
	if g.config.SampleFile == "" {
		return fmt.Errorf("sample file is required for replay mode")
	}

	file, err := os.Open(g.config.SampleFile)
	if err != nil {
		return fmt.Errorf("failed to open sample file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return fmt.Errorf("failed to parse sample file: %w", err)
		}
		g.values = append(g.values, v)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read sample file: %w", err)
	}

	if len(g.values) == 0 {
		return fmt.Errorf("no values found in sample file")
	}
	return nil
}

// Next returns the next value
func (g *Generator) Next() (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.index
	g.index++

	if g.config.Mode == ModeReplay {
		if i >= len(g.values) {
			if !g.config.Loop {
				return 0, fmt.Errorf("end of sample file reached")
			}
			i %= len(g.values)
		}
		return g.values[i], nil
	}

	// Phase within the period, derived from the nominal sample rate
	t := float64(i) / g.config.SamplesPerSecond
	phase := math.Mod(t, g.config.PeriodSec) / g.config.PeriodSec

	return g.config.Offset + g.config.Amplitude*g.waveform.Value(phase, g.random), nil
}

// NextLine returns the next value formatted as the device would send it
func (g *Generator) NextLine() ([]byte, error) {
	v, err := g.Next()
	if err != nil {
		return nil, err
	}
	return FormatLine(v), nil
}

// FormatLine renders v as one newline-terminated text sample
func FormatLine(v float64) []byte {
	return []byte(strconv.FormatFloat(v, 'f', -1, 64) + "\n")
}

// RateLimiter returns the rate limiter for this generator
func (g *Generator) RateLimiter() *RateLimiter {
	return g.rateLimiter
}

// Mode returns the generator mode
func (g *Generator) Mode() Mode {
	return g.config.Mode
}

// Count returns the number of values emitted so far
func (g *Generator) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.index
}
