package generator

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
)

// Waveform shapes periodic output. Value receives the phase within the
// period in [0, 1) and returns a level that is scaled by the amplitude and
// shifted by the offset.
type Waveform interface {
	Name() string
	Description() string
	Value(phase float64, random *rand.Rand) float64
}

// registry holds all registered waveforms
var (
	registry = make(map[string]Waveform)
	mu       sync.RWMutex
)

func init() {
	MustRegister(waveFunc{"sine", "Sine wave between -amplitude and +amplitude", func(p float64, _ *rand.Rand) float64 {
		return math.Sin(2 * math.Pi * p)
	}})
	MustRegister(waveFunc{"ramp", "Sawtooth rising from 0 to amplitude", func(p float64, _ *rand.Rand) float64 {
		return p
	}})
	MustRegister(waveFunc{"square", "Square wave alternating between -amplitude and +amplitude", func(p float64, _ *rand.Rand) float64 {
		if p < 0.5 {
			return 1
		}
		return -1
	}})
	MustRegister(waveFunc{"triangle", "Triangle wave between -amplitude and +amplitude", func(p float64, _ *rand.Rand) float64 {
		return 1 - 4*math.Abs(p-0.5)
	}})
	MustRegister(waveFunc{"noise", "Uniform noise within +/- amplitude", func(_ float64, r *rand.Rand) float64 {
		return r.Float64()*2 - 1
	}})
}

type waveFunc struct {
	name        string
	description string
	fn          func(phase float64, random *rand.Rand) float64
}

func (w waveFunc) Name() string        { return w.name }
func (w waveFunc) Description() string { return w.description }
func (w waveFunc) Value(phase float64, random *rand.Rand) float64 {
	return w.fn(phase, random)
}

// Register adds a new waveform to the registry
func Register(w Waveform) error {
	mu.Lock()
	defer mu.Unlock()

	name := strings.ToLower(w.Name())
	if name == string(ModeReplay) {
		return fmt.Errorf("waveform name %q is reserved", name)
	}
	if _, exists := registry[name]; exists {
		return fmt.Errorf("waveform %q already registered", name)
	}

	registry[name] = w
	return nil
}

// MustRegister registers a waveform and panics on error.
// This is useful for init() functions.
func MustRegister(w Waveform) {
	if err := Register(w); err != nil {
		panic(err)
	}
}

// Get retrieves a waveform by name (case-insensitive)
func Get(name string) (Waveform, error) {
	mu.RLock()
	defer mu.RUnlock()

	w, exists := registry[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("unknown waveform: %s", name)
	}
	return w, nil
}

// List returns all registered waveform names in alphabetical order
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
