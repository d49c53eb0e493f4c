package acquisition

import (
	"encoding/json"
	"math"
)

// DefaultFloor is the number of samples always retained so a line can be drawn
const DefaultFloor = 2

// Sample is one decoded reading stamped with the seconds elapsed since its
// session started
type Sample struct {
	Elapsed float64 `json:"t"`
	Value   float64 `json:"v"`
}

// MarshalJSON writes a non-finite value as null. Devices may print nan or
// inf, which JSON cannot represent.
func (s Sample) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Elapsed float64  `json:"t"`
		Value   *float64 `json:"v"`
	}{s.Elapsed, finite(s.Value)})
}

// finite returns nil for NaN and the infinities
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Window keeps the samples that fall within the trailing length seconds of
// the newest one. It is owned by a single goroutine and is not safe for
// concurrent use.
type Window struct {
	samples []Sample
	length  float64
	floor   int
}

// NewWindow creates a window spanning length seconds that never trims below
// floor samples
func NewWindow(length float64, floor int) *Window {
	if floor < 0 {
		floor = 0
	}
	return &Window{
		length: length,
		floor:  floor,
	}
}

// Append adds s to the end and evicts samples older than the window
func (w *Window) Append(s Sample) {
	w.samples = append(w.samples, s)
	w.trim()
}

// SetLength changes the window span and re-trims right away
func (w *Window) SetLength(length float64) {
	w.length = length
	w.trim()
}

// Length returns the window span in seconds
func (w *Window) Length() float64 {
	return w.length
}

// Floor returns the minimum number of retained samples
func (w *Window) Floor() int {
	return w.floor
}

// Len returns the number of retained samples
func (w *Window) Len() int {
	return len(w.samples)
}

// Latest returns the newest sample
func (w *Window) Latest() (Sample, bool) {
	if len(w.samples) == 0 {
		return Sample{}, false
	}
	return w.samples[len(w.samples)-1], true
}

// Snapshot returns a copy of the retained samples, oldest first
func (w *Window) Snapshot() []Sample {
	out := make([]Sample, len(w.samples))
	copy(out, w.samples)
	return out
}

// Reset drops every sample
func (w *Window) Reset() {
	w.samples = nil
}

func (w *Window) trim() {
	if len(w.samples) <= w.floor {
		return
	}
	cutoff := w.samples[len(w.samples)-1].Elapsed - w.length

	drop := 0
	for len(w.samples)-drop > w.floor && w.samples[drop].Elapsed < cutoff {
		drop++
	}
	if drop > 0 {
		w.samples = w.samples[drop:]
	}
}
