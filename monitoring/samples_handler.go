package monitoring

import (
	"net/http"
	"strconv"

	"serialplotter/acquisition"
)

// SamplesResponse carries the current window to remote renderers
type SamplesResponse struct {
	State        acquisition.State    `json:"state"`
	RunID        string               `json:"run_id,omitempty"`
	Device       string               `json:"device"`
	WindowLength float64              `json:"window_length_sec"`
	Samples      []acquisition.Sample `json:"samples"`
}

// SamplesHandler handles requests for the retained window
type SamplesHandler struct {
	store *Store
}

// NewSamplesHandler creates a new samples handler
func NewSamplesHandler(store *Store) *SamplesHandler {
	return &SamplesHandler{
		store: store,
	}
}

// ServeHTTP handles sample requests. The optional "since" parameter limits
// the response to samples newer than the given elapsed time. Elapsed time
// restarts with every run, so clients compare run_id before using "since".
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	samples := h.store.Samples()
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "invalid since parameter", http.StatusBadRequest)
			return
		}
		samples = newerThan(samples, since)
	}
	if samples == nil {
		samples = []acquisition.Sample{}
	}

	status := h.store.Status()
	writeJSON(w, http.StatusOK, SamplesResponse{
		State:        status.State,
		RunID:        status.RunID,
		Device:       status.Target.Device,
		WindowLength: status.WindowLength,
		Samples:      samples,
	})
}

func newerThan(samples []acquisition.Sample, since float64) []acquisition.Sample {
	for i, s := range samples {
		if s.Elapsed > since {
			return samples[i:]
		}
	}
	return nil
}
