package monitoring

import (
	"fmt"
	"net/http"

	"serialplotter/acquisition"
)

// MetricsHandler creates an HTTP handler for Prometheus metrics
type MetricsHandler struct {
	store *Store
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(store *Store) *MetricsHandler {
	return &MetricsHandler{
		store: store,
	}
}

// ServeHTTP handles the /metrics endpoint in Prometheus format
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s := h.store.Status()
	port := s.Target.Device

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	// Samples total
	fmt.Fprintln(w, "# HELP serialplotter_samples_total Samples received in the current session")
	fmt.Fprintln(w, "# TYPE serialplotter_samples_total counter")
	fmt.Fprintf(w, "serialplotter_samples_total{port=%q} %d\n", port, s.SamplesReceived)

	// Window
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP serialplotter_window_samples Samples currently retained in the window")
	fmt.Fprintln(w, "# TYPE serialplotter_window_samples gauge")
	fmt.Fprintf(w, "serialplotter_window_samples{port=%q} %d\n", port, s.WindowSize)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP serialplotter_window_length_seconds Configured window length")
	fmt.Fprintln(w, "# TYPE serialplotter_window_length_seconds gauge")
	fmt.Fprintf(w, "serialplotter_window_length_seconds %g\n", s.WindowLength)

	// Session status
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP serialplotter_session_up Session status (1=running, 0=idle)")
	fmt.Fprintln(w, "# TYPE serialplotter_session_up gauge")
	up := 0
	if s.State == acquisition.StateRunning {
		up = 1
	}
	fmt.Fprintf(w, "serialplotter_session_up{port=%q} %d\n", port, up)

	// Producer exits
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP serialplotter_producer_exits_total Producers that ended with an error")
	fmt.Fprintln(w, "# TYPE serialplotter_producer_exits_total counter")
	fmt.Fprintf(w, "serialplotter_producer_exits_total %d\n", s.ProducerExits)

	// Last sample
	if !s.LastSampleTime.IsZero() {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "# HELP serialplotter_last_value Most recent decoded value")
		fmt.Fprintln(w, "# TYPE serialplotter_last_value gauge")
		fmt.Fprintf(w, "serialplotter_last_value{port=%q} %g\n", port, s.LastValue)

		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "# HELP serialplotter_last_sample_timestamp Unix timestamp of last sample")
		fmt.Fprintln(w, "# TYPE serialplotter_last_sample_timestamp gauge")
		fmt.Fprintf(w, "serialplotter_last_sample_timestamp{port=%q} %d\n", port, s.LastSampleTime.Unix())
	}
}
