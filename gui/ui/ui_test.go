package ui

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serialplotter/acquisition"
	"serialplotter/monitoring"
)

func TestComputeRangeEmpty(t *testing.T) {
	r := computeRange(nil, 10, -100, 1000)
	assert.Equal(t, plotRange{xMin: 0, xMax: 10, yMin: -100, yMax: 1000}, r)
}

func TestComputeRangeFollowsLatestSample(t *testing.T) {
	samples := []acquisition.Sample{
		{Elapsed: 12, Value: 5},
		{Elapsed: 20, Value: 1500},
		{Elapsed: 25, Value: -250},
	}

	r := computeRange(samples, 10, -100, 1000)
	assert.Equal(t, 12.0, r.xMin)
	assert.Equal(t, 25.0, r.xMax)
	assert.Equal(t, -250.0, r.yMin)
	assert.Equal(t, 1500.0, r.yMax)
}

func TestComputeRangeKeepsFloorSamplesVisible(t *testing.T) {
	// Floor samples may be older than the window.
	samples := []acquisition.Sample{{Elapsed: 1, Value: 0}, {Elapsed: 40, Value: 0}}

	r := computeRange(samples, 10, -100, 1000)
	assert.Equal(t, 1.0, r.xMin)
	assert.Equal(t, 40.0, r.xMax)
}

func TestComputeRangeWidensFlatY(t *testing.T) {
	r := computeRange([]acquisition.Sample{{Elapsed: 1, Value: 3}}, 4, 3, 3)
	assert.Greater(t, r.yMax, r.yMin)
}

func TestComputeRangeIgnoresNonFiniteValues(t *testing.T) {
	samples := []acquisition.Sample{
		{Elapsed: 1, Value: math.Inf(1)},
		{Elapsed: 2, Value: 50},
		{Elapsed: 3, Value: math.NaN()},
		{Elapsed: 4, Value: math.Inf(-1)},
	}

	r := computeRange(samples, 10, -100, 1000)
	assert.Equal(t, plotRange{xMin: -6, xMax: 4, yMin: -100, yMax: 1000}, r)
}

func TestPlotSkipsSegmentsAroundNonFiniteValues(t *testing.T) {
	test.NewTempApp(t)

	p := NewPlotWidget(10, -100, 1000)
	p.samples = []acquisition.Sample{
		{Elapsed: 0, Value: 1},
		{Elapsed: 1, Value: math.NaN()},
		{Elapsed: 2, Value: 3},
		{Elapsed: 3, Value: 4},
		{Elapsed: 4, Value: math.Inf(1)},
	}
	r := p.CreateRenderer().(*plotRenderer)
	r.Layout(fyne.NewSize(400, 300))

	require.Len(t, r.lines, 1)
	seg := r.lines[0].(*canvas.Line)
	for _, v := range []float32{seg.Position1.X, seg.Position1.Y, seg.Position2.X, seg.Position2.Y} {
		assert.False(t, math.IsNaN(float64(v)))
	}
	assert.Less(t, seg.Position1.X, seg.Position2.X)
}

func TestProject(t *testing.T) {
	r := plotRange{xMin: 0, xMax: 10, yMin: 0, yMax: 100}
	size := fyne.NewSize(200, 100)

	assert.Equal(t, fyne.NewPos(0, 100), r.project(acquisition.Sample{Elapsed: 0, Value: 0}, size))
	assert.Equal(t, fyne.NewPos(200, 0), r.project(acquisition.Sample{Elapsed: 10, Value: 100}, size))
	assert.Equal(t, fyne.NewPos(100, 50), r.project(acquisition.Sample{Elapsed: 5, Value: 50}, size))
}

func TestParseServiceStatus(t *testing.T) {
	tests := []struct {
		output     string
		want       string
		importance widget.Importance
	}{
		{"   Active: active (running) since Mon", "RUNNING", widget.SuccessImportance},
		{"   Active: inactive (dead)", "STOPPED", widget.MediumImportance},
		{"   Active: failed (Result: exit-code)", "FAILED", widget.DangerImportance},
		{"Unit serialplotter.service could not be found.", "UNKNOWN", widget.WarningImportance},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, importance := parseServiceStatus(tt.output)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.importance, importance)
		})
	}
}

func TestFetchHealth(t *testing.T) {
	var code atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(int(code.Load()))
		json.NewEncoder(w).Encode(monitoring.HealthResponse{
			Status:     "degraded",
			InstanceID: "bench-1",
			Session: acquisition.Status{
				State:     acquisition.StateIdle,
				LastError: "read /dev/ttyUSB0: EOF",
			},
		})
	}))
	defer srv.Close()

	client := &http.Client{Timeout: time.Second}

	code.Store(http.StatusServiceUnavailable)
	health, err := fetchHealth(client, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "read /dev/ttyUSB0: EOF", health.Session.LastError)

	code.Store(http.StatusInternalServerError)
	_, err = fetchHealth(client, srv.URL)
	assert.ErrorContains(t, err, "unexpected status 500")
}

func TestFetchHealthUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := fetchHealth(&http.Client{Timeout: time.Second}, url)
	assert.ErrorContains(t, err, "cannot connect to service")
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "45s", formatUptime(45))
	assert.Equal(t, "2m 5s", formatUptime(125))
	assert.Equal(t, "1h 1m 1s", formatUptime(3661))
}
