package monitoring

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serialplotter/acquisition"
	"serialplotter/config"
	"serialplotter/serial"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runningStore() *Store {
	store := NewStore()
	store.Update(acquisition.Status{
		State:           acquisition.StateRunning,
		RunID:           "run-1",
		Target:          acquisition.Target{Device: "/dev/ttyUSB0", BaudRate: 115200},
		WindowLength:    10,
		WindowSize:      3,
		SamplesReceived: 42,
		LastValue:       3.5,
		LastSampleTime:  time.Unix(1_700_000_000, 0),
	}, []acquisition.Sample{
		{Elapsed: 1, Value: 1.5},
		{Elapsed: 2, Value: 2.5},
		{Elapsed: 3, Value: 3.5},
	})
	return store
}

func TestStoreDefaults(t *testing.T) {
	store := NewStore()
	assert.Equal(t, acquisition.StateIdle, store.Status().State)
	assert.Empty(t, store.Samples())
	assert.True(t, store.UpdatedAt().IsZero())

	store.Update(acquisition.Status{State: acquisition.StateRunning}, nil)
	assert.False(t, store.UpdatedAt().IsZero())
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		status     acquisition.Status
		wantStatus string
		wantCode   int
	}{
		{"running", acquisition.Status{State: acquisition.StateRunning}, "healthy", http.StatusOK},
		{"idle", acquisition.Status{State: acquisition.StateIdle}, "idle", http.StatusOK},
		{"producer died", acquisition.Status{State: acquisition.StateIdle, LastError: "read /dev/ttyUSB0: EOF"}, "degraded", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			store.Update(tt.status, nil)

			rec := httptest.NewRecorder()
			NewHealthHandler("bench-1", "1.2.3", store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "bench-1", resp.InstanceID)
			assert.Equal(t, "1.2.3", resp.Version)
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMetricsHandler(runningStore()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `serialplotter_samples_total{port="/dev/ttyUSB0"} 42`)
	assert.Contains(t, body, `serialplotter_window_samples{port="/dev/ttyUSB0"} 3`)
	assert.Contains(t, body, `serialplotter_window_length_seconds 10`)
	assert.Contains(t, body, `serialplotter_session_up{port="/dev/ttyUSB0"} 1`)
	assert.Contains(t, body, `serialplotter_last_value{port="/dev/ttyUSB0"} 3.5`)
	assert.Contains(t, body, `serialplotter_last_sample_timestamp{port="/dev/ttyUSB0"} 1700000000`)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
}

func TestMetricsHandlerIdleOmitsLastSample(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMetricsHandler(NewStore()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `serialplotter_session_up{port=""} 0`)
	assert.NotContains(t, body, "serialplotter_last_value")
}

func TestSamplesHandler(t *testing.T) {
	handler := NewSamplesHandler(runningStore())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/samples", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SamplesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, acquisition.StateRunning, resp.State)
	assert.Equal(t, "/dev/ttyUSB0", resp.Device)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, 10.0, resp.WindowLength)
	assert.Len(t, resp.Samples, 3)
	assert.Contains(t, rec.Body.String(), `{"t":1,"v":1.5}`)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/samples?since=1.5", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Samples, 2)
	assert.Equal(t, 2.0, resp.Samples[0].Elapsed)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/samples?since=99", nil))
	assert.Contains(t, rec.Body.String(), `"samples":[]`)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/samples?since=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPortsHandler(t *testing.T) {
	handler := NewPortsHandler(func() ([]serial.PortInfo, error) {
		return []serial.PortInfo{{Name: "/dev/ttyACM0", IsUSB: true, VID: "2341", PID: "0043"}}, nil
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ports", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Ports     []serial.PortInfo `json:"ports"`
		BaudRates []int             `json:"baud_rates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Ports, 1)
	assert.Equal(t, "/dev/ttyACM0", resp.Ports[0].Name)
	assert.Contains(t, resp.BaudRates, 115200)
}

func TestPortsHandlerError(t *testing.T) {
	handler := NewPortsHandler(func() ([]serial.PortInfo, error) {
		return nil, errors.New("enumeration failed")
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ports", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestConfigHandler(t *testing.T) {
	cfg := config.Default()
	cfg.Serial.Device = "/dev/ttyUSB0"
	path := filepath.Join(t.TempDir(), "config.json")
	handler := NewConfigHandler(cfg, path)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"device":"/dev/ttyUSB0"`)

	body, err := json.Marshal(cfg)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(string(body))))
	require.Equal(t, http.StatusOK, rec.Code)

	saved, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", saved.Serial.Device)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(`{"serial":{"baud_rate":1}}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/config", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestConfigHandlerReadOnly(t *testing.T) {
	handler := NewConfigHandler(config.Default(), "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServerRoutes(t *testing.T) {
	cfg := config.Default()
	srv := httptest.NewServer(NewServer(cfg, "", "test", runningStore(), testLogger()).Handler())
	defer srv.Close()

	for _, path := range []string{"/", "/health", "/metrics", "/api/samples", "/api/config"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlersEncodeNonFiniteValues(t *testing.T) {
	values := acquisition.Decode([]byte("inf\n1\n-inf\nnan\n"))
	require.Len(t, values, 4)

	samples := make([]acquisition.Sample, len(values))
	for i, v := range values {
		samples[i] = acquisition.Sample{Elapsed: float64(i), Value: v}
	}
	store := NewStore()
	store.Update(acquisition.Status{
		State:           acquisition.StateRunning,
		Target:          acquisition.Target{Device: "/dev/ttyACM0", BaudRate: 9600},
		SamplesReceived: 4,
		LastValue:       math.NaN(),
		LastSampleTime:  time.Unix(1_700_000_000, 0),
	}, samples)

	rec := httptest.NewRecorder()
	NewSamplesHandler(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/samples", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `{"t":0,"v":null}`)
	assert.Contains(t, rec.Body.String(), `{"t":1,"v":1}`)

	var resp SamplesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Samples, 4)
	assert.Equal(t, 1.0, resp.Samples[1].Value)

	rec = httptest.NewRecorder()
	NewHealthHandler("bench-1", "1.2.3", store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"last_value":null`)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.EqualValues(t, 4, health.Session.SamplesReceived)

	rec = httptest.NewRecorder()
	NewMetricsHandler(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `serialplotter_last_value{port="/dev/ttyACM0"} NaN`)
}

func TestWriteJSONReportsEncodingFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to encode response")
}
