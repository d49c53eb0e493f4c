package monitoring

import (
	"net/http"
	"time"

	"serialplotter/acquisition"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string             `json:"status"`
	InstanceID string             `json:"instance_id"`
	Version    string             `json:"version"`
	UptimeSec  int64              `json:"uptime_sec"`
	Session    acquisition.Status `json:"session"`
}

// HealthHandler creates an HTTP handler for health checks
type HealthHandler struct {
	instanceID string
	version    string
	startTime  time.Time
	store      *Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(instanceID, version string, store *Store) *HealthHandler {
	return &HealthHandler{
		instanceID: instanceID,
		version:    version,
		startTime:  time.Now(),
		store:      store,
	}
}

// ServeHTTP handles the /health endpoint
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session := h.store.Status()

	// Determine overall status
	status := "healthy"
	switch {
	case session.State == acquisition.StateIdle && session.LastError != "":
		status = "degraded"
	case session.State == acquisition.StateIdle:
		status = "idle"
	}

	response := HealthResponse{
		Status:     status,
		InstanceID: h.instanceID,
		Version:    h.version,
		UptimeSec:  int64(time.Since(h.startTime).Seconds()),
		Session:    session,
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}
