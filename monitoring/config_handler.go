package monitoring

import (
	"encoding/json"
	"io"
	"net/http"

	"serialplotter/config"
)

// ConfigHandler handles configuration management requests
type ConfigHandler struct {
	current    *config.Config
	configPath string
}

// NewConfigHandler creates a new config handler. Saving is only possible
// when configPath is set.
func NewConfigHandler(current *config.Config, configPath string) *ConfigHandler {
	return &ConfigHandler{
		current:    current,
		configPath: configPath,
	}
}

// ServeHTTP handles config requests
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.current)
	case http.MethodPost:
		h.saveConfig(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ConfigHandler) saveConfig(w http.ResponseWriter, r *http.Request) {
	if h.configPath == "" {
		http.Error(w, "service was started without a configuration file", http.StatusConflict)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var cfg config.Config
	if err := json.Unmarshal(body, &cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Validate configuration
	if err := config.Validate(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := config.Save(h.configPath, &cfg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Configuration saved. Restart the service to apply changes.",
	})
}
