package monitoring

import (
	"net/http"

	"serialplotter/serial"
)

// PortsHandler handles requests for the serial ports present on the host
type PortsHandler struct {
	list func() ([]serial.PortInfo, error)
}

// NewPortsHandler creates a new ports handler. A nil list uses
// serial.ListDetailed.
func NewPortsHandler(list func() ([]serial.PortInfo, error)) *PortsHandler {
	if list == nil {
		list = serial.ListDetailed
	}
	return &PortsHandler{
		list: list,
	}
}

// ServeHTTP handles port listing requests
func (h *PortsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ports, err := h.list()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if ports == nil {
		ports = []serial.PortInfo{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ports":      ports,
		"baud_rates": serial.BaudRates,
	})
}
