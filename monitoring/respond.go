package monitoring

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// writeJSON encodes v before touching the response so an encoding failure
// becomes a 500 instead of a truncated 200
func writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to encode response: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(append(body, '\n'))
}
