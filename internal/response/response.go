// Package response writes the JSON bodies every handler returns.
package response

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Error writes {"error": message} with the given status
func Error(w http.ResponseWriter, code int, message string) {
	JSON(w, code, map[string]string{"error": message})
}

// JSON marshals payload and writes it with the given status.
// Encoding failures go to the global zap logger, which main replaces with the service logger.
func JSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		zap.S().Errorw("Failed to encode JSON response", "status", code, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Decode reads a JSON request body into dst
func Decode(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
