package httpx

import (
	"encoding/json"
	"log"
	"net/http"

	"go-messenger/internal/apperr"
)

// JSON writes v with the given status. Encoding failures are logged, not
// surfaced; headers are already gone by then.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpx: encode response: %v", err)
	}
}

// Error maps a service error onto the taxonomy's HTTP status.
func Error(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("httpx: internal error: %v", err)
		JSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	JSON(w, status, map[string]string{"error": err.Error()})
}
