package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/taskdeck/taskdeck-go/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps err through the apperr status table and writes the uniform
// error body. Server-side failures are logged with full detail; clients only
// ever see the sanitized message.
func writeError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status >= 500 {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse(apperr.ClientMessage(err)))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if err.Error() == "http: request body too large" {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return false
	}
	return true
}
