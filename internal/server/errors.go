package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/local/podofo/internal/pdferr"
)

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps an operation error to an HTTP status.
func statusFor(err error) int {
	var le *limitError
	if errors.As(err, &le) {
		return http.StatusRequestEntityTooLarge
	}
	if pdferr.Is(err, pdferr.InvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func resultLabel(err error) string {
	var le *limitError
	if errors.As(err, &le) {
		return "too_large"
	}
	return pdferr.KindOf(err).String()
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
