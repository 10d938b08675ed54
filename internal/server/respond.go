package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/smc1992/leadgen-ai/internal/resilience"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

// writeError maps the error taxonomy onto HTTP status codes. Errors with no
// taxonomy class surface as a plain 500 with no detail leaked.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch resilience.ClassOf(err) {
	case resilience.ClassUnauthenticated:
		status = http.StatusUnauthorized
		msg = "unauthenticated"
	case resilience.ClassUnavailable:
		status = http.StatusServiceUnavailable
		msg = "service unavailable"
	case resilience.ClassBadRequest:
		status = http.StatusBadRequest
		msg = resilience.Truncate(err.Error())
	case resilience.ClassUpstreamGateway:
		status = http.StatusBadGateway
		msg = resilience.Truncate(err.Error())
	default:
		zap.L().Error("server: unclassified error", zap.Error(err))
	}

	writeJSON(w, status, errorBody{Error: msg})
}
