package httpapi

import (
	"net/http"

	"antartida-viewer/internal/utils"
)

// StatusReporter exposes the name of the current display state.
type StatusReporter interface {
	StateName() string
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	status StatusReporter
}

func NewHealthchecker(status StatusReporter) healthchecker {
	return &healthcheckerImpl{status: status}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"display": h.status.StateName(),
	})
}

func registerHealthcheck(mux *http.ServeMux, status StatusReporter) {
	healthchecker := NewHealthchecker(status)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
