package httpapi

import (
	"net/http"
)

func NewMux(status StatusReporter) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, status)
	return mux
}
