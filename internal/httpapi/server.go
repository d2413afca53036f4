package httpapi

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"

	"antartida-viewer/internal/config"
)

func NewServer(config config.Config, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:    config.HTTPAddr,
		Handler: Handler(mux),
	}
}

// Handler wraps mux with request logging and response compression.
func Handler(mux *http.ServeMux) http.Handler {
	return gzhttp.GzipHandler(requestLogger(mux))
}
