package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"antartida-viewer/internal/modules/antartida/display"
	"antartida-viewer/internal/modules/antartida/query"
	"antartida-viewer/internal/modules/antartida/types"
)

// Fetcher runs one measurement query against the remote service.
type Fetcher interface {
	Fetch(ctx context.Context, d query.Descriptor) ([]types.Measurement, error)
}

type AntartidaController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type Options struct {
	// DefaultLocation pre-fills the time zone field.
	DefaultLocation string
	Logger          *slog.Logger
	// Now is the clock used for form defaults; time.Now when nil.
	Now func() time.Time
}

type antartidaControllerImpl struct {
	fetcher         Fetcher
	holder          *display.Holder
	defaultLocation string
	logger          *slog.Logger
	now             func() time.Time
}

func NewAntartidaController(fetcher Fetcher, holder *display.Holder, opts Options) AntartidaController {
	c := &antartidaControllerImpl{
		fetcher:         fetcher,
		holder:          holder,
		defaultLocation: opts.DefaultLocation,
		logger:          opts.Logger,
		now:             opts.Now,
	}
	if c.defaultLocation == "" {
		c.defaultLocation = defaultLocation
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

func (c *antartidaControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleIndex)
	mux.HandleFunc("POST /query", c.handleQuery)
	mux.HandleFunc("GET /partials/state", c.handleStatePartial)
}
