package antartida

import (
	"net/http"

	"antartida-viewer/internal/modules/antartida/controller"
	"antartida-viewer/internal/modules/antartida/display"
)

func RegisterFeature(mux *http.ServeMux, fetcher controller.Fetcher, holder *display.Holder, opts controller.Options) {
	antartidaController := controller.NewAntartidaController(fetcher, holder, opts)
	antartidaController.RegisterRoutes(mux)
}
