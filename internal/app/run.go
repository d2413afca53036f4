package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"antartida-viewer/internal/config"
	httpapi "antartida-viewer/internal/httpapi"
	antartida "antartida-viewer/internal/modules/antartida"
	"antartida-viewer/internal/modules/antartida/client"
	"antartida-viewer/internal/modules/antartida/controller"
	"antartida-viewer/internal/modules/antartida/display"
	antartidaviews "antartida-viewer/internal/modules/antartida/views"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"apiBaseURL", cfg.APIBaseURL,
		"apiTimeout", cfg.APITimeout,
		"defaultLocation", cfg.DefaultLocation,
	)

	if err := antartidaviews.LoadTemplates(); err != nil {
		return err
	}

	apiClient, err := client.New(cfg.APIBaseURL, cfg.APITimeout, slog.Default())
	if err != nil {
		return err
	}

	holder := display.NewHolder()
	mux := httpapi.NewMux(holder)
	antartida.RegisterFeature(mux, apiClient, holder, controller.Options{
		DefaultLocation: cfg.DefaultLocation,
		Logger:          slog.Default(),
	})

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
