package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atlarge-research/opendc-api/internal/api"
	apimiddleware "github.com/atlarge-research/opendc-api/internal/api/middleware"
)

// setupRouter creates and configures the application router. All API traffic
// funnels through a single catch-all route into the dispatcher; only the
// operational endpoints live outside it.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.NewTraceMiddleware(app.logger))

	adapter := api.NewAdapter(app.dispatcher, app.logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(app.promRegistry, promhttp.HandlerOpts{}))

	r.HandleFunc("/{version}/*", adapter.HandleAPICall)

	return r
}
