// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tkharbeche/musicseer/internal/middleware"
)

// NewRouter builds the chi router for the API.
func NewRouter(h *Handler, mw *ChiMiddleware) http.Handler {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())
	r.Use(APISecurityHeaders())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/health", func(r chi.Router) {
			r.Get("/live", h.HealthLive)
			r.Get("/ready", h.HealthReady)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit())

			r.Route("/discovery", func(r chi.Router) {
				r.Get("/trending", h.Trending)
				r.Get("/recommendations/{userID}", h.Recommendations)
				r.Get("/hidden-gems/{userID}", h.HiddenGems)
				r.Post("/sync", h.TriggerSync)
				r.Get("/sync/status", h.SyncStatus)
			})

			r.Get("/artists/lookup", h.LookupArtist)
			r.Put("/library/{userID}/{serverID}", h.IngestLibrary)
		})
	})

	return r
}
