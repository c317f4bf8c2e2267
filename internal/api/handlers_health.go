// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package api

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const readinessTimeout = 2 * time.Second

// HealthStatus is the health payload.
type HealthStatus struct {
	Status        string  `json:"status"`
	Database      string  `json:"database,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// HealthLive reports that the process is serving.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, HealthStatus{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
	}, newMeta(r))
}

// HealthReady pings the database.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.deps.DB == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeUnavailable, "Database not configured",
			errors.New("no database"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.deps.DB.Ping(ctx); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeUnavailable, "Database unavailable", err)
		return
	}

	respondData(w, http.StatusOK, HealthStatus{
		Status:        "ready",
		Database:      "connected",
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
	}, newMeta(r))
}
