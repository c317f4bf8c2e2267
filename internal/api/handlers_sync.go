// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package api

import (
	"errors"
	"net/http"

	"github.com/tkharbeche/musicseer/internal/trending"
)

// SyncAccepted is returned when a sync run is queued.
type SyncAccepted struct {
	Status string `json:"status"`
}

// TriggerSync handles POST /api/v1/discovery/sync.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if h.deps.SyncTrigger == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeUnavailable, "Trending sync is disabled", nil)
		return
	}

	err := h.deps.SyncTrigger.Trigger()
	if errors.Is(err, trending.ErrAlreadyRunning) {
		respondError(w, r, http.StatusConflict, CodeSyncRunning, "A trending sync is already running", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Failed to queue trending sync", err)
		return
	}

	respondData(w, http.StatusAccepted, SyncAccepted{Status: "queued"}, newMeta(r))
}

// SyncStatus handles GET /api/v1/discovery/sync/status.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	if h.deps.SyncStatus == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeUnavailable, "Trending sync is disabled", nil)
		return
	}
	respondData(w, http.StatusOK, h.deps.SyncStatus.Status(), newMeta(r))
}
