// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package api

import (
	"net/http"
	"strings"

	"github.com/tkharbeche/musicseer/internal/artists"
)

// ArtistLookupRequest selects a cached artist by registry id, name, or both.
type ArtistLookupRequest struct {
	Name string `json:"name" validate:"required_without=MBID,max=512"`
	MBID string `json:"mbid" validate:"omitempty,mbid"`
}

// LookupArtist handles GET /api/v1/artists/lookup. The registry id wins
// when both are given and it is known.
func (h *Handler) LookupArtist(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ArtistLookupRequest{
		Name: strings.TrimSpace(q.Get("name")),
		MBID: strings.TrimSpace(q.Get("mbid")),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	var (
		rec *artists.Record
		err error
	)
	if req.MBID != "" {
		rec, err = h.deps.Artists.FindByID(r.Context(), req.MBID)
	}
	if err == nil && rec == nil && req.Name != "" {
		rec, err = h.deps.Artists.FindByName(r.Context(), req.Name)
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Failed to read artist", err)
		return
	}
	if rec == nil {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "Artist not cached", nil)
		return
	}

	respondData(w, http.StatusOK, rec, newMeta(r))
}
