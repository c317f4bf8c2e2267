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

	"github.com/go-chi/chi/v5"

	"github.com/tkharbeche/musicseer/internal/recommend"
	"github.com/tkharbeche/musicseer/internal/trending"
)

// Trending handles GET /api/v1/discovery/trending.
func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	limit, apiErr := parseLimit(r)
	if apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	start := time.Now()
	list, err := h.deps.Trending.GetTrending(r.Context(), limit)
	if errors.Is(err, trending.ErrInvalidLimit) {
		respondValidation(w, r, invalidLimit(limit))
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Failed to read trending artists", err)
		return
	}

	meta := newMeta(r)
	meta.Count = countOf(len(list))
	meta.QueryTimeMS = time.Since(start).Milliseconds()

	w.Header().Set("Cache-Control", "public, max-age=60")
	respondData(w, http.StatusOK, list, meta)
}

// Recommendations handles GET /api/v1/discovery/recommendations/{userID}.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	h.recommend(w, r, recommend.ModePersonalized)
}

// HiddenGems handles GET /api/v1/discovery/hidden-gems/{userID}.
func (h *Handler) HiddenGems(w http.ResponseWriter, r *http.Request) {
	h.recommend(w, r, recommend.ModeHiddenGems)
}

func (h *Handler) recommend(w http.ResponseWriter, r *http.Request, mode recommend.Mode) {
	limit, apiErr := parseLimit(r)
	if apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	req := recommend.Request{
		UserID:   chi.URLParam(r, "userID"),
		ServerID: r.URL.Query().Get("server_id"),
		Limit:    limit,
		Mode:     mode,
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.recommendTimeout)
	defer cancel()

	resp, err := h.deps.Recommender.Recommend(ctx, req)
	switch {
	case errors.Is(err, recommend.ErrInvalidRequest):
		respondValidation(w, r, &APIError{Code: CodeValidationFailed, Message: err.Error()})
		return
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "Recommendation request timed out", err)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Failed to generate recommendations", err)
		return
	}

	meta := newMeta(r)
	meta.Count = countOf(len(resp.Items))
	meta.QueryTimeMS = resp.Metadata.LatencyMS
	respondData(w, http.StatusOK, resp, meta)
}
