// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tkharbeche/musicseer/internal/library"
)

const maxLibraryBody = 4 << 20

// LibraryIngestRequest is the body of a library snapshot upload.
type LibraryIngestRequest struct {
	UserID   string          `json:"-" validate:"required,max=128"`
	ServerID string          `json:"-" validate:"required,max=128"`
	Entries  []library.Entry `json:"entries" validate:"max=5000,dive"`
}

// LibraryIngestResult reports how many entries were stored.
type LibraryIngestResult struct {
	UserID   string `json:"user_id"`
	ServerID string `json:"server_id"`
	Stored   int    `json:"stored"`
}

// IngestLibrary handles PUT /api/v1/library/{userID}/{serverID}. The body
// replaces the user's snapshot for that server; an empty list clears it.
func (h *Handler) IngestLibrary(w http.ResponseWriter, r *http.Request) {
	var req LibraryIngestRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxLibraryBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondValidation(w, r, &APIError{
			Code:    CodeValidationFailed,
			Message: "Request body must be a JSON object with an entries array",
		})
		return
	}
	req.UserID = chi.URLParam(r, "userID")
	req.ServerID = chi.URLParam(r, "serverID")

	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	stored, err := h.deps.Library.ReplaceSnapshot(r.Context(), req.UserID, req.ServerID, req.Entries)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Failed to store library snapshot", err)
		return
	}

	respondData(w, http.StatusOK, LibraryIngestResult{
		UserID:   req.UserID,
		ServerID: req.ServerID,
		Stored:   stored,
	}, newMeta(r))
}
