// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/tracksim/internal/logging"
	"github.com/tomtom215/tracksim/internal/models"
	"github.com/tomtom215/tracksim/internal/recommend"
)

const (
	defaultAutocompleteLimit = 10
	maxAutocompleteLimit     = 50
	maxAutocompleteQuery     = 200
)

// Recommend handles POST /api/v1/recommend.
//
// The neighbors of every query id are flattened in query order, keeping the
// first occurrence of a track. When the catalog is enabled only tracks with
// a catalog link are returned.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req models.RecommendRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "Invalid request body: "+err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	if len(req.IDs) > h.maxQueryIDs() {
		respondError(w, r, http.StatusBadRequest, CodeValidation,
			fmt.Sprintf("ids must contain at most %d items", h.maxQueryIDs()), nil)
		return
	}
	// The n_recs cap is enforced by the engine, after it checks the index
	// holds enough tracks.

	results, err := h.engine.Recommend(ctx, req.IDs, req.NRecs)
	if err != nil {
		status, code := engineErrorStatus(err)
		var logErr error
		if status >= http.StatusInternalServerError && code != CodeModelNotReady {
			logErr = err
		}
		respondError(w, r, status, code, err.Error(), logErr)
		return
	}

	ids, notFound := flattenResults(results)

	summaries, err := h.store.SummariesByID(ctx, ids)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "Failed to load track details", err)
		return
	}

	tracks := make([]models.RecommendedTrack, 0, len(ids))
	for _, id := range ids {
		s, ok := summaries[id]
		if !ok {
			continue
		}
		tracks = append(tracks, models.RecommendedTrack{TrackSummary: s})
	}

	tracks = h.attachLinks(r, tracks)

	respondSuccess(w, r, http.StatusOK, models.RecommendResponse{
		Tracks:   tracks,
		NotFound: notFound,
	}, start)
}

// flattenResults lists neighbor ids across results, first occurrence wins,
// and the query ids missing from the index.
func flattenResults(results []recommend.Result) (ids, notFound []string) {
	seen := make(map[string]struct{})
	notFound = []string{}
	for _, res := range results {
		if !res.Found {
			notFound = append(notFound, res.ID)
			continue
		}
		for _, n := range res.Neighbors {
			if _, dup := seen[n.ID]; dup {
				continue
			}
			seen[n.ID] = struct{}{}
			ids = append(ids, n.ID)
		}
	}
	return ids, notFound
}

// attachLinks joins catalog links onto tracks, dropping tracks the catalog
// does not know. Without a catalog, or when the lookup fails, tracks are
// returned without links.
func (h *Handler) attachLinks(r *http.Request, tracks []models.RecommendedTrack) []models.RecommendedTrack {
	if h.links == nil || len(tracks) == 0 {
		return tracks
	}

	ids := make([]string, len(tracks))
	for i := range tracks {
		ids[i] = tracks[i].TrackID
	}

	links, err := h.links.Links(r.Context(), ids)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Int("tracks", len(ids)).
			Msg("Catalog lookup failed, returning recommendations without links")
		return tracks
	}

	joined := tracks[:0]
	for _, t := range tracks {
		link, ok := links[t.TrackID]
		if !ok {
			continue
		}
		t.URI = link.URI
		t.ImageURL = link.ImageURL
		joined = append(joined, t)
	}
	return joined
}

// Autocomplete handles GET /api/v1/autocomplete?q=&limit=.
func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "q is required", nil)
		return
	}
	if len(q) > maxAutocompleteQuery {
		respondError(w, r, http.StatusBadRequest, CodeValidation,
			fmt.Sprintf("q must be at most %d characters", maxAutocompleteQuery), nil)
		return
	}

	limit, ok := getIntParam(r, "limit", defaultAutocompleteLimit)
	if !ok || limit < 1 || limit > maxAutocompleteLimit {
		respondError(w, r, http.StatusBadRequest, CodeValidation,
			fmt.Sprintf("limit must be between 1 and %d", maxAutocompleteLimit), nil)
		return
	}

	tracks, err := h.store.Autocomplete(r.Context(), q, limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "Failed to search tracks", err)
		return
	}
	if tracks == nil {
		tracks = []models.TrackSummary{}
	}

	respondSuccess(w, r, http.StatusOK, tracks, start)
}
