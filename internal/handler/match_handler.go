package handler

import (
	"encoding/json"
	"net/http"

	"github.com/amara/cobagage/internal/model"
	"github.com/amara/cobagage/internal/repository"
	"github.com/amara/cobagage/internal/service"
)

// BatchMinScoreDefault applies to batch requests that do not set minScore:
// batch callers only care about recommended matches.
const BatchMinScoreDefault = 70.0

// MatchHandler handles matching HTTP requests.
type MatchHandler struct {
	matcher *service.MatchingService
	cache   *repository.MatchCacheRepository
}

// NewMatchHandler creates a new handler wired to the matching service.
// cache may be nil; matching then always recomputes.
func NewMatchHandler(matcher *service.MatchingService, cache *repository.MatchCacheRepository) *MatchHandler {
	return &MatchHandler{matcher: matcher, cache: cache}
}

// ─── Request DTOs ───────────────────────────────────────────

// ColisMatchRequest is the JSON body for POST /api/v1/matching/colis.
type ColisMatchRequest struct {
	ColisID string             `json:"colisId"`
	Options model.MatchOptions `json:"options"`
}

// TrajetMatchRequest is the JSON body for POST /api/v1/matching/trajet.
type TrajetMatchRequest struct {
	TrajetID string             `json:"trajetId"`
	Options  model.MatchOptions `json:"options"`
}

// BatchMatchRequest is the JSON body for POST /api/v1/matching/colis/batch.
type BatchMatchRequest struct {
	ColisIDs []string           `json:"colisIds"`
	Options  model.MatchOptions `json:"options"`
}

func validateOptions(opts model.MatchOptions) bool {
	return opts.MinScore >= 0 && opts.MinScore <= 100 &&
		opts.Limit >= 0 && opts.DateSearchRadius >= 0
}

// ─── Handlers ───────────────────────────────────────────────

// MatchColis handles POST /api/v1/matching/colis
//
// Computes scored trip matches for a package. Results are served from
// the Redis cache when a fresh entry exists.
func (h *MatchHandler) MatchColis(w http.ResponseWriter, r *http.Request) {
	var body ColisMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body")
		return
	}
	if body.ColisID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "colisId is required")
		return
	}
	if !validateOptions(body.Options) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "minScore must be 0-100; limit and dateSearchRadius must be positive")
		return
	}

	if h.cache != nil {
		if cached, ok := h.cache.GetColisResults(r.Context(), body.ColisID, body.Options); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	results, err := h.matcher.FindMatchesForColis(r.Context(), body.ColisID, body.Options)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if h.cache != nil {
		h.cache.StoreColisResults(r.Context(), body.ColisID, body.Options, results)
	}
	writeJSON(w, http.StatusOK, results)
}

// MatchTrajet handles POST /api/v1/matching/trajet
//
// Computes scored package matches for a trip.
func (h *MatchHandler) MatchTrajet(w http.ResponseWriter, r *http.Request) {
	var body TrajetMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body")
		return
	}
	if body.TrajetID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "trajetId is required")
		return
	}
	if !validateOptions(body.Options) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "minScore must be 0-100; limit and dateSearchRadius must be positive")
		return
	}

	if h.cache != nil {
		if cached, ok := h.cache.GetTrajetResults(r.Context(), body.TrajetID, body.Options); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	results, err := h.matcher.FindMatchesForTrajet(r.Context(), body.TrajetID, body.Options)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if h.cache != nil {
		h.cache.StoreTrajetResults(r.Context(), body.TrajetID, body.Options, results)
	}
	writeJSON(w, http.StatusOK, results)
}

// MatchColisBatch handles POST /api/v1/matching/colis/batch
//
// Runs the per-colis searches concurrently. minScore defaults to 70
// in this direction: batch consumers only want recommended matches.
func (h *MatchHandler) MatchColisBatch(w http.ResponseWriter, r *http.Request) {
	var body BatchMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body")
		return
	}
	if len(body.ColisIDs) == 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "colisIds must not be empty")
		return
	}
	if !validateOptions(body.Options) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "minScore must be 0-100; limit and dateSearchRadius must be positive")
		return
	}

	opts := body.Options
	if opts.MinScore == 0 {
		opts.MinScore = BatchMinScoreDefault
	}

	results, err := h.matcher.BatchMatchColis(r.Context(), body.ColisIDs, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"matchesByColisId": results,
	})
}
